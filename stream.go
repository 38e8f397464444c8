package jdeserialize

// DecodedStream is the materialized result of a decode run: the ordered
// top-level contents (including nulls and exception states) and the handle
// tables archived across stream resets. All queries are read-only.
type DecodedStream struct {
	contents []Content
	epochs   []map[int32]Content
}

// TopLevel returns the ordered sequence of top-level stream records. Entries
// may be nil, because writing a null reference to the stream is legitimate.
func (s *DecodedStream) TopLevel() []Content {
	return s.contents
}

// Epochs returns every handle table generated during parsing, in stream
// order. Although only one table is active at a time, a stream may carry
// several: each TC_RESET archives the current one.
func (s *DecodedStream) Epochs() []map[int32]Content {
	return s.epochs
}

// eachContent visits every handle-carrying content across all epochs.
func (s *DecodedStream) eachContent(visit func(Content) bool) {
	for _, epoch := range s.epochs {
		for _, c := range epoch {
			if !visit(c) {
				return
			}
		}
	}
}

// HandleForClass finds the handle of a class description with the given
// name, searching among the class data attached to instances. The second
// return value reports whether a match was found.
func (s *DecodedStream) HandleForClass(name string) (int32, bool) {
	var handle int32
	found := false
	s.eachContent(func(c Content) bool {
		inst, ok := c.(*Instance)
		if !ok {
			return true
		}
		for cd := range inst.FieldData {
			if cd.Name == name {
				handle = cd.Handle()
				found = true
				return false
			}
		}
		return true
	})
	return handle, found
}

// HandleForField finds the handle of the instance stored in the named field
// of the class with the given handle.
func (s *DecodedStream) HandleForField(name string, classHandle int32) (int32, bool) {
	var handle int32
	found := false
	s.eachContent(func(c Content) bool {
		inst, ok := c.(*Instance)
		if !ok {
			return true
		}
		for cd, values := range inst.FieldData {
			if cd.Handle() != classHandle {
				continue
			}
			for _, f := range cd.Fields {
				if f.Name != name {
					continue
				}
				if fi, ok := values[f].(*Instance); ok {
					handle = fi.Handle()
					found = true
					return false
				}
			}
		}
		return true
	})
	return handle, found
}

// ValueOf returns the value of the named field declared by the instance's
// own class, looked up by the instance's handle.
func (s *DecodedStream) ValueOf(name string, instanceHandle int32) (interface{}, bool) {
	for _, epoch := range s.epochs {
		c, ok := epoch[instanceHandle]
		if !ok {
			continue
		}
		inst, ok := c.(*Instance)
		if !ok {
			return nil, false
		}
		for _, f := range inst.ClassDesc.Fields {
			if f.Name == name {
				v, ok := inst.FieldData[inst.ClassDesc][f]
				return v, ok
			}
		}
	}
	return nil, false
}

// FieldValue composes the lookups above: it locates the class by name,
// follows the named field to the contained instance, and returns that
// instance's value for valueName.
func (s *DecodedStream) FieldValue(className, fieldName, valueName string) (interface{}, bool) {
	classHandle, ok := s.HandleForClass(className)
	if !ok {
		return nil, false
	}
	fieldHandle, ok := s.HandleForField(fieldName, classHandle)
	if !ok {
		return nil, false
	}
	return s.ValueOf(valueName, fieldHandle)
}
