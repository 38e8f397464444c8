package jdeserialize

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"go.uber.org/zap"
)

// Options control a single decode run.
type Options struct {
	// ConnectMemberClasses runs the inner/static member class reconnection
	// pass over the class descriptions after the stream has been read.
	ConnectMemberClasses bool

	// Logger receives protocol-level debug output. Nil means no logging.
	Logger *zap.Logger
}

// Decoder reads a single ObjectOutputStream-produced stream and materializes
// its content graph. A Decoder owns its input and handle table and is not
// safe to share across goroutines; separate streams require separate
// decoders.
type Decoder struct {
	r        *recordingReader
	log      *zap.Logger
	opts     Options
	table    *handleTable
	contents []Content
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader, opts Options) *Decoder {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Decoder{
		r:     newRecordingReader(bufio.NewReader(r)),
		log:   log,
		opts:  opts,
		table: newHandleTable(),
	}
}

// Decode parses an entire serialization stream from r and returns the
// decoded content graph.
func Decode(r io.Reader, opts Options) (*DecodedStream, error) {
	return NewDecoder(r, opts).Decode()
}

// Decode reads the stream to EOF. On error, the returned stream still holds
// the contents and handle tables built so far, for diagnostics.
func (d *Decoder) Decode() (*DecodedStream, error) {
	if err := d.readHeader(); err != nil {
		return d.stream(), err
	}
	for {
		d.r.startRecording()
		tc, err := d.r.ReadByte()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return d.stream(), fmt.Errorf("read content tag: %w", err)
		}
		if tc == TcReset {
			d.reset()
			continue
		}
		c, err := d.readContent(tc, true)
		if err != nil {
			return d.stream(), err
		}
		d.log.Debug("read top-level record", zap.Any("content", c))
		if c != nil && c.IsException() {
			c = newExceptionState(c, d.r.recorded())
		}
		d.contents = append(d.contents, c)
	}
	for _, c := range d.table.active {
		if err := c.Validate(); err != nil {
			return d.stream(), err
		}
	}
	if d.opts.ConnectMemberClasses {
		if err := connectMemberClasses(d.table.active); err != nil {
			return d.stream(), err
		}
		for _, c := range d.table.active {
			if err := c.Validate(); err != nil {
				return d.stream(), err
			}
		}
	}
	d.table.reset()
	return d.stream(), nil
}

func (d *Decoder) stream() *DecodedStream {
	epochs := make([]map[int32]Content, len(d.table.archived))
	copy(epochs, d.table.archived)
	if len(d.table.active) > 0 {
		epochs = append(epochs, d.table.active)
	}
	return &DecodedStream{contents: d.contents, epochs: epochs}
}

func (d *Decoder) readHeader() error {
	var (
		magic   uint16
		version int16
	)
	if err := d.readBinary(&magic, &version); err != nil {
		return fmt.Errorf("read stream header: %w", err)
	}
	if magic != StreamMagic {
		return validityErrorf("file magic mismatch: expected %s, got %s", hx(int64(StreamMagic)), hx(int64(magic)))
	}
	if version != StreamVersion {
		return validityErrorf("file version mismatch: expected %d, got %d", StreamVersion, version)
	}
	return nil
}

// readBinary reads big-endian values. EOF in the middle of a record is
// always unexpected; the clean end of stream is detected only at the
// top-level tag read.
func (d *Decoder) readBinary(dsts ...interface{}) error {
	for _, dst := range dsts {
		if err := binary.Read(d.r, binary.BigEndian, dst); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
	}
	return nil
}

func (d *Decoder) readTag() (byte, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	return b, nil
}

func (d *Decoder) readFully(p []byte) error {
	if _, err := io.ReadFull(d.r, p); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

// readUTF reads a length-prefixed modified UTF-8 string, as written by
// DataOutputStream.writeUTF.
func (d *Decoder) readUTF() (string, error) {
	var length uint16
	if err := d.readBinary(&length); err != nil {
		return "", fmt.Errorf("read utf length: %w", err)
	}
	data := make([]byte, length)
	if err := d.readFully(data); err != nil {
		return "", fmt.Errorf("read utf bytes: %w", err)
	}
	return decodeModifiedUTF8(data)
}

func (d *Decoder) reset() {
	d.log.Debug("reset ordered")
	d.table.reset()
}

// readContent reads the next value corresponding to the grammar rule
// "content". blockData selects between the grammar rules "content" (block
// data permitted) and "object" (block data forbidden).
//
// An embedded-exception signal raised anywhere below is absorbed here and
// replaced by the exception object itself; the top-level loop recognizes the
// exception flag and wraps the object into an ExceptionState.
func (d *Decoder) readContent(tc byte, blockData bool) (Content, error) {
	c, err := d.dispatchContent(tc, blockData)
	if err != nil {
		var ere *exceptionReadError
		if errors.As(err, &ere) {
			return ere.content, nil
		}
		return nil, err
	}
	return c, nil
}

func (d *Decoder) dispatchContent(tc byte, blockData bool) (Content, error) {
	switch tc {
	case TcObject:
		return d.readNewObject()
	case TcClass:
		return d.readNewClass()
	case TcArray:
		return d.readNewArray()
	case TcString, TcLongstring:
		return d.readNewString(tc)
	case TcEnum:
		return d.readNewEnum()
	case TcClassdesc, TcProxyclassdesc:
		return d.handleClassDesc(tc, true)
	case TcReference:
		return d.readPrevObject()
	case TcNull:
		return nil, nil
	case TcException:
		return d.readException()
	case TcBlockdata, TcBlockdatalong:
		if !blockData {
			return nil, validityErrorf("got a blockdata tag, but not allowed here: %s", hx(int64(tc)))
		}
		return d.readBlockData(tc)
	default:
		return nil, validityErrorf("unknown content tag byte in stream: %s", hx(int64(tc)))
	}
}

// readPrevObject resolves a TC_REFERENCE against the current epoch's table.
func (d *Decoder) readPrevObject() (Content, error) {
	var handle int32
	if err := d.readBinary(&handle); err != nil {
		return nil, fmt.Errorf("read reference handle: %w", err)
	}
	c, err := d.table.resolve(handle)
	if err != nil {
		return nil, err
	}
	d.log.Debug("resolved back-reference", zap.String("handle", hx(int64(handle))))
	return c, nil
}

// readException reads the exception subprotocol: the handle table is reset,
// the thrown object is read with block data forbidden, and the table is
// reset again. The serialization protocol requires the thrown object to
// descend from Throwable; only its being an instance is enforced here.
func (d *Decoder) readException() (Content, error) {
	d.reset()
	tc, err := d.readTag()
	if err != nil {
		return nil, err
	}
	if tc == TcReset {
		return nil, validityErrorf("TC_RESET for object while reading exception")
	}
	c, err := d.readContent(tc, false)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, validityErrorf("stream signaled for an exception, but exception object was null")
	}
	if c.Kind() != KindInstance {
		return nil, validityErrorf("stream signaled for an exception, but content is not an object")
	}
	if c.IsException() {
		return nil, &exceptionReadError{content: c}
	}
	c.setException(true)
	d.reset()
	return c, nil
}

func (d *Decoder) readClassDesc() (*ClassDesc, error) {
	tc, err := d.readTag()
	if err != nil {
		return nil, err
	}
	return d.handleClassDescTag(tc, false)
}

func (d *Decoder) handleClassDesc(tc byte, mustBeNew bool) (Content, error) {
	cd, err := d.handleClassDescTag(tc, mustBeNew)
	if err != nil {
		return nil, err
	}
	// Avoid a non-nil interface around a nil *ClassDesc.
	if cd == nil {
		return nil, nil
	}
	return cd, nil
}

func (d *Decoder) handleClassDescTag(tc byte, mustBeNew bool) (*ClassDesc, error) {
	switch tc {
	case TcClassdesc:
		return d.readNewClassDesc()
	case TcProxyclassdesc:
		return d.readNewProxyClassDesc()
	case TcNull:
		if mustBeNew {
			return nil, validityErrorf("expected new class description -- got null")
		}
		return nil, nil
	case TcReference:
		if mustBeNew {
			return nil, validityErrorf("expected new class description -- got a reference")
		}
		c, err := d.readPrevObject()
		if err != nil {
			return nil, err
		}
		cd, ok := c.(*ClassDesc)
		if !ok {
			return nil, validityErrorf("referenced object not a class description")
		}
		return cd, nil
	default:
		return nil, validityErrorf("expected a valid class description starter, got %s", hx(int64(tc)))
	}
}

// readNewClassDesc reads a TC_CLASSDESC body. The handle is bound to the
// description before annotations and the superclass are read, so that
// forward references written by annotateClass hooks resolve.
func (d *Decoder) readNewClassDesc() (*ClassDesc, error) {
	name, err := d.readUTF()
	if err != nil {
		return nil, fmt.Errorf("read class name: %w", err)
	}
	cd := newClassDesc(NormalClass)
	cd.Name = name
	if err := d.readBinary(&cd.SerialVersionUID); err != nil {
		return nil, fmt.Errorf("read serialVersionUID: %w", err)
	}
	cd.handle = d.table.alloc()
	if err := d.table.bind(cd.handle, cd); err != nil {
		return nil, err
	}
	var nFields int16
	if err := d.readBinary(&cd.DescFlags, &nFields); err != nil {
		return nil, fmt.Errorf("read class description info: %w", err)
	}
	if nFields < 0 {
		return nil, sizeLimitErrorf("invalid field count: %d", nFields)
	}
	cd.Fields = make([]*Field, 0, nFields)
	for i := int16(0); i < nFields; i++ {
		f, err := d.readFieldDesc()
		if err != nil {
			return nil, err
		}
		cd.Fields = append(cd.Fields, f)
	}
	if cd.Annotations, err = d.readClassAnnotation(); err != nil {
		return nil, err
	}
	if cd.Superclass, err = d.readClassDesc(); err != nil {
		return nil, err
	}
	d.log.Debug("read new class descriptor",
		zap.String("handle", hx(int64(cd.handle))), zap.String("name", name))
	return cd, nil
}

func (d *Decoder) readFieldDesc() (*Field, error) {
	fType, err := d.readTag()
	if err != nil {
		return nil, err
	}
	ft, err := fieldTypeOf(fType)
	if err != nil {
		return nil, err
	}
	name, err := d.readUTF()
	if err != nil {
		return nil, fmt.Errorf("read field name: %w", err)
	}
	var className *StringObj
	if !ft.isPrimitive() {
		stc, err := d.readTag()
		if err != nil {
			return nil, err
		}
		if className, err = d.readNewString(stc); err != nil {
			return nil, err
		}
	}
	return newField(ft, name, className)
}

// readNewProxyClassDesc reads a TC_PROXYCLASSDESC body: interface names,
// annotations and superclass; no fields and no declared name.
func (d *Decoder) readNewProxyClassDesc() (*ClassDesc, error) {
	cd := newClassDesc(ProxyClass)
	cd.handle = d.table.alloc()
	if err := d.table.bind(cd.handle, cd); err != nil {
		return nil, err
	}
	var iCount int32
	if err := d.readBinary(&iCount); err != nil {
		return nil, fmt.Errorf("read proxy interface count: %w", err)
	}
	if iCount < 0 {
		return nil, sizeLimitErrorf("invalid proxy interface count: %s", hx(int64(iCount)))
	}
	cd.Interfaces = make([]string, iCount)
	for i := int32(0); i < iCount; i++ {
		name, err := d.readUTF()
		if err != nil {
			return nil, fmt.Errorf("read proxy interface name: %w", err)
		}
		cd.Interfaces[i] = name
	}
	var err error
	if cd.Annotations, err = d.readClassAnnotation(); err != nil {
		return nil, err
	}
	if cd.Superclass, err = d.readClassDesc(); err != nil {
		return nil, err
	}
	cd.Name = "(proxy class; no name)"
	d.log.Debug("read new proxy class descriptor",
		zap.String("handle", hx(int64(cd.handle))), zap.Strings("interfaces", cd.Interfaces))
	return cd, nil
}

// readClassAnnotation reads the content list written between a class
// description's field table and its superclass, up to TC_ENDBLOCKDATA.
// Resets are honored and skipped.
func (d *Decoder) readClassAnnotation() ([]Content, error) {
	var list []Content
	for {
		tc, err := d.readTag()
		if err != nil {
			return nil, err
		}
		switch tc {
		case TcEndblockdata:
			return list, nil
		case TcReset:
			d.reset()
		default:
			c, err := d.readContent(tc, true)
			if err != nil {
				return nil, err
			}
			if c != nil && c.IsException() {
				return nil, &exceptionReadError{content: c}
			}
			list = append(list, c)
		}
	}
}

// readNewObject reads a TC_OBJECT body. The instance is bound before its
// class data is read, so field graphs may legally refer back to it.
func (d *Decoder) readNewObject() (*Instance, error) {
	cd, err := d.readClassDesc()
	if err != nil {
		return nil, err
	}
	if cd == nil {
		return nil, validityErrorf("object class descriptor can't be null")
	}
	handle := d.table.alloc()
	d.log.Debug("reading new object",
		zap.String("handle", hx(int64(handle))), zap.Stringer("classdesc", cd))
	inst := newInstance(handle, cd)
	if err := d.table.bind(handle, inst); err != nil {
		return nil, err
	}
	if err := d.readClassData(inst); err != nil {
		return nil, err
	}
	d.log.Debug("done reading object", zap.String("handle", hx(int64(handle))))
	return inst, nil
}

// readClassData reads an instance's per-class data, walking the hierarchy
// ancestors first.
func (d *Decoder) readClassData(inst *Instance) error {
	ann := make(map[*ClassDesc][]Content)
	for _, cd := range inst.ClassDesc.Hierarchy() {
		switch {
		case cd.DescFlags&ScSerializable != 0:
			if cd.DescFlags&ScExternalizable != 0 {
				return validityErrorf("SC_EXTERNALIZABLE & SC_SERIALIZABLE encountered")
			}
			values := make(map[*Field]interface{}, len(cd.Fields))
			for _, f := range cd.Fields {
				v, err := d.readFieldValue(f.Type)
				if err != nil {
					return err
				}
				values[f] = v
			}
			inst.FieldData[cd] = values
			if cd.DescFlags&ScWriteMethod != 0 {
				if cd.DescFlags&ScEnum != 0 {
					return validityErrorf("SC_ENUM & SC_WRITE_METHOD encountered")
				}
				list, err := d.readClassAnnotation()
				if err != nil {
					return err
				}
				ann[cd] = list
			}
		case cd.DescFlags&ScExternalizable != 0:
			if cd.DescFlags&ScBlockData == 0 {
				return validityErrorf("cannot interpret externalizable data without block-data marker")
			}
			list, err := d.readClassAnnotation()
			if err != nil {
				return err
			}
			ann[cd] = list
		}
	}
	inst.Annotations = ann
	return nil
}

// readFieldValue reads one value of the given type: primitives as direct
// binary reads, references via a nested content read with block data
// forbidden. A reference value flagged as an exception raises the
// embedded-exception signal.
func (d *Decoder) readFieldValue(ft FieldType) (interface{}, error) {
	switch ft {
	case FieldByte:
		var v int8
		err := d.readBinary(&v)
		return v, err
	case FieldChar:
		var v uint16
		err := d.readBinary(&v)
		return v, err
	case FieldDouble:
		var v float64
		err := d.readBinary(&v)
		return v, err
	case FieldFloat:
		var v float32
		err := d.readBinary(&v)
		return v, err
	case FieldInteger:
		var v int32
		err := d.readBinary(&v)
		return v, err
	case FieldLong:
		var v int64
		err := d.readBinary(&v)
		return v, err
	case FieldShort:
		var v int16
		err := d.readBinary(&v)
		return v, err
	case FieldBoolean:
		var v bool
		err := d.readBinary(&v)
		return v, err
	case FieldObject, FieldArray:
		tc, err := d.readTag()
		if err != nil {
			return nil, err
		}
		c, err := d.readContent(tc, false)
		if err != nil {
			return nil, err
		}
		if c != nil && c.IsException() {
			return nil, &exceptionReadError{content: c}
		}
		if c == nil {
			return nil, nil
		}
		return c, nil
	default:
		return nil, validityErrorf("can't process field type: %s", hx(int64(ft)))
	}
}

// readNewArray reads a TC_ARRAY body. The element type is the second
// character of the array class's name.
func (d *Decoder) readNewArray() (*ArrayObj, error) {
	cd, err := d.readClassDesc()
	if err != nil {
		return nil, err
	}
	if cd == nil {
		return nil, validityErrorf("array class descriptor can't be null")
	}
	handle := d.table.alloc()
	d.log.Debug("reading new array",
		zap.String("handle", hx(int64(handle))), zap.Stringer("classdesc", cd))
	if len(cd.Name) < 2 {
		return nil, validityErrorf("invalid name in array class descriptor: %q", cd.Name)
	}
	ft, err := fieldTypeOf(cd.Name[1])
	if err != nil {
		return nil, err
	}
	var size int32
	if err := d.readBinary(&size); err != nil {
		return nil, fmt.Errorf("read array size: %w", err)
	}
	if size < 0 {
		return nil, sizeLimitErrorf("invalid array size: %d", size)
	}
	ac := &ArrayColl{FieldType: ft, Values: make([]interface{}, 0, size)}
	for i := int32(0); i < size; i++ {
		v, err := d.readFieldValue(ft)
		if err != nil {
			return nil, err
		}
		ac.Values = append(ac.Values, v)
	}
	ao := newArrayObj(handle, cd, ac)
	if err := d.table.bind(handle, ao); err != nil {
		return nil, err
	}
	return ao, nil
}

func (d *Decoder) readNewClass() (*ClassObj, error) {
	cd, err := d.readClassDesc()
	if err != nil {
		return nil, err
	}
	if cd == nil {
		return nil, validityErrorf("class literal's class descriptor can't be null")
	}
	handle := d.table.alloc()
	d.log.Debug("reading new class",
		zap.String("handle", hx(int64(handle))), zap.Stringer("classdesc", cd))
	c := newClassObj(handle, cd)
	if err := d.table.bind(handle, c); err != nil {
		return nil, err
	}
	return c, nil
}

// readNewEnum reads a TC_ENUM body: the enum's class description and the
// string naming the constant. The allocated wire handle is bound to the name
// string, mirroring the writer's handle assignment for enums.
func (d *Decoder) readNewEnum() (*EnumObj, error) {
	cd, err := d.readClassDesc()
	if err != nil {
		return nil, err
	}
	if cd == nil {
		return nil, validityErrorf("enum class descriptor can't be null")
	}
	handle := d.table.alloc()
	d.log.Debug("reading new enum",
		zap.String("handle", hx(int64(handle))), zap.Stringer("classdesc", cd))
	tc, err := d.readTag()
	if err != nil {
		return nil, err
	}
	so, err := d.readNewString(tc)
	if err != nil {
		return nil, err
	}
	cd.AddEnum(so.Value)
	if err := d.table.bind(handle, so); err != nil {
		return nil, err
	}
	return newEnumObj(handle, cd, so), nil
}

// readNewString reads a string-producing tag: TC_STRING, TC_LONGSTRING or a
// TC_REFERENCE resolving to a string. TC_NULL is rejected where a string is
// required.
func (d *Decoder) readNewString(tc byte) (*StringObj, error) {
	if tc == TcReference {
		c, err := d.readPrevObject()
		if err != nil {
			return nil, err
		}
		so, ok := c.(*StringObj)
		if !ok {
			return nil, validityErrorf("got reference for a string, but referenced value was something else")
		}
		return so, nil
	}
	handle := d.table.alloc()
	var length int64
	switch tc {
	case TcString:
		var l uint16
		if err := d.readBinary(&l); err != nil {
			return nil, fmt.Errorf("read string length: %w", err)
		}
		length = int64(l)
	case TcLongstring:
		if err := d.readBinary(&length); err != nil {
			return nil, fmt.Errorf("read long string length: %w", err)
		}
		if length < 0 {
			return nil, sizeLimitErrorf("invalid long string length: %d", length)
		}
		if length > math.MaxInt32 {
			return nil, sizeLimitErrorf("long string is too long: %d", length)
		}
		if length < 65536 {
			d.log.Warn("small string length encoded as TC_LONGSTRING", zap.Int64("length", length))
		}
	case TcNull:
		return nil, validityErrorf("stream signaled TC_NULL when string type expected")
	default:
		return nil, validityErrorf("invalid tag byte in string: %s", hx(int64(tc)))
	}
	data := make([]byte, length)
	if err := d.readFully(data); err != nil {
		return nil, fmt.Errorf("read string bytes: %w", err)
	}
	d.log.Debug("reading new string",
		zap.String("handle", hx(int64(handle))), zap.Int("bufsz", len(data)))
	so, err := newStringObj(handle, data)
	if err != nil {
		return nil, err
	}
	if err := d.table.bind(handle, so); err != nil {
		return nil, err
	}
	return so, nil
}

// readBlockData reads a short or long block data body. Block data carries no
// handle.
func (d *Decoder) readBlockData(tc byte) (*BlockData, error) {
	var size int32
	switch tc {
	case TcBlockdata:
		var l uint8
		if err := d.readBinary(&l); err != nil {
			return nil, fmt.Errorf("read blockdata size: %w", err)
		}
		size = int32(l)
	case TcBlockdatalong:
		if err := d.readBinary(&size); err != nil {
			return nil, fmt.Errorf("read blockdata size: %w", err)
		}
		if size < 0 {
			return nil, sizeLimitErrorf("invalid value for blockdata size: %d", size)
		}
	default:
		return nil, validityErrorf("invalid tag value for blockdata: %s", hx(int64(tc)))
	}
	buf := make([]byte, size)
	if err := d.readFully(buf); err != nil {
		return nil, fmt.Errorf("read blockdata: %w", err)
	}
	d.log.Debug("read blockdata", zap.Int32("size", size))
	return newBlockData(buf), nil
}
