package jdeserialize

import (
	"fmt"
	"strings"
)

// StringObj represents a serialized string. Strings occur as stream content
// in their own right and inside other objects (field descriptors, enum
// constants), and carry handles like any other content.
type StringObj struct {
	contentBase

	// Value is the decoded Unicode string.
	Value string
}

func newStringObj(handle int32, data []byte) (*StringObj, error) {
	value, err := decodeModifiedUTF8(data)
	if err != nil {
		return nil, err
	}
	return &StringObj{
		contentBase: contentBase{kind: KindString, handle: handle},
		Value:       value,
	}, nil
}

func (s *StringObj) String() string {
	return fmt.Sprintf("[String %s: %q]", hx(int64(s.handle)), s.Value)
}

// ClassObj represents a Class object (an instance of java.lang.Class)
// serialized in the stream.
type ClassObj struct {
	contentBase

	// ClassDesc is the description of the represented class.
	ClassDesc *ClassDesc
}

func newClassObj(handle int32, cd *ClassDesc) *ClassObj {
	return &ClassObj{
		contentBase: contentBase{kind: KindClass, handle: handle},
		ClassDesc:   cd,
	}
}

func (c *ClassObj) String() string {
	return fmt.Sprintf("[class %s: %s]", hx(int64(c.handle)), c.ClassDesc)
}

// ArrayColl holds the values of a serialized array in stream order.
// Primitive elements are stored as their Go equivalents (int32 for int,
// uint16 for char, ...); reference elements are Content values or nil.
type ArrayColl struct {
	// FieldType of the array's elements.
	FieldType FieldType

	// Values in the order they were read from the stream.
	Values []interface{}
}

func (ac *ArrayColl) String() string {
	parts := make([]string, 0, len(ac.Values))
	for _, v := range ac.Values {
		parts = append(parts, fmt.Sprintf("%v", v))
	}
	return fmt.Sprintf("[arraycoll sz %d %s]", len(ac.Values), strings.Join(parts, ", "))
}

// ArrayObj represents an array instance together with its values. For arrays
// of primitives the class description is named "[x", where x is the field
// type code of the primitive.
type ArrayObj struct {
	contentBase

	// ClassDesc is the array type's description.
	ClassDesc *ClassDesc

	// Data holds the element values.
	Data *ArrayColl
}

func newArrayObj(handle int32, cd *ClassDesc, data *ArrayColl) *ArrayObj {
	return &ArrayObj{
		contentBase: contentBase{kind: KindArray, handle: handle},
		ClassDesc:   cd,
		Data:        data,
	}
}

func (a *ArrayObj) String() string {
	return fmt.Sprintf("[array %s classdesc %s: %s]", hx(int64(a.handle)), a.ClassDesc, a.Data)
}

// EnumObj represents an enum instance: merely the class description and the
// string naming the constant. No other fields are ever serialized.
type EnumObj struct {
	contentBase

	// ClassDesc of the enum class.
	ClassDesc *ClassDesc

	// Value is the string naming the enum constant.
	Value *StringObj
}

func newEnumObj(handle int32, cd *ClassDesc, value *StringObj) *EnumObj {
	return &EnumObj{
		contentBase: contentBase{kind: KindEnum, handle: handle},
		ClassDesc:   cd,
		Value:       value,
	}
}

func (e *EnumObj) String() string {
	return fmt.Sprintf("[enum %s: %s]", hx(int64(e.handle)), e.Value.Value)
}

// Instance represents an instance of a non-enum, non-Class, non-array class,
// including the field values for every class in its hierarchy.
type Instance struct {
	contentBase

	// ClassDesc of the instance.
	ClassDesc *ClassDesc

	// FieldData maps each class description in the hierarchy to its field
	// values. Primitive values are stored as their Go equivalents;
	// reference values are Content or nil.
	FieldData map[*ClassDesc]map[*Field]interface{}

	// Annotations holds the object annotation contents written by
	// writeObject overrides, per class description.
	Annotations map[*ClassDesc][]Content
}

func newInstance(handle int32, cd *ClassDesc) *Instance {
	return &Instance{
		contentBase: contentBase{kind: KindInstance, handle: handle},
		ClassDesc:   cd,
		FieldData:   make(map[*ClassDesc]map[*Field]interface{}),
	}
}

func (i *Instance) String() string {
	return fmt.Sprintf("%s _h%s = r_%s;  ", i.ClassDesc.Name, hx(int64(i.handle)), hx(int64(i.ClassDesc.handle)))
}

// BlockData represents an opaque block of data written to the stream,
// typically by annotateClass or writeObject overrides. Block data carries no
// handle; its interpretation is left to callers.
type BlockData struct {
	contentBase

	// Buf is the raw block payload.
	Buf []byte
}

func newBlockData(buf []byte) *BlockData {
	return &BlockData{
		contentBase: contentBase{kind: KindBlockData},
		Buf:         buf,
	}
}

func (b *BlockData) String() string {
	return fmt.Sprintf("[blockdata %s: %d bytes]", hx(int64(b.handle)), len(b.Buf))
}

// ExceptionState captures a serialization that failed partway: the exception
// object the writer serialized in place of the interrupted object, plus the
// raw bytes read for the interrupted object before the exception was
// recognized. Its handle equals the wrapped exception's handle.
//
// The raw prefix generally starts at the interrupted object's first tag byte
// and runs up to the TC_EXCEPTION tag, but may include more; it is unlikely
// to be cleanly parseable on its own.
type ExceptionState struct {
	contentBase

	// Exception is the serialized exception object.
	Exception Content

	// StreamData is the raw byte prefix of the interrupted object.
	StreamData []byte
}

func newExceptionState(exObj Content, data []byte) *ExceptionState {
	return &ExceptionState{
		contentBase: contentBase{kind: KindExceptionState, handle: exObj.Handle()},
		Exception:   exObj,
		StreamData:  data,
	}
}

func (es *ExceptionState) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[exceptionstate object %v  buflen %d", es.Exception, len(es.StreamData))
	for i, b := range es.StreamData {
		if i%16 == 0 {
			fmt.Fprintf(&sb, "\n%7x: ", i)
		}
		fmt.Fprintf(&sb, " %02x", b)
	}
	if len(es.StreamData) > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString("]")
	return sb.String()
}
