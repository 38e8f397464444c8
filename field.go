package jdeserialize

import "strings"

// FieldType describes the type of a field encoded inside a class
// description. The values are the type codes used on the wire.
type FieldType byte

const (
	FieldByte    FieldType = 'B'
	FieldChar    FieldType = 'C'
	FieldDouble  FieldType = 'D'
	FieldFloat   FieldType = 'F'
	FieldInteger FieldType = 'I'
	FieldLong    FieldType = 'J'
	FieldShort   FieldType = 'S'
	FieldBoolean FieldType = 'Z'
	FieldArray   FieldType = '['
	FieldObject  FieldType = 'L'
)

// fieldTypeOf maps a wire type code to its FieldType.
func fieldTypeOf(b byte) (FieldType, error) {
	switch FieldType(b) {
	case FieldByte, FieldChar, FieldDouble, FieldFloat, FieldInteger,
		FieldLong, FieldShort, FieldBoolean, FieldArray, FieldObject:
		return FieldType(b), nil
	}
	return 0, validityErrorf("invalid field type char: %s", hx(int64(b)))
}

func (ft FieldType) isPrimitive() bool {
	return ft != FieldArray && ft != FieldObject
}

// primitiveName reports the Java source name of a primitive field type, or
// the empty string for reference and array types.
func (ft FieldType) primitiveName() string {
	switch ft {
	case FieldByte:
		return "byte"
	case FieldChar:
		return "char"
	case FieldDouble:
		return "double"
	case FieldFloat:
		return "float"
	case FieldInteger:
		return "int"
	case FieldLong:
		return "long"
	case FieldShort:
		return "short"
	case FieldBoolean:
		return "boolean"
	default:
		return ""
	}
}

// Field is a single entry in a class description's field table. Fields have
// no handle of their own; they exist only as part of a class description.
type Field struct {
	// Type of the field.
	Type FieldType

	// Name of the field.
	Name string

	// ClassName is the string object holding the JVM field descriptor for
	// reference and array fields (e.g. "Lpkg/Cls;" or "[[I"); nil for
	// primitive fields.
	ClassName *StringObj

	// IsInnerClassReference is set by the member-class reconnection pass on
	// the synthetic this$N reference to an enclosing instance.
	IsInnerClassReference bool
}

func newField(ft FieldType, name string, className *StringObj) (*Field, error) {
	f := &Field{Type: ft, Name: name, ClassName: className}
	if className != nil {
		if err := f.validateDescriptor(className.Value); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *Field) validateDescriptor(desc string) error {
	if f.Type != FieldObject {
		return nil
	}
	if desc == "" {
		return validityErrorf("classname can't be empty")
	}
	if desc[0] != 'L' {
		return validityErrorf("invalid object field type descriptor: %s", desc)
	}
	if end := strings.IndexByte(desc, ';'); end == -1 || end != len(desc)-1 {
		return validityErrorf("invalid object field type descriptor (must end with semicolon): %s", desc)
	}
	return nil
}

// JavaType reports the field's fully-qualified type in Java source form.
func (f *Field) JavaType() (string, error) {
	var desc string
	if f.ClassName != nil {
		desc = f.ClassName.Value
	}
	return resolveJavaType(f.Type, desc, true, false)
}

// setReferenceTypeName rewrites the descriptor of an object reference field;
// used by the member-class reconnection pass to fix up renamed classes.
func (f *Field) setReferenceTypeName(newName string) error {
	if f.Type != FieldObject {
		return validityErrorf("can't fix up a non-reference field")
	}
	f.ClassName.Value = "L" + strings.ReplaceAll(newName, ".", "/") + ";"
	return nil
}
