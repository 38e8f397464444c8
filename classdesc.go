package jdeserialize

import "fmt"

// ClassDescType distinguishes regular class descriptions from dynamic proxy
// class descriptions.
type ClassDescType int

const (
	NormalClass ClassDescType = iota
	ProxyClass
)

// ClassDesc represents the serialized prototype of a class: fields,
// annotations, interfaces and the inheritance hierarchy. Proxy class
// descriptions are represented by the same type with ClassType ProxyClass;
// they carry interfaces and annotations but no fields and no declared name.
type ClassDesc struct {
	contentBase

	// ClassType of the description; NormalClass or ProxyClass.
	ClassType ClassDescType

	// Name of the class as written to the stream. Proxy descriptions get
	// the synthetic placeholder "(proxy class; no name)".
	Name string

	// SerialVersionUID as recorded in the stream.
	SerialVersionUID int64

	// DescFlags is the descriptor flag byte; a mask of the Sc* constants.
	DescFlags byte

	// Fields of the class, in the order serialized by the stream writer.
	Fields []*Field

	// InnerClasses connected to this description by the reconnection pass.
	InnerClasses []*ClassDesc

	// Annotations are *not* Java annotations, but contents written by the
	// annotateClass/annotateProxyClass hooks of an ObjectOutputStream.
	Annotations []Content

	// Superclass description, if any.
	Superclass *ClassDesc

	// Interfaces implemented, in stream order; only set for proxies.
	Interfaces []string

	// EnumConstants collects the constant names observed while reading enum
	// instances of this class.
	EnumConstants map[string]struct{}

	// IsInnerClass, IsLocalInnerClass and IsStaticMemberClass are filled in
	// by the member-class reconnection pass.
	IsInnerClass        bool
	IsLocalInnerClass   bool
	IsStaticMemberClass bool
}

func newClassDesc(classType ClassDescType) *ClassDesc {
	return &ClassDesc{
		contentBase:   contentBase{kind: KindClassDesc},
		ClassType:     classType,
		EnumConstants: make(map[string]struct{}),
	}
}

// AddEnum records an enum constant name observed for this class.
func (cd *ClassDesc) AddEnum(constVal string) {
	cd.EnumConstants[constVal] = struct{}{}
}

// IsArrayClass reports whether the description names an array type.
func (cd *ClassDesc) IsArrayClass() bool {
	return len(cd.Name) > 1 && cd.Name[0] == '['
}

// Hierarchy returns the class descriptions of the inheritance chain in the
// order fields are read from the stream: ancestors first, cd itself last.
// Proxy superclasses terminate the walk.
func (cd *ClassDesc) Hierarchy() []*ClassDesc {
	var classes []*ClassDesc
	if cd.Superclass != nil && cd.Superclass.ClassType != ProxyClass {
		classes = cd.Superclass.Hierarchy()
	}
	return append(classes, cd)
}

func (cd *ClassDesc) String() string {
	return fmt.Sprintf("[cd %s: name %s uid %d]", hx(int64(cd.handle)), cd.Name, cd.SerialVersionUID)
}

// Validate checks the descriptor flag rules of the protocol: a class that is
// neither serializable nor externalizable has no fields, the two flags are
// mutually exclusive, enums carry neither fields nor interfaces, and only
// enums accumulate enum constants.
func (cd *ClassDesc) Validate() error {
	if cd.DescFlags&(ScSerializable|ScExternalizable) == 0 && len(cd.Fields) > 0 {
		return validityErrorf("non-serializable, non-externalizable class has fields")
	}
	if cd.DescFlags&(ScSerializable|ScExternalizable) == ScSerializable|ScExternalizable {
		return validityErrorf("both Serializable and Externalizable are set")
	}
	if cd.DescFlags&ScEnum != 0 {
		if len(cd.Fields) > 0 || cd.Interfaces != nil {
			return validityErrorf("enums shouldn't implement interfaces or have non-constant fields")
		}
	} else if len(cd.EnumConstants) > 0 {
		return validityErrorf("non-enum classes shouldn't have enum constants")
	}
	return nil
}
