package jdeserialize

// ContentKind identifies the variant of a Content read from the stream.
type ContentKind int

const (
	KindInstance ContentKind = iota
	KindClass
	KindArray
	KindString
	KindEnum
	KindClassDesc
	KindBlockData
	KindExceptionState
)

func (k ContentKind) String() string {
	switch k {
	case KindInstance:
		return "instance"
	case KindClass:
		return "class"
	case KindArray:
		return "array"
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	case KindClassDesc:
		return "classdesc"
	case KindBlockData:
		return "blockdata"
	case KindExceptionState:
		return "exceptionstate"
	default:
		return "unknown"
	}
}

// Content is implemented by every value that may be read from the stream
// (except null). A successful decode yields a sequence of Content values and
// null references; see the concrete types for the variant payloads.
//
// Handles are not necessarily unique across an entire stream: when an
// exception is serialized, the stream resets before and after the exception
// object, and handle assignment starts over.
type Content interface {
	// Kind reports the variant represented by this value.
	Kind() ContentKind

	// Handle reports the numeric handle by which the value was referred to
	// in the stream. Block data carries no handle and reports zero.
	Handle() int32

	// IsException reports whether the value is an exception that was thrown
	// during the original serialization. Only objects explicitly marked by
	// the stream carry this flag, not every Throwable written to it.
	IsException() bool

	// Validate performs variant-specific validity checks.
	Validate() error

	setException(bool)
}

// contentBase provides the envelope shared by all variants.
type contentBase struct {
	kind        ContentKind
	handle      int32
	isException bool
}

func (c *contentBase) Kind() ContentKind   { return c.kind }
func (c *contentBase) Handle() int32       { return c.handle }
func (c *contentBase) IsException() bool   { return c.isException }
func (c *contentBase) Validate() error     { return nil }
func (c *contentBase) setException(v bool) { c.isException = v }
