package jdeserialize

import (
	"bytes"
	"encoding/binary"
)

// streamBuilder composes protocol byte sequences for decoder tests.
type streamBuilder struct {
	buf bytes.Buffer
}

// newStream starts a builder with a valid stream header.
func newStream() *streamBuilder {
	b := &streamBuilder{}
	return b.raw(0xac, 0xed, 0x00, 0x05)
}

func (b *streamBuilder) raw(p ...byte) *streamBuilder {
	b.buf.Write(p)
	return b
}

func (b *streamBuilder) u16(v uint16) *streamBuilder {
	_ = binary.Write(&b.buf, binary.BigEndian, v)
	return b
}

func (b *streamBuilder) u32(v uint32) *streamBuilder {
	_ = binary.Write(&b.buf, binary.BigEndian, v)
	return b
}

func (b *streamBuilder) u64(v uint64) *streamBuilder {
	_ = binary.Write(&b.buf, binary.BigEndian, v)
	return b
}

// utf writes a length-prefixed string as DataOutputStream.writeUTF would
// (ASCII payloads only, which is all the tests need).
func (b *streamBuilder) utf(s string) *streamBuilder {
	b.u16(uint16(len(s)))
	b.buf.WriteString(s)
	return b
}

// str writes a TC_STRING content.
func (b *streamBuilder) str(s string) *streamBuilder {
	return b.raw(TcString).utf(s)
}

// classDesc writes a TC_CLASSDESC header up to the field count; field
// descriptors, annotations and the superclass follow.
func (b *streamBuilder) classDesc(name string, suid uint64, flags byte, nFields uint16) *streamBuilder {
	return b.raw(TcClassdesc).utf(name).u64(suid).raw(flags).u16(nFields)
}

// endClassDesc closes a class descriptor with empty annotations and a null
// superclass.
func (b *streamBuilder) endClassDesc() *streamBuilder {
	return b.raw(TcEndblockdata, TcNull)
}

func (b *streamBuilder) primField(code byte, name string) *streamBuilder {
	return b.raw(code).utf(name)
}

func (b *streamBuilder) objField(code byte, name, desc string) *streamBuilder {
	return b.raw(code).utf(name).str(desc)
}

func (b *streamBuilder) data() []byte {
	return b.buf.Bytes()
}
