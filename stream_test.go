package jdeserialize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nestedStream builds an A instance holding a B instance with an int field.
func nestedStream() []byte {
	return newStream().
		raw(TcObject).
		classDesc("com.example.A", 1, ScSerializable, 1).
		objField('L', "inner", "Lcom/example/B;").
		endClassDesc().
		raw(TcObject).
		classDesc("com.example.B", 1, ScSerializable, 1).
		primField('I', "value").
		endClassDesc().
		u32(42).
		data()
}

func TestHandleForClass(t *testing.T) {
	s := mustDecode(t, nestedStream())

	h, ok := s.HandleForClass("com.example.A")
	require.True(t, ok)
	assert.Equal(t, baseWireHandle, h)

	_, ok = s.HandleForClass("com.example.Missing")
	assert.False(t, ok)
}

func TestHandleForField(t *testing.T) {
	s := mustDecode(t, nestedStream())

	classHandle, ok := s.HandleForClass("com.example.A")
	require.True(t, ok)
	fieldHandle, ok := s.HandleForField("inner", classHandle)
	require.True(t, ok)

	inst, isInst := s.Epochs()[0][fieldHandle].(*Instance)
	require.True(t, isInst)
	assert.Equal(t, "com.example.B", inst.ClassDesc.Name)

	_, ok = s.HandleForField("nope", classHandle)
	assert.False(t, ok)
}

func TestValueOf(t *testing.T) {
	s := mustDecode(t, nestedStream())

	classHandle, _ := s.HandleForClass("com.example.A")
	fieldHandle, _ := s.HandleForField("inner", classHandle)

	v, ok := s.ValueOf("value", fieldHandle)
	require.True(t, ok)
	assert.Equal(t, int32(42), v)

	_, ok = s.ValueOf("value", fieldHandle+100)
	assert.False(t, ok)
}

func TestFieldValue(t *testing.T) {
	s := mustDecode(t, nestedStream())

	v, ok := s.FieldValue("com.example.A", "inner", "value")
	require.True(t, ok)
	assert.Equal(t, int32(42), v)

	_, ok = s.FieldValue("com.example.A", "missing", "value")
	assert.False(t, ok)
}
