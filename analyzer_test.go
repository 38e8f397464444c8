package jdeserialize

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeConnected(t *testing.T, data []byte) *DecodedStream {
	t.Helper()
	s, err := Decode(bytes.NewReader(data), Options{ConnectMemberClasses: true})
	require.NoError(t, err)
	return s
}

func innerClassStream() []byte {
	return newStream().
		raw(TcClass).
		classDesc("pkg.Outer", 1, ScSerializable, 0).
		endClassDesc().
		raw(TcClass).
		classDesc("pkg.Outer$Inner", 1, ScSerializable, 1).
		objField('L', "this$0", "Lpkg/Outer;").
		endClassDesc().
		data()
}

func TestConnectInnerClass(t *testing.T) {
	s := decodeConnected(t, innerClassStream())
	outer := s.TopLevel()[0].(*ClassObj).ClassDesc
	inner := s.TopLevel()[1].(*ClassObj).ClassDesc

	assert.Equal(t, "pkg.Outer", outer.Name)
	assert.Equal(t, "Inner", inner.Name)
	assert.True(t, inner.IsInnerClass)
	assert.False(t, inner.IsStaticMemberClass)
	require.Len(t, outer.InnerClasses, 1)
	assert.Same(t, inner, outer.InnerClasses[0])
	assert.True(t, inner.Fields[0].IsInnerClassReference)
}

func TestConnectStaticMemberClass(t *testing.T) {
	data := newStream().
		raw(TcClass).
		classDesc("pkg.Outer", 1, ScSerializable, 0).
		endClassDesc().
		raw(TcClass).
		classDesc("pkg.Outer$Helper", 1, ScSerializable, 0).
		endClassDesc().
		data()
	s := decodeConnected(t, data)
	outer := s.TopLevel()[0].(*ClassObj).ClassDesc
	helper := s.TopLevel()[1].(*ClassObj).ClassDesc

	assert.Equal(t, "Helper", helper.Name)
	assert.True(t, helper.IsStaticMemberClass)
	assert.False(t, helper.IsInnerClass)
	require.Len(t, outer.InnerClasses, 1)
	assert.Same(t, helper, outer.InnerClasses[0])
}

func TestConnectMissingOuterTolerated(t *testing.T) {
	data := newStream().
		raw(TcClass).
		classDesc("gone.Outer$Orphan", 1, ScSerializable, 0).
		endClassDesc().
		data()
	s := decodeConnected(t, data)
	cd := s.TopLevel()[0].(*ClassObj).ClassDesc
	assert.Equal(t, "gone.Outer$Orphan", cd.Name)
	assert.False(t, cd.IsStaticMemberClass)
}

func TestConnectInnerClassBadNamePattern(t *testing.T) {
	data := newStream().
		raw(TcClass).
		classDesc("Weird", 1, ScSerializable, 1).
		objField('L', "this$0", "LWeird;").
		endClassDesc().
		data()
	var ve *ValidityError
	_, err := Decode(bytes.NewReader(data), Options{ConnectMemberClasses: true})
	require.Error(t, err)
	assert.True(t, errors.As(err, &ve))
	assert.Contains(t, err.Error(), "doesn't match expected pattern")
}

func TestConnectRewritesFieldReferences(t *testing.T) {
	// A third class holds a field typed as the member class; the rename
	// must fix the field's descriptor.
	data := newStream().
		raw(TcClass).
		classDesc("pkg.Outer", 1, ScSerializable, 0).
		endClassDesc().
		raw(TcClass).
		classDesc("pkg.Outer$Helper", 1, ScSerializable, 0).
		endClassDesc().
		raw(TcClass).
		classDesc("pkg.User", 1, ScSerializable, 1).
		objField('L', "helper", "Lpkg/Outer$Helper;").
		endClassDesc().
		data()
	s := decodeConnected(t, data)
	user := s.TopLevel()[2].(*ClassObj).ClassDesc
	assert.Equal(t, "LHelper;", user.Fields[0].ClassName.Value)
}

func TestConnectIdempotent(t *testing.T) {
	s := decodeConnected(t, innerClassStream())
	epoch := s.Epochs()[0]
	outer := s.TopLevel()[0].(*ClassObj).ClassDesc
	inner := s.TopLevel()[1].(*ClassObj).ClassDesc

	require.NoError(t, connectMemberClasses(epoch))

	assert.Equal(t, "pkg.Outer", outer.Name)
	assert.Equal(t, "Inner", inner.Name)
	assert.Len(t, outer.InnerClasses, 1)
	assert.True(t, inner.IsInnerClass)
}
