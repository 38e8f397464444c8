package jdeserialize

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveJavaType(t *testing.T) {
	tests := []struct {
		ft        FieldType
		classname string
		want      string
	}{
		{FieldInteger, "", "int"},
		{FieldBoolean, "", "boolean"},
		{FieldObject, "Ljava/lang/String;", "java.lang.String"},
		{FieldArray, "[I", "int[]"},
		{FieldArray, "[[I", "int[][]"},
		{FieldArray, "[Lpkg/Cls;", "pkg.Cls[]"},
		{FieldArray, "[[Lpkg/Cls;", "pkg.Cls[][]"},
	}
	for _, tt := range tests {
		got, err := resolveJavaType(tt.ft, tt.classname, true, false)
		require.NoError(t, err, "%s", tt.classname)
		assert.Equal(t, tt.want, got)
	}

	_, err := resolveJavaType(FieldArray, "[IX", true, false)
	assert.Error(t, err)
	_, err = resolveJavaType(FieldArray, "[", true, false)
	assert.Error(t, err)
	_, err = resolveJavaType(FieldObject, "java.lang.String", true, false)
	assert.Error(t, err)
}

func TestDecodeClassNameKeepsSlashes(t *testing.T) {
	got, err := decodeClassName("Lpkg/Cls;", false)
	require.NoError(t, err)
	assert.Equal(t, "pkg/Cls", got)
}

func TestFixClassName(t *testing.T) {
	assert.Equal(t, "Plain", fixClassName("Plain"))
	assert.Equal(t, "$__class", fixClassName("class"))
	assert.Equal(t, "$__1abc", fixClassName("1abc"))
	assert.Equal(t, "$__axb", fixClassName("a-b"))
	assert.Equal(t, "$__zerolen", fixClassName(""))
}

func TestDumpContent(t *testing.T) {
	s := mustDecode(t, newStream().str("Hello").raw(TcNull).raw(TcBlockdata, 0x01, 0x2a).data())
	var out bytes.Buffer
	DumpContent(&out, s)
	text := out.String()
	assert.Contains(t, text, "//// BEGIN stream content output")
	assert.Contains(t, text, `[String 0x7e0000: "Hello"]`)
	assert.Contains(t, text, "null")
	assert.Contains(t, text, "[blockdata 0x00: 1 bytes]")
	assert.Contains(t, text, "//// END stream content output")
}

func TestDumpClasses(t *testing.T) {
	data := newStream().
		raw(TcClass).
		classDesc("com.example.Point", 1, ScSerializable, 2).
		primField('I', "x").
		objField('L', "label", "Ljava/lang/String;").
		endClassDesc().
		data()
	s := mustDecode(t, data)
	var out bytes.Buffer
	require.NoError(t, DumpClasses(&out, s, false, nil, false))
	text := out.String()
	assert.Contains(t, text, "//// BEGIN class declarations (excluding array classes)")
	assert.Contains(t, text, "class com.example.Point implements java.io.Serializable {")
	assert.Contains(t, text, "    int x;")
	assert.Contains(t, text, "    java.lang.String label;")
	assert.Contains(t, text, "//// END class declarations")
}

func TestDumpClassesNestsMemberClasses(t *testing.T) {
	s := decodeConnected(t, innerClassStream())
	var out bytes.Buffer
	require.NoError(t, DumpClasses(&out, s, false, nil, false))
	text := out.String()
	assert.Contains(t, text, "class pkg.Outer implements")
	assert.Contains(t, text, "    class Inner implements")
	// The enclosing-instance reference is suppressed.
	assert.NotContains(t, text, "this$0")
}

func TestDumpClassesFilter(t *testing.T) {
	data := newStream().
		raw(TcClass).
		classDesc("com.example.Keep", 1, ScSerializable, 0).
		endClassDesc().
		raw(TcClass).
		classDesc("com.example.Drop", 1, ScSerializable, 0).
		endClassDesc().
		data()
	s := mustDecode(t, data)
	var out bytes.Buffer
	require.NoError(t, DumpClasses(&out, s, false, regexp.MustCompile(`Drop`), false))
	text := out.String()
	assert.Contains(t, text, "com.example.Keep")
	assert.NotContains(t, text, "class com.example.Drop")
}

func TestDumpClassesEnum(t *testing.T) {
	data := newStream().
		raw(TcEnum).
		classDesc("com.example.Color", 0, ScSerializable|ScEnum, 0).
		endClassDesc().
		str("RED").
		data()
	s := mustDecode(t, data)
	var out bytes.Buffer
	require.NoError(t, DumpClasses(&out, s, false, nil, false))
	text := out.String()
	assert.Contains(t, text, "enum com.example.Color {")
	assert.Contains(t, text, "RED, ")
}

func TestDumpInstances(t *testing.T) {
	s := mustDecode(t, nestedStream())
	var out bytes.Buffer
	DumpInstances(&out, s)
	text := out.String()
	assert.Contains(t, text, "//// BEGIN instance dump")
	assert.Contains(t, text, "[instance 0x7e0002: 0x7e0000/com.example.A")
	assert.Contains(t, text, "value: 42")
	assert.Contains(t, text, "//// END instance dump")
}

func TestExtractBlockData(t *testing.T) {
	s := mustDecode(t, newStream().
		raw(TcBlockdata, 0x02, 0x01, 0x02).
		str("not blockdata").
		raw(TcBlockdata, 0x01, 0x03).
		data())

	dir := t.TempDir()
	target := filepath.Join(dir, "blocks.bin")
	require.NoError(t, ExtractBlockData(s, target))

	payload, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, payload)

	manifest, err := os.ReadFile(filepath.Join(dir, "blocks.manifest.bin"))
	require.NoError(t, err)
	text := string(manifest)
	assert.Contains(t, text, "# Each line in this file")
	assert.Contains(t, text, "2\n")
	assert.Contains(t, text, "1\n")
}
