package jdeserialize

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

const (
	indentChars = "    "
	codeWidth   = 90
)

var javaKeywords = map[string]struct{}{
	"abstract": {}, "continue": {}, "for": {}, "new": {}, "switch": {},
	"assert": {}, "default": {}, "if": {}, "package": {}, "synchronized": {},
	"boolean": {}, "do": {}, "goto": {}, "private": {}, "this": {},
	"break": {}, "double": {}, "implements": {}, "protected": {}, "throw": {},
	"byte": {}, "else": {}, "import": {}, "public": {}, "throws": {},
	"case": {}, "enum": {}, "instanceof": {}, "return": {}, "transient": {},
	"catch": {}, "extends": {}, "int": {}, "short": {}, "try": {},
	"char": {}, "final": {}, "interface": {}, "static": {}, "void": {},
	"class": {}, "finally": {}, "long": {}, "strictfp": {}, "volatile": {},
	"const": {}, "float": {}, "native": {}, "super": {}, "while": {},
}

// resolveJavaType renders a field type as Java source: primitives by name,
// references via their field descriptor, arrays as element type plus "[]"
// pairs. convertSlashes selects between the slash form used in field
// descriptors and the dot form used in class description names.
func resolveJavaType(ft FieldType, classname string, convertSlashes, fixName bool) (string, error) {
	switch ft {
	case FieldArray:
		var suffix strings.Builder
		for i := 0; i < len(classname); i++ {
			ch := classname[i]
			switch ch {
			case '[':
				suffix.WriteString("[]")
			case 'L':
				cn, err := decodeClassName(classname[i:], convertSlashes)
				if err != nil {
					return "", err
				}
				if fixName {
					cn = fixClassName(cn)
				}
				return cn + suffix.String(), nil
			default:
				if ch < 1 || ch > 127 {
					return "", validityErrorf("invalid array field type descriptor character: %s", classname)
				}
				eft, err := fieldTypeOf(ch)
				if err != nil {
					return "", err
				}
				if i != len(classname)-1 {
					return "", validityErrorf("array field type descriptor is too long: %s", classname)
				}
				name := eft.primitiveName()
				if fixName {
					name = fixClassName(name)
				}
				return name + suffix.String(), nil
			}
		}
		return "", validityErrorf("array field type descriptor is too short: %s", classname)
	case FieldObject:
		return decodeClassName(classname, convertSlashes)
	default:
		return ft.primitiveName(), nil
	}
}

// decodeClassName decodes a class name in the field-descriptor format of the
// JVM spec, section 4.3.2 (Lfoo/bar/baz;). convertSlashes replaces slashes
// with periods for "real" field descriptors; class description names already
// use periods.
func decodeClassName(fDesc string, convertSlashes bool) (string, error) {
	if len(fDesc) < 3 || fDesc[0] != 'L' || fDesc[len(fDesc)-1] != ';' {
		return "", validityErrorf("invalid name (not in field-descriptor format): %s", fDesc)
	}
	name := fDesc[1 : len(fDesc)-1]
	if convertSlashes {
		return strings.ReplaceAll(name, "/", "."), nil
	}
	return name, nil
}

// The Java identifier classes, per java.lang.Character.
func isJavaIdentifierStart(r rune) bool {
	return unicode.IsLetter(r) || unicode.In(r, unicode.Nl, unicode.Sc, unicode.Pc)
}

func isJavaIdentifierPart(r rune) bool {
	return isJavaIdentifierStart(r) || unicode.In(r, unicode.Nd, unicode.Mn, unicode.Mc, unicode.Cf)
}

func isIdentifierIgnorable(r rune) bool {
	return (r >= 0x00 && r <= 0x08) || (r >= 0x0e && r <= 0x1b) ||
		(r >= 0x7f && r <= 0x9f) || unicode.In(r, unicode.Cf)
}

// fixClassName transforms illegal characters such that the result is a legal
// Java identifier that is not a keyword. If the string is modified at all,
// the result is prepended with "$__".
func fixClassName(name string) string {
	if name == "" {
		return "$__zerolen"
	}
	if _, kw := javaKeywords[name]; kw {
		return "$__" + name
	}
	runes := []rune(name)
	var sb strings.Builder
	modified := false
	if !isJavaIdentifierStart(runes[0]) {
		modified = true
		if !isJavaIdentifierPart(runes[0]) || isIdentifierIgnorable(runes[0]) {
			sb.WriteRune('x')
		} else {
			sb.WriteRune(runes[0])
		}
	} else {
		sb.WriteRune(runes[0])
	}
	for _, r := range runes[1:] {
		if !isJavaIdentifierPart(r) || isIdentifierIgnorable(r) {
			modified = true
			sb.WriteRune('x')
		} else {
			sb.WriteRune(r)
		}
	}
	if modified {
		return "$__" + sb.String()
	}
	return name
}

func indent(level int) string {
	return strings.Repeat(indentChars, level)
}

// finalEpoch returns the last handle table of the stream, which covers the
// contents live at end of stream.
func (s *DecodedStream) finalEpoch() map[int32]Content {
	if len(s.epochs) == 0 {
		return nil
	}
	return s.epochs[len(s.epochs)-1]
}

// sortedByHandle returns an epoch's contents in handle order.
func sortedByHandle(epoch map[int32]Content) []Content {
	handles := make([]int32, 0, len(epoch))
	for h := range epoch {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	out := make([]Content, 0, len(handles))
	for _, h := range handles {
		out = append(out, epoch[h])
	}
	return out
}

// DumpContent writes the itemized top-level record listing.
func DumpContent(w io.Writer, s *DecodedStream) {
	fmt.Fprintln(w, "//// BEGIN stream content output")
	for _, c := range s.TopLevel() {
		if c == nil {
			fmt.Fprintln(w, "null")
			continue
		}
		fmt.Fprintln(w, c)
	}
	fmt.Fprintln(w, "//// END stream content output")
	fmt.Fprintln(w)
}

// DumpClasses writes Java-like declarations for the classes in the stream's
// final handle table. Array classes are skipped unless showArrays; member
// classes appear nested in their enclosing classes; names matching filter
// are excluded; fixNames rewrites illegal identifiers.
func DumpClasses(w io.Writer, s *DecodedStream, showArrays bool, filter *regexp.Regexp, fixNames bool) error {
	header := "//// BEGIN class declarations"
	if !showArrays {
		header += " (excluding array classes)"
	}
	if filter != nil {
		header += fmt.Sprintf(" (exclusion filter %s)", filter)
	}
	fmt.Fprintln(w, header)
	for _, c := range sortedByHandle(s.finalEpoch()) {
		cd, ok := c.(*ClassDesc)
		if !ok {
			continue
		}
		if !showArrays && cd.IsArrayClass() {
			continue
		}
		// Member classes are displayed as part of their enclosing classes.
		if cd.IsStaticMemberClass || cd.IsInnerClass {
			continue
		}
		if filter != nil && filter.MatchString(cd.Name) {
			continue
		}
		if err := dumpClassDesc(w, 0, cd, fixNames); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "//// END class declarations")
	fmt.Fprintln(w)
	return nil
}

func dumpClassDesc(w io.Writer, level int, cd *ClassDesc, fixNames bool) error {
	classname := cd.Name
	if fixNames {
		classname = fixClassName(classname)
	}
	if len(cd.Annotations) > 0 {
		fmt.Fprintln(w, indent(level)+"// annotations: ")
		for _, c := range cd.Annotations {
			fmt.Fprint(w, indent(level)+"// "+indent(1))
			fmt.Fprintln(w, c)
		}
	}
	switch cd.ClassType {
	case NormalClass:
		if cd.DescFlags&ScEnum != 0 {
			fmt.Fprint(w, indent(level)+"enum "+classname+" {")
			constants := make([]string, 0, len(cd.EnumConstants))
			for econst := range cd.EnumConstants {
				constants = append(constants, econst)
			}
			sort.Strings(constants)
			shouldIndent := true
			width := len(indent(level + 1))
			for _, econst := range constants {
				if shouldIndent {
					fmt.Fprintln(w)
					fmt.Fprint(w, indent(level+1))
					shouldIndent = false
				}
				width += len(econst)
				fmt.Fprint(w, econst+", ")
				if width >= codeWidth {
					width = len(indent(level + 1))
					shouldIndent = true
				}
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, indent(level)+"}")
			return nil
		}
		fmt.Fprint(w, indent(level))
		if cd.IsStaticMemberClass {
			fmt.Fprint(w, "static ")
		}
		name := classname
		if len(classname) > 0 && classname[0] == '[' {
			resolved, err := resolveJavaType(FieldArray, cd.Name, false, fixNames)
			if err != nil {
				return err
			}
			name = resolved
		}
		fmt.Fprint(w, "class "+name)
		if cd.Superclass != nil {
			fmt.Fprint(w, " extends "+cd.Superclass.Name)
		}
		fmt.Fprint(w, " implements ")
		if cd.DescFlags&ScExternalizable != 0 {
			fmt.Fprint(w, "java.io.Externalizable")
		} else {
			fmt.Fprint(w, "java.io.Serializable")
		}
		for _, intf := range cd.Interfaces {
			fmt.Fprint(w, ", "+intf)
		}
		fmt.Fprintln(w, " {")
		for _, f := range cd.Fields {
			if f.IsInnerClassReference {
				continue
			}
			javaType, err := f.JavaType()
			if err != nil {
				return err
			}
			fmt.Fprint(w, indent(level+1)+javaType)
			fmt.Fprintln(w, " "+f.Name+";")
		}
		for _, icd := range cd.InnerClasses {
			if err := dumpClassDesc(w, level+1, icd, fixNames); err != nil {
				return err
			}
		}
		fmt.Fprintln(w, indent(level)+"}")
	case ProxyClass:
		fmt.Fprint(w, indent(level)+"// proxy class "+hx(int64(cd.Handle())))
		if cd.Superclass != nil {
			fmt.Fprint(w, " extends "+cd.Superclass.Name)
		}
		fmt.Fprintln(w, " implements ")
		for _, intf := range cd.Interfaces {
			fmt.Fprintln(w, indent(level)+"//    "+intf+", ")
		}
		if cd.DescFlags&ScExternalizable != 0 {
			fmt.Fprintln(w, indent(level)+"//    java.io.Externalizable")
		} else {
			fmt.Fprintln(w, indent(level)+"//    java.io.Serializable")
		}
	default:
		return validityErrorf("encountered invalid class description type")
	}
	return nil
}

// DumpInstances writes the instance dump for the stream's final handle
// table.
func DumpInstances(w io.Writer, s *DecodedStream) {
	fmt.Fprintln(w, "//// BEGIN instance dump")
	for _, c := range sortedByHandle(s.finalEpoch()) {
		if inst, ok := c.(*Instance); ok {
			dumpInstance(w, inst)
		}
	}
	fmt.Fprintln(w, "//// END instance dump")
	fmt.Fprintln(w)
}

func dumpInstance(w io.Writer, inst *Instance) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[instance %s: %s/%s",
		hx(int64(inst.Handle())), hx(int64(inst.ClassDesc.Handle())), inst.ClassDesc.Name)
	hierarchy := inst.ClassDesc.Hierarchy()
	if len(inst.Annotations) > 0 {
		sb.WriteString("\n  object annotations:\n")
		for _, cd := range hierarchy {
			list, ok := inst.Annotations[cd]
			if !ok {
				continue
			}
			sb.WriteString("    " + cd.Name + "\n")
			for _, c := range list {
				fmt.Fprintf(&sb, "        %v\n", c)
			}
		}
	}
	if len(inst.FieldData) > 0 {
		sb.WriteString("\n  field data:\n")
		for _, cd := range hierarchy {
			values, ok := inst.FieldData[cd]
			if !ok {
				continue
			}
			fmt.Fprintf(&sb, "    %s/%s:\n", hx(int64(cd.Handle())), cd.Name)
			for _, f := range cd.Fields {
				v, ok := values[f]
				if !ok {
					continue
				}
				sb.WriteString("        " + f.Name + ": ")
				if c, isContent := v.(Content); isContent {
					if c.Handle() == inst.Handle() {
						sb.WriteString("this")
					} else {
						sb.WriteString("r" + hx(int64(c.Handle())))
					}
					fmt.Fprintf(&sb, ": %v\n", c)
				} else {
					fmt.Fprintf(&sb, "%v\n", v)
				}
			}
		}
	}
	sb.WriteString("]")
	fmt.Fprintln(w, sb.String())
}

// ExtractBlockData writes every top-level block data payload to filename,
// plus a manifest file listing the individual block sizes. The manifest name
// is derived by inserting ".manifest" before the file extension.
func ExtractBlockData(s *DecodedStream, filename string) error {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	manifestName := base + ".manifest" + ext

	out, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create blockdata file: %w", err)
	}
	defer out.Close()
	manifest, err := os.Create(manifestName)
	if err != nil {
		return fmt.Errorf("create blockdata manifest: %w", err)
	}
	defer manifest.Close()

	fmt.Fprintln(manifest, "# Each line in this file that doesn't begin with a '#' contains the size of")
	fmt.Fprintln(manifest, "# an individual blockdata block written to the stream.")
	for _, c := range s.TopLevel() {
		bd, ok := c.(*BlockData)
		if !ok {
			continue
		}
		fmt.Fprintln(manifest, len(bd.Buf))
		if _, err := out.Write(bd.Buf); err != nil {
			return fmt.Errorf("write blockdata: %w", err)
		}
	}
	return nil
}
