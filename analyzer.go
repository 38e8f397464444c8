package jdeserialize

import "regexp"

// Patterns from the JDK 1.1 Inner Classes Specification: the synthetic
// reference to an enclosing instance, and the two-part Outer$Inner name.
var (
	innerFieldPattern  = regexp.MustCompile(`^this\$(\d+)$`)
	memberClassPattern = regexp.MustCompile(`^((?:[^$]+\$)*[^$]+)\$([^$]+)$`)
)

// connectMemberClasses links member classes to their enclosing classes:
//
// Inner classes: for each class C containing an object reference member R
// named this$N, the name of C must match the pattern O$I, O must name an
// existing type T, and T must be the exact type referred to by R; C is then
// considered an inner class of O named I and R is suppressed in declaration
// listings.
//
// Static member classes (after): each remaining class C matching O$I where O
// names a known class is considered a member class of O. Serializing a
// static member class does not require serializing its enclosing class, so a
// missing O is tolerated and C simply keeps its name.
//
// Renames are staged and committed at the end; every reference-typed field
// whose type named the renamed class is fixed up. The pass is idempotent:
// classes and fields already connected are left alone.
func connectMemberClasses(handles map[int32]Content) error {
	classes := make(map[string]*ClassDesc)
	classnames := make(map[string]struct{})
	for _, c := range handles {
		if cd, ok := c.(*ClassDesc); ok {
			classes[cd.Name] = cd
			classnames[cd.Name] = struct{}{}
		}
	}

	newNames := make(map[*ClassDesc]string)
	for _, cd := range classes {
		if cd.ClassType == ProxyClass {
			continue
		}
		for _, f := range cd.Fields {
			if f.Type != FieldObject || f.IsInnerClassReference {
				continue
			}
			if !innerFieldPattern.MatchString(f.Name) {
				continue
			}
			m := memberClassPattern.FindStringSubmatch(cd.Name)
			if m == nil {
				return validityErrorf("inner class enclosing-class reference field exists, but class name doesn't match expected pattern: class %s field %s", cd.Name, f.Name)
			}
			outer, inner := m[1], m[2]
			outerClassDesc, ok := classes[outer]
			if !ok {
				return validityErrorf("couldn't connect inner classes: outer class not found for field name %s", f.Name)
			}
			javaType, err := f.JavaType()
			if err != nil {
				return err
			}
			if outerClassDesc.Name != javaType {
				return validityErrorf("outer class field type doesn't match field type name: %s outer class name %s", f.ClassName.Value, outerClassDesc.Name)
			}
			outerClassDesc.InnerClasses = append(outerClassDesc.InnerClasses, cd)
			cd.IsLocalInnerClass = false
			cd.IsInnerClass = true
			f.IsInnerClassReference = true
			newNames[cd] = inner
		}
	}

	for _, cd := range classes {
		if cd.ClassType == ProxyClass || cd.IsInnerClass || cd.IsStaticMemberClass {
			continue
		}
		m := memberClassPattern.FindStringSubmatch(cd.Name)
		if m == nil {
			continue
		}
		outer, inner := m[1], m[2]
		outerClassDesc, ok := classes[outer]
		if !ok {
			continue
		}
		outerClassDesc.InnerClasses = append(outerClassDesc.InnerClasses, cd)
		cd.IsStaticMemberClass = true
		newNames[cd] = inner
	}

	for ncd, newName := range newNames {
		if _, exists := classnames[newName]; exists {
			return validityErrorf("can't rename class from %s to %s -- class already exists", ncd.Name, newName)
		}
		for _, cd := range classes {
			if cd.ClassType == ProxyClass {
				continue
			}
			for _, f := range cd.Fields {
				if f.Type != FieldObject {
					continue
				}
				javaType, err := f.JavaType()
				if err != nil {
					return err
				}
				if javaType == ncd.Name {
					if err := f.setReferenceTypeName(newName); err != nil {
						return err
					}
				}
			}
		}
		if _, ok := classnames[ncd.Name]; !ok {
			return validityErrorf("tried to remove %s from classnames cache, but couldn't find it", ncd.Name)
		}
		delete(classnames, ncd.Name)
		ncd.Name = newName
		classnames[newName] = struct{}{}
	}
	return nil
}
