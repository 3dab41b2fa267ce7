package grip

// ValueClass is the closed set of object classes the materializer produces.
type ValueClass int

const (
	ClassUnknown ValueClass = iota
	ClassObject
	ClassArray
	ClassMap
	ClassSet
	ClassWeakMap
	ClassWeakSet
)

var classNames = map[ValueClass]string{
	ClassObject:  "Object",
	ClassArray:   "Array",
	ClassMap:     "Map",
	ClassSet:     "Set",
	ClassWeakMap: "WeakMap",
	ClassWeakSet: "WeakSet",
}

func (c ValueClass) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return ""
}

// ParseClass maps a grip class name back to its ValueClass.
func ParseClass(name string) ValueClass {
	for c, n := range classNames {
		if n == name {
			return c
		}
	}
	return ClassUnknown
}

// IsEntryContainer reports whether the class stores keyed or set-like entries
// rather than plain properties.
func (c ValueClass) IsEntryContainer() bool {
	switch c {
	case ClassMap, ClassSet, ClassWeakMap, ClassWeakSet:
		return true
	default:
		return false
	}
}

func (c ValueClass) IsArrayLike() bool {
	return c == ClassArray
}
