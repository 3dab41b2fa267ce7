package grip

// Undefined is the value of an absent argument, distinct from nil (null).
var Undefined = undefinedValue{}

type undefinedValue struct{}

// ArrayValue is an array that may also carry named, non-indexed properties.
// A plain []any is an ArrayValue without named properties.
type ArrayValue struct {
	Items []any
	Named map[string]any
}

// Entry is one key/value pair of a MapValue.
type Entry struct {
	Key   any
	Value any
}

// MapValue is an insertion-ordered map. Weak selects the WeakMap class.
type MapValue struct {
	Entries []Entry
	Weak    bool
}

// SetValue is an insertion-ordered set. Weak selects the WeakSet class.
type SetValue struct {
	Items []any
	Weak  bool
}

// Getter is an accessor property. Safe getters are known to be free of side
// effects, so their value lands in the safe getter slot.
type Getter struct {
	Value any
	Safe  bool
}
