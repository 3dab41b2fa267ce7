// Package grip turns live values into wire-safe references. Primitive values
// travel inline; objects are registered as actors on the owning target so a
// client can enumerate them later.
package grip

import "github.com/drblury/resourcewatch/internal/runtime/target"

// Grip types.
const (
	TypeNull      = "null"
	TypeUndefined = "undefined"
	TypeString    = "string"
	TypeNumber    = "number"
	TypeBoolean   = "boolean"
	TypeNaN       = "NaN"
	TypeInfinity  = "Infinity"
	TypeNegInf    = "-Infinity"
	TypeObject    = "object"
	TypeMapEntry  = "mapEntry"
)

// Grip is a wire-safe stand-in for a value. Preview is always encoded so a
// consumer can tell an explicitly cleared preview apart from a primitive.
type Grip struct {
	Type          string                         `json:"type"`
	Actor         string                         `json:"actor,omitempty"`
	Class         string                         `json:"class,omitempty"`
	Value         any                            `json:"value,omitempty"`
	Preview       *Preview                       `json:"preview"`
	OwnProperties map[string]*PropertyDescriptor `json:"ownProperties,omitempty"`
}

// Preview kinds.
const (
	PreviewObject    = "Object"
	PreviewArrayLike = "ArrayLike"
	PreviewMapLike   = "MapLike"
	PreviewMapEntry  = "MapEntry"
)

// Preview is a shallow summary of an object, enough to render it collapsed.
type Preview struct {
	Kind                string           `json:"kind"`
	Length              int              `json:"length,omitempty"`
	Items               []*Grip          `json:"items,omitempty"`
	OwnProperties       map[string]*Grip `json:"ownProperties,omitempty"`
	OwnPropertiesLength int              `json:"ownPropertiesLength,omitempty"`
	Entries             [][2]*Grip       `json:"entries,omitempty"`
	Key                 *Grip            `json:"key,omitempty"`
	Value               *Grip            `json:"value,omitempty"`
}

// ValueClass reports the class of an object grip.
func (g *Grip) ValueClass() ValueClass {
	if g == nil || g.Type != TypeObject {
		return ClassUnknown
	}
	return ParseClass(g.Class)
}

// IsArrayLike reports whether g refers to an array.
func (g *Grip) IsArrayLike() bool {
	return g.ValueClass().IsArrayLike()
}

// Clone copies g one level deep. Nested grips are shared.
func (g *Grip) Clone() *Grip {
	if g == nil {
		return nil
	}
	cloned := *g
	if g.OwnProperties != nil {
		cloned.OwnProperties = make(map[string]*PropertyDescriptor, len(g.OwnProperties))
		for k, v := range g.OwnProperties {
			cloned.OwnProperties[k] = v
		}
	}
	return &cloned
}

// PropertyDescriptor describes one own property. Each value slot is
// independent: a data property fills Value, an accessor fills GetterValue,
// and an accessor known to be side-effect free fills SafeGetterValues.
type PropertyDescriptor struct {
	Configurable     bool  `json:"configurable"`
	Enumerable       bool  `json:"enumerable"`
	Writable         bool  `json:"writable"`
	SafeGetterValues *Grip `json:"safeGetterValues,omitempty"`
	GetterValue      *Grip `json:"getterValue,omitempty"`
	Value            *Grip `json:"value,omitempty"`
}

// Slots returns pointers to the three value slots in a fixed order.
func (d *PropertyDescriptor) Slots() []**Grip {
	return []**Grip{&d.SafeGetterValues, &d.GetterValue, &d.Value}
}

// ObjectActor is the server-side actor behind an object grip.
type ObjectActor interface {
	target.Actor
	Class() ValueClass
	// EnumProperties lists own properties. With ignoreNonIndexed set only
	// integer-keyed properties are returned.
	EnumProperties(ignoreNonIndexed bool) map[string]*PropertyDescriptor
	// EnumEntries lists the entries of a Map, Set or weak variant, keyed by
	// position.
	EnumEntries() map[string]*PropertyDescriptor
}

// DebuggeeValue wraps a raw value once it has been adopted by a target.
type DebuggeeValue struct {
	Value any
}

// Materializer produces grips for a target. Both calls preserve order and
// operate on one value at a time.
type Materializer interface {
	MakeDebuggeeValue(t target.Target, raw any) DebuggeeValue
	CreateValueGrip(t target.Target, v DebuggeeValue) *Grip
}
