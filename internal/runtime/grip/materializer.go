package grip

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/drblury/resourcewatch/internal/runtime/codec"
	"github.com/drblury/resourcewatch/internal/runtime/target"
)

// DefaultPreviewItems caps the number of items or properties in a preview.
const DefaultPreviewItems = 10

// RegistryMaterializer builds grips from plain Go values and registers an
// ObjectActor for every object on targets that implement target.ActorPool.
// Objects materialized for a target without a pool get no actor and so
// cannot be enumerated later.
type RegistryMaterializer struct {
	PreviewItems int
}

// NewRegistryMaterializer returns a materializer with default preview limits.
func NewRegistryMaterializer() *RegistryMaterializer {
	return &RegistryMaterializer{PreviewItems: DefaultPreviewItems}
}

// MakeDebuggeeValue converts arbitrary Go values into the value model the
// materializer understands: typed slices and string-keyed maps become []any
// and map[string]any, structs go through their JSON form.
func (m *RegistryMaterializer) MakeDebuggeeValue(_ target.Target, raw any) DebuggeeValue {
	return DebuggeeValue{Value: adopt(raw)}
}

// CreateValueGrip returns a fresh grip for v.
func (m *RegistryMaterializer) CreateValueGrip(t target.Target, v DebuggeeValue) *Grip {
	return m.createGrip(t, adopt(v.Value), 0)
}

func (m *RegistryMaterializer) previewLimit() int {
	if m.PreviewItems <= 0 {
		return DefaultPreviewItems
	}
	return m.PreviewItems
}

func (m *RegistryMaterializer) createGrip(t target.Target, v any, depth int) *Grip {
	switch x := v.(type) {
	case nil:
		return &Grip{Type: TypeNull}
	case undefinedValue:
		return &Grip{Type: TypeUndefined}
	case string:
		return &Grip{Type: TypeString, Value: x}
	case bool:
		return &Grip{Type: TypeBoolean, Value: x}
	case float64:
		return numberGrip(x)
	case float32:
		return numberGrip(float64(x))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return &Grip{Type: TypeNumber, Value: x}
	case Getter:
		return m.createGrip(t, adopt(x.Value), depth)
	case []any:
		return m.objectGrip(t, ClassArray, ArrayValue{Items: x}, depth)
	case ArrayValue:
		return m.objectGrip(t, ClassArray, x, depth)
	case map[string]any:
		return m.objectGrip(t, ClassObject, x, depth)
	case MapValue:
		class := ClassMap
		if x.Weak {
			class = ClassWeakMap
		}
		return m.objectGrip(t, class, x, depth)
	case SetValue:
		class := ClassSet
		if x.Weak {
			class = ClassWeakSet
		}
		return m.objectGrip(t, class, x, depth)
	default:
		return &Grip{Type: TypeString, Value: fmt.Sprint(x)}
	}
}

func numberGrip(f float64) *Grip {
	switch {
	case math.IsNaN(f):
		return &Grip{Type: TypeNaN}
	case math.IsInf(f, 1):
		return &Grip{Type: TypeInfinity}
	case math.IsInf(f, -1):
		return &Grip{Type: TypeNegInf}
	default:
		return &Grip{Type: TypeNumber, Value: f}
	}
}

func (m *RegistryMaterializer) objectGrip(t target.Target, class ValueClass, value any, depth int) *Grip {
	g := &Grip{Type: TypeObject, Class: class.String()}
	if pool, ok := t.(target.ActorPool); ok {
		actor := &objectActor{
			id:    pool.NextActorID("obj"),
			class: class,
			value: value,
			m:     m,
			t:     t,
		}
		g.Actor = pool.AddActor(actor)
	}
	if depth == 0 {
		g.Preview = m.preview(t, value)
	}
	return g
}

func (m *RegistryMaterializer) preview(t target.Target, value any) *Preview {
	limit := m.previewLimit()
	switch x := value.(type) {
	case ArrayValue:
		p := &Preview{Kind: PreviewArrayLike, Length: len(x.Items)}
		for i := 0; i < len(x.Items) && i < limit; i++ {
			p.Items = append(p.Items, m.createGrip(t, x.Items[i], 1))
		}
		return p
	case SetValue:
		p := &Preview{Kind: PreviewArrayLike, Length: len(x.Items)}
		for i := 0; i < len(x.Items) && i < limit; i++ {
			p.Items = append(p.Items, m.createGrip(t, x.Items[i], 1))
		}
		return p
	case MapValue:
		p := &Preview{Kind: PreviewMapLike, Length: len(x.Entries)}
		for i := 0; i < len(x.Entries) && i < limit; i++ {
			e := x.Entries[i]
			p.Entries = append(p.Entries, [2]*Grip{m.createGrip(t, e.Key, 1), m.createGrip(t, e.Value, 1)})
		}
		return p
	case map[string]any:
		keys := sortedKeys(x)
		p := &Preview{Kind: PreviewObject, OwnPropertiesLength: len(keys), OwnProperties: map[string]*Grip{}}
		for i := 0; i < len(keys) && i < limit; i++ {
			p.OwnProperties[keys[i]] = m.createGrip(t, x[keys[i]], 1)
		}
		return p
	default:
		return nil
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// adopt normalizes v into the materializer's value model.
func adopt(v any) any {
	switch x := v.(type) {
	case nil, undefinedValue, string, bool, float64, float32,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		[]any, map[string]any, ArrayValue, MapValue, SetValue, Getter:
		return v
	case *ArrayValue:
		return derefOrNil(x)
	case *MapValue:
		return derefOrNil(x)
	case *SetValue:
		return derefOrNil(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return adopt(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return items
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out
	case reflect.Struct:
		raw, err := codec.Marshal(v)
		if err != nil {
			break
		}
		var decoded any
		if err := codec.Unmarshal(raw, &decoded); err != nil {
			break
		}
		return decoded
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return fmt.Sprint(v)
}

func derefOrNil[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

var _ Materializer = (*RegistryMaterializer)(nil)
