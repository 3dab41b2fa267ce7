package grip

import (
	"strconv"
	"sync"

	"github.com/drblury/resourcewatch/internal/runtime/target"
)

type objectActor struct {
	id    string
	class ValueClass
	value any
	m     *RegistryMaterializer
	t     target.Target

	mu       sync.Mutex
	children map[string]*Grip
}

func (a *objectActor) ActorID() string   { return a.id }
func (a *objectActor) Class() ValueClass { return a.class }

// child materializes a nested value once and hands out copies, so callers
// may decorate the returned grip without affecting later enumerations.
func (a *objectActor) child(key string, v any) *Grip {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.children == nil {
		a.children = make(map[string]*Grip)
	}
	g, ok := a.children[key]
	if !ok {
		g = a.m.createGrip(a.t, adopt(v), 0)
		a.children[key] = g
	}
	return g.Clone()
}

func (a *objectActor) EnumProperties(ignoreNonIndexed bool) map[string]*PropertyDescriptor {
	props := make(map[string]*PropertyDescriptor)
	switch x := a.value.(type) {
	case ArrayValue:
		for i, item := range x.Items {
			key := strconv.Itoa(i)
			props[key] = a.descriptor("i"+key, item)
		}
		if ignoreNonIndexed {
			return props
		}
		for name, v := range x.Named {
			props[name] = a.descriptor("n"+name, v)
		}
		props["length"] = &PropertyDescriptor{
			Writable: true,
			Value:    a.child("length", len(x.Items)),
		}
	case map[string]any:
		for name, v := range x {
			if ignoreNonIndexed && !isIndex(name) {
				continue
			}
			props[name] = a.descriptor("n"+name, v)
		}
	}
	return props
}

func (a *objectActor) EnumEntries() map[string]*PropertyDescriptor {
	entries := make(map[string]*PropertyDescriptor)
	switch x := a.value.(type) {
	case MapValue:
		for i, e := range x.Entries {
			key := strconv.Itoa(i)
			entries[key] = &PropertyDescriptor{
				Enumerable: true,
				Value: &Grip{
					Type: TypeMapEntry,
					Preview: &Preview{
						Kind:  PreviewMapEntry,
						Key:   a.child("k"+key, e.Key),
						Value: a.child("v"+key, e.Value),
					},
				},
			}
		}
	case SetValue:
		for i, item := range x.Items {
			key := strconv.Itoa(i)
			entries[key] = &PropertyDescriptor{Enumerable: true, Value: a.child("e"+key, item)}
		}
	}
	return entries
}

func (a *objectActor) descriptor(cacheKey string, v any) *PropertyDescriptor {
	desc := &PropertyDescriptor{Enumerable: true, Configurable: true}
	getter, isGetter := v.(Getter)
	switch {
	case isGetter && getter.Safe:
		desc.SafeGetterValues = a.child(cacheKey, getter.Value)
	case isGetter:
		desc.GetterValue = a.child(cacheKey, getter.Value)
	default:
		desc.Writable = true
		desc.Value = a.child(cacheKey, v)
	}
	return desc
}

func isIndex(name string) bool {
	if name == "" || (len(name) > 1 && name[0] == '0') {
		return false
	}
	_, err := strconv.ParseUint(name, 10, 32)
	return err == nil
}

var _ ObjectActor = (*objectActor)(nil)
