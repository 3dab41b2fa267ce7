package console

import (
	"github.com/drblury/resourcewatch/internal/runtime/grip"
	"github.com/drblury/resourcewatch/internal/runtime/target"
)

// maxTableArguments is the subject value plus an optional column list.
const maxTableArguments = 2

// Normalizer converts raw messages into records for one materializer.
type Normalizer struct {
	materializer grip.Materializer
}

// NewNormalizer returns a Normalizer materializing values with m.
func NewNormalizer(m grip.Materializer) *Normalizer {
	return &Normalizer{materializer: m}
}

// Normalize projects raw onto a Record. raw is never modified. Internal ids
// are dropped, source ids are resolved against t, and values become grips.
func (n *Normalizer) Normalize(t target.Target, raw RawMessage) Record {
	msg := raw.Clone()

	rec := Record{
		Level:          msg.Level,
		TimeStamp:      epochMillis(msg.TimeStamp),
		WorkerType:     WorkerType(msg),
		SourceID:       resolveSourceID(t, msg.SourceID),
		Filename:       msg.Filename,
		LineNumber:     msg.LineNumber,
		ColumnNumber:   msg.ColumnNumber,
		FunctionName:   msg.FunctionName,
		Counter:        msg.Counter,
		Timer:          msg.Timer,
		GroupName:      msg.GroupName,
		Prefix:         msg.Prefix,
		Private:        msg.Private,
		AddonID:        msg.AddonID,
		Category:       msg.Category,
		OwningWindowID: msg.InnerID,
	}

	if msg.Stacktrace != nil {
		rec.Stacktrace = make([]StackFrame, len(msg.Stacktrace))
		for i, frame := range msg.Stacktrace {
			frame.SourceID = resolveSourceID(t, frame.SourceID)
			rec.Stacktrace[i] = frame
		}
	}

	rec.Arguments = make([]*grip.Grip, 0, len(raw.Arguments))
	for _, arg := range raw.Arguments {
		dbg := n.materializer.MakeDebuggeeValue(t, arg)
		rec.Arguments = append(rec.Arguments, n.materializer.CreateValueGrip(t, dbg))
	}

	rec.Styles = make([]*grip.Grip, 0, len(raw.Styles))
	for _, style := range raw.Styles {
		rec.Styles = append(rec.Styles, n.materializer.CreateValueGrip(t, grip.DebuggeeValue{Value: style}))
	}

	if rec.Level == LevelTable {
		if items := ExpandTableItem(t, &rec); items != nil {
			rec.Arguments[0].OwnProperties = items
			rec.Arguments[0].Preview = nil
		}
		if len(rec.Arguments) > maxTableArguments {
			rec.Arguments = rec.Arguments[:maxTableArguments]
		}
	}

	if rec.Category == "" {
		rec.Category = DefaultCategory
	}
	return rec
}

func resolveSourceID(t target.Target, internalID string) string {
	if id, ok := t.SourceActorID(internalID); ok {
		return id
	}
	return UnresolvedSourceID
}

// ExpandTableItem enumerates the first argument of a console.table record so
// a client can render rows without further round trips. Entry containers
// list their entries, arrays their indexed properties and other objects all
// own properties. Object values found in a row are expanded one more level
// and no further. It returns nil when the first argument has no actor on t.
func ExpandTableItem(t target.Target, rec *Record) map[string]*grip.PropertyDescriptor {
	if rec == nil || len(rec.Arguments) == 0 {
		return nil
	}
	subject := rec.Arguments[0]
	actor := objectActor(t, subject)
	if actor == nil {
		return nil
	}

	var props map[string]*grip.PropertyDescriptor
	if subject.ValueClass().IsEntryContainer() {
		props = actor.EnumEntries()
	} else {
		props = actor.EnumProperties(subject.IsArrayLike())
	}

	for _, desc := range props {
		if desc == nil {
			continue
		}
		for _, slot := range desc.Slots() {
			nested := *slot
			nestedActor := objectActor(t, nested)
			if nestedActor == nil {
				continue
			}
			if own := nestedActor.EnumProperties(nested.IsArrayLike()); own != nil {
				nested.OwnProperties = own
			}
		}
	}
	return props
}

func objectActor(t target.Target, g *grip.Grip) grip.ObjectActor {
	if g == nil || g.Actor == "" {
		return nil
	}
	a, ok := t.ActorByID(g.Actor)
	if !ok {
		return nil
	}
	oa, _ := a.(grip.ObjectActor)
	return oa
}
