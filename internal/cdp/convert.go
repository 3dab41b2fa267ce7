package cdp

import (
	"math"
	"strconv"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/drblury/resourcewatch/internal/runtime/console"
	"github.com/drblury/resourcewatch/internal/runtime/grip"
)

// Level maps a Runtime.consoleAPICalled type to a console level.
func Level(t proto.RuntimeConsoleAPICalledType) string {
	switch string(t) {
	case "warning":
		return console.LevelWarn
	case "startGroup":
		return "group"
	case "startGroupCollapsed":
		return "groupCollapsed"
	case "endGroup":
		return "groupEnd"
	case "":
		return console.LevelLog
	default:
		return string(t)
	}
}

// RawMessage converts a console API call into the hub's message model. CDP
// positions are zero based and are shifted to one based lines and columns.
func RawMessage(ev *proto.RuntimeConsoleAPICalled, windowID uint64, received time.Time) console.RawMessage {
	msg := console.RawMessage{
		Level:     Level(ev.Type),
		Arguments: make([]any, 0, len(ev.Args)),
		TimeStamp: received,
		InnerID:   console.WindowInnerID(windowID),
	}
	for _, arg := range ev.Args {
		msg.Arguments = append(msg.Arguments, ArgumentValue(arg))
	}

	if ev.StackTrace == nil || len(ev.StackTrace.CallFrames) == 0 {
		return msg
	}
	msg.Stacktrace = make([]console.StackFrame, 0, len(ev.StackTrace.CallFrames))
	for _, f := range ev.StackTrace.CallFrames {
		if f == nil {
			continue
		}
		msg.Stacktrace = append(msg.Stacktrace, console.StackFrame{
			Filename:     f.URL,
			SourceID:     string(f.ScriptID),
			LineNumber:   f.LineNumber + 1,
			ColumnNumber: f.ColumnNumber + 1,
			FunctionName: f.FunctionName,
		})
	}
	if len(msg.Stacktrace) > 0 {
		top := msg.Stacktrace[0]
		msg.Filename = top.Filename
		msg.SourceID = top.SourceID
		msg.LineNumber = top.LineNumber
		msg.ColumnNumber = top.ColumnNumber
		msg.FunctionName = top.FunctionName
	}
	return msg
}

// ArgumentValue returns the plain value of a remote object. Objects that
// were not serialized by value are rebuilt from their preview; without a
// preview they fall back to their description.
func ArgumentValue(obj *proto.RuntimeRemoteObject) any {
	if obj == nil {
		return grip.Undefined
	}
	switch string(obj.UnserializableValue) {
	case "":
	case "NaN":
		return math.NaN()
	case "Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	case "-0":
		return math.Copysign(0, -1)
	default:
		return string(obj.UnserializableValue)
	}
	if string(obj.Type) == "undefined" {
		return grip.Undefined
	}
	if !obj.Value.Nil() {
		return obj.Value.Val()
	}
	if string(obj.Subtype) == "null" {
		return nil
	}
	if obj.Preview != nil {
		if v, ok := PreviewValue(obj.Preview); ok {
			return v
		}
	}
	if obj.Description != "" {
		return obj.Description
	}
	return nil
}

// PreviewValue rebuilds the value model from an object preview. Previews
// are shallow and may be truncated, so containers hold at most what the
// browser chose to include. It reports false for objects that have no
// structured form, such as functions and DOM nodes.
func PreviewValue(p *proto.RuntimeObjectPreview) (any, bool) {
	if p == nil {
		return nil, false
	}
	if string(p.Type) != "object" {
		return nil, false
	}
	switch string(p.Subtype) {
	case "null":
		return nil, true
	case "array", "typedarray":
		arr := grip.ArrayValue{Items: []any{}}
		for _, prop := range p.Properties {
			if prop == nil {
				continue
			}
			if _, err := strconv.Atoi(prop.Name); err == nil {
				arr.Items = append(arr.Items, propertyValue(prop))
				continue
			}
			if arr.Named == nil {
				arr.Named = make(map[string]any)
			}
			arr.Named[prop.Name] = propertyValue(prop)
		}
		return arr, true
	case "map", "weakmap":
		m := grip.MapValue{Entries: []grip.Entry{}, Weak: string(p.Subtype) == "weakmap"}
		for _, e := range p.Entries {
			if e == nil {
				continue
			}
			m.Entries = append(m.Entries, grip.Entry{Key: entryValue(e.Key), Value: entryValue(e.Value)})
		}
		return m, true
	case "set", "weakset":
		set := grip.SetValue{Items: []any{}, Weak: string(p.Subtype) == "weakset"}
		for _, e := range p.Entries {
			if e == nil {
				continue
			}
			set.Items = append(set.Items, entryValue(e.Value))
		}
		return set, true
	case "":
		obj := make(map[string]any, len(p.Properties))
		for _, prop := range p.Properties {
			if prop != nil {
				obj[prop.Name] = propertyValue(prop)
			}
		}
		return obj, true
	default:
		return nil, false
	}
}

func entryValue(p *proto.RuntimeObjectPreview) any {
	if v, ok := PreviewValue(p); ok {
		return v
	}
	if p == nil {
		return grip.Undefined
	}
	return p.Description
}

func propertyValue(prop *proto.RuntimePropertyPreview) any {
	if prop.ValuePreview != nil {
		if v, ok := PreviewValue(prop.ValuePreview); ok {
			return v
		}
	}
	switch string(prop.Type) {
	case "undefined":
		return grip.Undefined
	case "boolean":
		return prop.Value == "true"
	case "number":
		return numberValue(prop.Value)
	case "accessor":
		return grip.Getter{Value: grip.Undefined}
	case "object":
		if string(prop.Subtype) == "null" {
			return nil
		}
	}
	return prop.Value
}

func numberValue(s string) any {
	switch s {
	case "NaN":
		return math.NaN()
	case "Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	case "-0":
		return math.Copysign(0, -1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return f
}
