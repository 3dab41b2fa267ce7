// Package cloudevents provides the CloudEvents v1.0 envelope used for every
// published resource batch, with resourcewatch extensions that describe the
// target and delivery phase.
package cloudevents

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/drblury/resourcewatch/internal/runtime/codec"
	idspkg "github.com/drblury/resourcewatch/internal/runtime/ids"
)

// SpecVersion is the CloudEvents specification version implemented.
const SpecVersion = "1.0"

// Event is a CloudEvents v1.0 event. Extensions are flattened into the top
// level object when encoded as JSON.
type Event struct {
	SpecVersion string `json:"specversion"`
	// Type is "resourcewatch.<resource type>", for example
	// resourcewatch.console-message.
	Type string `json:"type"`
	// Source is the actor id of the watched target.
	Source string `json:"source"`
	ID     string `json:"id"`

	Time            time.Time `json:"time,omitempty"`
	DataContentType *string   `json:"datacontenttype,omitempty"`
	Subject         *string   `json:"subject,omitempty"`
	Data            any       `json:"data,omitempty"`

	Extensions map[string]any `json:"extensions,omitempty"`
}

// New creates an event with a ULID id and the current UTC time.
func New(eventType, source string, data any) Event {
	return Event{
		SpecVersion: SpecVersion,
		Type:        eventType,
		Source:      source,
		ID:          idspkg.CreateULID(),
		Time:        Now(),
		Data:        data,
		Extensions:  make(map[string]any),
	}
}

func (e Event) WithSubject(subject string) Event {
	e.Subject = &subject
	return e
}

func (e Event) WithDataContentType(contentType string) Event {
	e.DataContentType = &contentType
	return e
}

// WithExtension returns a copy of the event carrying the extension. The
// extension map of the receiver is never shared with the result.
func (e Event) WithExtension(key string, value any) Event {
	cloned := e.Clone()
	if cloned.Extensions == nil {
		cloned.Extensions = make(map[string]any)
	}
	cloned.Extensions[key] = value
	return cloned
}

// GetExtension returns nil if the extension does not exist.
func (e Event) GetExtension(key string) any {
	if e.Extensions == nil {
		return nil
	}
	return e.Extensions[key]
}

func (e Event) GetExtensionString(key string) string {
	switch v := e.GetExtension(key).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// GetExtensionInt accepts the numeric shapes produced by the JSON, CBOR and
// protobuf codecs.
func (e Event) GetExtensionInt(key string) int {
	switch n := e.GetExtension(key).(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	default:
		return 0
	}
}

func (e Event) GetExtensionTime(key string) time.Time {
	switch t := e.GetExtension(key).(type) {
	case time.Time:
		return t
	case string:
		parsed, err := ParseTime(t)
		if err != nil {
			return time.Time{}
		}
		return parsed
	default:
		return time.Time{}
	}
}

// Validate checks that the event has all required CloudEvents attributes.
func (e Event) Validate() error {
	switch {
	case e.SpecVersion == "":
		return fmt.Errorf("specversion is required")
	case e.SpecVersion != SpecVersion:
		return fmt.Errorf("specversion must be %q, got %q", SpecVersion, e.SpecVersion)
	case e.Type == "":
		return fmt.Errorf("type is required")
	case e.Source == "":
		return fmt.Errorf("source is required")
	case e.ID == "":
		return fmt.Errorf("id is required")
	}
	return nil
}

// Clone copies the optional attributes and the extension map. Data is shared.
func (e Event) Clone() Event {
	cloned := e
	if e.DataContentType != nil {
		v := *e.DataContentType
		cloned.DataContentType = &v
	}
	if e.Subject != nil {
		v := *e.Subject
		cloned.Subject = &v
	}
	if e.Extensions != nil {
		cloned.Extensions = make(map[string]any, len(e.Extensions))
		for k, v := range e.Extensions {
			cloned.Extensions[k] = v
		}
	}
	return cloned
}

// MarshalJSON writes the structured CloudEvents JSON format.
func (e Event) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 8+len(e.Extensions))
	for k, v := range e.Extensions {
		m[k] = v
	}
	m["specversion"] = e.SpecVersion
	m["type"] = e.Type
	m["source"] = e.Source
	m["id"] = e.ID
	if !e.Time.IsZero() {
		m["time"] = e.Time.Format(TimeFormatNano)
	}
	if e.DataContentType != nil {
		m["datacontenttype"] = *e.DataContentType
	}
	if e.Subject != nil {
		m["subject"] = *e.Subject
	}
	if e.Data != nil {
		m["data"] = e.Data
	}
	return codec.Marshal(m)
}

// UnmarshalJSON reads the structured CloudEvents JSON format. Unknown top level
// attributes become extensions.
func (e *Event) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := codec.Unmarshal(data, &m); err != nil {
		return err
	}

	*e = Event{Extensions: make(map[string]any)}
	for k, raw := range m {
		var err error
		switch k {
		case "specversion":
			err = codec.Unmarshal(raw, &e.SpecVersion)
		case "type":
			err = codec.Unmarshal(raw, &e.Type)
		case "source":
			err = codec.Unmarshal(raw, &e.Source)
		case "id":
			err = codec.Unmarshal(raw, &e.ID)
		case "time":
			var s string
			if err = codec.Unmarshal(raw, &s); err == nil {
				e.Time, err = ParseTime(s)
			}
		case "datacontenttype":
			var s string
			if err = codec.Unmarshal(raw, &s); err == nil {
				e.DataContentType = &s
			}
		case "subject":
			var s string
			if err = codec.Unmarshal(raw, &s); err == nil {
				e.Subject = &s
			}
		case "data":
			err = codec.Unmarshal(raw, &e.Data)
		default:
			var v any
			if err = codec.Unmarshal(raw, &v); err == nil {
				e.Extensions[k] = v
			}
		}
		if err != nil {
			return fmt.Errorf("invalid %s: %w", k, err)
		}
	}
	return nil
}

// DecodeData re-encodes Data into out. Data decoded from the wire is a generic
// map or slice, so consumers use this to recover typed payloads.
func (e Event) DecodeData(out any) error {
	if e.Data == nil {
		return fmt.Errorf("event %s carries no data", e.ID)
	}
	raw, err := codec.Marshal(e.Data)
	if err != nil {
		return err
	}
	return codec.Unmarshal(raw, out)
}
