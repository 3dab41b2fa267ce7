package console

import (
	"time"

	"github.com/drblury/resourcewatch/internal/runtime/grip"
)

// UnresolvedSourceID marks a source id that could not be mapped to an actor.
const UnresolvedSourceID = "unresolved"

// DefaultCategory is used when a message carries no category.
const DefaultCategory = "webdev"

// Record is the wire form of a console message.
type Record struct {
	Level          string       `json:"level"`
	Arguments      []*grip.Grip `json:"arguments"`
	Styles         []*grip.Grip `json:"styles"`
	TimeStamp      float64      `json:"timeStamp"`
	Category       string       `json:"category"`
	OwningWindowID string       `json:"owningWindowId,omitempty"`
	WorkerType     string       `json:"workerType"`
	SourceID       string       `json:"sourceId"`
	Filename       string       `json:"filename,omitempty"`
	LineNumber     int          `json:"lineNumber,omitempty"`
	ColumnNumber   int          `json:"columnNumber,omitempty"`
	FunctionName   string       `json:"functionName,omitempty"`
	Stacktrace     []StackFrame `json:"stacktrace,omitempty"`
	Counter        *Counter     `json:"counter,omitempty"`
	Timer          *Timer       `json:"timer,omitempty"`
	GroupName      string       `json:"groupName,omitempty"`
	Prefix         string       `json:"prefix,omitempty"`
	Private        bool         `json:"private,omitempty"`
	AddonID        string       `json:"addonId,omitempty"`
}

// Time converts TimeStamp (milliseconds since the epoch) back to a time.
func (r Record) Time() time.Time {
	if r.TimeStamp == 0 {
		return time.Time{}
	}
	return time.UnixMicro(int64(r.TimeStamp * 1000))
}

func epochMillis(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixMicro()) / 1000
}
