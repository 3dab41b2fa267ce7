package cloudevents

import (
	"strconv"
	"time"
)

const (
	TimeFormat     = time.RFC3339
	TimeFormatNano = time.RFC3339Nano
)

var fallbackLayouts = []string{
	TimeFormat,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTime accepts RFC3339 with or without fractional seconds, a few
// zone-less layouts, and integer unix milliseconds as produced by console
// timestamps.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeFormatNano, s); err == nil {
		return t, nil
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, &time.ParseError{
		Layout:  TimeFormatNano,
		Value:   s,
		Message: ": cannot parse as CloudEvents time",
	}
}

// FormatTime keeps nanosecond precision so live batches emitted within the
// same second stay ordered. The zero time formats as "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeFormatNano)
}

// Now returns the current UTC time.
func Now() time.Time {
	return time.Now().UTC()
}
