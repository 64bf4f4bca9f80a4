package utils

import (
	"fmt"
	"strings"
	"time"
)

// ReferenceZone is the operators' wall-clock zone (UTC+3, no daylight saving).
// Scheduled times entered without an offset are read in this zone.
var ReferenceZone = time.FixedZone("UTC+3", 3*60*60)

var wallClockLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// TimeParseError is returned for an unparseable scheduled time
type TimeParseError struct {
	Value string
}

func (e *TimeParseError) Error() string {
	return fmt.Sprintf("invalid datetime %q: use RFC3339 or YYYY-MM-DDTHH:MM in UTC+3", e.Value)
}

// ParseScheduledDatetime accepts RFC3339 with an explicit offset or a
// wall-clock time in ReferenceZone, and returns the instant in UTC.
func ParseScheduledDatetime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, &TimeParseError{Value: value}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range wallClockLayouts {
		if t, err := time.ParseInLocation(layout, value, ReferenceZone); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &TimeParseError{Value: value}
}

// InReferenceZone formats t as wall-clock time in ReferenceZone
func InReferenceZone(t time.Time) string {
	return t.In(ReferenceZone).Format("2006-01-02T15:04:05")
}
