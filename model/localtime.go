package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const localTimeLayout = "15:04:05"

// LocalTime is a wall-clock time of day in the Charge Point's local time
// zone. On the wire it is "HH:mm:ss".
type LocalTime struct {
	Hour, Minute, Second int
}

// NewLocalTime returns the time of day h:m:s.
func NewLocalTime(h, m, s int) LocalTime {
	return LocalTime{Hour: h, Minute: m, Second: s}
}

// LocalTimeOf returns the time of day of t in t's location.
func LocalTimeOf(t time.Time) LocalTime {
	return LocalTime{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

// ParseLocalTime parses "HH:mm:ss". "HH:mm" is accepted as well.
func ParseLocalTime(s string) (LocalTime, error) {
	layout := localTimeLayout
	if strings.Count(s, ":") == 1 {
		layout = "15:04"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return LocalTime{}, fmt.Errorf("parse local time %q: %w", s, err)
	}
	return LocalTimeOf(t), nil
}

// Seconds returns the number of seconds since midnight.
func (t LocalTime) Seconds() int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

// Before reports whether t is earlier in the day than u.
func (t LocalTime) Before(u LocalTime) bool {
	return t.Seconds() < u.Seconds()
}

func (t LocalTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

func (t LocalTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *LocalTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("local time must be a string: %w", err)
	}
	parsed, err := ParseLocalTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// DayOfWeek is an ISO day of week. On the wire it is the uppercase English
// name, e.g. "MONDAY".
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

// DayOf converts a time.Weekday.
func DayOf(d time.Weekday) DayOfWeek {
	return DayOfWeek(strings.ToUpper(d.String()))
}

// Matches reports whether d names the weekday w.
func (d DayOfWeek) Matches(w time.Weekday) bool {
	return d == DayOf(w)
}
