package model

import "time"

const DateLayout = "2006-01-02"

// DateOf truncates t to a calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(raw string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, raw, time.UTC)
}

func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// OnOrBefore reports whether calendar date a is not after b.
func OnOrBefore(a, b time.Time) bool {
	return !DateOf(a).After(DateOf(b))
}
