package util

import (
    "strconv"
    "strings"
    "time"
)

// DateLayout is the calendar-date layout used by configs, the API and the CSV cache.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date (optionally followed by a time part) in UTC.
func ParseDate(s string) (time.Time, bool) {
    s = strings.TrimSpace(s)
    if s == "" {
        return time.Time{}, false
    }
    if t, err := time.ParseInLocation(DateLayout, s, time.UTC); err == nil {
        return t, true
    }
    if t, ok := ParseTime(s); ok {
        y, m, d := t.UTC().Date()
        return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
    }
    if t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC); err == nil {
        y, m, d := t.Date()
        return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
    }
    return time.Time{}, false
}

// FormatDate formats t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
    return t.UTC().Format(DateLayout)
}

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t, true
    }
    if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
        return t, true
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return time.Unix(ts, 0), true
    }
    return time.Time{}, false
}
