package domain

import (
	"fmt"
	"time"
)

// DateKeyLayout is the canonical YYYY-MM-DD form of a day
const DateKeyLayout = "2006-01-02"

// DateKeyOf formats t as a date key in t's own location
func DateKeyOf(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// ParseDateKey parses a date key as midnight UTC
func ParseDateKey(key string) (time.Time, error) {
	return ParseDateKeyIn(key, time.UTC)
}

// ParseDateKeyIn parses a date key as midnight in loc
func ParseDateKeyIn(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateKeyLayout, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date key %q: %w", key, err)
	}
	return t, nil
}

// ValidDateKey reports whether key is a well-formed calendar date
func ValidDateKey(key string) bool {
	_, err := time.Parse(DateKeyLayout, key)
	return err == nil
}
