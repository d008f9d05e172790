package domain

import (
	"strings"
	"time"
)

const (
	DefaultColor = "#4361ee"

	// LocalIDPrefix marks ids generated by the widget for events the
	// backend has not acknowledged yet.
	LocalIDPrefix = "local-"
)

// Event is a single calendar entry bound to one day
type Event struct {
	ID          string    `json:"id"`
	DateKey     string    `json:"dateKey"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"createdAt"`

	// Pending is set while the event only exists locally
	Pending bool `json:"-"`
}

// NewEvent is the payload for creating an event on the backend
type NewEvent struct {
	DateKey     string `json:"dateKey"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// IsLocal reports whether the id was generated locally
func IsLocal(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// NormalizeColor returns the default color for blank input
func NormalizeColor(color string) string {
	color = strings.TrimSpace(color)
	if color == "" {
		return DefaultColor
	}
	return color
}

// Date returns the event day at midnight in loc
func (e *Event) Date(loc *time.Location) (time.Time, error) {
	return ParseDateKeyIn(e.DateKey, loc)
}

// FormatCreated returns the creation clock time for display
func (e *Event) FormatCreated() string {
	if e.CreatedAt.IsZero() {
		return "--:--"
	}
	return e.CreatedAt.Format("15:04")
}
