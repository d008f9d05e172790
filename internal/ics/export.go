package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/tazhate/eventcal/internal/domain"
)

const (
	ProductID = "-//EventCal//Calendar//EN"
	uidDomain = "eventcal"
)

// UID returns the stable iCalendar UID of an event
func UID(e domain.Event) string {
	return fmt.Sprintf("event-%s@%s", e.ID, uidDomain)
}

// NewEvent converts an event to an all-day VEVENT. An empty uid falls back
// to UID(e).
func NewEvent(e domain.Event, uid string) (*ical.Event, error) {
	day, err := domain.ParseDateKey(e.DateKey)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", e.ID, err)
	}
	if uid == "" {
		uid = UID(e)
	}

	stamp := e.CreatedAt.UTC()
	if e.CreatedAt.IsZero() {
		stamp = time.Now().UTC()
	}

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, uid)
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.Truncate(time.Second))
	vevent.Props.SetDate(ical.PropDateTimeStart, day)
	vevent.Props.SetDate(ical.PropDateTimeEnd, day.AddDate(0, 0, 1))
	vevent.Props.SetText(ical.PropSummary, summary(e.Description))
	vevent.Props.SetText(ical.PropDescription, e.Description)
	if e.Color != "" {
		vevent.Props.SetText("COLOR", e.Color)
	}
	return vevent, nil
}

// NewCalendar wraps events into a VCALENDAR. Events whose date key does
// not parse are skipped.
func NewCalendar(name string, events []domain.Event) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")
	if name != "" {
		cal.Props.SetText("X-WR-CALNAME", name)
	}

	for _, e := range events {
		vevent, err := NewEvent(e, "")
		if err != nil {
			continue
		}
		cal.Children = append(cal.Children, vevent.Component)
	}
	return cal
}

// Write encodes events as an iCalendar stream
func Write(w io.Writer, name string, events []domain.Event) error {
	if err := ical.NewEncoder(w).Encode(NewCalendar(name, events)); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

// summary is the first line of a description
func summary(desc string) string {
	if i := strings.IndexByte(desc, '\n'); i >= 0 {
		desc = desc[:i]
	}
	return strings.TrimSpace(desc)
}
