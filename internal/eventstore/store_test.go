package eventstore

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/tazhate/eventcal/internal/domain"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestStore() *Store {
	return New(time.UTC, fixedClock(time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)))
}

func ids(events []domain.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestAddThenEventsOn(t *testing.T) {
	s := newTestStore()

	e, err := s.Add("2024-03-10", "Meeting", "blue")
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if !e.Pending || !domain.IsLocal(e.ID) {
		t.Errorf("new event should be pending with a local id, got %+v", e)
	}

	got := s.EventsOn("2024-03-10")
	count := 0
	for _, g := range got {
		if g.ID == e.ID {
			count++
		}
	}
	if count != 1 {
		t.Errorf("event appears %d times, want 1", count)
	}
	if got[0].Color != "blue" || got[0].Description != "Meeting" {
		t.Errorf("stored event = %+v", got[0])
	}
}

func TestAddKeepsInsertionOrder(t *testing.T) {
	s := newTestStore()
	var want []string
	for _, d := range []string{"b", "a", "c"} {
		e, err := s.Add("2024-03-05", d, "")
		if err != nil {
			t.Fatalf("Add(%s) failed: %v", d, err)
		}
		want = append(want, e.ID)
	}

	got := ids(s.EventsOn("2024-03-05"))
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bucket order = %v, want %v", got, want)
		}
	}
	if s.EventsOn("2024-03-05")[0].Color != domain.DefaultColor {
		t.Error("blank color should default")
	}
}

func TestAddValidation(t *testing.T) {
	s := newTestStore()

	tests := []struct {
		name  string
		date  string
		desc  string
		field string
	}{
		{"past date", "2024-02-29", "Meeting", "date"},
		{"malformed date", "10/03/2024", "Meeting", "date"},
		{"empty description", "2024-03-10", "   ", "description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Add(tt.date, tt.desc, "")
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Add() error = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %s, want %s", ve.Field, tt.field)
			}
		})
	}

	if s.Len() != 0 {
		t.Errorf("rejected adds mutated the store: %d events", s.Len())
	}

	if _, err := s.Add("2024-03-01", "Today is fine", ""); err != nil {
		t.Errorf("Add(today) failed: %v", err)
	}
}

func TestRemove(t *testing.T) {
	s := newTestStore()
	a, _ := s.Add("2024-03-10", "a", "")
	b, _ := s.Add("2024-03-10", "b", "")

	removed, idx, err := s.Remove(a.ID)
	if err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if removed.ID != a.ID || idx != 0 {
		t.Errorf("Remove() = %s at %d", removed.ID, idx)
	}

	for _, e := range s.EventsOn("2024-03-10") {
		if e.ID == a.ID {
			t.Fatal("removed id still present")
		}
	}

	if _, _, err := s.Remove(a.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second Remove() error = %v, want ErrNotFound", err)
	}

	s.Restore(removed, idx)
	if got := ids(s.EventsOn("2024-03-10")); len(got) != 2 || got[0] != a.ID || got[1] != b.ID {
		t.Errorf("after Restore() = %v", got)
	}

	// Restoring twice must not duplicate.
	s.Restore(removed, idx)
	if s.Len() != 2 {
		t.Errorf("Len() = %d after double restore", s.Len())
	}

	s.Remove(a.ID)
	s.Remove(b.ID)
	if len(s.Dates()) != 0 {
		t.Errorf("empty buckets should be dropped, got %v", s.Dates())
	}
}

func TestUpcoming(t *testing.T) {
	s := newTestStore()
	s.ReplaceAll([]domain.Event{
		{ID: "1", DateKey: "2024-02-20", Description: "past"},
		{ID: "2", DateKey: "2024-03-15", Description: "later"},
		{ID: "3", DateKey: "2024-03-01", Description: "today first"},
		{ID: "4", DateKey: "2024-03-02", Description: "tomorrow"},
		{ID: "5", DateKey: "2024-03-01", Description: "today second"},
	})

	got := s.Upcoming(10)
	want := []string{"3", "5", "4", "2"}
	if g := ids(got); len(g) != len(want) {
		t.Fatalf("Upcoming(10) = %v, want %v", g, want)
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("Upcoming(10)[%d] = %s, want %s", i, got[i].ID, want[i])
		}
	}

	for n := 0; n <= 5; n++ {
		got := s.Upcoming(n)
		if len(got) > n {
			t.Errorf("Upcoming(%d) returned %d events", n, len(got))
		}
		keys := make([]string, 0, len(got))
		for _, e := range got {
			if e.DateKey < s.Today() {
				t.Errorf("Upcoming(%d) includes past %s", n, e.DateKey)
			}
			keys = append(keys, e.DateKey)
		}
		if !sort.StringsAreSorted(keys) {
			t.Errorf("Upcoming(%d) not ascending: %v", n, keys)
		}
	}

	if got := s.Upcoming(-1); got == nil || len(got) != 0 {
		t.Errorf("Upcoming(-1) = %v, want empty", got)
	}
}

func TestAddThenUpcoming(t *testing.T) {
	s := newTestStore()
	e, err := s.Add("2024-03-10", "Meeting", "blue")
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	found := false
	for _, u := range s.Upcoming(5) {
		if u.ID == e.ID {
			found = true
		}
	}
	if !found {
		t.Error("Upcoming(5) should include the new event")
	}
}

func TestReplaceAll(t *testing.T) {
	s := newTestStore()
	pending, _ := s.Add("2024-03-10", "pending", "")

	dropped := s.ReplaceAll([]domain.Event{
		{ID: "1", DateKey: "2024-03-10", Description: "a"},
		{ID: "1", DateKey: "2024-03-11", Description: "dup"},
		{ID: "2", DateKey: "bogus", Description: "bad"},
		{ID: "", DateKey: "2024-03-12", Description: "no id"},
		{ID: "3", DateKey: "2024-03-11", Description: "b"},
	})
	if dropped != 3 {
		t.Errorf("dropped = %d, want 3", dropped)
	}
	if _, ok := s.Find(pending.ID); ok {
		t.Error("full replace should not merge local state")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}

	for _, key := range s.Dates() {
		for _, e := range s.EventsOn(key) {
			if e.DateKey != key {
				t.Errorf("event %s stored under %s", e.ID, key)
			}
		}
	}
}

func TestConfirm(t *testing.T) {
	s := newTestStore()
	first, _ := s.Add("2024-03-10", "first", "")
	second, _ := s.Add("2024-03-10", "second", "")

	confirmed := first
	confirmed.ID = "41"
	s.Confirm(first.ID, confirmed)

	got := s.EventsOn("2024-03-10")
	if got[0].ID != "41" || got[0].Pending {
		t.Errorf("confirmed event = %+v", got[0])
	}
	if got[1].ID != second.ID {
		t.Error("confirm changed bucket order")
	}

	// Pending event vanished because of a reload; confirmation still lands once.
	s.ReplaceAll([]domain.Event{{ID: "41", DateKey: "2024-03-10", Description: "first"}})
	c2 := second
	c2.ID = "42"
	s.Confirm(second.ID, c2)
	s.Confirm(second.ID, c2)
	if got := ids(s.EventsOn("2024-03-10")); len(got) != 2 || got[1] != "42" {
		t.Errorf("after late confirm = %v", got)
	}
}

func TestCancelRefusesLaterConfirm(t *testing.T) {
	s := newTestStore()
	e, _ := s.Add("2024-03-10", "draft", "")

	if _, err := s.Cancel(e.ID); err != nil {
		t.Fatalf("Cancel() failed: %v", err)
	}
	confirmed := e
	confirmed.ID = "7"
	if s.Confirm(e.ID, confirmed) {
		t.Error("Confirm() accepted a cancelled event")
	}
	if got := s.EventsOn("2024-03-10"); len(got) != 0 {
		t.Errorf("EventsOn() = %+v, want empty", got)
	}

	if _, err := s.Cancel(e.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second Cancel() error = %v, want ErrNotFound", err)
	}
}

func TestCountsAndBetween(t *testing.T) {
	s := newTestStore()
	s.ReplaceAll([]domain.Event{
		{ID: "1", DateKey: "2024-03-10"},
		{ID: "2", DateKey: "2024-03-10"},
		{ID: "3", DateKey: "2024-04-01"},
		{ID: "4", DateKey: "2024-03-31"},
	})

	counts := s.Counts(2024, time.March)
	if counts["2024-03-10"] != 2 || counts["2024-03-31"] != 1 || len(counts) != 2 {
		t.Errorf("Counts() = %v", counts)
	}

	got := ids(s.Between("2024-03-10", "2024-03-31"))
	if len(got) != 3 || got[2] != "4" {
		t.Errorf("Between() = %v", got)
	}
}
