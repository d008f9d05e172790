package storage

import (
	"path/filepath"
	"testing"

	"github.com/tazhate/eventcal/internal/domain"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data", "events.db"))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetEvent(t *testing.T) {
	s := newTestStorage(t)

	e := &domain.Event{DateKey: "2024-03-10", Description: "Meeting"}
	if err := s.CreateEvent(e); err != nil {
		t.Fatalf("CreateEvent() failed: %v", err)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("CreateEvent() did not fill id/createdAt: %+v", e)
	}
	if e.Color != domain.DefaultColor {
		t.Errorf("Color = %q, want default", e.Color)
	}

	got, err := s.GetEvent(e.ID)
	if err != nil {
		t.Fatalf("GetEvent() failed: %v", err)
	}
	if got == nil || got.Description != "Meeting" || got.DateKey != "2024-03-10" {
		t.Errorf("GetEvent() = %+v", got)
	}
	if !got.CreatedAt.Equal(e.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, e.CreatedAt)
	}

	for _, id := range []string{"9999", "abc", "-1", ""} {
		got, err := s.GetEvent(id)
		if err != nil || got != nil {
			t.Errorf("GetEvent(%q) = %v, %v; want nil, nil", id, got, err)
		}
	}
}

func TestListEvents(t *testing.T) {
	s := newTestStorage(t)
	for _, e := range []domain.Event{
		{DateKey: "2024-03-12", Description: "c"},
		{DateKey: "2024-03-10", Description: "a"},
		{DateKey: "2024-03-10", Description: "b"},
		{DateKey: "2024-04-01", Description: "d"},
	} {
		e := e
		if err := s.CreateEvent(&e); err != nil {
			t.Fatalf("CreateEvent() failed: %v", err)
		}
	}

	all, err := s.ListEvents()
	if err != nil {
		t.Fatalf("ListEvents() failed: %v", err)
	}
	var order string
	for _, e := range all {
		order += e.Description
	}
	if order != "abcd" {
		t.Errorf("ListEvents() order = %s, want abcd", order)
	}

	day, _ := s.ListEventsByDate("2024-03-10")
	if len(day) != 2 || day[0].Description != "a" {
		t.Errorf("ListEventsByDate() = %+v", day)
	}

	empty, err := s.ListEventsByDate("2030-01-01")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("ListEventsByDate(empty) = %v, %v; want empty slice", empty, err)
	}

	between, _ := s.ListEventsBetween("2024-03-11", "2024-03-31")
	if len(between) != 1 || between[0].Description != "c" {
		t.Errorf("ListEventsBetween() = %+v", between)
	}
}

func TestUpdateAndDeleteEvent(t *testing.T) {
	s := newTestStorage(t)
	e := &domain.Event{DateKey: "2024-03-10", Description: "Meeting", Color: "blue"}
	s.CreateEvent(e)

	e.Description = "Standup"
	e.DateKey = "2024-03-11"
	ok, err := s.UpdateEvent(e)
	if err != nil || !ok {
		t.Fatalf("UpdateEvent() = %v, %v", ok, err)
	}
	got, _ := s.GetEvent(e.ID)
	if got.Description != "Standup" || got.DateKey != "2024-03-11" || got.Color != "blue" {
		t.Errorf("after update = %+v", got)
	}

	if ok, _ := s.UpdateEvent(&domain.Event{ID: "424242", DateKey: "2024-01-01", Description: "x"}); ok {
		t.Error("UpdateEvent(missing) reported success")
	}

	ok, err = s.DeleteEvent(e.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteEvent() = %v, %v", ok, err)
	}
	ok, _ = s.DeleteEvent(e.ID)
	if ok {
		t.Error("second DeleteEvent() reported success")
	}
}

func TestCalDAVUID(t *testing.T) {
	s := newTestStorage(t)
	e := &domain.Event{DateKey: "2024-03-10", Description: "Meeting"}
	s.CreateEvent(e)

	uid, err := s.GetEventCalDAVUID(e.ID)
	if err != nil || uid != "" {
		t.Fatalf("GetEventCalDAVUID() = %q, %v", uid, err)
	}

	if err := s.SetEventCalDAVUID(e.ID, "abc@eventcal"); err != nil {
		t.Fatalf("SetEventCalDAVUID() failed: %v", err)
	}
	uid, _ = s.GetEventCalDAVUID(e.ID)
	if uid != "abc@eventcal" {
		t.Errorf("uid = %q", uid)
	}
}

func TestMigrateTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	s.Close()

	s, err = New(path)
	if err != nil {
		t.Fatalf("reopening should skip applied migrations: %v", err)
	}
	s.Close()
}
