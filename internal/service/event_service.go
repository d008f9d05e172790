package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tazhate/eventcal/internal/domain"
	"github.com/tazhate/eventcal/internal/storage"
)

// Mirror receives a copy of every stored event, e.g. a CalDAV calendar
type Mirror interface {
	PutEvent(ctx context.Context, event domain.Event, uid string) (string, error)
	DeleteEvent(ctx context.Context, uid string) error
}

// EventService is the backend's event logic over SQLite
type EventService struct {
	storage *storage.Storage
	mirror  Mirror
	loc     *time.Location
	now     func() time.Time
}

// NewEventService creates a new event service. mirror may be nil.
func NewEventService(s *storage.Storage, mirror Mirror, loc *time.Location) *EventService {
	if loc == nil {
		loc = time.UTC
	}
	return &EventService{
		storage: s,
		mirror:  mirror,
		loc:     loc,
		now:     time.Now,
	}
}

// SetClock replaces the time source
func (s *EventService) SetClock(now func() time.Time) {
	s.now = now
}

// Today returns the current date key in the service's zone
func (s *EventService) Today() string {
	return domain.DateKeyOf(s.now().In(s.loc))
}

func validate(req domain.NewEvent) (domain.NewEvent, error) {
	req.Description = strings.TrimSpace(req.Description)
	req.DateKey = strings.TrimSpace(req.DateKey)
	if !domain.ValidDateKey(req.DateKey) {
		return req, domain.Invalid("dateKey", "must be a date in YYYY-MM-DD format")
	}
	if req.Description == "" {
		return req, domain.Invalid("description", "is required")
	}
	req.Color = domain.NormalizeColor(strings.TrimSpace(req.Color))
	return req, nil
}

// Create validates and stores a new event
func (s *EventService) Create(ctx context.Context, req domain.NewEvent) (*domain.Event, error) {
	req, err := validate(req)
	if err != nil {
		return nil, err
	}

	event := &domain.Event{
		DateKey:     req.DateKey,
		Description: req.Description,
		Color:       req.Color,
	}
	if err := s.storage.CreateEvent(event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.mirrorPut(ctx, *event, "")
	return event, nil
}

// Get returns an event by id
func (s *EventService) Get(id string) (*domain.Event, error) {
	event, err := s.storage.GetEvent(id)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event == nil {
		return nil, domain.ErrNotFound
	}
	return event, nil
}

// List returns all events
func (s *EventService) List() ([]domain.Event, error) {
	events, err := s.storage.ListEvents()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// ListOn returns one day's events
func (s *EventService) ListOn(dateKey string) ([]domain.Event, error) {
	if !domain.ValidDateKey(dateKey) {
		return nil, domain.Invalid("date", "must be a date in YYYY-MM-DD format")
	}
	events, err := s.storage.ListEventsByDate(dateKey)
	if err != nil {
		return nil, fmt.Errorf("list events on %s: %w", dateKey, err)
	}
	return events, nil
}

// Upcoming returns events from today through today+days
func (s *EventService) Upcoming(days int) ([]domain.Event, error) {
	if days < 0 {
		return nil, domain.Invalid("days", "must not be negative")
	}
	today := s.now().In(s.loc)
	from := domain.DateKeyOf(today)
	to := domain.DateKeyOf(today.AddDate(0, 0, days))

	events, err := s.storage.ListEventsBetween(from, to)
	if err != nil {
		return nil, fmt.Errorf("list upcoming events: %w", err)
	}
	return events, nil
}

// Update replaces an event's date, description and color
func (s *EventService) Update(ctx context.Context, id string, req domain.NewEvent) (*domain.Event, error) {
	req, err := validate(req)
	if err != nil {
		return nil, err
	}

	existing, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	existing.DateKey = req.DateKey
	existing.Description = req.Description
	existing.Color = req.Color

	found, err := s.storage.UpdateEvent(existing)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if !found {
		return nil, domain.ErrNotFound
	}

	uid, err := s.storage.GetEventCalDAVUID(id)
	if err != nil {
		log.Printf("Mirror: get uid of event %s: %v", id, err)
	}
	s.mirrorPut(ctx, *existing, uid)
	return existing, nil
}

// Delete removes an event
func (s *EventService) Delete(ctx context.Context, id string) error {
	uid, err := s.storage.GetEventCalDAVUID(id)
	if err != nil {
		log.Printf("Mirror: get uid of event %s: %v", id, err)
	}

	found, err := s.storage.DeleteEvent(id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if !found {
		return domain.ErrNotFound
	}

	if s.mirror != nil && uid != "" {
		if err := s.mirror.DeleteEvent(ctx, uid); err != nil {
			log.Printf("Mirror: delete event %s (%s): %v", id, uid, err)
		}
	}
	return nil
}

// mirrorPut copies an event to the mirror. Failures are logged only.
func (s *EventService) mirrorPut(ctx context.Context, event domain.Event, uid string) {
	if s.mirror == nil {
		return
	}
	newUID, err := s.mirror.PutEvent(ctx, event, uid)
	if err != nil {
		log.Printf("Mirror: put event %s: %v", event.ID, err)
		return
	}
	if newUID != uid {
		if err := s.storage.SetEventCalDAVUID(event.ID, newUID); err != nil {
			log.Printf("Mirror: save uid of event %s: %v", event.ID, err)
		}
	}
}
