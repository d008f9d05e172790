package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/tazhate/eventcal/internal/domain"
	"github.com/tazhate/eventcal/internal/eventstore"
)

// Backend is the remote side the widget synchronizes with
type Backend interface {
	ListEvents(ctx context.Context) ([]domain.Event, error)
	CreateEvent(ctx context.Context, req domain.NewEvent) (*domain.Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// SyncService keeps the in-memory store consistent with the backend
type SyncService struct {
	backend Backend
	store   *eventstore.Store
}

// NewSyncService creates a sync service over store
func NewSyncService(backend Backend, store *eventstore.Store) *SyncService {
	return &SyncService{
		backend: backend,
		store:   store,
	}
}

// Store returns the store being synchronized
func (s *SyncService) Store() *eventstore.Store {
	return s.store
}

// LoadAll replaces the store with the backend's full event set. On failure
// the previous content is kept.
func (s *SyncService) LoadAll(ctx context.Context) error {
	events, err := s.backend.ListEvents(ctx)
	if err != nil {
		return &domain.SyncError{Op: "load", Err: err}
	}

	if dropped := s.store.ReplaceAll(events); dropped > 0 {
		log.Printf("Sync: dropped %d malformed events from backend", dropped)
	}
	return nil
}

// AddEvent validates and stores a new event, then pushes it
func (s *SyncService) AddEvent(ctx context.Context, dateKey, description, color string) (domain.Event, error) {
	event, err := s.store.Add(dateKey, description, color)
	if err != nil {
		return domain.Event{}, err
	}
	return s.Push(ctx, event)
}

// Push sends a pending event to the backend. If the backend rejects it or
// cannot be reached, the event is rolled back out of the store.
func (s *SyncService) Push(ctx context.Context, event domain.Event) (domain.Event, error) {
	created, err := s.backend.CreateEvent(ctx, domain.NewEvent{
		DateKey:     event.DateKey,
		Description: event.Description,
		Color:       event.Color,
	})
	if err != nil {
		if _, _, rmErr := s.store.Remove(event.ID); rmErr != nil && !errors.Is(rmErr, domain.ErrNotFound) {
			log.Printf("Sync: rollback of %s failed: %v", event.ID, rmErr)
		}
		return domain.Event{}, &domain.SyncError{Op: "push", Err: err}
	}

	if created.DateKey == "" {
		created.DateKey = event.DateKey
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = event.CreatedAt
	}
	created.Color = domain.NormalizeColor(created.Color)

	if !s.store.Confirm(event.ID, *created) {
		// Deleted while the request was in flight
		if err := s.backend.DeleteEvent(ctx, created.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			log.Printf("Sync: delete of cancelled event %s failed: %v", created.ID, err)
		}
		return domain.Event{}, fmt.Errorf("push %s: deleted before it was saved: %w", event.ID, domain.ErrNotFound)
	}
	return *created, nil
}

// Delete removes an event locally and on the backend. A failed request
// restores the event where it was; a backend 404 keeps it removed and
// reports domain.ErrNotFound.
func (s *SyncService) Delete(ctx context.Context, id string) error {
	// Pending events have no backend id yet; Push drops them on confirm.
	if domain.IsLocal(id) {
		if _, err := s.store.Cancel(id); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
		return nil
	}

	removed, idx, err := s.store.Remove(id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}

	if err := s.backend.DeleteEvent(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delete %s: %w", id, domain.ErrNotFound)
		}
		s.store.Restore(removed, idx)
		return &domain.SyncError{Op: "delete", Err: err}
	}
	return nil
}
