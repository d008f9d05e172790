package eventstore

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tazhate/eventcal/internal/domain"
)

// Store keeps the widget's view of all events, bucketed by date key.
// Buckets keep insertion order. The backend is the source of truth; the
// store is never persisted.
type Store struct {
	mu      sync.RWMutex
	buckets map[string][]domain.Event
	// pending ids deleted before the backend acknowledged them
	cancelled map[string]bool
	now     func() time.Time
	loc     *time.Location
}

// New creates an empty store. "Today" is taken from now in loc.
func New(loc *time.Location, now func() time.Time) *Store {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		buckets:   make(map[string][]domain.Event),
		cancelled: make(map[string]bool),
		now:     now,
		loc:     loc,
	}
}

// Today returns the current date key
func (s *Store) Today() string {
	return domain.DateKeyOf(s.now().In(s.loc))
}

// Location returns the zone used for "today"
func (s *Store) Location() *time.Location {
	return s.loc
}

// Add appends a new pending event to its day
func (s *Store) Add(dateKey, description, color string) (domain.Event, error) {
	dateKey = strings.TrimSpace(dateKey)
	description = strings.TrimSpace(description)

	if !domain.ValidDateKey(dateKey) {
		return domain.Event{}, domain.Invalid("date", "%q is not a YYYY-MM-DD date", dateKey)
	}
	if dateKey < s.Today() {
		return domain.Event{}, domain.Invalid("date", "%s is in the past", dateKey)
	}
	if description == "" {
		return domain.Event{}, domain.Invalid("description", "must not be empty")
	}

	e := domain.Event{
		ID:          domain.LocalIDPrefix + uuid.NewString(),
		DateKey:     dateKey,
		Description: description,
		Color:       domain.NormalizeColor(color),
		CreatedAt:   s.now(),
		Pending:     true,
	}

	s.mu.Lock()
	s.buckets[dateKey] = append(s.buckets[dateKey], e)
	s.mu.Unlock()
	return e, nil
}

// Remove deletes an event by id and returns it with its former position
// in the bucket
func (s *Store) Remove(id string) (domain.Event, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cancelled, id)
	return s.removeLocked(id)
}

// Cancel removes a pending event and remembers it, so a late Confirm for
// it is refused instead of bringing it back
func (s *Store) Cancel(id string) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, _, err := s.removeLocked(id)
	if err != nil {
		return domain.Event{}, err
	}
	s.cancelled[id] = true
	return e, nil
}

// removeLocked deletes id; caller must hold the lock
func (s *Store) removeLocked(id string) (domain.Event, int, error) {
	key, idx, ok := s.locate(id)
	if !ok {
		return domain.Event{}, -1, domain.ErrNotFound
	}

	bucket := s.buckets[key]
	e := bucket[idx]
	bucket = append(bucket[:idx:idx], bucket[idx+1:]...)
	if len(bucket) == 0 {
		delete(s.buckets, key)
	} else {
		s.buckets[key] = bucket
	}
	return e, idx, nil
}

// Restore puts a removed event back at index within its bucket. It is a
// no-op if the id is already present.
func (s *Store) Restore(e domain.Event, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, _, ok := s.locate(e.ID); ok {
		return
	}
	s.insertAt(e, index)
}

// Confirm replaces a pending event with its acknowledged version, keeping
// its position. If the pending event is gone (for example a full reload
// landed in between) the confirmed event is appended unless already known.
// It reports false, storing nothing, if the pending event was cancelled.
func (s *Store) Confirm(localID string, confirmed domain.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelled[localID] {
		delete(s.cancelled, localID)
		return false
	}

	confirmed.Pending = false
	if key, idx, ok := s.locate(localID); ok {
		if key == confirmed.DateKey {
			if _, _, dup := s.locate(confirmed.ID); !dup {
				s.buckets[key][idx] = confirmed
				return true
			}
		}
		bucket := s.buckets[key]
		bucket = append(bucket[:idx:idx], bucket[idx+1:]...)
		if len(bucket) == 0 {
			delete(s.buckets, key)
		} else {
			s.buckets[key] = bucket
		}
	}

	if _, _, ok := s.locate(confirmed.ID); ok {
		return true
	}
	s.buckets[confirmed.DateKey] = append(s.buckets[confirmed.DateKey], confirmed)
	return true
}

// ReplaceAll swaps the whole content for events. Events with malformed
// date keys or repeated ids are dropped; the number dropped is returned.
func (s *Store) ReplaceAll(events []domain.Event) int {
	buckets := make(map[string][]domain.Event)
	seen := make(map[string]bool)
	dropped := 0

	for _, e := range events {
		if !domain.ValidDateKey(e.DateKey) || e.ID == "" || seen[e.ID] {
			dropped++
			continue
		}
		seen[e.ID] = true
		e.Color = domain.NormalizeColor(e.Color)
		e.Pending = false
		buckets[e.DateKey] = append(buckets[e.DateKey], e)
	}

	s.mu.Lock()
	s.buckets = buckets
	s.mu.Unlock()
	return dropped
}

// Find returns the event with id
func (s *Store) Find(id string) (domain.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, idx, ok := s.locate(id)
	if !ok {
		return domain.Event{}, false
	}
	return s.buckets[key][idx], true
}

// EventsOn returns a copy of the day's events
func (s *Store) EventsOn(dateKey string) []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.buckets[dateKey]
	out := make([]domain.Event, len(bucket))
	copy(out, bucket)
	return out
}

// Upcoming returns at most limit events dated today or later, ascending by
// date and in insertion order within a day
func (s *Store) Upcoming(limit int) []domain.Event {
	if limit <= 0 {
		return []domain.Event{}
	}

	today := s.Today()

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.buckets))
	for k := range s.buckets {
		if k >= today {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]domain.Event, 0, limit)
	for _, k := range keys {
		for _, e := range s.buckets[k] {
			if len(out) == limit {
				return out
			}
			out = append(out, e)
		}
	}
	return out
}

// Between returns events with from <= dateKey <= to, ascending
func (s *Store) Between(from, to string) []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0)
	for k := range s.buckets {
		if k >= from && k <= to {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out []domain.Event
	for _, k := range keys {
		out = append(out, s.buckets[k]...)
	}
	return out
}

// Counts returns the number of events per day for one month
func (s *Store) Counts(year int, month time.Month) map[string]int {
	prefix := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01-")

	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for k, b := range s.buckets {
		if strings.HasPrefix(k, prefix) {
			counts[k] = len(b)
		}
	}
	return counts
}

// Dates returns all date keys that hold events, ascending
func (s *Store) Dates() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.buckets))
	for k := range s.buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the total number of events
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, b := range s.buckets {
		n += len(b)
	}
	return n
}

// locate finds id; caller must hold the lock
func (s *Store) locate(id string) (string, int, bool) {
	for key, bucket := range s.buckets {
		for i, e := range bucket {
			if e.ID == id {
				return key, i, true
			}
		}
	}
	return "", -1, false
}

// insertAt places e at index in its bucket; caller must hold the lock
func (s *Store) insertAt(e domain.Event, index int) {
	bucket := s.buckets[e.DateKey]
	if index < 0 || index > len(bucket) {
		index = len(bucket)
	}
	bucket = append(bucket, domain.Event{})
	copy(bucket[index+1:], bucket[index:])
	bucket[index] = e
	s.buckets[e.DateKey] = bucket
}
