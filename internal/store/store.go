// Package store holds the authoritative in-memory event set together with
// its derived projection and armed reminders.
package store

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	appLog "pastelcal/internal/log"
	"pastelcal/internal/model"
	"pastelcal/internal/projection"
	"pastelcal/internal/validate"
)

// ErrNotFound is returned when an event id is not in the live set.
var ErrNotFound = errors.New("event not found")

// Reminders is the scheduling side of the store. *reminder.Scheduler
// satisfies it.
type Reminders interface {
	Arm(ev model.CalendarEvent) bool
	Cancel(id string) bool
}

type noReminders struct{}

func (noReminders) Arm(model.CalendarEvent) bool { return false }
func (noReminders) Cancel(string) bool { return false }

// Store is safe for concurrent use. Every mutation recomputes the projection
// and updates reminders before releasing the lock, so readers never see the
// event set and projection disagree.
type Store struct {
	validator *validate.Validator
	reminders Reminders
	newID     func() string

	mu     sync.RWMutex
	events []model.CalendarEvent
	days   []model.CalendarDayData
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces uuid.NewString for event ids.
func WithIDGenerator(f func() string) Option {
	return func(s *Store) {
		if f != nil {
			s.newID = f
		}
	}
}

// New creates an empty Store. A nil Reminders disables reminder scheduling.
func New(v *validate.Validator, r Reminders, opts ...Option) *Store {
	if v == nil {
		v = validate.New()
	}
	if r == nil {
		r = noReminders{}
	}
	s := &Store{
		validator: v,
		reminders: r,
		newID:     uuid.NewString,
		days:      []model.CalendarDayData{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create validates c, assigns it a fresh id and appends it. The event is
// user-owned: IsHoliday from the caller is ignored.
func (s *Store) Create(c model.NewCalendarEvent) (model.CalendarEvent, error) {
	if err := s.validator.Event(c); err != nil {
		return model.CalendarEvent{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c.IsHoliday = false
	ev := model.CalendarEvent{ID: s.newID(), NewCalendarEvent: c}
	s.events = append(s.events, ev)
	s.reproject()
	s.reminders.Arm(ev)

	appLog.Debug("event created", "id", ev.ID, "date", ev.Date, "type", ev.Type)
	return ev, nil
}

// Update replaces every field of event id with c, keeping its id, position
// and import provenance.
func (s *Store) Update(id string, c model.NewCalendarEvent) (model.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return model.CalendarEvent{}, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	if err := s.validator.Event(c); err != nil {
		return model.CalendarEvent{}, err
	}

	c.IsHoliday = s.events[i].IsHoliday
	ev := model.CalendarEvent{ID: id, NewCalendarEvent: c}
	s.events[i] = ev
	s.reproject()
	s.reminders.Cancel(id)
	s.reminders.Arm(ev)

	appLog.Debug("event updated", "id", id, "date", ev.Date, "type", ev.Type)
	return ev, nil
}

// Delete removes event id and its reminder. Deleting an unknown id is a
// no-op; the result reports whether anything was removed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.events = slices.Delete(s.events, i, i+1)
	s.reproject()
	s.reminders.Cancel(id)

	appLog.Debug("event deleted", "id", id)
	return true
}

// ReplaceHolidays swaps every event added by a previous ReplaceHolidays for
// cands in one step. Events committed through Create are never removed, even
// when typed holiday. All candidates are validated first; on any failure
// nothing changes.
func (s *Store) ReplaceHolidays(cands []model.NewCalendarEvent) ([]model.CalendarEvent, error) {
	imported := make([]model.NewCalendarEvent, 0, len(cands))
	for i, c := range cands {
		if err := s.validator.Event(c); err != nil {
			return nil, fmt.Errorf("holiday %d: %w", i, err)
		}
		c.IsHoliday = true
		imported = append(imported, c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0:0]
	removed := 0
	for _, ev := range s.events {
		if ev.IsHoliday {
			s.reminders.Cancel(ev.ID)
			removed++
			continue
		}
		kept = append(kept, ev)
	}

	added := make([]model.CalendarEvent, 0, len(imported))
	for _, c := range imported {
		ev := model.CalendarEvent{ID: s.newID(), NewCalendarEvent: c}
		kept = append(kept, ev)
		added = append(added, ev)
	}
	s.events = kept
	s.reproject()
	for _, ev := range added {
		s.reminders.Arm(ev)
	}

	appLog.Info("holidays replaced", "removed", removed, "added", len(added))
	return added, nil
}

// List returns the live events in insertion order.
func (s *Store) List() []model.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}

// Get returns event id.
func (s *Store) Get(id string) (model.CalendarEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return model.CalendarEvent{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return s.events[i], nil
}

// EventsOn returns the events dated date, in insertion order.
func (s *Store) EventsOn(date string) []model.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := projection.Find(s.days, date)
	if !ok {
		return []model.CalendarEvent{}
	}
	return slices.Clone(d.Events)
}

// Projection returns the current per-day view.
func (s *Store) Projection() []model.CalendarDayData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CalendarDayData, len(s.days))
	for i, d := range s.days {
		d.Events = slices.Clone(d.Events)
		out[i] = d
	}
	return out
}

// Len returns the number of live events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.events, func(e model.CalendarEvent) bool { return e.ID == id })
}

func (s *Store) reproject() {
	s.days = projection.Project(s.events)
}
