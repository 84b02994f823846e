// Package reminder arms one-shot notifications ahead of event start times.
package reminder

import (
	"sync"
	"time"

	appLog "pastelcal/internal/log"
	"pastelcal/internal/model"
)

// DefaultInterval is how often a pending reminder checks the wall clock.
// Delivery is accurate to within one interval of the target time.
const DefaultInterval = 30 * time.Second

// Notification is what the presentation surface receives when a reminder fires.
type Notification struct {
	EventID     string `json:"eventId"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Description string `json:"description,omitempty"`
}

// task is a single pending reminder.
type task struct {
	eventID string
	fireAt  time.Time
	note    Notification
	stop    chan struct{}
}

// Scheduler owns at most one pending reminder per event id.
type Scheduler struct {
	notifier Notifier
	interval time.Duration
	now      func() time.Time
	loc      *time.Location

	mu      sync.Mutex
	pending map[string]*task
	closed  bool
	wg      sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the zone event wall-clock times are read in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewScheduler creates a Scheduler delivering to n.
func NewScheduler(n Notifier, opts ...Option) *Scheduler {
	s := &Scheduler{
		notifier: n,
		interval: DefaultInterval,
		now:      time.Now,
		loc:      time.Local,
		pending:  make(map[string]*task),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Arm replaces any pending reminder for ev.ID with one computed from ev.
// It reports whether a reminder is now pending; events without a reminder,
// or whose fire time has already passed, are not armed.
func (s *Scheduler) Arm(ev model.CalendarEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked(ev.ID)

	if s.closed || ev.Reminder <= 0 {
		return false
	}

	start, err := ev.Start(s.loc)
	if err != nil {
		appLog.Error("reminder: unreadable start time", err, "event_id", ev.ID, "date", ev.Date, "start", ev.StartTime)
		return false
	}

	fireAt := start.Add(-time.Duration(ev.Reminder) * time.Minute)
	if !fireAt.After(s.now()) {
		appLog.Debug("reminder: fire time already passed", "event_id", ev.ID, "fire_at", fireAt.Format(time.RFC3339))
		return false
	}

	t := &task{
		eventID: ev.ID,
		fireAt:  fireAt,
		note: Notification{
			EventID:     ev.ID,
			Title:       ev.Title,
			Date:        ev.Date,
			StartTime:   ev.StartTime,
			EndTime:     ev.EndTime,
			Description: ev.Description,
		},
		stop: make(chan struct{}),
	}
	s.pending[ev.ID] = t

	s.wg.Add(1)
	go s.run(t)

	appLog.Debug("reminder armed", "event_id", ev.ID, "fire_at", fireAt.Format(time.RFC3339))
	return true
}

// Cancel drops the pending reminder for id, if any. Once Cancel returns no
// notification for id will be delivered.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(id)
}

func (s *Scheduler) cancelLocked(id string) bool {
	t, ok := s.pending[id]
	if !ok {
		return false
	}
	delete(s.pending, id)
	close(t.stop)
	appLog.Debug("reminder cancelled", "event_id", id)
	return true
}

// Pending reports the fire time of the reminder armed for id.
func (s *Scheduler) Pending(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.pending[id]
	if !ok {
		return time.Time{}, false
	}
	return t.fireAt, true
}

// Len returns the number of pending reminders.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close cancels every pending reminder and waits for their goroutines.
// Arm is a no-op afterwards.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for id := range s.pending {
		s.cancelLocked(id)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) run(t *task) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			if s.tryFire(t) {
				return
			}
		}
	}
}

// tryFire delivers t if its time has come. It reports whether t is finished.
// Delivery happens under the lock so that a concurrent Cancel either wins
// outright or observes the task already gone.
func (s *Scheduler) tryFire(t *task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending[t.eventID] != t {
		return true
	}
	if s.now().Before(t.fireAt) {
		return false
	}

	delete(s.pending, t.eventID)
	appLog.Info("reminder fired", "event_id", t.eventID, "title", t.note.Title)
	if s.notifier != nil {
		s.notifier.Notify(t.note)
	}
	return true
}
