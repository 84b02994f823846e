package reminder

import (
	"sync"

	appLog "pastelcal/internal/log"
)

// Notifier receives fired reminders. Notify is called with the scheduler's
// lock held and must not call back into the Scheduler, nor into a
// store.Store that arms through it: the store holds its own lock while
// calling Arm and Cancel, so either direction can deadlock. Notifiers that
// need the store should hand the notification off, as Inbox does, and read
// the store from another goroutine.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier writes each notification as a log line.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notification) {
	appLog.Info("reminder",
		"event_id", n.EventID,
		"title", n.Title,
		"start", n.StartTime,
		"end", n.EndTime,
		"description", n.Description,
	)
}

// Multi fans a notification out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, x := range m {
		x.Notify(n)
	}
}

// Inbox keeps the most recent notifications until a client drains them.
type Inbox struct {
	mu    sync.Mutex
	size  int
	items []Notification
}

// NewInbox returns an Inbox holding at most size notifications; older ones
// are dropped first.
func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = 64
	}
	return &Inbox{size: size}
}

func (b *Inbox) Notify(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, n)
	if over := len(b.items) - b.size; over > 0 {
		b.items = append(b.items[:0:0], b.items[over:]...)
	}
}

// Drain returns and clears the queued notifications, oldest first.
func (b *Inbox) Drain() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.items
	b.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}
