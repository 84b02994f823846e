package model

import "time"

// Category is the closed set of event kinds.
type Category string

const (
	CategoryWork    Category = "work"
	CategoryLife    Category = "life"
	CategoryFamily  Category = "family"
	CategoryHoliday Category = "holiday"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryWork, CategoryLife, CategoryFamily, CategoryHoliday}

// Layouts of the wall-clock fields on CalendarEvent.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// NewCalendarEvent is a create/update candidate: every field of an event
// except its store-assigned ID.
type NewCalendarEvent struct {
	Title     string   `json:"title" validate:"notblank"`
	Date      string   `json:"date" validate:"isodate"`
	StartTime string   `json:"startTime" validate:"clock"`
	EndTime   string   `json:"endTime" validate:"clock"`
	Type      Category `json:"type" validate:"oneof=work life family holiday"`

	Description string `json:"description,omitempty"`

	// Reminder is minutes before StartTime; zero means no reminder.
	Reminder int `json:"reminder,omitempty" validate:"omitempty,oneof=5 15 30"`

	// IsHoliday marks events added by a holiday feed import. The store owns
	// it; values sent by clients are ignored.
	IsHoliday bool `json:"isHoliday,omitempty"`
}

// CalendarEvent is a committed event owned by the store.
type CalendarEvent struct {
	ID string `json:"id"`
	NewCalendarEvent
}

// Start returns the event's start as a wall-clock instant in loc.
func (e NewCalendarEvent) Start(loc *time.Location) (time.Time, error) {
	return wallClock(e.Date, e.StartTime, loc)
}

// End returns the event's end as a wall-clock instant in loc. An end earlier
// than the start is returned as-is; callers decide how to treat it.
func (e NewCalendarEvent) End(loc *time.Location) (time.Time, error) {
	return wallClock(e.Date, e.EndTime, loc)
}

func wallClock(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+clock, loc)
}

// CalendarDayData is the per-date view of the event set. It is always
// recomputed from the events and never mutated on its own.
type CalendarDayData struct {
	Date      string          `json:"date"`
	Events    []CalendarEvent `json:"events"`
	HasEvent  bool            `json:"hasEvent"`
	EventType Category        `json:"eventType,omitempty"`
}
