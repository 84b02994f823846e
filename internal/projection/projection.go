// Package projection derives the per-day view-model that every calendar
// view reads.
package projection

import "pastelcal/internal/model"

// Project groups events by date. Days appear in order of the first event
// carrying that date, events keep their relative input order, and the day's
// EventType is the type of its first event. Dates without events produce no
// entry. The result never aliases events.
func Project(events []model.CalendarEvent) []model.CalendarDayData {
	days := make([]model.CalendarDayData, 0)
	index := make(map[string]int)

	for _, ev := range events {
		i, ok := index[ev.Date]
		if !ok {
			i = len(days)
			index[ev.Date] = i
			days = append(days, model.CalendarDayData{
				Date:      ev.Date,
				EventType: ev.Type,
			})
		}
		days[i].Events = append(days[i].Events, ev)
	}

	for i := range days {
		days[i].HasEvent = len(days[i].Events) > 0
	}
	return days
}

// Find returns the entry for date, if any.
func Find(days []model.CalendarDayData, date string) (model.CalendarDayData, bool) {
	for _, d := range days {
		if d.Date == date {
			return d, true
		}
	}
	return model.CalendarDayData{}, false
}
