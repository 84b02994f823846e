package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "pastelcal/internal/log"
	"pastelcal/internal/model"
)

const (
	productID      = "-//pastelcal//personal calendar//EN"
	floatingLayout = "20060102T150405"
)

// Export renders events as an iCalendar document. Timed events are written
// as floating wall-clock times; holidays are written as all-day events.
// An end time earlier than the start is taken to mean the next day.
func Export(events []model.CalendarEvent, loc *time.Location, stamp time.Time) string {
	if loc == nil {
		loc = time.Local
	}

	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)

	for _, ev := range events {
		start, err := ev.Start(loc)
		if err != nil {
			appLog.Error("ics export: skipping event with bad start", err, "id", ev.ID)
			continue
		}
		end, err := ev.End(loc)
		if err != nil {
			appLog.Error("ics export: skipping event with bad end", err, "id", ev.ID)
			continue
		}
		if end.Before(start) {
			end = end.AddDate(0, 0, 1)
		}

		vev := cal.AddEvent(ev.ID)
		vev.SetDtStampTime(stamp)
		vev.SetSummary(ev.Title)
		if ev.Description != "" {
			vev.SetDescription(ev.Description)
		}
		vev.AddProperty(ical.ComponentPropertyCategories, string(ev.Type))

		if ev.IsHoliday {
			day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
			vev.SetAllDayStartAt(day)
			vev.SetAllDayEndAt(day.AddDate(0, 0, 1))
		} else {
			vev.SetProperty(ical.ComponentPropertyDtStart, start.Format(floatingLayout))
			vev.SetProperty(ical.ComponentPropertyDtEnd, end.Format(floatingLayout))
		}

		if ev.Reminder > 0 {
			alarm := vev.AddAlarm()
			alarm.SetAction(ical.ActionDisplay)
			alarm.SetTrigger(fmt.Sprintf("-PT%dM", ev.Reminder))
		}
	}

	return cal.Serialize()
}
