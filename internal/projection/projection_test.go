package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pastelcal/internal/model"
)

func ev(id, date string, typ model.Category) model.CalendarEvent {
	return model.CalendarEvent{
		ID: id,
		NewCalendarEvent: model.NewCalendarEvent{
			Title: id, Date: date, StartTime: "10:00", EndTime: "11:00", Type: typ,
		},
	}
}

func TestProjectGroupsByDate(t *testing.T) {
	events := []model.CalendarEvent{
		ev("a", "2024-06-02", model.CategoryLife),
		ev("b", "2024-06-01", model.CategoryWork),
		ev("c", "2024-06-02", model.CategoryWork),
		ev("d", "2024-06-01", model.CategoryFamily),
		ev("e", "2024-06-05", model.CategoryHoliday),
	}

	days := Project(events)
	require.Len(t, days, 3)

	assert.Equal(t, "2024-06-02", days[0].Date)
	assert.Equal(t, "2024-06-01", days[1].Date)
	assert.Equal(t, "2024-06-05", days[2].Date)

	assert.Equal(t, []string{"a", "c"}, ids(days[0].Events))
	assert.Equal(t, []string{"b", "d"}, ids(days[1].Events))

	// First event wins regardless of frequency.
	assert.Equal(t, model.CategoryLife, days[0].EventType)
	assert.Equal(t, model.CategoryWork, days[1].EventType)

	for _, d := range days {
		assert.True(t, d.HasEvent)
	}
}

func TestProjectCoversEveryEventOnce(t *testing.T) {
	events := []model.CalendarEvent{
		ev("1", "2024-01-01", model.CategoryWork),
		ev("2", "2024-01-03", model.CategoryLife),
		ev("3", "2024-01-01", model.CategoryLife),
		ev("4", "2024-01-02", model.CategoryFamily),
		ev("5", "2024-01-03", model.CategoryWork),
	}

	days := Project(events)

	seenDates := map[string]bool{}
	var all []string
	for _, d := range days {
		assert.False(t, seenDates[d.Date], "duplicate day %s", d.Date)
		seenDates[d.Date] = true
		for _, e := range d.Events {
			assert.Equal(t, d.Date, e.Date)
		}
		all = append(all, ids(d.Events)...)
	}
	assert.ElementsMatch(t, ids(events), all)
	assert.Len(t, seenDates, 3)
}

func TestProjectEmptyAndPure(t *testing.T) {
	assert.Empty(t, Project(nil))

	events := []model.CalendarEvent{ev("x", "2024-06-01", model.CategoryWork)}
	first := Project(events)
	first[0].Events[0].Title = "mutated"

	second := Project(events)
	assert.Equal(t, "x", events[0].Title)
	assert.Equal(t, "x", second[0].Events[0].Title)
}

func TestFind(t *testing.T) {
	days := Project([]model.CalendarEvent{ev("x", "2024-06-01", model.CategoryWork)})

	d, ok := Find(days, "2024-06-01")
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, ids(d.Events))

	_, ok = Find(days, "2024-06-02")
	assert.False(t, ok)
}

func ids(events []model.CalendarEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}
