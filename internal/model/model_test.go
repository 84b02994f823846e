package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartEndWallClock(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	ev := NewCalendarEvent{Date: "2024-06-01", StartTime: "09:30", EndTime: "08:00"}

	start, err := ev.Start(loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 9, 30, 0, 0, loc), start)

	end, err := ev.End(loc)
	require.NoError(t, err)
	assert.True(t, end.Before(start))
}

func TestStartRejectsMalformed(t *testing.T) {
	_, err := NewCalendarEvent{Date: "2024-13-40", StartTime: "09:00"}.Start(time.UTC)
	require.Error(t, err)
}

func TestCategoryPresentation(t *testing.T) {
	assert.True(t, CategoryFamily.Valid())
	assert.False(t, Category("vacation").Valid())

	assert.Equal(t, "#B88EC8", CategoryWork.Presentation().Color)

	unknown := Category("vacation").Presentation()
	assert.Equal(t, Category("vacation"), unknown.ID)
	assert.Equal(t, "#FDEE89", unknown.Color)

	all := Presentations()
	require.Len(t, all, 4)
	assert.Equal(t, CategoryWork, all[0].ID)
	assert.Equal(t, CategoryHoliday, all[3].ID)
}
