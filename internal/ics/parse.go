package ics

import (
	"strings"
	"time"

	appLog "pastelcal/internal/log"
	"pastelcal/internal/model"
)

// Record is the coarse view of a VEVENT. Empty fields were absent.
type Record struct {
	Title       string `json:"title,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	Description string `json:"description,omitempty"`
}

// Parse scans raw iCalendar text and returns one Record per complete
// VEVENT block. It never fails:
//
//   - a VEVENT without END:VEVENT is dropped
//   - unknown properties are ignored
//   - a date that is not a real calendar date becomes today's date
func Parse(raw string) []Record {
	return parse(raw, time.Now)
}

func parse(raw string, now func() time.Time) []Record {
	records := make([]Record, 0)
	var cur *Record

	for _, line := range unfold(raw) {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "BEGIN:VEVENT"):
			cur = &Record{}
		case strings.HasPrefix(line, "END:VEVENT"):
			if cur != nil {
				records = append(records, *cur)
				cur = nil
			}
		case cur != nil:
			key, value, _ := strings.Cut(line, ":")
			switch key {
			case "SUMMARY":
				cur.Title = value
			case "DTSTART", "DTSTART;VALUE=DATE":
				cur.StartDate = normalizeDate(value, now)
			case "DTEND", "DTEND;VALUE=DATE":
				cur.EndDate = normalizeDate(value, now)
			case "DESCRIPTION":
				cur.Description = value
			}
		}
	}

	return records
}

// unfold splits raw into logical lines, joining RFC 5545 continuation lines
// (leading space or tab) onto the line before them.
func unfold(raw string) []string {
	physical := strings.Split(raw, "\n")
	out := make([]string, 0, len(physical))
	for _, l := range physical {
		l = strings.TrimSuffix(l, "\r")
		if len(out) > 0 && (strings.HasPrefix(l, " ") || strings.HasPrefix(l, "\t")) {
			out[len(out)-1] += l[1:]
			continue
		}
		out = append(out, l)
	}
	return out
}

// normalizeDate turns YYYYMMDD[THHMMSS[Z]] into YYYY-MM-DD, falling back to
// the current local date when the value is not a valid calendar date.
func normalizeDate(v string, now func() time.Time) string {
	compact, _, _ := strings.Cut(strings.TrimSpace(v), "T")
	if t, err := time.Parse("20060102", compact); err == nil {
		return t.Format(model.DateLayout)
	}
	appLog.Debug("ics: invalid date, using today", "value", v)
	return now().Format(model.DateLayout)
}
