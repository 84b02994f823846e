// Package holiday imports public holidays from a remote ICS feed into the
// event store.
package holiday

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"pastelcal/internal/ics"
	appLog "pastelcal/internal/log"
	"pastelcal/internal/model"
)

// ErrNotCalendar is returned when the feed body is not an iCalendar document.
var ErrNotCalendar = errors.New("feed is not an iCalendar document")

const (
	DefaultTitle       = "Holiday"
	DefaultDescription = "Public holiday"
)

// Feed supplies the raw calendar text. *ics.Fetcher satisfies it via FetcherFeed.
type Feed interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Store is the part of the event store the importer writes to.
type Store interface {
	ReplaceHolidays(cands []model.NewCalendarEvent) ([]model.CalendarEvent, error)
}

// FetcherFeed adapts an ics.Fetcher and a source to Feed.
type FetcherFeed struct {
	Fetcher *ics.Fetcher
	Source  ics.Source
}

func (f FetcherFeed) Fetch(ctx context.Context) ([]byte, error) {
	res, err := f.Fetcher.Fetch(ctx, f.Source)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

// Options customizes how feed records become events.
type Options struct {
	DefaultTitle       string
	DefaultDescription string
	// Now supplies "today" for records without a start date.
	Now func() time.Time
}

// Importer converts a holiday feed into holiday events.
type Importer struct {
	feed  Feed
	store Store
	opts  Options

	// mu serializes imports so a cron tick and a manual import cannot interleave.
	mu sync.Mutex
}

// NewImporter creates an Importer.
func NewImporter(feed Feed, store Store, opts Options) *Importer {
	if opts.DefaultTitle == "" {
		opts.DefaultTitle = DefaultTitle
	}
	if opts.DefaultDescription == "" {
		opts.DefaultDescription = DefaultDescription
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Importer{feed: feed, store: store, opts: opts}
}

// Import fetches the feed and replaces all previously imported holidays.
// On any error the store is left untouched.
func (im *Importer) Import(ctx context.Context) (int, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	body, err := im.feed.Fetch(ctx)
	if err != nil {
		appLog.Error("holiday import: fetch failed", err)
		return 0, fmt.Errorf("holiday import: %w", err)
	}
	if !strings.Contains(string(body), "BEGIN:VCALENDAR") {
		appLog.Error("holiday import: unparseable feed", ErrNotCalendar, "bytes", len(body))
		return 0, fmt.Errorf("holiday import: %w", ErrNotCalendar)
	}

	records := ics.Parse(string(body))
	cands := make([]model.NewCalendarEvent, 0, len(records))
	for _, r := range records {
		cands = append(cands, im.toEvent(r))
	}

	added, err := im.store.ReplaceHolidays(cands)
	if err != nil {
		appLog.Error("holiday import: commit rejected", err, "records", len(records))
		return 0, fmt.Errorf("holiday import: %w", err)
	}

	appLog.Info("holiday import completed", "events", len(added))
	return len(added), nil
}

func (im *Importer) toEvent(r ics.Record) model.NewCalendarEvent {
	title := r.Title
	if title == "" {
		title = im.opts.DefaultTitle
	}
	date := r.StartDate
	if date == "" {
		date = im.opts.Now().Format(model.DateLayout)
	}
	desc := r.Description
	if desc == "" {
		desc = im.opts.DefaultDescription
	}
	return model.NewCalendarEvent{
		Title:       title,
		Date:        date,
		StartTime:   "00:00",
		EndTime:     "23:59",
		Type:        model.CategoryHoliday,
		Description: desc,
		IsHoliday:   true,
	}
}

// Schedule re-runs Import on the given cron spec until ctx is done.
// An empty spec disables scheduling.
func (im *Importer) Schedule(ctx context.Context, spec string) error {
	if strings.TrimSpace(spec) == "" {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if _, err := im.Import(ctx); err != nil {
			appLog.Error("scheduled holiday import failed", err, "spec", spec)
		}
	}); err != nil {
		return fmt.Errorf("holiday schedule %q: %w", spec, err)
	}

	c.Start()
	appLog.Info("holiday refresh scheduled", "spec", spec)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}
