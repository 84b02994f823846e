package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pastelcal/internal/model"
	"pastelcal/internal/reminder"
	"pastelcal/internal/store"
	"pastelcal/internal/validate"
)

type fakeImporter struct {
	n   int
	err error
}

func (f fakeImporter) Import(context.Context) (int, error) { return f.n, f.err }

func newTestServer(t *testing.T, imp Importer) (*httptest.Server, *store.Store, *reminder.Inbox) {
	t.Helper()
	s := store.New(validate.New(), nil)
	inbox := reminder.NewInbox(8)
	srv := httptest.NewServer(NewServer(s, imp, inbox).Handler())
	t.Cleanup(srv.Close)
	return srv, s, inbox
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

const dinner = `{"title":"Dinner","date":"2024-06-01","startTime":"18:00","endTime":"20:00","type":"family","reminder":30}`

func TestEventCRUD(t *testing.T) {
	srv, s, _ := newTestServer(t, nil)

	resp := do(t, http.MethodPost, srv.URL+"/api/events", dinner)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[model.CalendarEvent](t, resp)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Dinner", created.Title)
	assert.Equal(t, 30, created.Reminder)

	resp = do(t, http.MethodGet, srv.URL+"/api/events/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created, decode[model.CalendarEvent](t, resp))

	update := `{"title":"Lunch","date":"2024-06-02","startTime":"12:00","endTime":"13:00","type":"life"}`
	resp = do(t, http.MethodPut, srv.URL+"/api/events/"+created.ID, update)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[model.CalendarEvent](t, resp)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Lunch", updated.Title)
	assert.Zero(t, updated.Reminder)

	resp = do(t, http.MethodGet, srv.URL+"/api/events?date=2024-06-02", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.CalendarEvent](t, resp), 1)

	resp = do(t, http.MethodGet, srv.URL+"/api/days", "")
	days := decode[[]model.CalendarDayData](t, resp)
	require.Len(t, days, 1)
	assert.Equal(t, model.CategoryLife, days[0].EventType)
	assert.True(t, days[0].HasEvent)

	resp = do(t, http.MethodDelete, srv.URL+"/api/events/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodDelete, srv.URL+"/api/events/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Zero(t, s.Len())

	resp = do(t, http.MethodGet, srv.URL+"/api/events", "")
	assert.Empty(t, decode[[]model.CalendarEvent](t, resp))
}

func TestValidationAndNotFound(t *testing.T) {
	srv, s, _ := newTestServer(t, nil)

	bad := `{"title":"","date":"2024-13-40","startTime":"9:00","endTime":"10:00","type":"vacation","reminder":10}`
	resp := do(t, http.MethodPost, srv.URL+"/api/events", bad)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decode[validationResponse](t, resp)
	assert.Len(t, body.Fields, 5)
	assert.Zero(t, s.Len())

	resp = do(t, http.MethodPut, srv.URL+"/api/events/missing", dinner)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/events/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/events", "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestImportEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, fakeImporter{n: 7})
	resp := do(t, http.MethodPost, srv.URL+"/api/holidays/import", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 7, decode[importResponse](t, resp).Imported)

	failing, _, _ := newTestServer(t, fakeImporter{err: errors.New("unreachable")})
	resp = do(t, http.MethodPost, failing.URL+"/api/holidays/import", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	none, _, _ := newTestServer(t, nil)
	resp = do(t, http.MethodPost, none.URL+"/api/holidays/import", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestNotificationsCategoriesHealthExport(t *testing.T) {
	srv, s, inbox := newTestServer(t, nil)

	inbox.Notify(reminder.Notification{EventID: "x", Title: "Dinner"})
	resp := do(t, http.MethodGet, srv.URL+"/api/notifications", "")
	notes := decode[[]reminder.Notification](t, resp)
	require.Len(t, notes, 1)
	assert.Equal(t, "Dinner", notes[0].Title)

	resp = do(t, http.MethodGet, srv.URL+"/api/notifications", "")
	assert.Empty(t, decode[[]reminder.Notification](t, resp))

	resp = do(t, http.MethodGet, srv.URL+"/api/categories", "")
	cats := decode[[]model.Presentation](t, resp)
	require.Len(t, cats, 4)
	assert.Equal(t, "#90E8C1", cats[1].Color)

	resp = do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err := s.Create(model.NewCalendarEvent{
		Title: "Gym", Date: "2024-06-01", StartTime: "07:00", EndTime: "08:00", Type: model.CategoryLife,
	})
	require.NoError(t, err)
	resp = do(t, http.MethodGet, srv.URL+"/calendar.ics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/calendar")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "SUMMARY:Gym")
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(store.New(nil, nil), nil, nil)

	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	require.NoError(t, <-done)
}
