package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"pastelcal/internal/ics"
	appLog "pastelcal/internal/log"
	"pastelcal/internal/model"
	"pastelcal/internal/reminder"
	"pastelcal/internal/store"
	"pastelcal/internal/validate"
)

const maxRequestBytes = 1 << 20

// Importer runs a holiday import. *holiday.Importer satisfies it.
type Importer interface {
	Import(ctx context.Context) (int, error)
}

// Server exposes the event store, its projection and fired reminders over
// HTTP for the rendering layer.
type Server struct {
	store    *store.Store
	importer Importer
	inbox    *reminder.Inbox
	loc      *time.Location
	mux      *http.ServeMux
}

// NewServer constructs a new Server. importer and inbox may be nil, in which
// case their endpoints report 503.
func NewServer(s *store.Store, importer Importer, inbox *reminder.Inbox) *Server {
	srv := &Server{
		store:    s,
		importer: importer,
		inbox:    inbox,
		loc:      time.Local,
		mux:      http.NewServeMux(),
	}
	srv.registerRoutes()
	return srv
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+addr)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			return err
		}
		appLog.Info("HTTP server stopped")
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/events", s.handleListEvents)
	s.mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	s.mux.HandleFunc("GET /api/events/{id}", s.handleGetEvent)
	s.mux.HandleFunc("PUT /api/events/{id}", s.handleUpdateEvent)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)

	s.mux.HandleFunc("GET /api/days", s.handleDays)
	s.mux.HandleFunc("GET /api/categories", s.handleCategories)
	s.mux.HandleFunc("GET /api/notifications", s.handleNotifications)
	s.mux.HandleFunc("POST /api/holidays/import", s.handleImport)

	s.mux.HandleFunc("GET /calendar.ics", s.handleExport)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleListEvents returns all events, or those of one day.
//
// GET /api/events?date=2024-06-01
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if date := r.URL.Query().Get("date"); date != "" {
		writeJSON(w, http.StatusOK, s.store.EventsOn(date))
		return
	}
	writeJSON(w, http.StatusOK, s.store.List())
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCandidate(w, r)
	if !ok {
		return
	}
	ev, err := s.store.Create(c)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCandidate(w, r)
	if !ok {
		return
	}
	ev, err := s.store.Update(r.PathValue("id"), c)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// handleDeleteEvent is idempotent: unknown ids also get 204.
func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	s.store.Delete(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDays(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Projection())
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, model.Presentations())
}

// handleNotifications drains fired reminders queued since the last call.
func (s *Server) handleNotifications(w http.ResponseWriter, _ *http.Request) {
	if s.inbox == nil {
		writeError(w, http.StatusServiceUnavailable, "notifications unavailable")
		return
	}
	writeJSON(w, http.StatusOK, s.inbox.Drain())
}

type importResponse struct {
	Imported int `json:"imported"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		writeError(w, http.StatusServiceUnavailable, "holiday import not configured")
		return
	}
	n, err := s.importer.Import(r.Context())
	if err != nil {
		appLog.Error("api import failed", err)
		writeError(w, http.StatusBadGateway, "holiday import failed")
		return
	}
	writeJSON(w, http.StatusOK, importResponse{Imported: n})
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	body := ics.Export(s.store.List(), s.loc, time.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func decodeCandidate(w http.ResponseWriter, r *http.Request) (model.NewCalendarEvent, bool) {
	var c model.NewCalendarEvent
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return c, false
	}
	return c, true
}

// validationResponse lists every rejected field.
type validationResponse struct {
	Error  string                `json:"error"`
	Fields []validate.FieldError `json:"fields"`
}

func writeStoreError(w http.ResponseWriter, err error) {
	var verr *validate.Error
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{
			Error:  "validation failed",
			Fields: verr.Fields,
		})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	default:
		appLog.Error("api store error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
