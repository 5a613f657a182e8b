// Package daemon provides the long-running HTTP service: on-demand reports,
// rate lookups, and a poll loop that watches an export and the reference rate.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/financas/internal/engine"
	"github.com/theirongolddev/financas/internal/logger"
	"github.com/theirongolddev/financas/internal/model"
	"github.com/theirongolddev/financas/internal/pipeline"
	"github.com/theirongolddev/financas/internal/rates"
	"github.com/theirongolddev/financas/internal/source"
)

const maxUploadSize = 10 << 20 // 10 MB

// Config controls the daemon runtime behavior.
type Config struct {
	// File is an optional export (file or directory) re-read on every poll.
	File         string
	Stats        pipeline.StatsOptions
	Provider     *rates.Provider
	FallbackRate *float64
	Interval     time.Duration
	Addr         string
	EventsBuffer int
	Logger       zerolog.Logger
}

// Snapshot is a compact balance and rate state for status/event payloads.
type Snapshot struct {
	At           time.Time       `json:"at"`
	Transactions int             `json:"transactions"`
	Dates        int             `json:"dates"`
	LatestDate   string          `json:"latest_date,omitempty"`
	NetWorth     decimal.Decimal `json:"net_worth"`
	RatePercent  *float64        `json:"rate_percent,omitempty"`
	RateSince    string          `json:"rate_since,omitempty"`
}

// Delta captures snapshot deltas between polls.
type Delta struct {
	Transactions int             `json:"transactions"`
	NetWorth     decimal.Decimal `json:"net_worth"`
	RateChanged  bool            `json:"rate_changed"`
}

func (d Delta) isZero() bool {
	return d.Transactions == 0 && d.NetWorth.IsZero() && !d.RateChanged
}

// Event is emitted whenever the snapshot updates.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	File            string    `json:"file,omitempty"`
	WindowMode      string    `json:"window_mode"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg Config
	log zerolog.Logger

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config.
func New(cfg Config) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8765"
	}

	return &Service{
		cfg:       cfg,
		log:       cfg.Logger,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Handler returns the HTTP routes.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	mux.HandleFunc("GET /v1/rates", s.handleRates)
	mux.HandleFunc("GET /v1/report", s.handleWatchedReport)
	mux.HandleFunc("POST /v1/report", s.handleReport)
	return mux
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	ctx = logger.WithContext(ctx, s.log)

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info().Str("addr", s.cfg.Addr).Msg("listening")

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

func (s *Service) pollOnce(ctx context.Context) {
	now := time.Now()
	snap, err := s.buildSnapshot(ctx, now)
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = now
		s.pollCount++
		s.mu.Unlock()
		s.log.Error().Err(err).Msg("poll failed")
		return
	}

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""

	if !prevExists {
		s.nextEventID++
		ev = Event{
			ID:        s.nextEventID,
			Type:      "snapshot",
			Timestamp: now,
			Snapshot:  snap,
		}
		publish = true
	} else {
		delta := diffSnapshots(prev, snap)
		if !delta.isZero() {
			s.nextEventID++
			ev = Event{
				ID:        s.nextEventID,
				Type:      "balance_delta",
				Timestamp: now,
				Snapshot:  snap,
				Delta:     delta,
			}
			if delta.RateChanged {
				ev.Type = "rate_changed"
			}
			publish = true
		}
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
}

// buildSnapshot reloads the watched export and the current reference rate.
// A rate failure is logged and leaves the rate empty.
func (s *Service) buildSnapshot(ctx context.Context, now time.Time) (Snapshot, error) {
	snap := Snapshot{At: now, NetWorth: decimal.Zero}

	if s.cfg.File != "" {
		lr, err := pipeline.Load(s.cfg.File, nil)
		if err != nil {
			return snap, err
		}
		series := pipeline.AggregateDays(lr.Transactions)
		snap.Transactions = len(lr.Transactions)
		snap.Dates = len(series)
		if n := len(series); n > 0 {
			snap.LatestDate = series[n-1].Date.String()
			snap.NetWorth = series[n-1].Value
		}
	}

	if s.cfg.Provider != nil {
		table, err := s.cfg.Provider.Table(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("rate refresh failed")
		} else if rate, ok := table.RateAt(civil.DateOf(now), civil.DateOf(now)); ok {
			snap.RatePercent = &rate
			if latest, ok := table.Latest(); ok {
				snap.RateSince = latest.Start.String()
			}
		}
	}

	return snap, nil
}

func diffSnapshots(prev, curr Snapshot) Delta {
	d := Delta{
		Transactions: curr.Transactions - prev.Transactions,
		NetWorth:     curr.NetWorth.Sub(prev.NetWorth),
	}
	switch {
	case prev.RatePercent == nil && curr.RatePercent == nil:
	case prev.RatePercent == nil || curr.RatePercent == nil:
		d.RateChanged = true
	default:
		d.RateChanged = *prev.RatePercent != *curr.RatePercent
	}
	return d
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		File:            s.cfg.File,
		WindowMode:      s.cfg.Stats.Mode.String(),
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

// RateResponse is served at /v1/rates.
type RateResponse struct {
	Date        string             `json:"date"`
	RatePercent *float64           `json:"rate_percent"`
	Source      rates.Source       `json:"source"`
	Error       string             `json:"error,omitempty"`
	FetchedAt   *time.Time         `json:"fetched_at,omitempty"`
	Records     []model.RateRecord `json:"records,omitempty"`
}

func (s *Service) handleRates(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Provider == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("no rate provider configured"))
		return
	}

	d := civil.DateOf(time.Now())
	if q := r.URL.Query().Get("date"); q != "" {
		parsed, err := parseQueryDate(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		d = parsed
	}

	resp := RateResponse{Date: d.String()}
	res := s.cfg.Provider.Resolve(r.Context(), d, nil)
	resp.Source = res.Source
	if res.Err != nil {
		resp.Error = res.Err.Error()
		status := http.StatusNotFound
		if errors.Is(res.Err, rates.ErrService) {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, resp)
		return
	}
	resp.RatePercent = &res.RatePercent

	if r.URL.Query().Get("history") == "1" {
		if table, err := s.cfg.Provider.Table(r.Context()); err == nil {
			resp.Records = table.Records
			fetchedAt := table.FetchedAt
			resp.FetchedAt = &fetchedAt
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleReport computes a report bundle from an uploaded CSV export.
func (s *Service) handleReport(w http.ResponseWriter, r *http.Request) {
	params, err := parseReportParams(r.URL.Query(), s.cfg.Stats)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	in := params.input(s)
	in.CSV = http.MaxBytesReader(w, r.Body, maxUploadSize)
	s.runReport(w, r, in)
}

// handleWatchedReport computes a report bundle from the watched export.
func (s *Service) handleWatchedReport(w http.ResponseWriter, r *http.Request) {
	if s.cfg.File == "" {
		writeError(w, http.StatusNotFound, errors.New("no export file configured; POST a CSV instead"))
		return
	}
	params, err := parseReportParams(r.URL.Query(), s.cfg.Stats)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	lr, err := pipeline.Load(s.cfg.File, nil)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	in := params.input(s)
	in.Transactions = lr.Transactions
	if in.Transactions == nil {
		in.Transactions = []model.Transaction{}
	}
	s.runReport(w, r, in)
}

func (s *Service) runReport(w http.ResponseWriter, r *http.Request, in engine.Input) {
	res, err := engine.Run(r.Context(), in)
	if err != nil {
		status := http.StatusUnprocessableEntity
		var (
			maxErr   *http.MaxBytesError
			parseErr *source.ParseError
		)
		switch {
		case errors.As(err, &maxErr):
			status = http.StatusRequestEntityTooLarge
		case errors.As(err, &parseErr):
			status = http.StatusBadRequest
		}
		s.log.Debug().Err(err).Int("status", status).Msg("report rejected")
		writeError(w, status, err)
		return
	}
	b := res.Bundle()
	s.log.Info().Str("bundle", b.ID.String()).Int("transactions", len(res.Transactions)).Msg("report computed")
	writeJSON(w, http.StatusOK, b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
