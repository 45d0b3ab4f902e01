// Package server exposes the latest PnL report over HTTP and pushes every new
// report to WebSocket clients.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/etnz/pnl"
	"github.com/etnz/pnl/date"
	"github.com/etnz/pnl/metrics"
)

// Server is the live view of the engine. Reports are published by the
// computation cycle and read concurrently by HTTP handlers, they are never
// modified once published.
type Server struct {
	router  chi.Router
	hub     *Hub
	latest  atomic.Pointer[published]
	trigger func(context.Context) bool
}

type published struct {
	report *pnl.PortfolioReport
	at     time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithTrigger enables POST /api/v1/cycle, running trigger to compute a new
// report on demand. trigger returns false when a cycle is already running.
func WithTrigger(trigger func(context.Context) bool) Option {
	return func(s *Server) { s.trigger = trigger }
}

// New creates a server and starts its WebSocket hub. Call Close to stop it.
func New(opts ...Option) *Server {
	s := &Server{hub: NewHub()}
	for _, opt := range opts {
		opt(s)
	}
	s.hub.greeting = s.message
	go s.hub.Run()

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(metrics.Middleware)

	r.Get("/health", s.health)
	r.Handle("/metrics", metrics.Handler())
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ws", s.hub.ServeHTTP)
		r.Get("/report", s.getReport)
		r.Get("/stats", s.getStats)
		r.Get("/positions", s.listPositions)
		r.Get("/positions/{token}", s.getPosition)
		r.Get("/windows/{period}", s.getWindow)
		r.Post("/cycle", s.runCycle)
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.router }

// Close disconnects WebSocket clients.
func (s *Server) Close() { s.hub.Close() }

// Publish makes report the latest one and sends it to WebSocket clients.
func (s *Server) Publish(report *pnl.PortfolioReport) {
	s.latest.Store(&published{report: report, at: time.Now()})
	observe(report)
	if msg := s.message(); msg != nil {
		s.hub.Broadcast(msg)
	}
}

// Latest returns the last published report, or nil.
func (s *Server) Latest() *pnl.PortfolioReport {
	if p := s.latest.Load(); p != nil {
		return p.report
	}
	return nil
}

// reportMessage is the WebSocket message sent for each report.
type reportMessage struct {
	Type      string               `json:"type"`
	Published time.Time            `json:"published"`
	Report    *pnl.PortfolioReport `json:"report"`
}

func (s *Server) message() []byte {
	p := s.latest.Load()
	if p == nil {
		return nil
	}
	data, err := json.Marshal(reportMessage{Type: "report", Published: p.at, Report: light(p.report)})
	if err != nil {
		log.Printf("cannot encode report message: %v", err)
		return nil
	}
	return data
}

// light returns a copy of r without the event and realization lists.
func light(r *pnl.PortfolioReport) *pnl.PortfolioReport {
	c := *r
	c.Events = nil
	c.Realizations = nil
	return &c
}

func observe(r *pnl.PortfolioReport) {
	metrics.Positions.WithLabelValues("active").Set(float64(r.Totals.Active))
	metrics.Positions.WithLabelValues("closed").Set(float64(r.Totals.Closed))
	metrics.Anomalies.Set(float64(r.Totals.Anomalies))
	metrics.PriceUnavailable.Set(float64(r.Totals.PriceUnavailable))
	metrics.PnL.WithLabelValues("realized").Set(r.Totals.Realized.Decimal().InexactFloat64())
	metrics.PnL.WithLabelValues("unrealized").Set(r.Totals.Unrealized.Decimal().InexactFloat64())
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok", "service": "wpnl", "clients": s.hub.Clients()}
	if p := s.latest.Load(); p != nil {
		resp["published"] = p.at
	}
	writeJSON(w, http.StatusOK, resp)
}

// report returns the latest report or writes a 503.
func (s *Server) report(w http.ResponseWriter) *pnl.PortfolioReport {
	r := s.Latest()
	if r == nil {
		writeError(w, http.StatusServiceUnavailable, "no report computed yet")
	}
	return r
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	report := s.report(w)
	if report == nil {
		return
	}
	if r.URL.Query().Get("full") == "" {
		report = light(report)
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) listPositions(w http.ResponseWriter, r *http.Request) {
	report := s.report(w)
	if report == nil {
		return
	}
	switch state := r.URL.Query().Get("state"); state {
	case "":
		writeJSON(w, http.StatusOK, report.Positions)
	case "active":
		writeJSON(w, http.StatusOK, report.Active())
	case "closed":
		writeJSON(w, http.StatusOK, report.Closed())
	default:
		writeError(w, http.StatusBadRequest, "invalid state "+state+", want active or closed")
	}
}

func (s *Server) getPosition(w http.ResponseWriter, r *http.Request) {
	report := s.report(w)
	if report == nil {
		return
	}
	token := chi.URLParam(r, "token")
	p, ok := report.Position(token)
	if !ok {
		writeError(w, http.StatusNotFound, "no position for token "+token)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) getWindow(w http.ResponseWriter, r *http.Request) {
	var period date.Period
	switch p := chi.URLParam(r, "period"); p {
	case "daily":
		period = date.Daily
	case "weekly":
		period = date.Weekly
	default:
		writeError(w, http.StatusNotFound, "unknown window "+p+", want daily or weekly")
		return
	}
	day := date.Today()
	if q := r.URL.Query().Get("date"); q != "" {
		d, err := date.Parse(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		day = d
	}
	report := s.report(w)
	if report == nil {
		return
	}
	writeJSON(w, http.StatusOK, report.Range(date.NewRange(day, period)))
}

// statsResponse is the JSON form of pnl.Stats.
type statsResponse struct {
	Positions       int    `json:"positions"`
	Winners         int    `json:"winners"`
	Losers          int    `json:"losers"`
	WinRate         string `json:"winRate"`
	Best            string `json:"best,omitempty"`
	Worst           string `json:"worst,omitempty"`
	AverageHoldTime string `json:"averageHoldTime"`
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	report := s.report(w)
	if report == nil {
		return
	}
	st := report.Stats()
	resp := statsResponse{
		Positions:       st.Positions,
		Winners:         st.Winners,
		Losers:          st.Losers,
		WinRate:         st.WinRate.String(),
		AverageHoldTime: st.AverageHoldTime.String(),
	}
	if st.Best != nil {
		resp.Best = st.Best.Token
	}
	if st.Worst != nil {
		resp.Worst = st.Worst.Token
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) runCycle(w http.ResponseWriter, r *http.Request) {
	if s.trigger == nil {
		writeError(w, http.StatusNotImplemented, "on demand cycles are disabled")
		return
	}
	if !s.trigger(r.Context()) {
		writeError(w, http.StatusConflict, "a cycle is already running")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "done"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("cannot write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
