// Package api serves a small read-only REST surface over the scan:
// the most recently published snapshot and the diagnostic counters.
// The server never touches live engine state — it is itself a snapshot
// sink, so the scan stays single-owner.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ndrandal/itch-vwap/internal/engine"
	"github.com/ndrandal/itch-vwap/internal/vwap"
)

// Server provides REST API endpoints over the latest snapshot.
type Server struct {
	counters *engine.Counters
	startAt  time.Time

	mu     sync.RWMutex
	latest *vwap.Snapshot
}

// NewServer creates a new API server reading the given counters.
func NewServer(counters *engine.Counters) *Server {
	return &Server{
		counters: counters,
		startAt:  time.Now(),
	}
}

// Publish stores the snapshot as the latest. Implements vwap.Sink.
func (s *Server) Publish(_ context.Context, snap vwap.Snapshot) error {
	s.mu.Lock()
	s.latest = &snap
	s.mu.Unlock()
	return nil
}

// Register attaches API routes to the given mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/vwap", s.handleVWAP)
	mux.HandleFunc("GET /api/vwap/{ticker}", s.handleVWAPDetail)
	mux.HandleFunc("GET /api/stats", s.handleStats)
}

// snapshotResponse is the JSON envelope for snapshot endpoints.
type snapshotResponse struct {
	Kind     string                   `json:"kind"`
	Hour     int                      `json:"hour"`
	TapeTime int64                    `json:"tapeTime"`
	VWAPs    map[string]entryResponse `json:"vwaps"`
}

type entryResponse struct {
	VWAP   float64 `json:"vwap"`
	Volume uint64  `json:"volume"`
}

func (s *Server) snapshot() *vwap.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Server) handleVWAP(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot()
	if snap == nil {
		writeError(w, http.StatusNotFound, "no snapshot yet")
		return
	}

	resp := snapshotResponse{
		Kind:     snap.Kind.String(),
		Hour:     snap.Hour,
		TapeTime: snap.TapeTime,
		VWAPs:    make(map[string]entryResponse, len(snap.VWAPs)),
	}
	for stock, a := range snap.VWAPs {
		resp.VWAPs[stock] = entryResponse{VWAP: a.VWAP(), Volume: a.Volume}
	}
	writeJSON(w, resp)
}

func (s *Server) handleVWAPDetail(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot()
	if snap == nil {
		writeError(w, http.StatusNotFound, "no snapshot yet")
		return
	}

	ticker := r.PathValue("ticker")
	a, ok := snap.VWAPs[ticker]
	if !ok {
		writeError(w, http.StatusNotFound, "no trades for "+ticker)
		return
	}

	writeJSON(w, map[string]any{
		"ticker": ticker,
		"vwap":   a.VWAP(),
		"volume": a.Volume,
		"kind":   snap.Kind.String(),
		"hour":   snap.Hour,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"counters": s.counters.View(),
		"uptime":   time.Since(s.startAt).String(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
