package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mercator-hq/callisto/pkg/pacer"
)

// handleStats serves the statistics tree:
//
//	GET  /stats            full snapshot, all channels
//	GET  /stats/{channel}  one channel ("public" or "private")
//	POST /stats/reset      zero all counters and violation history
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/stats"), "/")

	switch rest {
	case "":
		s.handleAllStats(w, r)
	case "reset":
		s.handleStatsReset(w, r)
	default:
		s.handleChannelStats(w, r, rest)
	}
}

func (s *Server) handleAllStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, r, http.StatusOK, s.opts.Limiter.AllStats())
}

func (s *Server) handleChannelStats(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot, err := s.opts.Limiter.Stats(pacer.Channel(name))
	if err != nil {
		http.Error(w, fmt.Sprintf("unknown channel %q", name), http.StatusNotFound)
		return
	}

	writeJSON(w, r, http.StatusOK, snapshot)
}

func (s *Server) handleStatsReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.opts.Limiter.ResetStats()
	s.logger.Info("pacing statistics reset via ops endpoint", "remote_addr", r.RemoteAddr)

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":    "reset",
		"timestamp": time.Now().UTC(),
	})
}

// writeJSON matches the health endpoint encoding: headers, then status,
// body skipped for HEAD.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(v)
	}
}
