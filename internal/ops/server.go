// Package ops serves the operator and observer surface: boss status,
// contributor rankings, the live event feed, and manual settlement
// retry. The player action API is a separate system; nothing here
// mutates combat state except the settlement retry.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/thereef/reef-server/internal/events"
	"github.com/thereef/reef-server/internal/game/boss"
	"github.com/thereef/reef-server/internal/game/progression"
	"github.com/thereef/reef-server/internal/model"
)

// Leaderboard lists the most experienced agents.
type Leaderboard interface {
	TopByExperience(ctx context.Context, limit int) ([]progression.Row, error)
}

// Server is the operator HTTP server.
type Server struct {
	bosses      *boss.Manager
	agents      *progression.Engine
	leaderboard Leaderboard
	mux         *http.ServeMux
}

// NewServer builds the operator mux.
func NewServer(bosses *boss.Manager, agents *progression.Engine, leaderboard Leaderboard, hub *events.Hub) *Server {
	s := &Server{
		bosses:      bosses,
		agents:      agents,
		leaderboard: leaderboard,
		mux:         http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /bosses", s.handleStatusAll)
	s.mux.HandleFunc("GET /bosses/{kind}", s.handleStatus)
	s.mux.HandleFunc("GET /bosses/{kind}/contributors", s.handleContributors)
	s.mux.HandleFunc("POST /bosses/{kind}/settlement/retry", s.handleRetrySettlement)
	s.mux.HandleFunc("GET /agents/{id}/stats", s.handleAgentStats)
	s.mux.HandleFunc("GET /leaderboard", s.handleLeaderboard)
	s.mux.Handle("GET /events", events.NewWSHandler(hub))
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleStatusAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.bosses.StatusAll())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	kind := model.BossKind(r.PathValue("kind"))
	status, err := s.bosses.Status(kind)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleContributors(w http.ResponseWriter, r *http.Request) {
	kind := model.BossKind(r.PathValue("kind"))
	top, err := s.bosses.TopContributors(kind, 25)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

func (s *Server) handleRetrySettlement(w http.ResponseWriter, r *http.Request) {
	kind := model.BossKind(r.PathValue("kind"))
	err := s.bosses.RetrySettlement(kind)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "retry scheduled"})
	case errors.Is(err, boss.ErrUnknownBoss):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, boss.ErrSettlementInFlight), errors.Is(err, boss.ErrNotSettling):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) handleAgentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.agents.Stats(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"level":          stats.Level,
		"maxHp":          stats.MaxHP,
		"maxEnergy":      stats.MaxEnergy,
		"inventorySlots": stats.InventorySlots,
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := s.leaderboard.TopByExperience(r.Context(), 25)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	type entry struct {
		AgentID    string `json:"agentId"`
		Faction    string `json:"faction,omitempty"`
		Experience int64  `json:"experience"`
		Level      int32  `json:"level"`
	}
	out := make([]entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, entry{
			AgentID:    row.AgentID,
			Faction:    row.Faction,
			Experience: row.Experience,
			Level:      progression.LevelForXP(row.Experience),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode ops response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
