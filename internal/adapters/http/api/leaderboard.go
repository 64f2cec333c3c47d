// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/planly/planly/internal/adapters/http/auth"
)

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps Dependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps Dependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /leaderboard?week=YYYY-MM-DD&users=a,b,c
// requests. Without users the configured eligible set is used.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if claims, ok := auth.FromContext(r.Context()); ok && !claims.HasScope(auth.ScopeReadAll) {
		writeError(w, http.StatusForbidden, "forbidden", errors.New("leaderboard requires the goals:read_all scope"))
		return
	}
	ws, err := h.deps.ParseWeek(r.URL.Query().Get("week"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	var userIDs []string
	if raw := r.URL.Query().Get("users"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				userIDs = append(userIDs, id)
			}
		}
	}

	rows, err := h.deps.Leaderboard(r.Context(), ws, userIDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	if rows == nil {
		rows = []Row{}
	}
	writeJSON(w, http.StatusOK, rows)
}
