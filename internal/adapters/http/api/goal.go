// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/planly/planly/internal/adapters/http/auth"
	service "github.com/planly/planly/internal/app"
)

// GoalHandler handles weekly goal reads and saves.
type GoalHandler struct {
	deps Dependencies
}

// NewGoalHandler creates a new goal handler.
func NewGoalHandler(deps Dependencies) *GoalHandler {
	return &GoalHandler{deps: deps}
}

// HandleGoal dispatches GET and PUT on /goal.
func (h *GoalHandler) HandleGoal(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r)
	case http.MethodPut:
		h.handlePut(w, r)
	default:
		http.NotFound(w, r)
	}
}

// handleGet handles GET /goal?user_id=U&week=YYYY-MM-DD requests.
func (h *GoalHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing user_id"))
		return
	}
	if !mayAccess(r, userID) {
		writeError(w, http.StatusForbidden, "forbidden", errors.New("token subject may only access its own goal"))
		return
	}
	ws, err := h.deps.ParseWeek(r.URL.Query().Get("week"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	view, err := h.deps.ReadGoal(r.Context(), userID, ws)
	if err != nil {
		writeGoalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalResponse(view))
}

// handlePut handles PUT /goal requests carrying one batch of edits.
func (h *GoalHandler) handlePut(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing user_id"))
		return
	}
	if !mayAccess(r, req.UserID) {
		writeError(w, http.StatusForbidden, "forbidden", errors.New("token subject may only edit its own goal"))
		return
	}
	ws, err := h.deps.ParseWeek(req.Week)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	view, err := h.deps.SaveGoal(r.Context(), SaveRequest{
		UserID:          req.UserID,
		Week:            ws,
		LeaveMinutes:    req.LeaveMinutes,
		OvertimeMinutes: req.OvertimeMinutes,
		Items:           toItemEdits(req.Items),
	})
	if err != nil {
		writeGoalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalResponse(view))
}

// mayAccess allows a request through when auth is disabled, the token holds
// the read-all scope, or the token subject matches the target user.
func mayAccess(r *http.Request, userID string) bool {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		return true
	}
	return claims.HasScope(auth.ScopeReadAll) || claims.Subject == userID
}

func writeGoalError(w http.ResponseWriter, err error) {
	var budgetErr *service.BudgetError
	switch {
	case errors.As(err, &budgetErr):
		writeError(w, http.StatusUnprocessableEntity, "over_budget", err)
	case errors.Is(err, service.ErrExcluded):
		writeError(w, http.StatusForbidden, "excluded", err)
	case errors.Is(err, service.ErrBadWeek):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
