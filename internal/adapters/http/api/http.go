// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	service "github.com/planly/planly/internal/app"
	"github.com/planly/planly/internal/domain/leaderboard"
	"github.com/planly/planly/internal/domain/model"
	"github.com/planly/planly/internal/domain/scoring"
	"github.com/planly/planly/internal/domain/week"
)

// Read/write shapes reused from the domain layers.
type (
	GoalView    = service.GoalView
	SaveRequest = service.SaveRequest
	Row         = leaderboard.Row
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ReadGoal(ctx context.Context, userID string, weekStart time.Time) (*GoalView, error)
	SaveGoal(ctx context.Context, req SaveRequest) (*GoalView, error)
	Leaderboard(ctx context.Context, weekStart time.Time, userIDs []string) ([]Row, error)

	// ParseWeek interprets a YYYY-MM-DD query value in the business
	// timezone; empty means the current week.
	ParseWeek(value string) (time.Time, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	goalHandler        *GoalHandler
	leaderboardHandler *LeaderboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		goalHandler:        NewGoalHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/goal", MetricsMiddleware(s.goalHandler.HandleGoal, "goal"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
}

// itemEdit mirrors the wire schema for one item change in PUT /goal.
type itemEdit struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	TargetMinutes int    `json:"target_minutes"`
	ActualMinutes int    `json:"actual_minutes"`
	IsCompleted   bool   `json:"is_completed"`
	IsUnplanned   bool   `json:"is_unplanned"`
	ActionPlan    string `json:"action_plan"`
	Description   string `json:"description"`
	Delete        bool   `json:"delete"`
}

// goalRequest mirrors the wire schema for PUT /goal.
type goalRequest struct {
	UserID          string     `json:"user_id"`
	Week            string     `json:"week"`
	LeaveMinutes    *int       `json:"leave_minutes"`
	OvertimeMinutes *int       `json:"overtime_minutes"`
	Items           []itemEdit `json:"items"`
}

type itemView struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	TargetMinutes int     `json:"target_minutes"`
	WeightPercent float64 `json:"weight_percent"`
	ActualMinutes int     `json:"actual_minutes"`
	IsCompleted   bool    `json:"is_completed"`
	IsUnplanned   bool    `json:"is_unplanned"`
	ActionPlan    string  `json:"action_plan,omitempty"`
	Description   string  `json:"description,omitempty"`
}

type goalResponse struct {
	UserID          string            `json:"user_id"`
	WeekStart       string            `json:"week_start"`
	LeaveMinutes    int               `json:"leave_minutes"`
	OvertimeMinutes int               `json:"overtime_minutes"`
	Items           []itemView        `json:"items"`
	Locks           week.Locks        `json:"locks"`
	Breakdown       scoring.Breakdown `json:"breakdown"`
	SkippedEdits    int               `json:"skipped_edits"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func toGoalResponse(v *GoalView) goalResponse {
	items := make([]itemView, len(v.Goal.Items))
	for i, it := range v.Goal.Items {
		items[i] = itemView{
			ID:            it.ID,
			Title:         it.Title,
			TargetMinutes: it.TargetMinutes,
			WeightPercent: it.WeightPercent,
			ActualMinutes: it.ActualMinutes,
			IsCompleted:   it.IsCompleted,
			IsUnplanned:   it.IsUnplanned,
			ActionPlan:    it.ActionPlan,
			Description:   it.Description,
		}
	}
	return goalResponse{
		UserID:          v.Goal.UserID,
		WeekStart:       v.Goal.WeekStart.Format("2006-01-02"),
		LeaveMinutes:    v.Goal.LeaveMinutes,
		OvertimeMinutes: v.Goal.OvertimeMinutes,
		Items:           items,
		Locks:           v.Locks,
		Breakdown:       v.Breakdown,
		SkippedEdits:    v.SkippedEdits,
		UpdatedAt:       v.Goal.UpdatedAt,
	}
}

func toItemEdits(in []itemEdit) []model.ItemEdit {
	out := make([]model.ItemEdit, len(in))
	for i, e := range in {
		out[i] = model.ItemEdit{
			ID:            e.ID,
			Title:         e.Title,
			TargetMinutes: e.TargetMinutes,
			ActualMinutes: e.ActualMinutes,
			IsCompleted:   e.IsCompleted,
			IsUnplanned:   e.IsUnplanned,
			ActionPlan:    e.ActionPlan,
			Description:   e.Description,
			Delete:        e.Delete,
		}
	}
	return out
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
