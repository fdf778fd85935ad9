// Package cmd_controllers holds the REST controllers of the api binary.
package cmd_controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/golobby/container/v3"
	"github.com/gorilla/mux"

	domain "github.com/keyduel/keyduel-api/pkg/domain"
	pvp_in "github.com/keyduel/keyduel-api/pkg/domain/pvp/ports/in"
)

// PvPController serves the ladder, queue and history REST surface.
type PvPController struct {
	container  container.Container
	queries    pvp_in.RankingQuery
	joinQueue  pvp_in.JoinQueueCommandHandler
	leaveQueue pvp_in.LeaveQueueCommandHandler
}

// NewPvPController resolves the controller's dependencies.
func NewPvPController(c container.Container) *PvPController {
	ctrl := &PvPController{container: c}

	if err := c.Resolve(&ctrl.queries); err != nil {
		slog.Error("failed to resolve RankingQuery", "err", err)
	}
	if err := c.Resolve(&ctrl.joinQueue); err != nil {
		slog.Error("failed to resolve JoinQueueCommandHandler", "err", err)
	}
	if err := c.Resolve(&ctrl.leaveQueue); err != nil {
		slog.Error("failed to resolve LeaveQueueCommandHandler", "err", err)
	}
	return ctrl
}

// GetRankingHandler serves GET /pvp/ranking/{userId}.
func (ctrl *PvPController) GetRankingHandler(apiContext context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mux.Vars(r)["userId"]

		ranking, err := ctrl.queries.GetRanking(r.Context(), pvp_in.GetRankingQuery{UserID: userID})
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "ranking not found")
			return
		}
		if err != nil {
			slog.ErrorContext(r.Context(), "get ranking failed", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get ranking")
			return
		}
		writeJSON(w, http.StatusOK, "ranking retrieved", ranking)
	}
}

// GetLeaderboardHandler serves GET /pvp/leaderboard.
func (ctrl *PvPController) GetLeaderboardHandler(apiContext context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := pvp_in.GetLeaderboardQuery{
			Limit:  intQuery(r, "limit", 50),
			Offset: intQuery(r, "offset", 0),
		}

		result, err := ctrl.queries.GetLeaderboard(r.Context(), query)
		if err != nil {
			slog.ErrorContext(r.Context(), "get leaderboard failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get leaderboard")
			return
		}
		writeJSON(w, http.StatusOK, "leaderboard retrieved", result)
	}
}

// JoinQueueHandler serves POST /pvp/queue/join.
func (ctrl *PvPController) JoinQueueHandler(apiContext context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := domain.GetUser(r.Context())
		if !ok {
			writeError(w, http.StatusConflict, "authentication required")
			return
		}

		status, err := ctrl.joinQueue.Exec(r.Context(), pvp_in.JoinQueueCommand{
			UserID:   user.ID,
			Username: user.Username,
		})
		if errors.Is(err, domain.ErrAlreadyInQueue) {
			writeError(w, http.StatusConflict, "already in queue")
			return
		}
		if err != nil {
			slog.ErrorContext(r.Context(), "join queue failed", "user_id", user.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to join queue")
			return
		}
		writeJSON(w, http.StatusOK, "joined queue", status)
	}
}

// LeaveQueueHandler serves DELETE /pvp/queue/leave.
func (ctrl *PvPController) LeaveQueueHandler(apiContext context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := domain.GetUser(r.Context())
		if !ok {
			writeError(w, http.StatusConflict, "authentication required")
			return
		}

		err := ctrl.leaveQueue.Exec(r.Context(), pvp_in.LeaveQueueCommand{UserID: user.ID})
		if errors.Is(err, domain.ErrNotInQueue) {
			writeError(w, http.StatusNotFound, "not in queue")
			return
		}
		if err != nil {
			slog.ErrorContext(r.Context(), "leave queue failed", "user_id", user.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to leave queue")
			return
		}
		writeJSON(w, http.StatusOK, "left queue", map[string]any{})
	}
}

// GetHistoryHandler serves GET /pvp/history/{userId}.
func (ctrl *PvPController) GetHistoryHandler(apiContext context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mux.Vars(r)["userId"]
		query := pvp_in.GetMatchHistoryQuery{
			UserID: userID,
			Limit:  intQuery(r, "limit", 20),
			Offset: intQuery(r, "offset", 0),
		}

		result, err := ctrl.queries.GetMatchHistory(r.Context(), query)
		if err != nil {
			slog.ErrorContext(r.Context(), "get history failed", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get match history")
			return
		}
		writeJSON(w, http.StatusOK, "match history retrieved", result)
	}
}

func intQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
