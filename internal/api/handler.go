// Package api exposes the simulation service over HTTP with gin.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/warsim/internal/battle"
	"github.com/cory-johannsen/warsim/internal/content"
	"github.com/cory-johannsen/warsim/internal/scenario"
	"github.com/cory-johannsen/warsim/internal/simulation"
)

// JSON keys and messages used in error responses.
const (
	KeyError = "error"

	ErrMsgBadRequest      = "request body must be {\"scenario\": \"<ref>\"}"
	ErrMsgInvalidID       = "invalid battle id"
	ErrMsgBattleNotFound  = "battle not found"
	ErrMsgScenarioMissing = "scenario not found"
	ErrMsgScenarioInvalid = "scenario cannot be resolved"
	ErrMsgInternal        = "internal error"
)

// DefaultListLimit and MaxListLimit bound GET /battles.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Runner resolves a battle from a scenario reference.
type Runner interface {
	Run(ctx context.Context, ref string, observers ...battle.Sink) (*simulation.Report, error)
}

// ReportReader loads stored reports.
type ReportReader interface {
	Get(ctx context.Context, id uuid.UUID) (*simulation.Report, error)
	List(ctx context.Context, limit int) ([]*simulation.Report, error)
}

// HealthFunc reports whether a dependency is usable.
type HealthFunc func(ctx context.Context) error

// Handler serves the battle endpoints.
type Handler struct {
	runner  Runner
	reports ReportReader
	health  HealthFunc
	logger  *zap.Logger
}

// NewHandler creates a Handler.
//
// Precondition: runner, reports and logger must be non-nil; health may be nil.
func NewHandler(runner Runner, reports ReportReader, health HealthFunc, logger *zap.Logger) *Handler {
	return &Handler{runner: runner, reports: reports, health: health, logger: logger}
}

// RunRequest is the body of POST /battles.
type RunRequest struct {
	Scenario string `json:"scenario" binding:"required"`
}

// RunBattle resolves the requested scenario and returns its report. Events are
// included only with ?events=true.
func (h *Handler) RunBattle(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{KeyError: ErrMsgBadRequest})
		return
	}
	rep, err := h.runner.Run(c.Request.Context(), req.Scenario)
	if err != nil {
		status, msg := classify(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("running battle", zap.String("scenario", req.Scenario), zap.Error(err))
		}
		c.JSON(status, gin.H{KeyError: msg})
		return
	}
	c.JSON(http.StatusCreated, view(rep, c.Query("events") == "true"))
}

// GetBattle returns one stored report with its events.
func (h *Handler) GetBattle(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{KeyError: ErrMsgInvalidID})
		return
	}
	rep, err := h.reports.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, simulation.ErrReportNotFound) {
			c.JSON(http.StatusNotFound, gin.H{KeyError: ErrMsgBattleNotFound})
			return
		}
		h.logger.Error("loading battle", zap.String("id", id.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{KeyError: ErrMsgInternal})
		return
	}
	c.JSON(http.StatusOK, view(rep, true))
}

// ListBattles returns recent reports without events. ?limit=N is clamped to
// [1, MaxListLimit].
func (h *Handler) ListBattles(c *gin.Context) {
	limit := DefaultListLimit
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = min(n, MaxListLimit)
		}
	}
	reps, err := h.reports.List(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("listing battles", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{KeyError: ErrMsgInternal})
		return
	}
	out := make([]*simulation.Report, len(reps))
	for i, r := range reps {
		out[i] = view(r, false)
	}
	c.JSON(http.StatusOK, gin.H{"battles": out})
}

// Healthz reports liveness, and dependency health when a HealthFunc is set.
func (h *Handler) Healthz(c *gin.Context) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", KeyError: err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, scenario.ErrNotFound):
		return http.StatusNotFound, ErrMsgScenarioMissing
	case errors.Is(err, scenario.ErrInvalid),
		errors.Is(err, content.ErrUnknownUnit),
		errors.Is(err, content.ErrUnknownEffect):
		return http.StatusUnprocessableEntity, ErrMsgScenarioInvalid
	default:
		return http.StatusInternalServerError, ErrMsgInternal
	}
}

func view(r *simulation.Report, withEvents bool) *simulation.Report {
	if withEvents {
		return r
	}
	cp := *r
	cp.Events = nil
	return &cp
}
