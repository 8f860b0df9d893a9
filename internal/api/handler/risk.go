package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/outbreakwatch/outbreakwatch/internal/aggregate"
	"github.com/outbreakwatch/outbreakwatch/internal/api/models"
	"github.com/outbreakwatch/outbreakwatch/internal/api/response"
	"github.com/outbreakwatch/outbreakwatch/internal/snapshot"
)

// Aggregator produces a risk report for all monitored regions.
type Aggregator interface {
	Aggregate(ctx context.Context) (*aggregate.Report, error)
}

// RiskHandler serves per-region risk reports and their history.
type RiskHandler struct {
	aggregator Aggregator
	snapshots  snapshot.Repository
	logger     zerolog.Logger
}

// NewRiskHandler creates a RiskHandler. snapshots may be nil, in which case
// history requests answer 503.
func NewRiskHandler(aggregator Aggregator, snapshots snapshot.Repository, logger zerolog.Logger) *RiskHandler {
	return &RiskHandler{
		aggregator: aggregator,
		snapshots:  snapshots,
		logger:     logger,
	}
}

// ListStates handles GET /v1/risk/states.
func (h *RiskHandler) ListStates(w http.ResponseWriter, r *http.Request) {
	report, ok := h.aggregate(w, r)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, report)
}

// GetState handles GET /v1/risk/states/{state}.
func (h *RiskHandler) GetState(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "state")

	report, ok := h.aggregate(w, r)
	if !ok {
		return
	}

	state, found := report.Find(name)
	if !found {
		response.NotFound(w, r, "no monitored region named "+strconv.Quote(name))
		return
	}
	response.JSON(w, r, http.StatusOK, state)
}

// History handles GET /v1/risk/history?limit=N.
func (h *RiskHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		response.ServiceUnavailable(w, r, "snapshot history is not configured")
		return
	}

	limit := snapshot.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > snapshot.MaxLimit {
			response.BadRequest(w, r, "invalid query parameter", models.FieldError{
				Field:   "limit",
				Message: "must be an integer between 1 and " + strconv.Itoa(snapshot.MaxLimit),
				Code:    "OUT_OF_RANGE",
			})
			return
		}
		limit = n
	}

	snaps, err := h.snapshots.Latest(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load snapshot history")
		response.InternalError(w, r, "failed to load snapshot history")
		return
	}

	history := models.RiskHistory{
		Snapshots: make([]snapshot.Summary, 0, len(snaps)),
		Meta:      models.PagedResponseMeta{Limit: limit, Count: len(snaps)},
	}
	for _, s := range snaps {
		history.Snapshots = append(history.Snapshots, s.Summarize())
	}
	response.JSON(w, r, http.StatusOK, history)
}

// aggregate runs one pass. The aggregator only fails when the request
// context ends, so that is the only error path handled here.
func (h *RiskHandler) aggregate(w http.ResponseWriter, r *http.Request) (*aggregate.Report, bool) {
	report, err := h.aggregator.Aggregate(r.Context())
	if err == nil {
		return report, true
	}

	if errors.Is(err, context.Canceled) {
		h.logger.Debug().Err(err).Msg("client went away during aggregation")
		return nil, false
	}
	h.logger.Error().Err(err).Msg("aggregation failed")
	response.ServiceUnavailable(w, r, "risk aggregation did not complete in time")
	return nil, false
}
