package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/CedricEugeni/MoMentor/internal/brain"
	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

// RunService is the run lifecycle used by the HTTP layer
type RunService interface {
	Generate(ctx context.Context, req brain.GenerateRequest) (*brain.GenerateResult, error)
	Confirm(ctx context.Context, runID int64, sub *contracts.Submission) (*contracts.Outcome, error)
	HasPending(ctx context.Context) (bool, error)
	ListRuns(ctx context.Context, limit int) ([]contracts.RunSummary, error)
	GetRun(ctx context.Context, id int64) (*brain.RunDetails, error)
	Reset(ctx context.Context) error
}

// SymbolTracker follows the symbols of the confirmed portfolio for live refresh
type SymbolTracker interface {
	SetPortfolioSymbols(symbols []string)
}

// RunHandler handles run API endpoints
// ⭐ SSOT: 런 API 핸들러는 이 구조체에서만
type RunHandler struct {
	runs    RunService
	tracker SymbolTracker
	logger  *logger.Logger
}

// NewRunHandler creates a new run handler. tracker may be nil.
func NewRunHandler(runs RunService, tracker SymbolTracker, log *logger.Logger) *RunHandler {
	return &RunHandler{
		runs:    runs,
		tracker: tracker,
		logger:  log,
	}
}

// Generate starts a new run
// POST /api/runs/generate
func (h *RunHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req brain.GenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, h.logger, "Invalid generate request", err)
		return
	}

	res, err := h.runs.Generate(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to generate run", err)
		return
	}

	respondJSON(w, http.StatusCreated, newRunView(res.Run))
}

// TriggerMonthly starts a run in monthly mode
// POST /api/runs/trigger-monthly
func (h *RunHandler) TriggerMonthly(w http.ResponseWriter, r *http.Request) {
	res, err := h.runs.Generate(r.Context(), brain.GenerateRequest{Mode: "monthly"})
	if err != nil {
		respondServiceError(w, h.logger, "Failed to trigger monthly run", err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"run_id": res.Run.ID,
		"status": "success",
	})
}

// HasPending reports whether a run awaits confirmation
// GET /api/runs/has-pending
func (h *RunHandler) HasPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.runs.HasPending(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, "Failed to check pending runs", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"has_pending": pending})
}

// List returns recent runs
// GET /api/runs?limit=20
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to list runs", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// Details returns one run with its allocations, moves and confirmation
// GET /api/runs/{id}/details
func (h *RunHandler) Details(w http.ResponseWriter, r *http.Request) {
	id, err := runIDParam(r)
	if err != nil {
		respondServiceError(w, h.logger, "Invalid run id", err)
		return
	}

	details, err := h.runs.GetRun(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to get run", err)
		return
	}
	respondJSON(w, http.StatusOK, newRunDetailsView(details))
}

// ConfirmPositionsRequest is the body of a confirmation
type ConfirmPositionsRequest struct {
	Positions      []contracts.SubmittedPosition `json:"positions"`
	UninvestedCash decimal.Decimal               `json:"uninvested_cash"`
	ForceConfirm   bool                          `json:"force_confirm"`
}

// Confirm reconciles the user's actual fills
// POST /api/runs/{id}/confirm-positions
func (h *RunHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, err := runIDParam(r)
	if err != nil {
		respondServiceError(w, h.logger, "Invalid run id", err)
		return
	}

	var req ConfirmPositionsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, h.logger, "Invalid confirmation request", err)
		return
	}

	outcome, err := h.runs.Confirm(r.Context(), id, &contracts.Submission{
		Positions: req.Positions,
		Cash:      req.UninvestedCash,
		Force:     req.ForceConfirm,
	})
	if err != nil {
		respondServiceError(w, h.logger, "Failed to confirm positions", err)
		return
	}

	if outcome.IsConfirmed() && h.tracker != nil {
		h.tracker.SetPortfolioSymbols(heldSymbols(outcome.Holdings))
	}

	// Warning / MarketDataUnavailable 도 200 (사용자 재확인 필요)
	respondJSON(w, http.StatusOK, outcome)
}

// Reset deletes every run
// POST /api/reset
func (h *RunHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.runs.Reset(r.Context()); err != nil {
		respondServiceError(w, h.logger, "Failed to reset", err)
		return
	}
	if h.tracker != nil {
		h.tracker.SetPortfolioSymbols(nil)
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func heldSymbols(holdings []contracts.Holding) []string {
	out := make([]string, 0, len(holdings))
	for _, h := range holdings {
		if h.Shares.IsPositive() {
			out = append(out, h.Symbol)
		}
	}
	return out
}
