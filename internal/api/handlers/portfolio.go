package handlers

import (
	"net/http"

	"github.com/CedricEugeni/MoMentor/internal/realtime/stream"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

// PortfolioHandler serves the live valuation of the confirmed portfolio
type PortfolioHandler struct {
	portfolio stream.PortfolioSource
	logger    *logger.Logger
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(portfolio stream.PortfolioSource, log *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		portfolio: portfolio,
		logger:    log,
	}
}

// Current values the latest confirmed holdings at live prices
// GET /api/portfolio/current
func (h *PortfolioHandler) Current(w http.ResponseWriter, r *http.Request) {
	val, err := h.portfolio.CurrentPortfolio(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, "Failed to value portfolio", err)
		return
	}
	if val == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"positions": []interface{}{},
			"message":   "No confirmed portfolio yet",
		})
		return
	}
	respondJSON(w, http.StatusOK, val)
}
