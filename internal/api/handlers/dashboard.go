package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/go-referral/internal/api/dto"
	"github.com/hugh/go-referral/internal/database"
	"github.com/hugh/go-referral/internal/database/models"
	"github.com/hugh/go-referral/internal/goals"
	"github.com/hugh/go-referral/internal/metrics"
	"github.com/hugh/go-referral/internal/referral"
	"github.com/hugh/go-referral/internal/session"
)

type DashboardHandler struct {
	accounts   *database.AccountRepository
	goals      *goals.Service
	aggregator *referral.Aggregator
	invites    *InviteHandler
	logger     *slog.Logger
}

func NewDashboardHandler(
	accounts *database.AccountRepository,
	goalService *goals.Service,
	aggregator *referral.Aggregator,
	invites *InviteHandler,
	logger *slog.Logger,
) *DashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardHandler{
		accounts:   accounts,
		goals:      goalService,
		aggregator: aggregator,
		invites:    invites,
		logger:     logger,
	}
}

// Summary handles GET /api/v1/dashboard
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())

	invite, err := h.invites.invite(r)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load invite"})
		return
	}

	ledger, err := h.accounts.GetLedger(r.Context(), s.AccountID)
	if err != nil {
		h.logger.Error("loading ledger failed", "account_id", s.AccountID, "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load balances"})
		return
	}

	resp := dto.DashboardResponse{
		Session: dto.NewSessionDTO(*s),
		Invite:  invite,
		Ledger: dto.LedgerDTO{
			Points:       ledger.Points,
			Withdrawable: ledger.Withdrawable,
			Invested:     ledger.Invested,
		},
		Goals: h.goals.Evaluate(ledger, s.Role),
	}

	if s.Role == models.RoleLeader {
		network, err := h.buildNetwork(r)
		if err != nil {
			// The rest of the dashboard stays usable without the counts.
			h.logger.Warn("network summary unavailable", "account_id", s.AccountID, "error", err)
		} else {
			resp.Network = &dto.NetworkSummary{
				DirectCount: network.DirectCount,
				TotalCount:  network.TotalCount,
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Network handles GET /api/v1/network
func (h *DashboardHandler) Network(w http.ResponseWriter, r *http.Request) {
	network, err := h.buildNetwork(r)
	if err != nil {
		if errors.Is(err, referral.ErrNetworkUnavailable) {
			h.logger.Warn("network unavailable", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "Network is temporarily unavailable"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load network"})
		return
	}

	writeJSON(w, http.StatusOK, dto.NetworkResponse{
		Members:     network.Members,
		DirectCount: network.DirectCount,
		TotalCount:  network.TotalCount,
	})
}

// ClaimGoal handles POST /api/v1/goals/{level}/claim
func (h *DashboardHandler) ClaimGoal(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())

	level, err := strconv.Atoi(chi.URLParam(r, "level"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid goal level"})
		return
	}

	goal, err := h.goals.Claim(r.Context(), s.AccountID, s.Role, level)
	if err != nil {
		switch {
		case errors.Is(err, goals.ErrUnknownLevel):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid goal level"})
		case errors.Is(err, goals.ErrNotComplete):
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Goal is not complete yet"})
		default:
			h.logger.Error("claiming goal failed", "account_id", s.AccountID, "level", level, "error", err)
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to claim goal"})
		}
		return
	}

	writeJSON(w, http.StatusOK, goal)
}

func (h *DashboardHandler) buildNetwork(r *http.Request) (*referral.Network, error) {
	s := session.FromContext(r.Context())

	start := time.Now()
	defer func() { metrics.NetworkBuildDuration.Observe(time.Since(start).Seconds()) }()

	return h.aggregator.BuildNetwork(r.Context(), s.AccountID)
}
