package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/go-referral/internal/api/dto"
	"github.com/hugh/go-referral/internal/approval"
	"github.com/hugh/go-referral/internal/database/models"
)

type AdminHandler struct {
	approvals *approval.Service
	logger    *slog.Logger
}

func NewAdminHandler(approvals *approval.Service, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{approvals: approvals, logger: logger}
}

// ListAccounts handles GET /api/v1/admin/accounts?filter=&q=
func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	filter, err := approval.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Filter must be pending or approved"})
		return
	}

	listing, err := h.approvals.ListAccounts(r.Context(), filter, r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("listing accounts failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list accounts"})
		return
	}

	accounts := make([]dto.AccountDTO, len(listing.Accounts))
	for i := range listing.Accounts {
		accounts[i] = dto.NewAccountDTO(&listing.Accounts[i])
	}

	writeJSON(w, http.StatusOK, dto.AccountListResponse{
		Filter:        string(filter),
		Accounts:      accounts,
		PendingCount:  listing.PendingCount,
		ApprovedCount: listing.ApprovedCount,
	})
}

// Approve handles POST /api/v1/admin/accounts/{id}/approve
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid account ID"})
		return
	}

	var req dto.ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	account, err := h.approvals.Approve(r.Context(), accountID, models.Role(strings.ToLower(req.Role)))
	if err != nil {
		switch {
		case errors.Is(err, approval.ErrAccountNotFound):
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Account not found"})
		case errors.Is(err, approval.ErrInvalidRole):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Role must be member or leader"})
		default:
			h.logger.Error("approval failed", "account_id", accountID, "error", err)
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
				Error:   "Failed to approve account",
				Details: map[string]string{"reason": failureReason(err)},
			})
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.NewAccountDTO(account))
}

// Users handles GET /api/v1/admin/users?q=
func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	report, err := h.approvals.Users(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("listing users failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list users"})
		return
	}

	users := make([]dto.UserRowDTO, len(report.Users))
	for i, row := range report.Users {
		users[i] = dto.UserRowDTO{
			AccountDTO:   dto.NewAccountDTO(&row.Account),
			Points:       row.Ledger.Points,
			Withdrawable: row.Ledger.Withdrawable,
			Invested:     row.Ledger.Invested,
			Goal1Count:   row.Ledger.Goal1Count,
			Goal2Count:   row.Ledger.Goal2Count,
			NetworkCount: row.NetworkCount,
		}
	}

	writeJSON(w, http.StatusOK, dto.UsersResponse{
		Users:             users,
		TotalUsers:        report.TotalUsers,
		TotalPoints:       report.TotalPoints,
		TotalWithdrawable: report.TotalWithdrawable,
	})
}

const maxReasonLen = 200

// failureReason reports the innermost cause of err, single-line and bounded.
func failureReason(err error) string {
	for next := errors.Unwrap(err); next != nil; next = errors.Unwrap(err) {
		err = next
	}
	reason := strings.Join(strings.Fields(err.Error()), " ")
	if len(reason) > maxReasonLen {
		reason = reason[:maxReasonLen]
	}
	return reason
}
