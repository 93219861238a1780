package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-referral/internal/database"
	"github.com/hugh/go-referral/internal/notify"
	"github.com/hugh/go-referral/pkg/crypto"
	"gorm.io/gorm"
)

type Handler struct {
	accounts *database.AccountRepository
	logger   *slog.Logger
	webhook  *notify.Client
	sealer   *crypto.Sealer
}

// NewHandler builds the worker handlers. A nil webhook client drops approval
// notifications; sealer must match the one used to enqueue.
func NewHandler(db *gorm.DB, logger *slog.Logger, webhook *notify.Client, sealer *crypto.Sealer) *Handler {
	return &Handler{
		accounts: database.NewAccountRepository(db),
		logger:   logger,
		webhook:  webhook,
		sealer:   sealer,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeApprovalNotify, h.HandleApprovalNotify)
	mux.HandleFunc(TypeLedgerReconcile, h.HandleLedgerReconcile)
}

// HandleApprovalNotify posts the webhook. Delivery failures are logged and
// the task still completes.
func (h *Handler) HandleApprovalNotify(ctx context.Context, t *asynq.Task) error {
	data, err := h.sealer.Open(t.Payload())
	if err != nil {
		return fmt.Errorf("open payload: %w", err)
	}

	var payload notify.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if h.webhook == nil {
		h.logger.Debug("webhook disabled, dropping approval notification", "user_id", payload.UserID)
		return nil
	}

	if err := h.webhook.Send(ctx, payload); err != nil {
		h.logger.Warn("approval webhook failed",
			"user_id", payload.UserID,
			"role", payload.ApprovedRole,
			"error", err,
		)
		return nil
	}

	h.logger.Info("approval webhook delivered", "user_id", payload.UserID)
	return nil
}

func (h *Handler) HandleLedgerReconcile(ctx context.Context, t *asynq.Task) error {
	created, err := h.accounts.InitializeMissingLedgers(ctx)
	if err != nil {
		return err
	}
	if created > 0 {
		h.logger.Info("initialized missing ledgers", "count", created)
	}
	return nil
}
