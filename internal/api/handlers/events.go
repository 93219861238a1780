package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hugh/go-referral/internal/database"
	"github.com/hugh/go-referral/internal/database/models"
	"github.com/hugh/go-referral/internal/rolesync"
	"github.com/hugh/go-referral/internal/session"
)

type EventsHandler struct {
	accounts *database.AccountRepository
	watcher  *rolesync.Watcher
	logger   *slog.Logger
}

func NewEventsHandler(accounts *database.AccountRepository, watcher *rolesync.Watcher, logger *slog.Logger) *EventsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsHandler{accounts: accounts, watcher: watcher, logger: logger}
}

type roleEvent struct {
	Role string `json:"role"`
	Home string `json:"home"`
}

// Roles handles GET /api/v1/session/events. It streams a "role" event with
// the session role and then one per change until the client disconnects.
// Clients call /api/v1/session/refresh on a change to reissue their token.
func (h *EventsHandler) Roles(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	rc := http.NewResponseController(w)
	// The server write timeout would cut the stream.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(role models.Role) {
		data, _ := json.Marshal(roleEvent{Role: string(role), Home: role.Home()})
		if _, err := fmt.Fprintf(w, "event: role\ndata: %s\n\n", data); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			h.logger.Debug("event flush failed", "error", err)
		}
	}
	send(s.Role)

	fetch := func(ctx context.Context) (models.Role, error) {
		account, err := h.accounts.FindByID(ctx, s.AccountID)
		if err != nil {
			return "", err
		}
		return account.Role, nil
	}

	if err := h.watcher.Watch(r.Context(), s.AccountID, s.Role, fetch, send); err != nil && r.Context().Err() == nil {
		h.logger.Warn("role stream ended", "account_id", s.AccountID, "error", err)
	}
}
