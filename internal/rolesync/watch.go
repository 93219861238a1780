package rolesync

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-referral/internal/database/models"
	"github.com/redis/go-redis/v9"
)

// Watcher combines the poll and push sources for one account at a time.
type Watcher struct {
	redis    redis.UniversalClient
	interval time.Duration
	logger   *slog.Logger
}

// NewWatcher returns a watcher. With a nil client only polling is used.
func NewWatcher(client redis.UniversalClient, interval time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{redis: client, interval: interval, logger: logger}
}

// Watch blocks until ctx is cancelled, calling onChange whenever the
// account's role moves away from the last applied value.
func (w *Watcher) Watch(ctx context.Context, accountID uuid.UUID, initial models.Role, fetch RoleFetcher, onChange func(models.Role)) error {
	reducer := NewReducer(initial, onChange)

	sources := []Source{NewPoller(fetch, w.interval, w.logger)}
	if w.redis != nil {
		sources = append(sources, NewSubscriber(w.redis, accountID))
	}
	return Run(ctx, reducer, w.logger, sources...)
}
