package rolesync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-referral/internal/database/models"
	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc/pool"
)

const (
	SourcePoll = "poll"
	SourcePush = "push"

	DefaultPollInterval = 8 * time.Second
)

// Channel is the redis channel carrying role changes for one account.
func Channel(accountID uuid.UUID) string {
	return "role-sync:" + accountID.String()
}

// Source emits observed roles until ctx is cancelled.
type Source interface {
	Name() string
	Run(ctx context.Context, emit func(models.Role)) error
}

// RoleFetcher reads the stored role of the watched account.
type RoleFetcher func(ctx context.Context) (models.Role, error)

type Poller struct {
	fetch    RoleFetcher
	interval time.Duration
	logger   *slog.Logger
}

func NewPoller(fetch RoleFetcher, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{fetch: fetch, interval: interval, logger: logger}
}

func (p *Poller) Name() string { return SourcePoll }

// Run fetches immediately and then on every tick. Fetch errors are logged and
// the next tick retries.
func (p *Poller) Run(ctx context.Context, emit func(models.Role)) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		role, err := p.fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Debug("role poll failed", "error", err)
		} else {
			emit(role)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

type Subscriber struct {
	client    redis.UniversalClient
	accountID uuid.UUID
}

func NewSubscriber(client redis.UniversalClient, accountID uuid.UUID) *Subscriber {
	return &Subscriber{client: client, accountID: accountID}
}

func (s *Subscriber) Name() string { return SourcePush }

func (s *Subscriber) Run(ctx context.Context, emit func(models.Role)) error {
	sub := s.client.Subscribe(ctx, Channel(s.accountID))
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", Channel(s.accountID), err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			emit(models.Role(msg.Payload))
		}
	}
}

// Run feeds every source into r until ctx is cancelled. A failing source
// does not stop the others; its error is logged and returned after all
// sources have stopped.
func Run(ctx context.Context, r *Reducer, logger *slog.Logger, sources ...Source) error {
	p := pool.New().WithContext(ctx)
	for _, src := range sources {
		src := src
		p.Go(func(ctx context.Context) error {
			err := src.Run(ctx, func(role models.Role) {
				r.Apply(src.Name(), role)
			})
			if err != nil {
				logger.Warn("role sync source stopped", "source", src.Name(), "error", err)
			}
			return err
		})
	}
	return p.Wait()
}

type Publisher struct {
	client redis.UniversalClient
}

func NewPublisher(client redis.UniversalClient) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) PublishRole(ctx context.Context, accountID uuid.UUID, role models.Role) error {
	return p.client.Publish(ctx, Channel(accountID), string(role)).Err()
}
