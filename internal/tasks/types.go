package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-referral/internal/notify"
	"github.com/hugh/go-referral/pkg/crypto"
	"github.com/hugh/go-referral/pkg/queue"
)

// Task type names
const (
	TypeApprovalNotify  = "notify:approval"
	TypeLedgerReconcile = "ledger:reconcile"
)

// NewApprovalNotifyTask encodes payload and seals it when sealer is non-nil.
func NewApprovalNotifyTask(payload notify.Payload, sealer *crypto.Sealer) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if data, err = sealer.Seal(data); err != nil {
		return nil, fmt.Errorf("seal payload: %w", err)
	}
	return asynq.NewTask(TypeApprovalNotify, data), nil
}

// NewLedgerReconcileTask has no payload; it sweeps all approved accounts.
func NewLedgerReconcileTask() *asynq.Task {
	return asynq.NewTask(TypeLedgerReconcile, nil)
}

// Enqueuer dispatches approval notifications through the job queue.
type Enqueuer struct {
	client *asynq.Client
	sealer *crypto.Sealer
}

func NewEnqueuer(client *asynq.Client, sealer *crypto.Sealer) *Enqueuer {
	return &Enqueuer{client: client, sealer: sealer}
}

func (e *Enqueuer) Dispatch(ctx context.Context, p notify.Payload) error {
	task, err := NewApprovalNotifyTask(p, e.sealer)
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task, asynq.Queue(queue.QueueDefault), asynq.MaxRetry(0)); err != nil {
		return fmt.Errorf("enqueue approval notification: %w", err)
	}
	return nil
}
