// Package rolesync keeps a signed-in account's role current from two event
// sources: a periodic poll of the store and a redis push channel.
package rolesync

import (
	"sync"

	"github.com/hugh/go-referral/internal/database/models"
	"github.com/hugh/go-referral/internal/metrics"
)

// Reducer holds the latest known role. Empty and unchanged values are
// ignored, so duplicate deliveries from both sources are harmless.
type Reducer struct {
	mu       sync.Mutex
	role     models.Role
	onChange func(models.Role)
}

func NewReducer(initial models.Role, onChange func(models.Role)) *Reducer {
	return &Reducer{role: initial, onChange: onChange}
}

// Apply sets role if it differs from the current one and reports whether it
// did. onChange runs under the reducer lock, in apply order.
func (r *Reducer) Apply(source string, role models.Role) bool {
	if role == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if role == r.role {
		return false
	}
	r.role = role
	metrics.RoleSyncUpdates.WithLabelValues(source).Inc()
	if r.onChange != nil {
		r.onChange(role)
	}
	return true
}

func (r *Reducer) Role() models.Role {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.role
}
