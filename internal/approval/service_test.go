package approval_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/hugh/go-referral/internal/approval"
	"github.com/hugh/go-referral/internal/database"
	"github.com/hugh/go-referral/internal/database/models"
	"github.com/hugh/go-referral/internal/notify"
	"github.com/hugh/go-referral/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingDispatcher struct {
	mu       sync.Mutex
	payloads []notify.Payload
	err      error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, p notify.Payload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payloads = append(d.payloads, p)
	return d.err
}

type recordingPublisher struct {
	roles map[uuid.UUID]models.Role
	err   error
}

func (p *recordingPublisher) PublishRole(_ context.Context, id uuid.UUID, role models.Role) error {
	if p.roles == nil {
		p.roles = map[uuid.UUID]models.Role{}
	}
	p.roles[id] = role
	return p.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func roles(t *testing.T, db *gorm.DB) map[uuid.UUID]models.Role {
	t.Helper()
	var accounts []models.Account
	require.NoError(t, db.Find(&accounts).Error)
	out := map[uuid.UUID]models.Role{}
	for _, a := range accounts {
		out[a.ID] = a.Role
	}
	return out
}

func TestParseFilter(t *testing.T) {
	f, err := approval.ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, approval.FilterPending, f)

	f, err = approval.ParseFilter("Approved")
	require.NoError(t, err)
	assert.Equal(t, approval.FilterApproved, f)

	_, err = approval.ParseFilter("everyone")
	assert.ErrorIs(t, err, approval.ErrInvalidFilter)
}

func TestService_ListAccounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	svc := approval.NewService(database.NewAccountRepository(db), nil, nil, quietLogger())

	testutil.CreateTestAccount(t, db, models.RolePending, testutil.WithName("Chidi", "Okafor"), testutil.WithPhone("08031234567"))
	testutil.CreateTestAccount(t, db, models.Role(""), testutil.WithName("Amaka", "Nwosu"))
	testutil.CreateTestAccount(t, db, models.Role("legacy"), testutil.WithName("Bola", "Ade"))
	testutil.CreateTestAccount(t, db, models.RoleMember, testutil.WithName("Chika", "Eze"))
	testutil.CreateTestAccount(t, db, models.RoleLeader, testutil.WithName("Dayo", "Okafor"))
	testutil.CreateTestAccount(t, db, models.RoleAdmin, testutil.WithName("Root", "Admin"))

	t.Run("pending and approved partition all accounts", func(t *testing.T) {
		pending, err := svc.ListAccounts(ctx, approval.FilterPending, "")
		require.NoError(t, err)
		approved, err := svc.ListAccounts(ctx, approval.FilterApproved, "")
		require.NoError(t, err)

		assert.Len(t, pending.Accounts, 3)
		assert.Len(t, approved.Accounts, 3)
		assert.Equal(t, 3, pending.PendingCount)
		assert.Equal(t, 3, pending.ApprovedCount)

		ids := map[uuid.UUID]bool{}
		for _, a := range pending.Accounts {
			assert.False(t, a.Role.IsApproved())
			ids[a.ID] = true
		}
		for _, a := range approved.Accounts {
			assert.True(t, a.Role.IsApproved())
			assert.False(t, ids[a.ID], "account in both tabs")
			ids[a.ID] = true
		}
		assert.Len(t, ids, 6)
	})

	t.Run("query matches full name case-insensitively", func(t *testing.T) {
		list, err := svc.ListAccounts(ctx, approval.FilterApproved, "dayo OKA")
		require.NoError(t, err)
		require.Len(t, list.Accounts, 1)
		assert.Equal(t, "Dayo", list.Accounts[0].FirstName)
		assert.Zero(t, list.PendingCount)
	})

	t.Run("query matches phone digits", func(t *testing.T) {
		list, err := svc.ListAccounts(ctx, approval.FilterPending, "3123")
		require.NoError(t, err)
		require.Len(t, list.Accounts, 1)
		assert.Equal(t, "Chidi", list.Accounts[0].FirstName)
	})
}

func TestService_Approve(t *testing.T) {
	t.Run("changes exactly one account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		ctx := testutil.TestContext(t)
		dispatcher := &recordingDispatcher{}
		publisher := &recordingPublisher{}
		svc := approval.NewService(database.NewAccountRepository(db), dispatcher, publisher, quietLogger())

		inviter := testutil.CreateTestAccount(t, db, models.RoleMember)
		target := testutil.CreateTestAccount(t, db, models.RolePending, testutil.WithInviter(inviter.ReferralCode))
		other := testutil.CreateTestAccount(t, db, models.RolePending)
		before := roles(t, db)

		account, err := svc.Approve(ctx, target.ID, models.RoleLeader)
		require.NoError(t, err)
		assert.Equal(t, models.RoleLeader, account.Role)

		after := roles(t, db)
		for id, role := range before {
			if id == target.ID {
				assert.Equal(t, models.RoleLeader, after[id])
				continue
			}
			assert.Equal(t, role, after[id])
		}
		assert.Equal(t, models.RolePending, after[other.ID])

		var ledger models.Ledger
		require.NoError(t, db.First(&ledger, "account_id = ?", target.ID).Error)

		assert.Equal(t, models.RoleLeader, publisher.roles[target.ID])

		require.Len(t, dispatcher.payloads, 1)
		p := dispatcher.payloads[0]
		assert.Equal(t, target.ID.String(), p.UserID)
		assert.Equal(t, target.Login, p.UserLogin)
		assert.Equal(t, inviter.ReferralCode, p.InviteCode)
		assert.Equal(t, inviter.Phone, p.InviterPhoneNumber)
		assert.Equal(t, inviter.ID.String(), p.InviterUserID)
		assert.Equal(t, inviter.Login, p.InviterUserLogin)
		assert.Equal(t, "leader", p.ApprovedRole)
	})

	t.Run("notification failure does not undo approval", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		ctx := testutil.TestContext(t)
		dispatcher := &recordingDispatcher{err: errors.New("queue down")}
		publisher := &recordingPublisher{err: errors.New("redis down")}
		svc := approval.NewService(database.NewAccountRepository(db), dispatcher, publisher, quietLogger())

		target := testutil.CreateTestAccount(t, db, models.RolePending, testutil.WithInviter("GONE0000"))

		account, err := svc.Approve(ctx, target.ID, models.RoleMember)
		require.NoError(t, err)
		assert.Equal(t, models.RoleMember, account.Role)
		assert.Equal(t, models.RoleMember, roles(t, db)[target.ID])

		require.Len(t, dispatcher.payloads, 1)
		assert.Empty(t, dispatcher.payloads[0].InviterUserID)
	})

	t.Run("reads failing after the update still complete the approval", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		ctx := testutil.TestContext(t)
		dispatcher := &recordingDispatcher{}
		publisher := &recordingPublisher{}
		svc := approval.NewService(database.NewAccountRepository(db), dispatcher, publisher, quietLogger())

		inviter := testutil.CreateTestAccount(t, db, models.RoleLeader)
		target := testutil.CreateTestAccount(t, db, models.RolePending, testutil.WithInviter(inviter.ReferralCode))

		var updated atomic.Bool
		require.NoError(t, db.Callback().Update().After("gorm:update").Register("test:mark_updated", func(tx *gorm.DB) {
			updated.Store(true)
		}))
		require.NoError(t, db.Callback().Query().Before("gorm:query").Register("test:fail_reads", func(tx *gorm.DB) {
			if updated.Load() {
				_ = tx.AddError(errors.New("connection reset"))
			}
		}))

		account, err := svc.Approve(ctx, target.ID, models.RoleLeader)
		require.NoError(t, err)
		assert.Equal(t, target.ID, account.ID)
		assert.Equal(t, models.RoleLeader, account.Role)
		assert.Equal(t, models.RoleLeader, publisher.roles[target.ID])

		require.Len(t, dispatcher.payloads, 1)
		assert.Equal(t, target.ID.String(), dispatcher.payloads[0].UserID)
		assert.Equal(t, "leader", dispatcher.payloads[0].ApprovedRole)
		assert.Empty(t, dispatcher.payloads[0].InviterUserID)

		updated.Store(false)
		assert.Equal(t, models.RoleLeader, roles(t, db)[target.ID])
	})

	t.Run("rejects unassignable roles", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := approval.NewService(database.NewAccountRepository(db), nil, nil, quietLogger())
		target := testutil.CreateTestAccount(t, db, models.RolePending)

		for _, role := range []models.Role{models.RoleAdmin, models.RolePending, "owner"} {
			_, err := svc.Approve(context.Background(), target.ID, role)
			assert.ErrorIs(t, err, approval.ErrInvalidRole)
		}
		assert.Equal(t, models.RolePending, roles(t, db)[target.ID])
	})

	t.Run("unknown account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := approval.NewService(database.NewAccountRepository(db), nil, nil, quietLogger())

		_, err := svc.Approve(context.Background(), uuid.New(), models.RoleMember)
		assert.ErrorIs(t, err, approval.ErrAccountNotFound)
	})

	t.Run("approving twice keeps last role", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		ctx := testutil.TestContext(t)
		svc := approval.NewService(database.NewAccountRepository(db), nil, nil, quietLogger())
		target := testutil.CreateTestAccount(t, db, models.RolePending)

		_, err := svc.Approve(ctx, target.ID, models.RoleMember)
		require.NoError(t, err)
		_, err = svc.Approve(ctx, target.ID, models.RoleLeader)
		require.NoError(t, err)

		assert.Equal(t, models.RoleLeader, roles(t, db)[target.ID])
	})
}

func TestService_Users(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	svc := approval.NewService(database.NewAccountRepository(db), nil, nil, quietLogger())

	leader := testutil.CreateTestAccount(t, db, models.RoleLeader, testutil.WithName("Ngozi", "Obi"))
	member := testutil.CreateTestAccount(t, db, models.RoleMember, testutil.WithInviter(leader.ReferralCode))
	testutil.CreateTestAccount(t, db, models.RolePending, testutil.WithInviter(leader.ReferralCode))
	testutil.SetLedger(t, db, models.Ledger{AccountID: leader.ID, Points: 300, Withdrawable: 12.5})
	testutil.SetLedger(t, db, models.Ledger{AccountID: member.ID, Points: 100, Withdrawable: 2.5})

	t.Run("totals over approved accounts", func(t *testing.T) {
		report, err := svc.Users(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, 2, report.TotalUsers)
		assert.Equal(t, int64(400), report.TotalPoints)
		assert.InDelta(t, 15.0, report.TotalWithdrawable, 0.001)

		for _, row := range report.Users {
			if row.Account.ID == leader.ID {
				assert.Equal(t, int64(2), row.NetworkCount)
			}
		}
	})

	t.Run("search by referral code", func(t *testing.T) {
		report, err := svc.Users(ctx, leader.ReferralCode)
		require.NoError(t, err)
		require.Len(t, report.Users, 1)
		assert.Equal(t, leader.ID, report.Users[0].Account.ID)
	})

	t.Run("search by login", func(t *testing.T) {
		report, err := svc.Users(ctx, member.Login)
		require.NoError(t, err)
		require.Len(t, report.Users, 1)
		assert.Equal(t, member.ID, report.Users[0].Account.ID)
	})
}
