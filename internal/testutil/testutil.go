package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-referral/internal/auth"
	"github.com/hugh/go-referral/internal/database/models"
	"github.com/hugh/go-referral/internal/session"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const TestPassword = "testpassword123"

var seq atomic.Int64

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Every pooled connection to :memory: would get its own empty database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.Account{}, &models.Ledger{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// AccountOption tweaks a test account before it is inserted.
type AccountOption func(*models.Account)

func WithInviter(code string) AccountOption {
	return func(a *models.Account) { a.InvitedBy = code }
}

func WithName(first, last string) AccountOption {
	return func(a *models.Account) {
		a.FirstName = first
		a.LastName = last
	}
}

func WithPhone(phone string) AccountOption {
	return func(a *models.Account) { a.Phone = phone }
}

func WithCreatedAt(at time.Time) AccountOption {
	return func(a *models.Account) { a.CreatedAt = at }
}

// CreateTestAccount inserts an account with unique login, phone and referral
// code. Its password is TestPassword.
func CreateTestAccount(t *testing.T, db *gorm.DB, role models.Role, opts ...AccountOption) *models.Account {
	t.Helper()

	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	n := seq.Add(1)
	account := &models.Account{
		Base:         models.Base{ID: uuid.New()},
		Login:        fmt.Sprintf("user%06d", n),
		FirstName:    "Test",
		LastName:     fmt.Sprintf("User%d", n),
		Phone:        fmt.Sprintf("0900%07d", n),
		PasswordHash: hash,
		Role:         role,
		ReferralCode: fmt.Sprintf("TC%06d", n),
	}
	for _, opt := range opts {
		opt(account)
	}

	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// SetLedger upserts the ledger row of an account.
func SetLedger(t *testing.T, db *gorm.DB, ledger models.Ledger) {
	t.Helper()
	if err := db.Save(&ledger).Error; err != nil {
		t.Fatalf("failed to save ledger: %v", err)
	}
}

func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken issues a session token for the given account
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, account *models.Account) string {
	t.Helper()

	s := session.FromAccount(account)
	token, err := jwtService.GenerateToken(auth.Identity{
		AccountID: s.AccountID,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Phone:     s.Phone,
		Role:      s.Role,
	})
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	Sessions   *session.Manager
	Account    *models.Account
	Token      string
}

// NewTestContext creates a DB and a signed-in account with the given role.
func NewTestContext(t *testing.T, role models.Role) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	account := CreateTestAccount(t, db, role)

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		Sessions:   session.NewManager(jwtService, false),
		Account:    account,
		Token:      GenerateTestToken(t, jwtService, account),
	}
}

// TokenFor issues a token for another account in the same setup.
func (ts *TestSetup) TokenFor(t *testing.T, account *models.Account) string {
	t.Helper()
	return GenerateTestToken(t, ts.JWTService, account)
}
