package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/handler"
	"github.com/dmitrymomot/otto/modules/web"
	"github.com/dmitrymomot/otto/pkg/blobstore"
	"github.com/dmitrymomot/otto/pkg/cookie"
	"github.com/dmitrymomot/otto/pkg/ratelimiter"
	"github.com/dmitrymomot/otto/svc/accounts"
	"github.com/dmitrymomot/otto/svc/apikey"
	"github.com/dmitrymomot/otto/svc/auditlog"
	"github.com/dmitrymomot/otto/svc/backup"
	"github.com/dmitrymomot/otto/svc/session"
	"github.com/dmitrymomot/otto/svc/users"
)

type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) Authenticate(ctx context.Context, username, password string) (otto.Principal, error) {
	args := m.Called(username, password)
	return args.Get(0).(otto.Principal), args.Error(1)
}

func (m *MockSessions) CreateToken(pr otto.Principal) (string, time.Time, error) {
	args := m.Called(pr)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

// VerifyToken accepts the tokens listed in sessionTokens.
func (m *MockSessions) VerifyToken(token string) (otto.Principal, error) {
	if pr, ok := sessionTokens[token]; ok {
		return pr, nil
	}
	return otto.Principal{}, otto.ErrUnauthorized
}

func (m *MockSessions) TTL() time.Duration { return 24 * time.Hour }

func (m *MockSessions) ChangePassword(ctx context.Context, pr otto.Principal, in session.ChangePasswordInput) error {
	return m.Called(pr, in).Error(0)
}

func (m *MockSessions) Logout(ctx context.Context, pr otto.Principal) {
	m.Called(pr)
}

type MockKeys struct{}

func (MockKeys) Verify(_ context.Context, raw string) (otto.Principal, error) {
	if pr, ok := apiKeys[raw]; ok {
		return pr, nil
	}
	return otto.Principal{}, otto.ErrUnauthorized
}

type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) ListWithCodes(ctx context.Context, pr otto.Principal, q accounts.ListQuery) ([]accounts.AccountWithCode, error) {
	args := m.Called(pr, q)
	list, _ := args.Get(0).([]accounts.AccountWithCode)
	return list, args.Error(1)
}

func (m *MockAccounts) Create(ctx context.Context, pr otto.Principal, in accounts.CreateInput) (otto.Account, error) {
	args := m.Called(pr, in)
	return args.Get(0).(otto.Account), args.Error(1)
}

func (m *MockAccounts) UpdateVisibility(ctx context.Context, pr otto.Principal, id int64, visibility string) (otto.Account, error) {
	args := m.Called(pr, id, visibility)
	return args.Get(0).(otto.Account), args.Error(1)
}

func (m *MockAccounts) Delete(ctx context.Context, pr otto.Principal, id int64) error {
	return m.Called(pr, id).Error(0)
}

func (m *MockAccounts) Increment(ctx context.Context, pr otto.Principal, id int64, counter string) error {
	return m.Called(pr, id, counter).Error(0)
}

func (m *MockAccounts) SetFavorite(ctx context.Context, pr otto.Principal, id int64, favorite bool) error {
	return m.Called(pr, id, favorite).Error(0)
}

func (m *MockAccounts) Provision(ctx context.Context, pr otto.Principal, id int64) (accounts.Provisioning, error) {
	args := m.Called(pr, id)
	return args.Get(0).(accounts.Provisioning), args.Error(1)
}

func (m *MockAccounts) GetCode(ctx context.Context, pr otto.Principal, ref accounts.Ref) (accounts.CodeResult, error) {
	args := m.Called(pr, ref)
	return args.Get(0).(accounts.CodeResult), args.Error(1)
}

func (m *MockAccounts) Export(ctx context.Context, pr otto.Principal, in accounts.ExportInput) (accounts.Export, error) {
	args := m.Called(pr, in)
	return args.Get(0).(accounts.Export), args.Error(1)
}

func (m *MockAccounts) Import(ctx context.Context, pr otto.Principal, in accounts.ImportInput) (accounts.ImportResult, error) {
	args := m.Called(pr, in)
	return args.Get(0).(accounts.ImportResult), args.Error(1)
}

type MockAPIKeys struct {
	mock.Mock
}

func (m *MockAPIKeys) List(ctx context.Context, pr otto.Principal) ([]otto.APIKey, error) {
	args := m.Called(pr)
	keys, _ := args.Get(0).([]otto.APIKey)
	return keys, args.Error(1)
}

func (m *MockAPIKeys) Create(ctx context.Context, pr otto.Principal, in apikey.CreateInput) (apikey.Issued, error) {
	args := m.Called(pr, in)
	return args.Get(0).(apikey.Issued), args.Error(1)
}

func (m *MockAPIKeys) Revoke(ctx context.Context, pr otto.Principal, id int64) error {
	return m.Called(pr, id).Error(0)
}

func (m *MockAPIKeys) SetActive(ctx context.Context, pr otto.Principal, id int64, active bool) (otto.APIKey, error) {
	args := m.Called(pr, id, active)
	return args.Get(0).(otto.APIKey), args.Error(1)
}

type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) List(ctx context.Context, pr otto.Principal) ([]otto.User, error) {
	args := m.Called(pr)
	list, _ := args.Get(0).([]otto.User)
	return list, args.Error(1)
}

func (m *MockUsers) Create(ctx context.Context, pr otto.Principal, in users.CreateInput) (otto.User, error) {
	args := m.Called(pr, in)
	return args.Get(0).(otto.User), args.Error(1)
}

func (m *MockUsers) CreateBulk(ctx context.Context, pr otto.Principal, in users.BulkInput) (users.BulkResult, error) {
	args := m.Called(pr, in)
	return args.Get(0).(users.BulkResult), args.Error(1)
}

func (m *MockUsers) Delete(ctx context.Context, pr otto.Principal, id int64) error {
	return m.Called(pr, id).Error(0)
}

type MockAudit struct {
	mock.Mock
}

func (m *MockAudit) List(ctx context.Context, pr otto.Principal, q auditlog.Query) (auditlog.Page, error) {
	args := m.Called(pr, q)
	return args.Get(0).(auditlog.Page), args.Error(1)
}

func (m *MockAudit) Log(ctx context.Context, pr otto.Principal, in auditlog.LogInput) error {
	return m.Called(pr, in).Error(0)
}

func (m *MockAudit) Cleanup(ctx context.Context, pr otto.Principal) (auditlog.CleanupResult, error) {
	args := m.Called(pr)
	return args.Get(0).(auditlog.CleanupResult), args.Error(1)
}

type MockBackup struct {
	mock.Mock
}

func (m *MockBackup) Snapshot(ctx context.Context, pr otto.Principal) (backup.Snapshot, error) {
	args := m.Called(pr)
	return args.Get(0).(backup.Snapshot), args.Error(1)
}

func (m *MockBackup) Upload(ctx context.Context, pr otto.Principal) (blobstore.Object, error) {
	args := m.Called(pr)
	return args.Get(0).(blobstore.Object), args.Error(1)
}

var (
	admin = otto.Principal{UserID: 1, Username: "admin", Role: otto.RoleAdmin, Source: otto.SourceSession}
	alice = otto.Principal{UserID: 2, Username: "alice", Role: otto.RoleUser, Source: otto.SourceSession}
	robot = otto.Principal{UserID: 1, Username: "admin", Role: otto.RoleAdmin, Source: otto.SourceAPIKey}

	sessionTokens = map[string]otto.Principal{
		"admin-token": admin,
		"alice-token": alice,
	}
	apiKeys = map[string]otto.Principal{
		"otto_0123456789abcdef0123456789abcdef": robot,
	}
)

const adminKey = "otto_0123456789abcdef0123456789abcdef"

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func errorHandler() handler.ErrorHandler[handler.Context] {
	return handler.NewErrorHandler(discardLog)
}

func cookies() *cookie.Manager {
	return cookie.New(cookie.Config{Name: "session"})
}

type server struct {
	sessions *MockSessions
	accounts *MockAccounts
	apiKeys  *MockAPIKeys
	users    *MockUsers
	audit    *MockAudit
	backup   *MockBackup
	router   http.Handler
}

func newServer(limiter *ratelimiter.Limiter) *server {
	s := &server{
		sessions: &MockSessions{},
		accounts: &MockAccounts{},
		apiKeys:  &MockAPIKeys{},
		users:    &MockUsers{},
		audit:    &MockAudit{},
		backup:   &MockBackup{},
	}
	errh := errorHandler()
	s.router = web.Router(web.RouterOptions{
		Guard:    web.NewAuthenticator(s.sessions, MockKeys{}, cookies(), errh),
		Auth:     web.NewAuthHandler(s.sessions, cookies(), limiter, errh),
		Accounts: web.NewAccountsHandler(s.accounts, errh),
		QR:       web.NewQRHandler(errh),
		APIKeys:  web.NewAPIKeysHandler(s.apiKeys, errh),
		Users:    web.NewUsersHandler(s.users, errh),
		Audit:    web.NewAuditHandler(s.audit, errh),
		Backup:   web.NewBackupHandler(s.backup, errh),
		API:      web.NewAPIHandler(s.accounts, errh),
	})
	return s
}

type request struct {
	method  string
	path    string
	body    any
	session string
	apiKey  string
	header  map[string]string
}

func (s *server) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if req.body != nil {
		raw, ok := req.body.(string)
		if !ok {
			b, err := json.Marshal(req.body)
			require.NoError(t, err)
			raw = string(b)
		}
		body = bytes.NewBufferString(raw)
	}

	r := httptest.NewRequest(req.method, req.path, body)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if req.session != "" {
		r.AddCookie(&http.Cookie{Name: "session", Value: req.session})
	}
	if req.apiKey != "" {
		r.Header.Set("Authorization", "Bearer "+req.apiKey)
	}
	for k, v := range req.header {
		r.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body handler.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Error.Code
}
