package web_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/pkg/audit"
	"github.com/dmitrymomot/otto/pkg/blobstore"
	"github.com/dmitrymomot/otto/svc/apikey"
	"github.com/dmitrymomot/otto/svc/auditlog"
	"github.com/dmitrymomot/otto/svc/backup"
	"github.com/dmitrymomot/otto/svc/users"
)

func TestAPIKeys(t *testing.T) {
	t.Parallel()

	t.Run("create returns raw key once", func(t *testing.T) {
		t.Parallel()
		s := newServer(nil)
		in := apikey.CreateInput{Name: "ci", ExpiresInDays: 30}
		s.apiKeys.On("Create", admin, in).Return(apikey.Issued{
			APIKey: otto.APIKey{ID: 3, UserID: 1, Name: "ci", Key: "otto_aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", IsActive: true},
			Token:  "otto_aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		}, nil).Once()

		w := s.do(t, request{method: http.MethodPost, path: "/api/api-keys", session: "admin-token", body: in})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var got map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "otto_aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", got["key"])
		assert.Equal(t, "ci", got["name"])
	})

	t.Run("list is an array", func(t *testing.T) {
		t.Parallel()
		s := newServer(nil)
		s.apiKeys.On("List", admin).Return(nil, nil).Once()

		w := s.do(t, request{method: http.MethodGet, path: "/api/api-keys", session: "admin-token"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("user is forbidden", func(t *testing.T) {
		t.Parallel()
		s := newServer(nil)
		s.apiKeys.On("List", alice).Return(nil, otto.ErrForbidden).Once()

		w := s.do(t, request{method: http.MethodGet, path: "/api/api-keys", session: "alice-token"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("toggle", func(t *testing.T) {
		t.Parallel()
		s := newServer(nil)
		s.apiKeys.On("SetActive", admin, int64(3), false).Return(otto.APIKey{ID: 3, IsActive: false}, nil).Once()

		w := s.do(t, request{method: http.MethodPatch, path: "/api/api-keys/3", session: "admin-token", body: `{"is_active":false}`})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = s.do(t, request{method: http.MethodPatch, path: "/api/api-keys/3", session: "admin-token", body: `{"name":"x"}`})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = s.do(t, request{method: http.MethodPatch, path: "/api/api-keys/3", session: "admin-token", body: `{"id":7,"is_active":false}`})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = s.do(t, request{method: http.MethodPatch, path: "/api/api-keys/3", session: "admin-token", body: `{}`})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "validation_error", errorCode(t, w))
		s.apiKeys.AssertExpectations(t)
	})

	t.Run("revoke", func(t *testing.T) {
		t.Parallel()
		s := newServer(nil)
		s.apiKeys.On("Revoke", admin, int64(3)).Return(nil).Once()

		w := s.do(t, request{method: http.MethodDelete, path: "/api/api-keys/3", session: "admin-token"})
		assert.Equal(t, http.StatusNoContent, w.Code)
		s.apiKeys.AssertExpectations(t)
	})
}

func TestUsers(t *testing.T) {
	t.Parallel()

	t.Run("create conflict", func(t *testing.T) {
		t.Parallel()
		s := newServer(nil)
		in := users.CreateInput{Username: "bob", Password: "password1", Role: "user"}
		s.users.On("Create", admin, in).Return(otto.User{}, otto.NewError(otto.ErrConflict, "username already exists")).Once()

		w := s.do(t, request{method: http.MethodPost, path: "/api/users", session: "admin-token", body: in})
		require.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "conflict", errorCode(t, w))
		assert.Contains(t, w.Body.String(), "username already exists")
	})

	t.Run("bulk", func(t *testing.T) {
		t.Parallel()
		s := newServer(nil)
		in := users.BulkInput{Usernames: []string{"carol", "bob"}, Role: "user"}
		s.users.On("CreateBulk", admin, in).Return(users.BulkResult{
			Users:   []users.Credentials{{Username: "carol", Password: "Abcdefgh12345678"}},
			Errors:  []users.BulkError{{Username: "bob", Error: "username already exists"}},
			Summary: users.BulkSummary{Total: 2, Created: 1, Failed: 1},
		}, nil).Once()

		w := s.do(t, request{method: http.MethodPost, path: "/api/users/bulk", session: "admin-token", body: in})
		require.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{
			"users":[{"username":"carol","password":"Abcdefgh12345678"}],
			"errors":[{"username":"bob","error":"username already exists"}],
			"summary":{"total":2,"created":1,"failed":1}
		}`, w.Body.String())
	})

	t.Run("list hides hashes", func(t *testing.T) {
		t.Parallel()
		s := newServer(nil)
		s.users.On("List", admin).Return([]otto.User{{ID: 1, Username: "admin", PasswordHash: "$2a$10$hash", Role: otto.RoleAdmin}}, nil).Once()

		w := s.do(t, request{method: http.MethodGet, path: "/api/users", session: "admin-token"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "$2a$10$hash")
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()
		s := newServer(nil)
		s.users.On("Delete", admin, int64(1)).Return(otto.NewError(otto.ErrForbidden, "cannot delete the admin user")).Once()

		w := s.do(t, request{method: http.MethodDelete, path: "/api/users/1", session: "admin-token"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestAudit(t *testing.T) {
	t.Parallel()

	t.Run("list binds query", func(t *testing.T) {
		t.Parallel()
		s := newServer(nil)
		start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		s.audit.On("List", admin, mock.MatchedBy(func(q auditlog.Query) bool {
			return q.Action == "login" && q.Username == "alice" && q.Limit == 50 && q.Offset == 10 &&
				q.Stats && q.Start != nil && q.Start.Equal(start) && q.End == nil
		})).Return(auditlog.Page{
			Logs:  []audit.Event{{ID: 1, Action: "login", Username: "alice", Result: audit.ResultSuccess}},
			Limit: 50, Offset: 10,
			Stats: &audit.Stats{Total: 1},
		}, nil).Once()

		w := s.do(t, request{
			method:  http.MethodGet,
			path:    "/api/audit?action=login&username=alice&limit=50&offset=10&stats=true&start=2026-03-01",
			session: "admin-token",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var got map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Len(t, got["logs"], 1)
		assert.Contains(t, got, "stats")
		s.audit.AssertExpectations(t)
	})

	t.Run("bad limit", func(t *testing.T) {
		t.Parallel()
		s := newServer(nil)
		w := s.do(t, request{method: http.MethodGet, path: "/api/audit?limit=many", session: "admin-token"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("log by user", func(t *testing.T) {
		t.Parallel()
		s := newServer(nil)
		in := auditlog.LogInput{Action: "code:copy", Resource: "account:4"}
		s.audit.On("Log", alice, in).Return(nil).Once()

		w := s.do(t, request{method: http.MethodPost, path: "/api/audit/log", session: "alice-token", body: in})
		assert.Equal(t, http.StatusNoContent, w.Code)
		s.audit.AssertExpectations(t)
	})

	t.Run("cleanup", func(t *testing.T) {
		t.Parallel()
		s := newServer(nil)
		s.audit.On("Cleanup", admin).Return(auditlog.CleanupResult{Deleted: 3}, nil).Once()

		w := s.do(t, request{method: http.MethodPost, path: "/api/audit/cleanup", session: "admin-token"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"deleted":3`)
	})
}

func TestBackup(t *testing.T) {
	t.Parallel()

	t.Run("download", func(t *testing.T) {
		t.Parallel()
		s := newServer(nil)
		s.backup.On("Snapshot", admin).Return(backup.Snapshot{
			Version:   backup.FormatVersion,
			CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			CreatedBy: "admin",
			Accounts:  []backup.AccountRecord{{Account: otto.Account{ID: 1, Label: "ops"}, Secret: "n:t:c"}},
		}, nil).Once()

		w := s.do(t, request{method: http.MethodGet, path: "/api/backup", session: "admin-token"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, backup.ContentType, w.Header().Get("Content-Type"))
		assert.Equal(t, "attachment; filename=otto-backup-20260301T120000Z.json", w.Header().Get("Content-Disposition"))

		var snap map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
		assert.EqualValues(t, 1, snap["version"])
		assert.Contains(t, w.Body.String(), `"secret": "n:t:c"`)
	})

	t.Run("s3 disabled", func(t *testing.T) {
		t.Parallel()
		s := newServer(nil)
		s.backup.On("Upload", admin).Return(blobstore.Object{}, otto.NewError(otto.ErrNotFound, "S3 backup is not configured")).Once()

		w := s.do(t, request{method: http.MethodPost, path: "/api/backup/s3", session: "admin-token"})
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "not_found", errorCode(t, w))
		assert.Contains(t, w.Body.String(), "S3 backup is not configured")
	})

	t.Run("s3 upload", func(t *testing.T) {
		t.Parallel()
		s := newServer(nil)
		s.backup.On("Upload", admin).Return(blobstore.Object{Bucket: "backups", Key: "otto/2026/03/01/x.json", Size: 120}, nil).Once()

		w := s.do(t, request{method: http.MethodPost, path: "/api/backup/s3", session: "admin-token"})
		require.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"bucket":"backups","key":"otto/2026/03/01/x.json","size":120}`, w.Body.String())
	})
}
