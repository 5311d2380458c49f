package apikey_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/svc/apikey"
	"github.com/dmitrymomot/otto/svc/policy"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateAPIKey(ctx context.Context, key otto.APIKey) (otto.APIKey, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(otto.APIKey), args.Error(1)
}

func (m *MockStore) FindAPIKey(ctx context.Context, raw string) (otto.KeyOwner, error) {
	args := m.Called(ctx, raw)
	return args.Get(0).(otto.KeyOwner), args.Error(1)
}

func (m *MockStore) TouchAPIKey(ctx context.Context, id int64, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockStore) ListAPIKeys(ctx context.Context, userID int64) ([]otto.APIKey, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]otto.APIKey), args.Error(1)
}

func (m *MockStore) DeleteAPIKey(ctx context.Context, id, userID int64) error {
	return m.Called(ctx, id, userID).Error(0)
}

func (m *MockStore) SetAPIKeyActive(ctx context.Context, id, userID int64, active bool) (otto.APIKey, error) {
	args := m.Called(ctx, id, userID, active)
	return args.Get(0).(otto.APIKey), args.Error(1)
}

var (
	now   = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	admin = otto.Principal{UserID: 1, Username: "admin", Role: otto.RoleAdmin, Source: otto.SourceSession}
	alice = otto.Principal{UserID: 2, Username: "alice", Role: otto.RoleUser, Source: otto.SourceSession}
)

func newService(store apikey.Store) *apikey.Service {
	return apikey.New(store, policy.New(), apikey.WithClock(func() time.Time { return now }))
}

func mustKey(t *testing.T) string {
	t.Helper()
	raw, err := apikey.Generate()
	require.NoError(t, err)
	return raw
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	a := mustKey(t)
	b := mustKey(t)

	assert.True(t, strings.HasPrefix(a, apikey.Prefix))
	assert.Len(t, a, len(apikey.Prefix)+32)
	assert.NotEqual(t, a, b)
	assert.True(t, apikey.WellFormed(a))
	assert.False(t, apikey.WellFormed("otto_xyz"))
	assert.False(t, apikey.WellFormed(strings.Replace(a, "otto_", "key_", 1)))
	assert.False(t, apikey.WellFormed(a[:len(a)-1]+"z"))
}

func TestVerify(t *testing.T) {
	t.Parallel()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name    string
		owner   otto.KeyOwner
		findErr error
		wantErr error
	}{
		{
			name:  "active admin key",
			owner: otto.KeyOwner{Key: otto.APIKey{ID: 5, UserID: 1, IsActive: true, ExpiresAt: &future}, Username: "admin", Role: otto.RoleAdmin, UserAlive: true},
		},
		{
			name:    "unknown key",
			findErr: otto.ErrNotFound,
			wantErr: otto.ErrUnauthorized,
		},
		{
			name:    "expired key even though active",
			owner:   otto.KeyOwner{Key: otto.APIKey{ID: 5, UserID: 1, IsActive: true, ExpiresAt: &past}, Username: "admin", Role: otto.RoleAdmin, UserAlive: true},
			wantErr: apikey.ErrKeyExpired,
		},
		{
			name:    "inactive key",
			owner:   otto.KeyOwner{Key: otto.APIKey{ID: 5, UserID: 1}, Username: "admin", Role: otto.RoleAdmin, UserAlive: true},
			wantErr: apikey.ErrKeyInactive,
		},
		{
			name:    "inactive owner",
			owner:   otto.KeyOwner{Key: otto.APIKey{ID: 5, UserID: 1, IsActive: true}, Username: "admin", Role: otto.RoleAdmin},
			wantErr: apikey.ErrOwnerBlocked,
		},
		{
			name:    "non admin owner",
			owner:   otto.KeyOwner{Key: otto.APIKey{ID: 5, UserID: 2, IsActive: true}, Username: "alice", Role: otto.RoleUser, UserAlive: true},
			wantErr: apikey.ErrOwnerBlocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			raw := mustKey(t)
			store := &MockStore{}
			store.On("FindAPIKey", mock.Anything, raw).Return(tt.owner, tt.findErr)
			if tt.wantErr == nil {
				store.On("TouchAPIKey", mock.Anything, int64(5), now).Return(nil)
			}

			pr, err := newService(store).Verify(context.Background(), raw)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, otto.ErrUnauthorized)
				require.ErrorIs(t, err, tt.wantErr)
				store.AssertNotCalled(t, "TouchAPIKey", mock.Anything, mock.Anything, mock.Anything)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, otto.Principal{UserID: 1, Username: "admin", Role: otto.RoleAdmin, Source: otto.SourceAPIKey}, pr)
			store.AssertExpectations(t)
		})
	}
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	store := &MockStore{}
	_, err := newService(store).Verify(context.Background(), "Bearer nope")
	require.ErrorIs(t, err, otto.ErrUnauthorized)
	require.ErrorIs(t, err, apikey.ErrMalformedKey)
	store.AssertNotCalled(t, "FindAPIKey", mock.Anything, mock.Anything)
}

func TestVerify_TouchFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	raw := mustKey(t)
	store := &MockStore{}
	store.On("FindAPIKey", mock.Anything, raw).Return(otto.KeyOwner{
		Key: otto.APIKey{ID: 9, UserID: 1, IsActive: true}, Username: "admin", Role: otto.RoleAdmin, UserAlive: true,
	}, nil)
	store.On("TouchAPIKey", mock.Anything, int64(9), now).Return(errors.New("db down"))

	pr, err := newService(store).Verify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "admin", pr.Username)
}

func TestVerify_StoreError(t *testing.T) {
	t.Parallel()

	raw := mustKey(t)
	boom := errors.New("db down")
	store := &MockStore{}
	store.On("FindAPIKey", mock.Anything, raw).Return(otto.KeyOwner{}, boom)

	_, err := newService(store).Verify(context.Background(), raw)
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, otto.ErrUnauthorized)
}

func TestCreate(t *testing.T) {
	t.Parallel()

	store := &MockStore{}
	store.On("CreateAPIKey", mock.Anything, mock.MatchedBy(func(k otto.APIKey) bool {
		return k.UserID == 1 && k.Name == "ci" && k.IsActive && apikey.WellFormed(k.Key) &&
			k.ExpiresAt != nil && k.ExpiresAt.Equal(now.AddDate(0, 0, 30))
	})).Return(otto.APIKey{ID: 3, UserID: 1, Name: "ci", IsActive: true}, nil)

	issued, err := newService(store).Create(context.Background(), admin, apikey.CreateInput{Name: " ci ", ExpiresInDays: 30})
	require.NoError(t, err)
	assert.Equal(t, int64(3), issued.ID)
	assert.True(t, apikey.WellFormed(issued.Token))
	store.AssertExpectations(t)
}

func TestCreate_Validation(t *testing.T) {
	t.Parallel()

	svc := newService(&MockStore{})

	_, err := svc.Create(context.Background(), admin, apikey.CreateInput{})
	require.True(t, otto.IsValidation(err))

	_, err = svc.Create(context.Background(), admin, apikey.CreateInput{Name: "ci", ExpiresInDays: 400})
	var ve otto.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.Has("expires_in_days"))
}

func TestCreate_UserRoleForbidden(t *testing.T) {
	t.Parallel()

	_, err := newService(&MockStore{}).Create(context.Background(), alice, apikey.CreateInput{Name: "mine"})
	require.ErrorIs(t, err, otto.ErrForbidden)
}

func TestRevokeAndToggle(t *testing.T) {
	t.Parallel()

	store := &MockStore{}
	store.On("DeleteAPIKey", mock.Anything, int64(4), int64(1)).Return(nil)
	store.On("DeleteAPIKey", mock.Anything, int64(5), int64(1)).Return(otto.ErrNotFound)
	store.On("SetAPIKeyActive", mock.Anything, int64(4), int64(1), false).Return(otto.APIKey{ID: 4}, nil)
	store.On("ListAPIKeys", mock.Anything, int64(1)).Return([]otto.APIKey{{ID: 4}}, nil)

	svc := newService(store)
	ctx := context.Background()

	require.NoError(t, svc.Revoke(ctx, admin, 4))
	require.ErrorIs(t, svc.Revoke(ctx, admin, 5), otto.ErrNotFound)

	key, err := svc.SetActive(ctx, admin, 4, false)
	require.NoError(t, err)
	assert.Equal(t, int64(4), key.ID)

	keys, err := svc.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	require.ErrorIs(t, svc.Revoke(ctx, alice, 4), otto.ErrForbidden)
	store.AssertExpectations(t)
}
