package otto_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/pkg/validator"
)

func TestParseRole(t *testing.T) {
	t.Parallel()

	r, err := otto.ParseRole("Admin")
	require.NoError(t, err)
	assert.Equal(t, otto.RoleAdmin, r)

	_, err = otto.ParseRole("viewer")
	require.Error(t, err)
	assert.True(t, otto.IsValidation(err))
}

func TestParseVisibility(t *testing.T) {
	t.Parallel()

	v, err := otto.ParseVisibility("")
	require.NoError(t, err)
	assert.Empty(t, v)

	v, err = otto.ParseVisibility(" PRIVATE ")
	require.NoError(t, err)
	assert.Equal(t, otto.VisibilityPrivate, v)

	_, err = otto.ParseVisibility("public")
	assert.True(t, otto.IsValidation(err))
}

func TestAPIKey_Expired(t *testing.T) {
	t.Parallel()
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.False(t, otto.APIKey{}.Expired(now))
	assert.True(t, otto.APIKey{ExpiresAt: &past}.Expired(now))
	assert.True(t, otto.APIKey{ExpiresAt: &now}.Expired(now))
	assert.False(t, otto.APIKey{ExpiresAt: &future}.Expired(now))
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	ve := otto.Invalid("secret", "must be base32")
	ve.Add("digits", "must be between 6 and 8")

	assert.True(t, ve.Has("secret"))
	assert.Equal(t, "must be base32", ve.Get("secret"))
	assert.Equal(t, "validation error: digits: must be between 6 and 8, secret: must be base32", ve.Error())

	wrapped := errors.Join(errors.New("create account"), ve)
	assert.True(t, otto.IsValidation(wrapped))

	assert.NoError(t, otto.ValidationError{}.Err())
}

func TestPrincipalContext(t *testing.T) {
	t.Parallel()

	_, ok := otto.PrincipalFromContext(context.Background())
	assert.False(t, ok)

	p := otto.Principal{UserID: 7, Username: "alice", Role: otto.RoleUser, Source: otto.SourceSession}
	ctx := otto.WithPrincipal(context.Background(), p)

	got, ok := otto.PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, p, got)

	name, ok := otto.UsernameFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "alice", name)
}

func TestAccount_Summary(t *testing.T) {
	t.Parallel()
	a := otto.Account{ID: 3, Label: "user@example.com", Issuer: "google", Secret: "blob"}
	assert.Equal(t, otto.AccountSummary{ID: 3, Label: "user@example.com", Issuer: "google"}, a.Summary())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, otto.Validate(validator.Required("label", "x")))

	err := otto.Validate(
		validator.Required("label", ""),
		validator.Between("digits", 10, 6, 8),
	)
	require.Error(t, err)
	assert.True(t, otto.IsValidation(err))

	var ve otto.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.Has("label"))
	assert.Equal(t, "must be between 6 and 8", ve.Get("digits"))
}

func TestNewError(t *testing.T) {
	t.Parallel()

	err := errors.Join(otto.NewError(otto.ErrNotFound, "account not found"), errors.New("no rows in result set"))

	require.ErrorIs(t, err, otto.ErrNotFound)
	msg, ok := otto.PublicMessage(err)
	require.True(t, ok)
	assert.Equal(t, "account not found", msg)

	_, ok = otto.PublicMessage(otto.ErrForbidden)
	assert.False(t, ok)
}

func TestParseAccountScope(t *testing.T) {
	t.Parallel()

	sc, err := otto.ParseAccountScope("")
	require.NoError(t, err)
	assert.Equal(t, otto.ScopeReadable, sc)

	sc, err = otto.ParseAccountScope(" Team ")
	require.NoError(t, err)
	assert.Equal(t, otto.ScopeTeam, sc)

	_, err = otto.ParseAccountScope("owned")
	require.True(t, otto.IsValidation(err))
}
