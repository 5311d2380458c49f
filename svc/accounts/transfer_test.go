package accounts_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/svc/accounts"
)

func TestExport_RequiresPermission(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.Export(context.Background(), alice, accounts.ExportInput{})
	require.ErrorIs(t, err, otto.ErrForbidden)

	_, err = f.svc.Export(context.Background(), admin, accounts.ExportInput{Format: "xml"})
	require.True(t, otto.IsValidation(err))

	_, err = f.svc.Export(context.Background(), admin, accounts.ExportInput{Filter: "everyone"})
	require.True(t, otto.IsValidation(err))
}

func TestExport_JSON(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed(t, "admin", "google", "ops", otto.VisibilityTeam)
	f.seed(t, "admin", "aws", "root", otto.VisibilityPrivate)
	f.seed(t, "alice", "github", "alice", otto.VisibilityPrivate)

	out, err := f.svc.Export(context.Background(), admin, accounts.ExportInput{})
	require.NoError(t, err)
	assert.Equal(t, accounts.FormatJSON, out.Format)
	assert.Equal(t, otto.ScopeReadable, out.Filter)
	assert.Equal(t, 2, out.Total)
	assert.Equal(t, now, out.ExportedAt)
	for _, a := range out.Accounts {
		assert.Empty(t, a.Secret)
	}

	body, err := json.Marshal(out.Document())
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Contains(t, doc, "accounts")
	assert.Contains(t, doc, "exported_at")
	assert.NotContains(t, doc, "urls")
	assert.EqualValues(t, 2, doc["total"])

	team, err := f.svc.Export(context.Background(), admin, accounts.ExportInput{Filter: "team", IncludeSecrets: true})
	require.NoError(t, err)
	require.Len(t, team.Accounts, 1)
	assert.Equal(t, "ops", team.Accounts[0].Label)
	assert.Equal(t, testSecret, team.Accounts[0].Secret)
	assert.Equal(t, []string{"accounts:export", "accounts:export"}, f.audit.all())
}

func TestExport_CSV(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed(t, "admin", `Big "Corp"`, "ops, eu", otto.VisibilityTeam)

	plain, err := f.svc.Export(context.Background(), admin, accounts.ExportInput{Format: "csv"})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(plain.CSV())), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,label,issuer,algorithm,digits,period,visibility,created_by", lines[0])
	assert.Equal(t, `1,"ops, eu","Big ""Corp""",SHA1,6,30,team,admin`, lines[1])

	withSecrets, err := f.svc.Export(context.Background(), admin, accounts.ExportInput{Format: "CSV", IncludeSecrets: true})
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(string(withSecrets.CSV())), "\n")
	assert.Equal(t, "id,label,issuer,secret,algorithm,digits,period,visibility,created_by", lines[0])
	assert.Contains(t, lines[1], ","+testSecret+",")
	assert.Equal(t, "otto-export-2026-03-01.csv", withSecrets.Filename())
}

func TestExport_OTPAuthSkipsUndecryptable(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed(t, "admin", "google", "ops", otto.VisibilityTeam)
	broken := f.seed(t, "admin", "aws", "root", otto.VisibilityTeam)
	broken.Secret = "garbage"
	f.store.accounts[broken.ID] = broken

	out, err := f.svc.Export(context.Background(), admin, accounts.ExportInput{Format: "otpauth"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Total)
	assert.Equal(t, 1, out.Skipped)
	require.Len(t, out.URLs, 1)
	assert.True(t, strings.HasPrefix(out.URLs[0], "otpauth://totp/google:ops?secret="+testSecret))
	assert.Empty(t, out.Accounts)
	assert.Equal(t, "otto-export-2026-03-01.json", out.Filename())
}

func TestExport_YAMLRoundTripsThroughImport(t *testing.T) {
	t.Parallel()
	src := newFixture(t)
	src.seed(t, "admin", "google", "ops", otto.VisibilityTeam)
	src.seed(t, "admin", "aws", "root", otto.VisibilityPrivate)

	out, err := src.svc.Export(context.Background(), admin, accounts.ExportInput{Format: "yaml", IncludeSecrets: true})
	require.NoError(t, err)
	body, err := out.YAML()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(body, &doc))
	assert.Equal(t, "yaml", doc["format"])
	assert.Contains(t, doc, "accounts")

	dst := newFixture(t)
	res, err := dst.svc.Import(context.Background(), admin, accounts.ImportInput{Format: "yaml", YAML: string(body)})
	require.NoError(t, err)
	assert.Equal(t, accounts.ImportSummary{Total: 2, Success: 2}, res.Summary)

	list, err := dst.svc.ListWithCodes(context.Background(), admin, accounts.ListQuery{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, row := range list {
		assert.Len(t, row.Code, 6)
	}
}

func TestImport_JSON(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seed(t, "admin", "Google", "ops", otto.VisibilityTeam)

	in := accounts.ImportInput{
		Format: "json",
		Accounts: []accounts.ImportAccount{
			{Label: "OPS", Issuer: "google", Secret: testSecret},
			{Label: "root", Issuer: "aws", Secret: testSecret, Visibility: "private"},
			{Label: "", Secret: testSecret},
			{Label: "bad", Secret: "!!"},
			{Label: "root", Issuer: "AWS", Secret: testSecret},
		},
	}

	t.Run("reports duplicates as errors", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "admin", "Google", "ops", otto.VisibilityTeam)
		res, err := f.svc.Import(context.Background(), admin, in)
		require.NoError(t, err)
		assert.Equal(t, accounts.ImportSummary{Total: 5, Success: 1, Failed: 4}, res.Summary)
		assert.Equal(t, accounts.ImportError, res.Results[0].Status)
		assert.Equal(t, "account already exists", res.Results[0].Error)
	})

	res, err := f.svc.Import(context.Background(), admin, func() accounts.ImportInput {
		in := in
		in.SkipDuplicates = true
		return in
	}())
	require.NoError(t, err)
	assert.Equal(t, accounts.ImportSummary{Total: 5, Success: 1, Skipped: 2, Failed: 2}, res.Summary)

	statuses := make([]accounts.ImportStatus, len(res.Results))
	for i, r := range res.Results {
		statuses[i] = r.Status
	}
	assert.Equal(t, []accounts.ImportStatus{
		accounts.ImportSkipped,
		accounts.ImportSuccess,
		accounts.ImportError,
		accounts.ImportError,
		accounts.ImportSkipped,
	}, statuses)
	assert.Equal(t, "(no label)", res.Results[2].Label)

	owned, err := f.store.ListAccounts(context.Background(), otto.AccountFilter{Viewer: "admin", Scope: otto.ScopeOwned})
	require.NoError(t, err)
	assert.Len(t, owned, 2)
	assert.Contains(t, f.audit.all(), "accounts:import")
}

func TestImport_VisibilityDefaults(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.Import(context.Background(), admin, accounts.ImportInput{
		Visibility: "private",
		Accounts: []accounts.ImportAccount{
			{Label: "a", Secret: testSecret},
			{Label: "b", Secret: testSecret, Visibility: "team"},
		},
	})
	require.NoError(t, err)

	_, err = f.svc.Import(context.Background(), alice, accounts.ImportInput{
		Accounts: []accounts.ImportAccount{{Label: "c", Secret: testSecret, Visibility: "team"}},
	})
	require.ErrorIs(t, err, otto.ErrForbidden)

	byLabel := map[string]otto.Visibility{}
	for _, a := range f.store.snapshot() {
		byLabel[a.Label] = a.Visibility
	}
	assert.Equal(t, map[string]otto.Visibility{"a": otto.VisibilityPrivate, "b": otto.VisibilityTeam}, byLabel)
}

func TestImport_OTPAuth(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	bad := "otpauth://hotp/Example:this-label-is-long-enough-to-be-truncated@example.com?secret=" + testSecret
	res, err := f.svc.Import(context.Background(), admin, accounts.ImportInput{
		Format: "otpauth",
		OTPAuthURIs: []string{
			"otpauth://totp/Example:alice@example.com?secret=" + testSecret + "&issuer=Example",
			bad,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, accounts.ImportSummary{Total: 2, Success: 1, Failed: 1}, res.Summary)

	var failed accounts.ImportItem
	for _, r := range res.Results {
		if r.Status == accounts.ImportError {
			failed = r
		}
	}
	assert.Equal(t, bad[:50], failed.Label)
	assert.Equal(t, "failed to parse otpauth URI", failed.Error)
}

func TestImport_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	tests := []struct {
		name string
		in   accounts.ImportInput
	}{
		{name: "unknown format", in: accounts.ImportInput{Format: "csv"}},
		{name: "no accounts", in: accounts.ImportInput{Format: "json"}},
		{name: "no uris", in: accounts.ImportInput{Format: "otpauth"}},
		{name: "bad yaml", in: accounts.ImportInput{Format: "yaml", YAML: "accounts: [unclosed"}},
		{name: "bad visibility", in: accounts.ImportInput{Visibility: "public"}},
		{name: "too many", in: accounts.ImportInput{Accounts: make([]accounts.ImportAccount, accounts.MaxImportItems+1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := f.svc.Import(context.Background(), admin, tt.in)
			require.Error(t, err)
			assert.True(t, otto.IsValidation(err), err.Error())
		})
	}
}
