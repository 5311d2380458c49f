package accounts

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/pkg/audit"
	"github.com/dmitrymomot/otto/pkg/otpauth"
	"github.com/dmitrymomot/otto/pkg/totp"
	"github.com/dmitrymomot/otto/svc/policy"
)

// Format is an export or import encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
	FormatOTPAuth Format = "otpauth"
	FormatYAML    Format = "yaml"
)

// ParseFormat accepts one of allowed; empty input yields the first one.
func ParseFormat(s string, allowed ...Format) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" && len(allowed) > 0 {
		return allowed[0], nil
	}
	for _, a := range allowed {
		if f == a {
			return f, nil
		}
	}
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return "", otto.Invalid("format", "must be one of "+strings.Join(names, ", "))
}

// ExportInput selects what to export.
type ExportInput struct {
	Format         string `query:"format"`
	Filter         string `query:"filter"`
	IncludeSecrets bool   `query:"include_secrets"`
}

// ExportedAccount is one account in a json or yaml export.
type ExportedAccount struct {
	ID         int64           `json:"id" yaml:"id"`
	Label      string          `json:"label" yaml:"label"`
	Issuer     string          `json:"issuer" yaml:"issuer"`
	Secret     string          `json:"secret,omitempty" yaml:"secret,omitempty"`
	Algorithm  totp.Algorithm  `json:"algorithm" yaml:"algorithm"`
	Digits     int             `json:"digits" yaml:"digits"`
	Period     int             `json:"period" yaml:"period"`
	Visibility otto.Visibility `json:"visibility" yaml:"visibility"`
	CreatedBy  string          `json:"created_by" yaml:"created_by"`
	CreatedAt  time.Time       `json:"created_at" yaml:"created_at"`
}

// ExportMeta describes an export.
type ExportMeta struct {
	Format     Format            `json:"format" yaml:"format"`
	Filter     otto.AccountScope `json:"filter" yaml:"filter"`
	ExportedAt time.Time         `json:"exported_at" yaml:"exported_at"`
	Total      int               `json:"total" yaml:"total"`
	Skipped    int               `json:"skipped" yaml:"skipped"`
}

// Export is the result of Service.Export. Accounts is filled for json, csv
// and yaml; URLs for otpauth.
type Export struct {
	ExportMeta
	IncludeSecrets bool
	Accounts       []ExportedAccount
	URLs           []string
}

type accountsDocument struct {
	ExportMeta `yaml:",inline"`
	Accounts   []ExportedAccount `json:"accounts" yaml:"accounts"`
}

type urlsDocument struct {
	ExportMeta `yaml:",inline"`
	URLs       []string `json:"urls" yaml:"urls"`
}

// Document is the json / yaml body of the export.
func (e Export) Document() any {
	if e.Format == FormatOTPAuth {
		return urlsDocument{ExportMeta: e.ExportMeta, URLs: nonNil(e.URLs)}
	}
	return accountsDocument{ExportMeta: e.ExportMeta, Accounts: nonNil(e.Accounts)}
}

// YAML encodes Document as YAML.
func (e Export) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(e.Document()); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CSV encodes the accounts with the header
// id,label,issuer[,secret],algorithm,digits,period,visibility,created_by.
// Label and issuer are always quoted.
func (e Export) CSV() []byte {
	var b strings.Builder
	if e.IncludeSecrets {
		b.WriteString("id,label,issuer,secret,algorithm,digits,period,visibility,created_by\n")
	} else {
		b.WriteString("id,label,issuer,algorithm,digits,period,visibility,created_by\n")
	}

	for _, a := range e.Accounts {
		fields := []string{strconv.FormatInt(a.ID, 10), quote(a.Label), quote(a.Issuer)}
		if e.IncludeSecrets {
			fields = append(fields, a.Secret)
		}
		fields = append(fields,
			a.Algorithm.String(),
			strconv.Itoa(a.Digits),
			strconv.Itoa(a.Period),
			string(a.Visibility),
			a.CreatedBy,
		)
		b.WriteString(strings.Join(fields, ","))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// Filename is a download name for the export.
func (e Export) Filename() string {
	ext := string(e.Format)
	if e.Format == FormatOTPAuth {
		ext = "json"
	}
	return "otto-export-" + e.ExportedAt.Format("2006-01-02") + "." + ext
}

// Export collects accounts for backup or migration. Secrets are decrypted
// when requested and always for otpauth, which is meaningless without them;
// accounts whose secret cannot be decrypted are skipped and counted.
func (s *Service) Export(ctx context.Context, pr otto.Principal, in ExportInput) (Export, error) {
	if err := s.policy.Require(pr, policy.AccountsExport); err != nil {
		return Export{}, err
	}

	format, err := ParseFormat(in.Format, FormatJSON, FormatCSV, FormatOTPAuth, FormatYAML)
	if err != nil {
		return Export{}, err
	}
	scope, err := otto.ParseAccountScope(in.Filter)
	if err != nil {
		return Export{}, err
	}

	list, err := s.store.ListAccounts(ctx, otto.AccountFilter{
		Viewer:   pr.Username,
		ViewerID: pr.UserID,
		Scope:    scope,
	})
	if err != nil {
		return Export{}, err
	}

	withSecrets := in.IncludeSecrets || format == FormatOTPAuth
	out := Export{
		ExportMeta:     ExportMeta{Format: format, Filter: scope, ExportedAt: s.now().UTC()},
		IncludeSecrets: withSecrets,
	}

	for _, a := range list {
		var secret string
		if withSecrets {
			if secret, err = s.reveal(ctx, a); err != nil {
				out.Skipped++
				continue
			}
		}

		if format == FormatOTPAuth {
			uri, err := otpauth.Build(keyOf(a, secret))
			if err != nil {
				out.Skipped++
				continue
			}
			out.URLs = append(out.URLs, uri)
			continue
		}

		out.Accounts = append(out.Accounts, ExportedAccount{
			ID:         a.ID,
			Label:      a.Label,
			Issuer:     a.Issuer,
			Secret:     secret,
			Algorithm:  a.Algorithm,
			Digits:     a.Digits,
			Period:     a.Period,
			Visibility: a.Visibility,
			CreatedBy:  a.CreatedBy,
			CreatedAt:  a.CreatedAt,
		})
	}
	out.Total = len(out.Accounts) + len(out.URLs)

	s.audit.Record(ctx, "accounts:export",
		audit.WithResource("accounts"),
		audit.WithDetails("format="+string(format)+" filter="+string(scope)+
			" total="+strconv.Itoa(out.Total)+" secrets="+strconv.FormatBool(withSecrets)),
	)
	return out, nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
