package accounts

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/pkg/audit"
	"github.com/dmitrymomot/otto/svc/policy"
)

const MaxImportItems = 1000

// ImportAccount is one account of a json or yaml import.
type ImportAccount struct {
	Label      string `json:"label" yaml:"label"`
	Issuer     string `json:"issuer" yaml:"issuer"`
	Secret     string `json:"secret" yaml:"secret"`
	Algorithm  string `json:"algorithm" yaml:"algorithm"`
	Digits     int    `json:"digits" yaml:"digits"`
	Period     int    `json:"period" yaml:"period"`
	Visibility string `json:"visibility" yaml:"visibility"`
}

// ImportInput is an import request. Accounts is read for json,
// OTPAuthURIs for otpauth and YAML for yaml (either an export document or a
// plain list of accounts). Visibility is the default for items without one.
type ImportInput struct {
	Format         string          `json:"format"`
	Accounts       []ImportAccount `json:"accounts"`
	OTPAuthURIs    []string        `json:"otpauth_uris"`
	YAML           string          `json:"yaml"`
	SkipDuplicates bool            `json:"skip_duplicates"`
	Visibility     string          `json:"visibility"`
}

type ImportStatus string

const (
	ImportSuccess ImportStatus = "success"
	ImportSkipped ImportStatus = "skipped"
	ImportError   ImportStatus = "error"
)

type ImportItem struct {
	Label  string       `json:"label"`
	Issuer string       `json:"issuer,omitempty"`
	Status ImportStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

type ImportSummary struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type ImportResult struct {
	Results []ImportItem  `json:"results"`
	Summary ImportSummary `json:"summary"`
}

func (r *ImportResult) add(item ImportItem) {
	r.Results = append(r.Results, item)
	r.Summary.Total++
	switch item.Status {
	case ImportSuccess:
		r.Summary.Success++
	case ImportSkipped:
		r.Summary.Skipped++
	default:
		r.Summary.Failed++
	}
}

// Import creates accounts from a backup. Items are processed independently;
// one failing item does not stop the others. Duplicates are accounts of the
// importing principal with the same issuer and label, compared case-folded.
func (s *Service) Import(ctx context.Context, pr otto.Principal, in ImportInput) (ImportResult, error) {
	if err := s.policy.Require(pr, policy.AccountsImport); err != nil {
		return ImportResult{}, err
	}

	format, err := ParseFormat(in.Format, FormatJSON, FormatOTPAuth, FormatYAML)
	if err != nil {
		return ImportResult{}, err
	}
	if _, err := otto.ParseVisibility(in.Visibility); err != nil {
		return ImportResult{}, err
	}

	result := ImportResult{Results: []ImportItem{}}
	items, err := s.importItems(format, in, &result)
	if err != nil {
		return ImportResult{}, err
	}
	if len(items)+len(result.Results) > MaxImportItems {
		return ImportResult{}, otto.Invalid("accounts", "at most "+strconv.Itoa(MaxImportItems)+" accounts per import")
	}

	owned, err := s.store.ListAccounts(ctx, otto.AccountFilter{
		Viewer:   pr.Username,
		ViewerID: pr.UserID,
		Scope:    otto.ScopeOwned,
	})
	if err != nil {
		return ImportResult{}, err
	}
	seen := make(map[string]bool, len(owned))
	for _, a := range owned {
		seen[dupKey(a.Issuer, a.Label)] = true
	}

	for _, it := range items {
		item := ImportItem{Label: strings.TrimSpace(it.Label), Issuer: strings.TrimSpace(it.Issuer)}
		if item.Label == "" {
			item.Label = "(no label)"
		}

		if it.Visibility == "" {
			it.Visibility = in.Visibility
		}
		a, err := CreateInput{
			Label:      it.Label,
			Issuer:     it.Issuer,
			Secret:     it.Secret,
			Algorithm:  it.Algorithm,
			Digits:     it.Digits,
			Period:     it.Period,
			Visibility: it.Visibility,
		}.normalize()
		if err != nil {
			item.Status, item.Error = ImportError, err.Error()
			result.add(item)
			continue
		}

		key := dupKey(a.Issuer, a.Label)
		if seen[key] {
			item.Error = "account already exists"
			item.Status = ImportError
			if in.SkipDuplicates {
				item.Status = ImportSkipped
			}
			result.add(item)
			continue
		}

		if _, err := s.create(ctx, pr, a); err != nil {
			item.Status, item.Error = ImportError, importError(err)
			result.add(item)
			continue
		}
		seen[key] = true
		item.Status = ImportSuccess
		result.add(item)
	}

	s.audit.Record(ctx, "accounts:import",
		audit.WithResource("accounts"),
		audit.WithDetails("format="+string(format)+
			" success="+strconv.Itoa(result.Summary.Success)+
			" skipped="+strconv.Itoa(result.Summary.Skipped)+
			" failed="+strconv.Itoa(result.Summary.Failed)),
	)
	return result, nil
}

// importItems decodes the payload of format. URIs that fail to parse are
// recorded in result directly.
func (s *Service) importItems(format Format, in ImportInput, result *ImportResult) ([]ImportAccount, error) {
	switch format {
	case FormatJSON:
		if len(in.Accounts) == 0 {
			return nil, otto.Invalid("accounts", "must contain at least one account")
		}
		return in.Accounts, nil

	case FormatOTPAuth:
		if len(in.OTPAuthURIs) == 0 {
			return nil, otto.Invalid("otpauth_uris", "must contain at least one URI")
		}
		if len(in.OTPAuthURIs) > MaxImportItems {
			return nil, otto.Invalid("otpauth_uris", "at most "+strconv.Itoa(MaxImportItems)+" URIs per import")
		}
		items := make([]ImportAccount, 0, len(in.OTPAuthURIs))
		for _, uri := range in.OTPAuthURIs {
			key, err := ParseURI(uri)
			if err != nil {
				result.add(ImportItem{Label: truncate(uri, 50), Status: ImportError, Error: "failed to parse otpauth URI"})
				continue
			}
			items = append(items, ImportAccount{
				Label:     key.Label,
				Issuer:    key.Issuer,
				Secret:    key.Secret,
				Algorithm: key.Algorithm.String(),
				Digits:    key.Digits,
				Period:    key.Period,
			})
		}
		return items, nil

	case FormatYAML:
		items, err := decodeYAML(in.YAML)
		if err != nil {
			return nil, errors.Join(otto.Invalid("yaml", "is not a valid account list"), err)
		}
		if len(items) == 0 {
			return nil, otto.Invalid("yaml", "must contain at least one account")
		}
		return items, nil
	}
	return nil, ErrUnsupportedFormat
}

func decodeYAML(doc string) ([]ImportAccount, error) {
	var wrapped struct {
		Accounts []ImportAccount `yaml:"accounts"`
	}
	if err := yaml.Unmarshal([]byte(doc), &wrapped); err == nil && len(wrapped.Accounts) > 0 {
		return wrapped.Accounts, nil
	}

	var list []ImportAccount
	if err := yaml.Unmarshal([]byte(doc), &list); err != nil {
		return nil, err
	}
	return list, nil
}

func dupKey(issuer, label string) string {
	return fold(issuer) + "\x00" + fold(label)
}

func importError(err error) string {
	if otto.IsValidation(err) {
		return err.Error()
	}
	return "failed to store account"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
