package accounts

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/pkg/audit"
	"github.com/dmitrymomot/otto/pkg/logger"
	"github.com/dmitrymomot/otto/pkg/otpauth"
	"github.com/dmitrymomot/otto/pkg/totp"
)

// Ref points at an account by id or by "issuer:label" code.
type Ref struct {
	ID   int64
	Code string
}

// ParseRef builds a Ref from the account_id / account_code request values.
// The id wins when both are present.
func ParseRef(id, code string) (Ref, error) {
	id = strings.TrimSpace(id)
	code = strings.TrimSpace(code)

	switch {
	case id != "":
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil || n <= 0 {
			return Ref{}, otto.Invalid("account_id", "must be a positive integer")
		}
		return Ref{ID: n}, nil
	case code != "":
		return Ref{Code: code}, nil
	}
	return Ref{}, errors.Join(otto.Invalid("account_id", ErrMissingRef.Error()), ErrMissingRef)
}

// CodeResult is a live code for one account.
type CodeResult struct {
	Code          string              `json:"code"`
	TimeRemaining int                 `json:"timeRemaining"`
	Account       otto.AccountSummary `json:"account"`
}

// GetCode resolves ref, checks read access and returns the current code.
func (s *Service) GetCode(ctx context.Context, pr otto.Principal, ref Ref) (CodeResult, error) {
	account, err := s.resolve(ctx, pr, ref)
	if err != nil {
		if errors.Is(err, otto.ErrForbidden) {
			s.audit.Failure(ctx, "totp:generate", audit.WithResource(refResource(ref)))
		}
		return CodeResult{}, err
	}

	code, remaining, err := s.code(ctx, account)
	if err != nil {
		s.audit.Failure(ctx, "totp:generate", audit.WithResource(resource(account.ID)))
		return CodeResult{}, err
	}

	s.audit.Record(ctx, "totp:generate",
		audit.WithResource(resource(account.ID)),
		audit.WithDetails(displayName(account)),
	)
	return CodeResult{Code: code, TimeRemaining: remaining, Account: account.Summary()}, nil
}

func (s *Service) resolve(ctx context.Context, pr otto.Principal, ref Ref) (otto.Account, error) {
	if ref.ID > 0 {
		a, err := s.store.GetAccount(ctx, ref.ID, pr.UserID)
		if err != nil {
			return otto.Account{}, notFound(err)
		}
		if !s.policy.CanRead(pr, a) {
			return otto.Account{}, errAccountForbidden
		}
		return a, nil
	}

	if ref.Code == "" {
		return otto.Account{}, errors.Join(otto.Invalid("account_id", ErrMissingRef.Error()), ErrMissingRef)
	}

	issuer, label, hasIssuer := otpauth.SplitLabel(ref.Code)
	if label == "" {
		return otto.Account{}, otto.Invalid("account_code", "label is empty")
	}
	var issuerFilter *string
	if hasIssuer {
		issuerFilter = &issuer
	}
	matches, err := s.store.FindAccountsByRef(ctx, issuerFilter, label)
	if err != nil {
		return otto.Account{}, err
	}
	if len(matches) == 0 {
		return otto.Account{}, errAccountNotFound
	}
	for _, a := range matches {
		if s.policy.CanRead(pr, a) {
			return a, nil
		}
	}
	return otto.Account{}, errAccountForbidden
}

// code decrypts the secret and derives the current code.
func (s *Service) code(ctx context.Context, a otto.Account) (string, int, error) {
	secret, err := s.reveal(ctx, a)
	if err != nil {
		return "", 0, err
	}
	code, remaining, err := totp.Generate(secret, a.Params(), s.now())
	if err != nil {
		s.log.ErrorContext(ctx, "stored account cannot produce codes",
			logger.AccountID(a.ID),
			logger.Error(err),
		)
		return "", 0, errors.Join(otto.ErrDecryption, err)
	}
	return code, remaining, nil
}

func (s *Service) reveal(ctx context.Context, a otto.Account) (string, error) {
	secret, err := s.cipher.Decrypt(a.Secret)
	if err != nil {
		s.log.ErrorContext(ctx, "secret decryption failed",
			logger.AccountID(a.ID),
			logger.Error(err),
			logger.Event("decrypt_failed"),
		)
		return "", errors.Join(otto.ErrDecryption, err)
	}
	return secret, nil
}

// AccountWithCode is a listing row. Error is "decryption_failed" when the
// row's secret could not be used; Code is empty then.
type AccountWithCode struct {
	otto.Account
	Code          string `json:"code"`
	TimeRemaining int    `json:"timeRemaining"`
	Error         string `json:"error,omitempty"`
}

// ListQuery narrows ListWithCodes.
type ListQuery struct {
	Search string `query:"search"`
	Issuer string `query:"issuer"`
}

// ListWithCodes returns every account pr can read with its current code,
// favorites first and newest first within each group.
func (s *Service) ListWithCodes(ctx context.Context, pr otto.Principal, q ListQuery) ([]AccountWithCode, error) {
	if pr.Username == "" {
		return nil, otto.ErrUnauthorized
	}

	list, err := s.store.ListAccounts(ctx, otto.AccountFilter{
		Viewer:   pr.Username,
		ViewerID: pr.UserID,
		Scope:    otto.ScopeReadable,
		Search:   strings.TrimSpace(q.Search),
		Issuer:   strings.TrimSpace(q.Issuer),
	})
	if err != nil {
		return nil, err
	}

	out := make([]AccountWithCode, 0, len(list))
	for _, a := range list {
		if !s.policy.CanRead(pr, a) {
			continue
		}
		row := AccountWithCode{Account: a}
		if code, remaining, err := s.code(ctx, a); err != nil {
			row.Error = "decryption_failed"
		} else {
			row.Code, row.TimeRemaining = code, remaining
		}
		out = append(out, row)
	}
	return out, nil
}

func notFound(err error) error {
	if errors.Is(err, otto.ErrNotFound) {
		return errors.Join(errAccountNotFound, err)
	}
	return err
}

func resource(id int64) string {
	return "account:" + strconv.FormatInt(id, 10)
}

func refResource(ref Ref) string {
	if ref.ID > 0 {
		return resource(ref.ID)
	}
	return "account:" + ref.Code
}

func displayName(a otto.Account) string {
	if a.Issuer == "" {
		return a.Label
	}
	return a.Issuer + ":" + a.Label
}
