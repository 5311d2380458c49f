package accounts_test

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/pkg/audit"
	"github.com/dmitrymomot/otto/pkg/secrets"
	"github.com/dmitrymomot/otto/svc/accounts"
	"github.com/dmitrymomot/otto/svc/policy"
)

// memStore is an in-memory accounts.Store with the same visibility and
// ordering rules as the postgres repository.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	accounts  map[int64]otto.Account
	favorites map[[2]int64]bool
	counters  map[int64]map[otto.Counter]int
}

func newMemStore() *memStore {
	return &memStore{
		accounts:  map[int64]otto.Account{},
		favorites: map[[2]int64]bool{},
		counters:  map[int64]map[otto.Counter]int{},
	}
}

func (m *memStore) put(a otto.Account) otto.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	m.accounts[a.ID] = a
	return a
}

func (m *memStore) CreateAccount(_ context.Context, a otto.Account) (otto.Account, error) {
	return m.put(a), nil
}

func (m *memStore) GetAccount(_ context.Context, id, viewerID int64) (otto.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return otto.Account{}, otto.ErrNotFound
	}
	a.IsFavorite = m.favorites[[2]int64{viewerID, id}]
	return a, nil
}

func (m *memStore) FindAccountsByRef(_ context.Context, issuer *string, label string) ([]otto.Account, error) {
	var out []otto.Account
	for _, a := range m.snapshot() {
		if issuer != nil && !strings.EqualFold(a.Issuer, *issuer) {
			continue
		}
		if strings.EqualFold(a.Label, label) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) ListAccounts(_ context.Context, f otto.AccountFilter) ([]otto.Account, error) {
	var out []otto.Account
	for _, a := range m.snapshot() {
		own := a.CreatedBy == f.Viewer
		switch f.Scope {
		case otto.ScopeTeam:
			if a.Visibility != otto.VisibilityTeam {
				continue
			}
		case otto.ScopePrivate:
			if a.Visibility != otto.VisibilityPrivate || !own {
				continue
			}
		case otto.ScopeOwned:
			if !own {
				continue
			}
		default:
			if a.Visibility != otto.VisibilityTeam && !own {
				continue
			}
		}
		if s := strings.ToLower(f.Search); s != "" &&
			!strings.Contains(strings.ToLower(a.Label), s) &&
			!strings.Contains(strings.ToLower(a.Issuer), s) {
			continue
		}
		if f.Issuer != "" && !strings.Contains(strings.ToLower(a.Issuer), strings.ToLower(f.Issuer)) {
			continue
		}
		m.mu.Lock()
		a.IsFavorite = m.favorites[[2]int64{f.ViewerID, a.ID}]
		m.mu.Unlock()
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b otto.Account) int {
		if a.IsFavorite != b.IsFavorite {
			if a.IsFavorite {
				return -1
			}
			return 1
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (m *memStore) UpdateVisibility(_ context.Context, id int64, v otto.Visibility) (otto.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return otto.Account{}, otto.ErrNotFound
	}
	a.Visibility = v
	m.accounts[id] = a
	return a, nil
}

func (m *memStore) DeleteAccount(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return otto.ErrNotFound
	}
	delete(m.accounts, id)
	return nil
}

func (m *memStore) IncrementCounter(_ context.Context, id int64, c otto.Counter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return otto.ErrNotFound
	}
	if m.counters[id] == nil {
		m.counters[id] = map[otto.Counter]int{}
	}
	m.counters[id][c]++
	return nil
}

func (m *memStore) AddFavorite(_ context.Context, userID, accountID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.favorites[[2]int64{userID, accountID}] = true
	return nil
}

func (m *memStore) RemoveFavorite(_ context.Context, userID, accountID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.favorites, [2]int64{userID, accountID})
	return nil
}

func (m *memStore) snapshot() []otto.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]otto.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b otto.Account) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// recorder collects audit actions; failures get a ":failure" suffix.
type recorder struct {
	mu      sync.Mutex
	actions []string
}

func (r *recorder) Record(_ context.Context, action string, _ ...audit.EventOption) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
}

func (r *recorder) Failure(_ context.Context, action string, _ ...audit.EventOption) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action+":failure")
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.actions)
}

const testSecret = "JBSWY3DPEHPK3PXP"

var (
	now   = time.Date(2026, 3, 1, 12, 0, 10, 0, time.UTC)
	admin = otto.Principal{UserID: 1, Username: "admin", Role: otto.RoleAdmin, Source: otto.SourceSession}
	alice = otto.Principal{UserID: 2, Username: "alice", Role: otto.RoleUser, Source: otto.SourceSession}
	bob   = otto.Principal{UserID: 3, Username: "bob", Role: otto.RoleUser, Source: otto.SourceSession}
)

type fixture struct {
	store  *memStore
	cipher *secrets.Cipher
	audit  *recorder
	svc    *accounts.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key, err := secrets.GenerateKey()
	require.NoError(t, err)
	c, err := secrets.New(key)
	require.NoError(t, err)

	f := &fixture{store: newMemStore(), cipher: c, audit: &recorder{}}
	f.svc = accounts.New(f.store, c, policy.New(),
		accounts.WithAuditor(f.audit),
		accounts.WithClock(func() time.Time { return now }),
		accounts.WithQRSize(64),
	)
	return f
}

// seed stores an account directly, encrypting secret.
func (f *fixture) seed(t *testing.T, owner, issuer, label string, v otto.Visibility) otto.Account {
	t.Helper()
	blob, err := f.cipher.Encrypt(testSecret)
	require.NoError(t, err)
	return f.store.put(otto.Account{
		Label:      label,
		Issuer:     issuer,
		Secret:     blob,
		Algorithm:  "SHA1",
		Digits:     6,
		Period:     30,
		Visibility: v,
		CreatedBy:  owner,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}
