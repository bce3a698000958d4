package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/medcore/hms/internal/platform/db"
	"github.com/medcore/hms/pkg/ident"
)

func init() {
	hashCost = bcrypt.MinCost
}

const testSecret = "test-secret-key-that-is-long-enough-32"

type mockAccountRepo struct {
	mu    sync.Mutex
	store map[string]*Account
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{store: make(map[string]*Account)}
}

func (m *mockAccountRepo) Create(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.store {
		if existing.Email == a.Email {
			return ErrDuplicateEmail
		}
	}
	a.ID = ident.New(ident.PrefixAccount)
	a.CreatedAt = time.Now()
	m.store[a.ID] = a
	return nil
}

func (m *mockAccountRepo) GetByID(_ context.Context, id string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.store[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return a, nil
}

func (m *mockAccountRepo) GetByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(email)
	for _, a := range m.store {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *mockAccountRepo) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store), nil
}

func newTestService() (*Service, *TokenManager) {
	tm := NewTokenManager(testSecret, "hms-test", time.Hour)
	return NewService(newMockAccountRepo(), tm), tm
}
