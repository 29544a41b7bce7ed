package storage

import (
	"strings"
	"sync"

	"github.com/Dan9191/bank-ledger/internal/models"
)

// MemoryStore is an in-memory Store implementation, used for tests and for
// running the service without any persistence backend configured.
type MemoryStore struct {
	mu        sync.Mutex
	snapshots map[string]models.Snapshot
	users     map[string]*models.User // keyed by user ID
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]models.Snapshot),
		users:     make(map[string]*models.User),
	}
}

// Load returns the stored snapshot for the user, if any.
func (m *MemoryStore) Load(userID string) (models.Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap, ok := m.snapshots[userID]
	if !ok {
		return models.Snapshot{}, false, nil
	}
	return copySnapshot(snap), true, nil
}

// Save stores the snapshot for the user, replacing any previous one.
func (m *MemoryStore) Save(userID string, snap models.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots[userID] = copySnapshot(snap)
	return nil
}

// CreateUser stores a new user. Usernames and emails must be unique
// (case-insensitive), matching the registration rules of the service.
func (m *MemoryStore) CreateUser(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Username, user.Username) || strings.EqualFold(u.Email, user.Email) {
			return ErrUserExists
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

// FindUserByID returns the user with the given ID.
func (m *MemoryStore) FindUserByID(id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// FindUserByUsername returns the user with the given username.
func (m *MemoryStore) FindUserByUsername(username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

// UpdateUser replaces the stored user with the same ID.
func (m *MemoryStore) UpdateUser(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

// copySnapshot copies the transaction slice so callers cannot alias the
// store's internal state.
func copySnapshot(snap models.Snapshot) models.Snapshot {
	cp := models.Snapshot{Balance: snap.Balance}
	if snap.Transactions != nil {
		cp.Transactions = make([]models.Transaction, len(snap.Transactions))
		copy(cp.Transactions, snap.Transactions)
	}
	return cp
}

var _ Store = (*MemoryStore)(nil)
