package storage

import (
	"errors"

	"github.com/Dan9191/bank-ledger/internal/models"
)

var (
	// ErrUserNotFound indicates that no user matches the given key.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists indicates that the username or email is already taken.
	ErrUserExists = errors.New("username or email already taken")
)

// SnapshotStore persists one ledger snapshot per user. A missing snapshot is
// reported through the boolean, not as an error.
type SnapshotStore interface {
	Load(userID string) (models.Snapshot, bool, error)
	Save(userID string, snap models.Snapshot) error
}

// UserStore persists registered users.
type UserStore interface {
	CreateUser(user *models.User) error
	FindUserByID(id string) (*models.User, error)
	FindUserByUsername(username string) (*models.User, error)
	UpdateUser(user *models.User) error
}

// Store is the full persistence surface a backend must provide.
type Store interface {
	SnapshotStore
	UserStore
}
