package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Dan9191/bank-ledger/internal/models"
)

// FileStore persists users and ledger snapshots as JSON files under a data
// directory: users.json for the user list and transactions_<userID>.json for
// each ledger snapshot. Writes go through a temporary file and a rename so a
// crash mid-write cannot corrupt an existing file.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the data directory if needed and returns the store.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) snapshotPath(userID string) string {
	return filepath.Join(f.dir, "transactions_"+userID+".json")
}

func (f *FileStore) usersPath() string {
	return filepath.Join(f.dir, "users.json")
}

// Load reads the user's snapshot file. A missing file means no snapshot.
func (f *FileStore) Load(userID string) (models.Snapshot, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var snap models.Snapshot
	data, err := os.ReadFile(f.snapshotPath(userID))
	if errors.Is(err, fs.ErrNotExist) {
		return snap, false, nil
	}
	if err != nil {
		return snap, false, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, true, nil
}

// Save writes the user's snapshot file atomically.
func (f *FileStore) Save(userID string, snap models.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return writeJSONFile(f.snapshotPath(userID), snap)
}

// CreateUser appends a user to users.json, rejecting duplicate usernames or
// emails (case-insensitive).
func (f *FileStore) CreateUser(user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	users, err := f.readUsers()
	if err != nil {
		return err
	}
	for _, u := range users {
		if strings.EqualFold(u.Username, user.Username) || strings.EqualFold(u.Email, user.Email) {
			return ErrUserExists
		}
	}
	users = append(users, *user)
	return writeJSONFile(f.usersPath(), users)
}

// FindUserByID returns the user with the given ID.
func (f *FileStore) FindUserByID(id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	users, err := f.readUsers()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}
	return nil, ErrUserNotFound
}

// FindUserByUsername returns the user with the given username.
func (f *FileStore) FindUserByUsername(username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	users, err := f.readUsers()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if strings.EqualFold(users[i].Username, username) {
			return &users[i], nil
		}
	}
	return nil, ErrUserNotFound
}

// UpdateUser replaces the stored user with the same ID.
func (f *FileStore) UpdateUser(user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	users, err := f.readUsers()
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].ID == user.ID {
			users[i] = *user
			return writeJSONFile(f.usersPath(), users)
		}
	}
	return ErrUserNotFound
}

func (f *FileStore) readUsers() ([]models.User, error) {
	data, err := os.ReadFile(f.usersPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}
	var users []models.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users file: %w", err)
	}
	return users, nil
}

// writeJSONFile writes v as indented JSON to path via tmp file + rename.
func writeJSONFile(path string, v any) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	return os.Rename(tmp, path)
}

var _ Store = (*FileStore)(nil)
