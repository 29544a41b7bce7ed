package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/lib/pq"
)

// uniqueViolation is the postgres error code for unique constraint failures.
const uniqueViolation = "23505"

// PostgresStore is a Store backed by postgres. Ledger snapshots are kept as
// one jsonb document per user, matching the opaque snapshot shape used by the
// other backends.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore initializes a postgres-backed store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Load reads the user's snapshot row, if present.
func (p *PostgresStore) Load(userID string) (models.Snapshot, bool, error) {
	var snap models.Snapshot
	var data []byte
	query := `
		SELECT snapshot
		FROM bank.ledger_snapshots
		WHERE user_id = $1`
	err := p.db.QueryRow(query, userID).Scan(&data)
	if err == sql.ErrNoRows {
		return snap, false, nil
	}
	if err != nil {
		return snap, false, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, true, nil
}

// Save upserts the user's snapshot row.
func (p *PostgresStore) Save(userID string, snap models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	query := `
		INSERT INTO bank.ledger_snapshots (user_id, snapshot, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id)
		DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = CURRENT_TIMESTAMP`
	if _, err := p.db.Exec(query, userID, data); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// CreateUser creates a new user row. Unique violations on username or email
// surface as ErrUserExists.
func (p *PostgresStore) CreateUser(user *models.User) error {
	query := `
		INSERT INTO bank.users (id, name, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := p.db.Exec(query, user.ID, user.Name, user.Username, user.Email, user.PasswordHash, user.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByID retrieves a user by ID.
func (p *PostgresStore) FindUserByID(id string) (*models.User, error) {
	return p.findUser(`WHERE id = $1`, id)
}

// FindUserByUsername retrieves a user by username.
func (p *PostgresStore) FindUserByUsername(username string) (*models.User, error) {
	return p.findUser(`WHERE lower(username) = lower($1)`, username)
}

func (p *PostgresStore) findUser(where string, arg any) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, name, username, email, password_hash, created_at
		FROM bank.users ` + where
	err := p.db.QueryRow(query, arg).
		Scan(&user.ID, &user.Name, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// UpdateUser updates the mutable fields of a user row.
func (p *PostgresStore) UpdateUser(user *models.User) error {
	query := `
		UPDATE bank.users
		SET name = $2, email = $3, password_hash = $4
		WHERE id = $1`
	res, err := p.db.Exec(query, user.ID, user.Name, user.Email, user.PasswordHash)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
