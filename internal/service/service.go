package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/bank-ledger/internal/auth"
	"github.com/Dan9191/bank-ledger/internal/config"
	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/Dan9191/bank-ledger/internal/storage"
	"github.com/Dan9191/bank-ledger/internal/utils/email"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// sessionTTL bounds both the JWT lifetime and the session registry entry.
const sessionTTL = 24 * time.Hour

// ErrInvalidCredentials is returned on login or password change when the
// supplied credentials do not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service handles registration, login, and profile management
type Service struct {
	users    storage.UserStore
	sessions *auth.Registry
	mail     *email.Sender
	log      *logrus.Logger
	config   *config.Config
}

// NewService initializes a new service. mail may be nil when no SMTP host is
// configured; registration then skips the welcome email.
func NewService(users storage.UserStore, sessions *auth.Registry, mail *email.Sender, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{users: users, sessions: sessions, mail: mail, log: log, config: cfg}
}

// Register creates a new user with a hashed password
func (s *Service) Register(name, username, emailAddr, password string) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Username:     username,
		Email:        emailAddr,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.CreateUser(user); err != nil {
		return nil, err
	}

	if s.mail != nil {
		if err := s.mail.SendWelcome(user.Email, user.Name); err != nil {
			s.log.Warnf("Failed to send welcome email to %s: %v", user.Email, err)
		}
	}

	s.log.Infof("User registered: %s", user.Username)
	return user, nil
}

// Login authenticates a user, starts a session, and returns a JWT token
func (s *Service) Login(username, password string) (string, *models.User, error) {
	user, err := s.users.FindUserByUsername(username)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	tokenID := uuid.NewString()
	expiresAt := time.Now().Add(sessionTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.ID,
		ID:        tokenID,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.sessions.Start(user.ID, tokenID, expiresAt)

	s.log.Infof("User logged in: %s", user.Username)
	return tokenString, user, nil
}

// Logout ends the user's session. The JWT itself stays valid until expiry,
// but the middleware rejects tokens without a live session.
func (s *Service) Logout(userID string) {
	s.sessions.End(userID)
	s.log.Infof("User logged out: %s", userID)
}

// UpdateProfile changes the user's display name and email address
func (s *Service) UpdateProfile(userID, name, emailAddr string) (*models.User, error) {
	user, err := s.users.FindUserByID(userID)
	if err != nil {
		return nil, err
	}

	user.Name = name
	user.Email = emailAddr
	if err := s.users.UpdateUser(user); err != nil {
		return nil, err
	}

	s.log.Infof("Profile updated for user %s", userID)
	return user, nil
}

// ChangePassword verifies the current password and stores a new hash
func (s *Service) ChangePassword(userID, currentPassword, newPassword string) error {
	user, err := s.users.FindUserByID(userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = string(hashedPassword)
	if err := s.users.UpdateUser(user); err != nil {
		return err
	}

	s.log.Infof("Password changed for user %s", userID)
	return nil
}
