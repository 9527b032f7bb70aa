package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vnq1909/music-web-stream-1/internal/domain"
	"github.com/vnq1909/music-web-stream-1/internal/repository"
	"github.com/vnq1909/music-web-stream-1/pkg/config"
	"github.com/vnq1909/music-web-stream-1/pkg/crypto"
	jwtpkg "github.com/vnq1909/music-web-stream-1/pkg/jwt"
)

const minPasswordLength = 6

// Service issues and verifies credentials and administers accounts.
type Service struct {
	users  repository.UserRepository
	songs  repository.SongRepository
	logger *slog.Logger
	cfg    config.APIConfig
}

// New constructs a Service.
func New(users repository.UserRepository, songs repository.SongRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, songs: songs, logger: logger, cfg: cfg}
}

// Session is the result of a successful login.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresIn time.Duration
}

// Register creates a listener account. Addresses listed in ADMIN_EMAILS become admins.
func (s Service) Register(ctx context.Context, fullName, email, password string) (*domain.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	if fullName == "" || email == "" || password == "" {
		return nil, &domain.ValidationError{Field: "body", Message: "Please add all fields"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &domain.ValidationError{Field: "email", Message: "invalid email address"}
	}
	if len(password) < minPasswordLength {
		return nil, &domain.ValidationError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength)}
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      s.cfg.IsAdminEmail(email),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.NewError(domain.ErrConflict, "User already exists")
		}
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID, "is_admin", user.IsAdmin)
	return user, nil
}

// Login authenticates a user and returns a signed credential.
func (s Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, &domain.ValidationError{Field: "body", Message: "Please add all fields"}
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			crypto.CompareDecoy(password)
			return Session{}, domain.NewError(domain.ErrUnauthenticated, "Invalid credentials")
		}
		return Session{}, err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		if !errors.Is(err, crypto.ErrMismatch) {
			s.logger.Error("stored password hash unusable", "user_id", user.ID, "error", err)
		}
		s.logger.Warn("login rejected", "user_id", user.ID)
		return Session{}, domain.NewError(domain.ErrUnauthenticated, "Invalid credentials")
	}
	token, err := jwtpkg.GenerateToken(user.ID, user.IsAdmin, s.cfg.JWTSecret, s.cfg.TokenTTL)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return Session{User: user, Token: token, ExpiresIn: s.cfg.TokenTTL}, nil
}

// Authorize validates a credential and returns the caller identity.
// Admin rights require both the signed claim and the stored flag.
func (s Service) Authorize(ctx context.Context, token string) (domain.Identity, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return domain.Identity{}, domain.NewError(domain.ErrUnauthenticated, "token required")
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Identity{}, domain.NewError(domain.ErrUnauthenticated, "account no longer exists")
		}
		return domain.Identity{}, err
	}
	return domain.Identity{UserID: user.ID, IsAdmin: claims.IsAdmin && user.IsAdmin}, nil
}

// ListUsersWithSongs returns every account with the songs it uploaded.
func (s Service) ListUsersWithSongs(ctx context.Context, requester domain.Identity) ([]domain.UserWithSongs, error) {
	if !requester.IsAdmin {
		return nil, domain.NewError(domain.ErrForbidden, "Access denied. Admin only.")
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserWithSongs, 0, len(users))
	for _, u := range users {
		songs, err := s.songs.ListSongsByOwner(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("list songs for %s: %w", u.ID, err)
		}
		u.PasswordHash = nil
		out = append(out, domain.UserWithSongs{User: u, Songs: songs})
	}
	return out, nil
}

// DeleteUser removes an account. Songs it uploaded stay in the catalog.
func (s Service) DeleteUser(ctx context.Context, requester domain.Identity, userID string) error {
	if !requester.IsAdmin {
		return domain.NewError(domain.ErrForbidden, "Access denied. Admin only.")
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewError(domain.ErrNotFound, "User not found")
		}
		return err
	}
	s.logger.Info("user deleted", "user_id", userID, "by", requester.UserID)
	return nil
}
