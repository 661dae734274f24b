package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chimibusiness/crm/internal/apperror"
)

// Fixed client-facing messages. Every failure in a class uses the same text
// so responses never reveal whether an account exists.
const (
	msgBadCredentials   = "incorrect email or password"
	msgUnauthenticated  = "could not validate credentials"
	msgNotEnoughPrivs   = "the user doesn't have enough privileges"
	msgEmailRegistered  = "email already registered"
	dummyPasswordSource = "timing-equalizer-Passw0rd"
)

// AuthService defines the business logic contract for authentication.
// Handlers call these methods -- they never touch the repository directly.
type AuthService interface {
	// Register creates an account and signs a session token for it.
	Register(ctx context.Context, input RegisterInput) (*User, string, error)

	// Login checks credentials and signs a session token.
	Login(ctx context.Context, input LoginInput) (token string, user *User, err error)

	// Authenticate resolves a raw session token to the current stored user.
	// Fails with Unauthorized (any token or lookup problem) or Inactive.
	Authenticate(ctx context.Context, token string) (*User, error)

	// TokenTTL is the lifetime of tokens this service signs.
	TokenTTL() time.Duration
}

// authService implements AuthService with argon2id hashing and JWT sessions.
type authService struct {
	repo     UserRepository
	sessions SessionUsers
	hasher   *PasswordHasher
	tokens   *TokenService
	now      func() time.Time

	// dummyHash is verified against when the email is unknown so a miss
	// costs the same as a wrong password.
	dummyHash func() string
}

// NewAuthService creates a new auth service with the given dependencies.
// sessions may be nil, in which case session lookups go to repo directly.
func NewAuthService(repo UserRepository, sessions SessionUsers, hasher *PasswordHasher, tokens *TokenService) AuthService {
	if sessions == nil {
		sessions = SessionUserFunc(repo.FindByEmail)
	}
	return &authService{
		repo:     repo,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
		now:      time.Now,
		dummyHash: sync.OnceValue(func() string {
			h, err := hasher.Hash(dummyPasswordSource)
			if err != nil {
				slog.Error("generating dummy password hash", slog.Any("error", err))
			}
			return h
		}),
	}
}

// Register validates input, hashes the password with argon2id, persists the
// user with role "user", and issues a session token.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*User, string, error) {
	if appErr := validateRegisterInput(&input); appErr != nil {
		return nil, "", appErr
	}

	// Check if email is already taken before doing expensive hashing.
	exists, err := s.repo.EmailExists(ctx, input.Email)
	if err != nil {
		return nil, "", apperror.NewInternal(fmt.Errorf("checking email: %w", err))
	}
	if exists {
		return nil, "", apperror.NewBadRequest(msgEmailRegistered)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, "", apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	user := &User{
		Email:        input.Email,
		PasswordHash: hash,
		FullName:     input.FullName,
		Role:         RoleUser,
		IsActive:     true,
		CreatedAt:    s.now().UTC().Truncate(time.Second),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration for the same email.
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, "", apperror.NewBadRequest(msgEmailRegistered)
		}
		return nil, "", apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	token, _, err := s.tokens.IssueDefault(user.Email, user.Role)
	if err != nil {
		return nil, "", apperror.NewInternal(err)
	}

	slog.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, token, nil
}

// Login authenticates a user by email and password and signs a token. An
// unknown email and a wrong password produce the same error after the same
// amount of hashing work.
func (s *authService) Login(ctx context.Context, input LoginInput) (string, *User, error) {
	email := normalizeEmail(input.Email)

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !apperror.IsType(err, "not_found") {
			return "", nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
		}
		s.hasher.Verify(input.Password, s.dummyHash())
		return "", nil, apperror.NewUnauthorized(msgBadCredentials)
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		return "", nil, apperror.NewUnauthorized(msgBadCredentials)
	}

	token, _, err := s.tokens.IssueDefault(user.Email, user.Role)
	if err != nil {
		return "", nil, apperror.NewInternal(err)
	}

	slog.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return token, publicCopy(user), nil
}

// Authenticate validates token and loads its subject. The returned user's
// role comes from storage, not from the token's role snapshot, so role
// changes and deactivation apply to the very next request.
func (s *authService) Authenticate(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, apperror.NewUnauthorized(msgUnauthenticated)
	}

	claims, err := s.tokens.Validate(token)
	if err != nil {
		slog.Debug("session token rejected", slog.Any("error", err))
		return nil, apperror.NewUnauthorized(msgUnauthenticated)
	}

	user, err := s.sessions.SessionUser(ctx, claims.Subject)
	if err != nil {
		if apperror.IsType(err, "not_found") {
			return nil, apperror.NewUnauthorized(msgUnauthenticated)
		}
		return nil, apperror.NewInternal(fmt.Errorf("resolving session user: %w", err))
	}

	if !user.IsActive {
		return nil, apperror.NewInactive()
	}

	return user, nil
}

// TokenTTL returns the lifetime of issued session tokens.
func (s *authService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

// Require checks that an authenticated user holds at least min. A nil user
// is unauthenticated; an insufficient role is Forbidden.
func Require(user *User, min Role) error {
	if user == nil {
		return apperror.NewUnauthorized(msgUnauthenticated)
	}
	if !Satisfies(user.Role, min) {
		return apperror.NewForbidden(msgNotEnoughPrivs)
	}
	return nil
}
