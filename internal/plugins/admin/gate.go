package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chimibusiness/crm/internal/plugins/auth"
)

// Re-verification failures. Both are reported to clients as 401.
var (
	ErrAdminPasswordNotConfigured = errors.New("admin password not configured")
	ErrAdminPasswordInvalid       = errors.New("admin password invalid")
)

// GateResult describes a successful re-verification.
type GateResult struct {
	// Migrated is true when this call replaced a legacy plaintext admin
	// password with its hash.
	Migrated bool
}

// Gate checks a user's secondary admin password. Accounts carried over
// from the previous system may hold it in plaintext; the first successful
// check replaces that with a hash, and from then on only the hashed path
// is used.
type Gate struct {
	users  auth.UserRepository
	hasher *auth.PasswordHasher
}

// NewGate creates a gate that reads and migrates credentials through users.
func NewGate(users auth.UserRepository, hasher *auth.PasswordHasher) *Gate {
	return &Gate{users: users, hasher: hasher}
}

// Verify checks candidate against the admin password of user userID. The
// stored value is always re-read, never taken from a session cache.
func (g *Gate) Verify(ctx context.Context, userID int64, candidate string) (GateResult, error) {
	user, err := g.users.FindByID(ctx, userID)
	if err != nil {
		return GateResult{}, fmt.Errorf("loading user: %w", err)
	}

	switch secret := user.AdminSecret().(type) {
	case nil:
		return GateResult{}, ErrAdminPasswordNotConfigured

	case auth.HashedSecret:
		if !g.hasher.Verify(candidate, string(secret)) {
			return GateResult{}, ErrAdminPasswordInvalid
		}
		return GateResult{}, nil

	case auth.LegacySecret:
		if !secret.Matches(candidate) {
			return GateResult{}, ErrAdminPasswordInvalid
		}
		return g.migrate(ctx, user.ID, secret)

	default:
		return GateResult{}, fmt.Errorf("unexpected admin secret type %T", secret)
	}
}

// migrate swaps the plaintext for its hash with a conditional update. If a
// concurrent request already migrated it, the update matches no row and the
// stored hash is left alone; the verification still succeeded.
func (g *Gate) migrate(ctx context.Context, userID int64, legacy auth.LegacySecret) (GateResult, error) {
	hashed, err := legacy.Migrate(g.hasher)
	if err != nil {
		return GateResult{}, fmt.Errorf("hashing admin password: %w", err)
	}

	updated, err := g.users.UpdateAdminPassword(ctx, userID, string(hashed), string(legacy))
	if err != nil {
		return GateResult{}, fmt.Errorf("storing admin password hash: %w", err)
	}

	if updated {
		slog.Info("admin password migrated to hash", slog.Int64("user_id", userID))
	}
	return GateResult{Migrated: updated}, nil
}
