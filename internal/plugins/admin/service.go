package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chimibusiness/crm/internal/apperror"
	"github.com/chimibusiness/crm/internal/plugins/auth"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// AdminService defines the business logic contract for administration.
// Callers have already passed the role guard for the operation.
type AdminService interface {
	// VerifyAdminPassword runs the re-verification gate for actor.
	VerifyAdminPassword(ctx context.Context, actor *auth.User, candidate string) (GateResult, error)

	// ListUsers returns a page of users without credentials. Out-of-range
	// paging values are clamped; the page reports the values used.
	ListUsers(ctx context.Context, offset, limit int) (*UserPage, error)

	// ChangeRole sets target's role and returns the updated user. changed
	// is false when target already held role.
	ChangeRole(ctx context.Context, actor *auth.User, targetID int64, role auth.Role) (user *auth.User, changed bool, err error)

	// SetActive enables or disables target and returns the updated user.
	SetActive(ctx context.Context, actor *auth.User, targetID int64, active bool) (*auth.User, error)
}

// adminService implements AdminService.
type adminService struct {
	users auth.UserRepository
	gate  *Gate
}

// NewAdminService creates a new admin service.
func NewAdminService(users auth.UserRepository, gate *Gate) AdminService {
	return &adminService{users: users, gate: gate}
}

// VerifyAdminPassword maps gate outcomes onto AppErrors. Both credential
// failures are 401 so the caller learns nothing beyond "not accepted".
func (s *adminService) VerifyAdminPassword(ctx context.Context, actor *auth.User, candidate string) (GateResult, error) {
	res, err := s.gate.Verify(ctx, actor.ID, candidate)
	switch {
	case err == nil:
		return res, nil
	case errors.Is(err, ErrAdminPasswordNotConfigured):
		return GateResult{}, apperror.NewUnauthorized("admin password is not set")
	case errors.Is(err, ErrAdminPasswordInvalid):
		return GateResult{}, apperror.NewUnauthorized("invalid admin password")
	case apperror.IsType(err, "not_found"):
		// The session user vanished between authentication and now.
		return GateResult{}, apperror.NewUnauthorized("could not validate credentials")
	default:
		return GateResult{}, apperror.NewInternal(fmt.Errorf("verifying admin password: %w", err))
	}
}

// ListUsers clamps paging parameters and lists users.
func (s *adminService) ListUsers(ctx context.Context, offset, limit int) (*UserPage, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	users, total, err := s.users.ListUsers(ctx, offset, limit)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing users: %w", err))
	}
	if users == nil {
		users = []auth.User{}
	}
	return &UserPage{Users: users, Total: total, Offset: offset, Limit: limit}, nil
}

// ChangeRole validates role, refuses self-changes, and stores the new role.
// Setting the role a user already has is a no-op.
func (s *adminService) ChangeRole(ctx context.Context, actor *auth.User, targetID int64, role auth.Role) (*auth.User, bool, error) {
	if !role.IsValid() {
		return nil, false, apperror.NewValidation("invalid role",
			apperror.FieldError{Field: "role", Message: "role must be one of user, curator, admin, owner"})
	}
	if actor.ID == targetID {
		return nil, false, apperror.NewConflict("cannot change your own role")
	}

	target, err := s.findTarget(ctx, targetID)
	if err != nil {
		return nil, false, err
	}
	if target.Role == role {
		return target, false, nil
	}

	if err := s.users.UpdateRole(ctx, targetID, role); err != nil {
		return nil, false, apperror.NewInternal(fmt.Errorf("updating role: %w", err))
	}

	slog.Info("user role changed",
		slog.Int64("user_id", targetID),
		slog.String("from", target.Role.String()),
		slog.String("role", role.String()),
		slog.Int64("by", actor.ID),
	)

	target.Role = role
	return target, true, nil
}

// SetActive refuses self-deactivation and changes to accounts that outrank
// the actor.
func (s *adminService) SetActive(ctx context.Context, actor *auth.User, targetID int64, active bool) (*auth.User, error) {
	if actor.ID == targetID && !active {
		return nil, apperror.NewConflict("cannot deactivate your own account")
	}

	target, err := s.findTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !auth.Satisfies(actor.Role, target.Role) {
		return nil, apperror.NewForbidden("the user doesn't have enough privileges")
	}
	if target.IsActive == active {
		return target, nil
	}

	if err := s.users.UpdateActive(ctx, targetID, active); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("updating is_active: %w", err))
	}

	slog.Info("user activation changed",
		slog.Int64("user_id", targetID),
		slog.Bool("active", active),
		slog.Int64("by", actor.ID),
	)

	target.IsActive = active
	return target, nil
}

// findTarget loads a user for modification, passing NotFound through.
func (s *adminService) findTarget(ctx context.Context, id int64) (*auth.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if apperror.IsType(err, "not_found") {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}
	// Callers only ever see the public view.
	user.PasswordHash = ""
	user.AdminPassword = nil
	return user, nil
}
