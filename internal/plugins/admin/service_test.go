package admin

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chimibusiness/crm/internal/apperror"
	"github.com/chimibusiness/crm/internal/plugins/auth"
)

func newTestAdminService(users *fakeUsers) AdminService {
	return NewAdminService(users, NewGate(users, auth.NewPasswordHasher(testHashParams)))
}

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) *apperror.AppError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
	return appErr
}

// --- VerifyAdminPassword ---

func TestVerifyAdminPassword_MapsGateErrors(t *testing.T) {
	curator := newUser(2, "c@example.com", auth.RoleCurator, strPtr("abc123"))
	unset := newUser(3, "n@example.com", auth.RoleCurator, nil)
	svc := newTestAdminService(newFakeUsers(curator, unset))
	ctx := context.Background()

	_, err := svc.VerifyAdminPassword(ctx, curator, "nope")
	appErr := assertAppError(t, err, http.StatusUnauthorized)
	assert.Equal(t, "invalid admin password", appErr.Message)

	_, err = svc.VerifyAdminPassword(ctx, unset, "abc123")
	appErr = assertAppError(t, err, http.StatusUnauthorized)
	assert.Equal(t, "admin password is not set", appErr.Message)

	_, err = svc.VerifyAdminPassword(ctx, newUser(99, "gone@example.com", auth.RoleCurator, nil), "abc123")
	assertAppError(t, err, http.StatusUnauthorized)

	res, err := svc.VerifyAdminPassword(ctx, curator, "abc123")
	require.NoError(t, err)
	assert.True(t, res.Migrated)
}

// --- ListUsers ---

func TestListUsers_ClampsPaging(t *testing.T) {
	var users []*auth.User
	for i := int64(1); i <= 30; i++ {
		users = append(users, newUser(i, "u@example.com", auth.RoleUser, nil))
	}
	svc := newTestAdminService(newFakeUsers(users...))

	page, err := svc.ListUsers(context.Background(), -5, 0)
	require.NoError(t, err)
	assert.Equal(t, 30, page.Total)
	assert.Equal(t, 0, page.Offset)
	assert.Equal(t, defaultPageSize, page.Limit)
	assert.Len(t, page.Users, defaultPageSize)
	assert.Equal(t, int64(1), page.Users[0].ID)

	page, err = svc.ListUsers(context.Background(), 25, 1000)
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, page.Limit)
	assert.Len(t, page.Users, 5)

	page, err = svc.ListUsers(context.Background(), 100, 10)
	require.NoError(t, err)
	assert.NotNil(t, page.Users)
	assert.Empty(t, page.Users)
}

func TestListUsers_StoreError(t *testing.T) {
	users := newFakeUsers()
	users.listErr = errors.New("connection refused")

	_, err := newTestAdminService(users).ListUsers(context.Background(), 0, 10)
	assertAppError(t, err, http.StatusInternalServerError)
}

// --- ChangeRole ---

func TestChangeRole(t *testing.T) {
	owner := newUser(1, "owner@example.com", auth.RoleOwner, nil)
	target := newUser(2, "user@example.com", auth.RoleUser, nil)
	users := newFakeUsers(owner, target)
	svc := newTestAdminService(users)
	ctx := context.Background()

	updated, changed, err := svc.ChangeRole(ctx, owner, 2, auth.RoleCurator)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, auth.RoleCurator, updated.Role)
	assert.Nil(t, updated.AdminPassword)

	stored, _ := users.FindByID(ctx, 2)
	assert.Equal(t, auth.RoleCurator, stored.Role)

	// Same role is a no-op.
	updated, changed, err = svc.ChangeRole(ctx, owner, 2, auth.RoleCurator)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, auth.RoleCurator, updated.Role)
}

func TestChangeRole_Rejections(t *testing.T) {
	owner := newUser(1, "owner@example.com", auth.RoleOwner, nil)
	svc := newTestAdminService(newFakeUsers(owner, newUser(2, "u@example.com", auth.RoleUser, nil)))
	ctx := context.Background()

	_, _, err := svc.ChangeRole(ctx, owner, 2, auth.Role("superuser"))
	appErr := assertAppError(t, err, http.StatusUnprocessableEntity)
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, "role", appErr.Fields[0].Field)

	_, _, err = svc.ChangeRole(ctx, owner, 1, auth.RoleUser)
	assertAppError(t, err, http.StatusConflict)

	_, _, err = svc.ChangeRole(ctx, owner, 42, auth.RoleAdmin)
	assertAppError(t, err, http.StatusNotFound)
}

// --- SetActive ---

func TestSetActive(t *testing.T) {
	admin := newUser(1, "admin@example.com", auth.RoleAdmin, nil)
	users := newFakeUsers(admin,
		newUser(2, "user@example.com", auth.RoleUser, nil),
		newUser(3, "owner@example.com", auth.RoleOwner, nil),
	)
	svc := newTestAdminService(users)
	ctx := context.Background()

	updated, err := svc.SetActive(ctx, admin, 2, false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	stored, _ := users.FindByID(ctx, 2)
	assert.False(t, stored.IsActive)

	updated, err = svc.SetActive(ctx, admin, 2, true)
	require.NoError(t, err)
	assert.True(t, updated.IsActive)

	_, err = svc.SetActive(ctx, admin, 1, false)
	assertAppError(t, err, http.StatusConflict)

	_, err = svc.SetActive(ctx, admin, 3, false)
	assertAppError(t, err, http.StatusForbidden)
	stored, _ = users.FindByID(ctx, 3)
	assert.True(t, stored.IsActive)

	_, err = svc.SetActive(ctx, admin, 42, false)
	assertAppError(t, err, http.StatusNotFound)
}
