// Package admin provides the privileged surface of the CRM: the admin
// password re-verification gate used before sensitive operations, and user
// administration (listing, role changes, activation).
//
// The gate is open to curators and above; account administration requires
// admin, and role changes require owner.
package admin

import (
	"github.com/chimibusiness/crm/internal/plugins/auth"
)

// VerifyPasswordRequest holds the JSON body of POST /admin/verify-password.
type VerifyPasswordRequest struct {
	Password string `json:"password"`
}

// ChangeRoleRequest holds the JSON body of PUT /admin/users/:id/role.
type ChangeRoleRequest struct {
	Role auth.Role `json:"role"`
}

// SetActiveRequest holds the JSON body of PUT /admin/users/:id/active.
type SetActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

// StatusResponse confirms a successful re-verification.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// UserPage is the JSON body of GET /admin/users.
type UserPage struct {
	Users  []auth.User `json:"users"`
	Total  int         `json:"total"`
	Offset int         `json:"offset"`
	Limit  int         `json:"limit"`
}
