package auth

// --- Role System ---

// Role is a user's privilege tier, stored as a string in the users table.
// Tiers are totally ordered:
//
//	user < curator < admin < owner
//
// Use Satisfies rather than comparing strings.
type Role string

const (
	// RoleUser is the default tier for self-registered accounts.
	RoleUser Role = "user"

	// RoleCurator manages a client portfolio and may use the admin
	// re-verification gate.
	RoleCurator Role = "curator"

	// RoleAdmin manages accounts: listing and (de)activating users.
	RoleAdmin Role = "admin"

	// RoleOwner can do everything, including changing other users' roles.
	RoleOwner Role = "owner"
)

// unknownRank is below every valid role so unrecognized values grant nothing.
const unknownRank = -1

var roleRank = map[Role]int{
	RoleUser:    0,
	RoleCurator: 1,
	RoleAdmin:   2,
	RoleOwner:   3,
}

// Rank returns the role's position in the hierarchy. Unknown roles rank
// below RoleUser.
func (r Role) Rank() int {
	rank, ok := roleRank[r]
	if !ok {
		return unknownRank
	}
	return rank
}

// IsValid reports whether r is one of the four known roles.
func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// Satisfies reports whether a user holding actual meets the required
// minimum role.
func Satisfies(actual, required Role) bool {
	return actual.Rank() >= required.Rank()
}

// Roles returns every valid role in ascending order.
func Roles() []Role {
	return []Role{RoleUser, RoleCurator, RoleAdmin, RoleOwner}
}
