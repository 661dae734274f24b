// Package audit records security-relevant events: logins, logouts,
// registrations, admin re-verification and account administration. Events
// are persisted to the security_events table and listed for admins.
//
// Recording is fire-and-forget: a failed insert is logged and never fails
// the request that triggered it. Events never carry passwords, hashes or
// session tokens.
package audit

import "time"

// --- Event Types ---
// Each type follows the "resource.verb" pattern for consistent filtering.

const (
	EventLoginSuccess     = "login.success"
	EventLoginFailed      = "login.failed"
	EventLoginRateLimited = "login.rate_limited"
	EventLogout           = "logout"
	EventUserRegistered   = "user.registered"

	EventAdminPasswordVerified = "admin_password.verified"
	EventAdminPasswordFailed   = "admin_password.failed"

	// EventAdminPasswordMigrated is logged once per account, when a legacy
	// plaintext admin password is replaced by its hash.
	EventAdminPasswordMigrated = "admin_password.migrated"

	EventRoleChanged  = "admin.role_changed"
	EventUserDisabled = "admin.user_disabled"
	EventUserEnabled  = "admin.user_enabled"
)

var eventTypes = []string{
	EventLoginSuccess,
	EventLoginFailed,
	EventLoginRateLimited,
	EventLogout,
	EventUserRegistered,
	EventAdminPasswordVerified,
	EventAdminPasswordFailed,
	EventAdminPasswordMigrated,
	EventRoleChanged,
	EventUserDisabled,
	EventUserEnabled,
}

// EventTypes returns every known event type.
func EventTypes() []string {
	out := make([]string, len(eventTypes))
	copy(out, eventTypes)
	return out
}

// IsEventType reports whether t is a known event type.
func IsEventType(t string) bool {
	for _, et := range eventTypes {
		if et == t {
			return true
		}
	}
	return false
}

// Event is a single recorded security event. UserID is the account the
// event is about; ActorID is who caused it when that differs (an admin
// changing someone's role). Zero means none.
type Event struct {
	ID        int64          `json:"id"`
	Type      string         `json:"event_type"`
	UserID    int64          `json:"user_id,omitempty"`
	ActorID   int64          `json:"actor_id,omitempty"`
	IPAddress string         `json:"ip_address"`
	UserAgent string         `json:"user_agent,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`

	// Joined from users for display; not stored in security_events.
	UserEmail  string `json:"user_email,omitempty"`
	ActorEmail string `json:"actor_email,omitempty"`
}

// Stats holds 24-hour security counters for the admin overview.
type Stats struct {
	TotalEvents         int `json:"total_events"`
	FailedLogins24h     int `json:"failed_logins_24h"`
	SuccessfulLogins24h int `json:"successful_logins_24h"`
	RateLimited24h      int `json:"rate_limited_24h"`
	InactiveUsers       int `json:"inactive_users"`
	UniqueIPs24h        int `json:"unique_ips_24h"`
}

// EventPage is the JSON body of the event list endpoint.
type EventPage struct {
	Events  []Event `json:"events"`
	Total   int     `json:"total"`
	Page    int     `json:"page"`
	PerPage int     `json:"per_page"`
}
