package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// EventRepository defines the data access contract for security events.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type EventRepository interface {
	// Log inserts a new event and sets its ID.
	Log(ctx context.Context, event *Event) error

	// List returns events most recent first, optionally filtered by type,
	// with the total count for pagination.
	List(ctx context.Context, eventType string, limit, offset int) ([]Event, int, error)

	// GetStats returns aggregate counters for the admin overview.
	GetStats(ctx context.Context) (*Stats, error)
}

// eventRepository implements EventRepository with MariaDB queries.
type eventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new repository backed by the given DB pool.
func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

// Log inserts a new event. The details map is serialized to JSON; nil
// details and zero user/actor IDs are stored as SQL NULL.
func (r *eventRepository) Log(ctx context.Context, event *Event) error {
	query := `INSERT INTO security_events (event_type, user_id, actor_id, ip_address, user_agent, details, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	var detailsJSON []byte
	if event.Details != nil {
		var err error
		detailsJSON, err = json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("marshaling event details: %w", err)
		}
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx, query,
		event.Type, nullID(event.UserID), nullID(event.ActorID),
		event.IPAddress, event.UserAgent,
		detailsJSON, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting security event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting security event id: %w", err)
	}
	event.ID = id

	return nil
}

// List returns events with the subject's and actor's emails joined in.
func (r *eventRepository) List(ctx context.Context, eventType string, limit, offset int) ([]Event, int, error) {
	countQuery := `SELECT COUNT(*) FROM security_events`
	var countArgs []any
	if eventType != "" {
		countQuery += ` WHERE event_type = ?`
		countArgs = append(countArgs, eventType)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting security events: %w", err)
	}

	query := `SELECT se.id, se.event_type, COALESCE(se.user_id, 0), COALESCE(se.actor_id, 0),
	                 se.ip_address, COALESCE(se.user_agent, ''), se.details, se.created_at,
	                 COALESCE(u.email, '') AS user_email,
	                 COALESCE(a.email, '') AS actor_email
	          FROM security_events se
	          LEFT JOIN users u ON u.id = se.user_id
	          LEFT JOIN users a ON a.id = se.actor_id`

	var args []any
	if eventType != "" {
		query += ` WHERE se.event_type = ?`
		args = append(args, eventType)
	}
	query += ` ORDER BY se.created_at DESC, se.id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing security events: %w", err)
	}
	defer rows.Close()

	events, err := scanEventRows(rows)
	if err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

// GetStats counts recent logins, failures and rate-limit hits.
func (r *eventRepository) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM security_events`).Scan(&stats.TotalEvents); err != nil {
		return nil, fmt.Errorf("counting security events: %w", err)
	}

	recent := `SELECT COUNT(*) FROM security_events
	           WHERE event_type = ? AND created_at >= DATE_SUB(NOW(), INTERVAL 24 HOUR)`
	counters := []struct {
		eventType string
		dest      *int
	}{
		{EventLoginFailed, &stats.FailedLogins24h},
		{EventLoginSuccess, &stats.SuccessfulLogins24h},
		{EventLoginRateLimited, &stats.RateLimited24h},
	}
	for _, ctr := range counters {
		if err := r.db.QueryRowContext(ctx, recent, ctr.eventType).Scan(ctr.dest); err != nil {
			return nil, fmt.Errorf("counting %s events: %w", ctr.eventType, err)
		}
	}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE is_active = FALSE`).Scan(&stats.InactiveUsers); err != nil {
		return nil, fmt.Errorf("counting inactive users: %w", err)
	}

	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT ip_address) FROM security_events
		 WHERE created_at >= DATE_SUB(NOW(), INTERVAL 24 HOUR) AND ip_address != ''`,
	).Scan(&stats.UniqueIPs24h); err != nil {
		return nil, fmt.Errorf("counting unique IPs: %w", err)
	}

	return stats, nil
}

// scanEventRows scans rows from a security_events query. Expects columns:
// id, event_type, user_id, actor_id, ip_address, user_agent, details,
// created_at, user_email, actor_email.
func scanEventRows(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		var detailsJSON sql.NullString
		if err := rows.Scan(
			&e.ID, &e.Type, &e.UserID, &e.ActorID,
			&e.IPAddress, &e.UserAgent, &detailsJSON, &e.CreatedAt,
			&e.UserEmail, &e.ActorEmail,
		); err != nil {
			return nil, fmt.Errorf("scanning security event: %w", err)
		}

		if detailsJSON.Valid && detailsJSON.String != "" {
			if err := json.Unmarshal([]byte(detailsJSON.String), &e.Details); err != nil {
				// Non-fatal: keep the row, flag the payload.
				e.Details = map[string]any{"_parse_error": "invalid JSON"}
			}
		}

		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating security events: %w", err)
	}

	return events, nil
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
