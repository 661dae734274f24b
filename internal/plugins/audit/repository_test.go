package audit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (EventRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return NewEventRepository(db), mock
}

var eventRowColumns = []string{
	"id", "event_type", "user_id", "actor_id", "ip_address", "user_agent",
	"details", "created_at", "user_email", "actor_email",
}

func TestEventRepository_Log(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+security_events`).
		WithArgs(EventRoleChanged, int64(2), int64(1), "198.51.100.7", "curl/8", []byte(`{"role":"admin"}`), at).
		WillReturnResult(sqlmock.NewResult(41, 1))

	e := &Event{
		Type:      EventRoleChanged,
		UserID:    2,
		ActorID:   1,
		IPAddress: "198.51.100.7",
		UserAgent: "curl/8",
		Details:   map[string]any{"role": "admin"},
		CreatedAt: at,
	}
	require.NoError(t, repo.Log(context.Background(), e))
	assert.Equal(t, int64(41), e.ID)
}

func TestEventRepository_LogStoresNullIDs(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+security_events`).
		WithArgs(EventLoginRateLimited, nil, nil, "203.0.113.9", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	e := &Event{Type: EventLoginRateLimited, IPAddress: "203.0.113.9"}
	require.NoError(t, repo.Log(context.Background(), e))
	assert.False(t, e.CreatedAt.IsZero())
}

func TestEventRepository_ListFiltered(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM security_events WHERE event_type = \?`).
		WithArgs(EventLoginFailed).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`(?s)FROM security_events se.*WHERE se.event_type = \?.*LIMIT \? OFFSET \?`).
		WithArgs(EventLoginFailed, 50, 0).
		WillReturnRows(sqlmock.NewRows(eventRowColumns).
			AddRow(9, EventLoginFailed, 0, 0, "203.0.113.9", "", `{"email":"a@example.com"}`, at, "", "").
			AddRow(8, EventLoginFailed, 3, 0, "203.0.113.9", "", "not json", at, "b@example.com", ""))

	events, total, err := repo.List(context.Background(), EventLoginFailed, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, events, 2)
	assert.Equal(t, "a@example.com", events[0].Details["email"])
	assert.Equal(t, "b@example.com", events[1].UserEmail)
	assert.Equal(t, "invalid JSON", events[1].Details["_parse_error"])
}

func TestEventRepository_GetStats(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	count := func(n int) *sqlmock.Rows { return sqlmock.NewRows([]string{"count"}).AddRow(n) }
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM security_events`).WillReturnRows(count(100))
	mock.ExpectQuery(`event_type = \?`).WithArgs(EventLoginFailed).WillReturnRows(count(7))
	mock.ExpectQuery(`event_type = \?`).WithArgs(EventLoginSuccess).WillReturnRows(count(20))
	mock.ExpectQuery(`event_type = \?`).WithArgs(EventLoginRateLimited).WillReturnRows(count(2))
	mock.ExpectQuery(`FROM users WHERE is_active = FALSE`).WillReturnRows(count(1))
	mock.ExpectQuery(`COUNT\(DISTINCT ip_address\)`).WillReturnRows(count(5))

	stats, err := repo.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Stats{
		TotalEvents:         100,
		FailedLogins24h:     7,
		SuccessfulLogins24h: 20,
		RateLimited24h:      2,
		InactiveUsers:       1,
		UniqueIPs24h:        5,
	}, stats)
}
