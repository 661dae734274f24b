package audit

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chimibusiness/crm/internal/apperror"
)

// mockEventRepo implements EventRepository for testing.
type mockEventRepo struct {
	logFn      func(ctx context.Context, e *Event) error
	listFn     func(ctx context.Context, eventType string, limit, offset int) ([]Event, int, error)
	getStatsFn func(ctx context.Context) (*Stats, error)
}

func (m *mockEventRepo) Log(ctx context.Context, e *Event) error {
	if m.logFn != nil {
		return m.logFn(ctx, e)
	}
	return nil
}

func (m *mockEventRepo) List(ctx context.Context, eventType string, limit, offset int) ([]Event, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, eventType, limit, offset)
	}
	return nil, 0, nil
}

func (m *mockEventRepo) GetStats(ctx context.Context) (*Stats, error) {
	if m.getStatsFn != nil {
		return m.getStatsFn(ctx)
	}
	return &Stats{}, nil
}

func assertCode(t *testing.T, err error, code int) {
	t.Helper()
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func TestLogEvent(t *testing.T) {
	var logged *Event
	svc := NewService(&mockEventRepo{logFn: func(_ context.Context, e *Event) error {
		logged = e
		return nil
	}})

	require.NoError(t, svc.LogEvent(context.Background(), &Event{Type: EventLogout, UserID: 4}))
	require.NotNil(t, logged)
	assert.Equal(t, int64(4), logged.UserID)

	assertCode(t, svc.LogEvent(context.Background(), &Event{}), http.StatusBadRequest)
}

func TestLogEvent_StoreFailure(t *testing.T) {
	svc := NewService(&mockEventRepo{logFn: func(context.Context, *Event) error {
		return errors.New("table is full")
	}})

	err := svc.LogEvent(context.Background(), &Event{Type: EventLoginFailed})
	assertCode(t, err, http.StatusInternalServerError)
	assert.NotContains(t, apperror.SafeMessage(err), "table")
}

func TestListEvents_Paging(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		wantOffset int
	}{
		{"first page", 1, 0},
		{"third page", 3, 2 * perPage},
		{"zero clamps", 0, 0},
		{"negative clamps", -4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotLimit, gotOffset int
			svc := NewService(&mockEventRepo{listFn: func(_ context.Context, _ string, limit, offset int) ([]Event, int, error) {
				gotLimit, gotOffset = limit, offset
				return nil, 0, nil
			}})

			_, _, err := svc.ListEvents(context.Background(), "", tt.page)
			require.NoError(t, err)
			assert.Equal(t, perPage, gotLimit)
			assert.Equal(t, tt.wantOffset, gotOffset)
		})
	}
}

func TestListEvents_TypeFilter(t *testing.T) {
	var gotType string
	svc := NewService(&mockEventRepo{listFn: func(_ context.Context, eventType string, _, _ int) ([]Event, int, error) {
		gotType = eventType
		return []Event{{Type: eventType}}, 1, nil
	}})

	events, total, err := svc.ListEvents(context.Background(), EventAdminPasswordMigrated, 1)
	require.NoError(t, err)
	assert.Equal(t, EventAdminPasswordMigrated, gotType)
	assert.Equal(t, 1, total)
	assert.Len(t, events, 1)

	_, _, err = svc.ListEvents(context.Background(), "password.dumped", 1)
	assertCode(t, err, http.StatusUnprocessableEntity)
}

func TestEventTypesAreKnown(t *testing.T) {
	for _, et := range EventTypes() {
		assert.True(t, IsEventType(et), et)
	}
	assert.False(t, IsEventType(""))
}
