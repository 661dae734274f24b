package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chimibusiness/crm/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:         "test",
		CORSOrigins: []string{"http://localhost:5173"},
		Auth: config.AuthConfig{
			SecretKey:      "app-test-secret-0123456789abcdef",
			TokenTTL:       30 * time.Minute,
			HashMemoryKiB:  1024,
			HashIterations: 1,
			HashThreads:    1,
		},
		Redis: config.RedisConfig{CacheTTL: 30 * time.Second},
		RateLimit: config.RateLimitConfig{
			LoginLimit: 5, LoginWindow: time.Minute,
			RegisterLimit: 5, RegisterWindow: time.Minute,
			AdminVerifyLimit: 5, AdminVerifyWindow: time.Minute,
		},
	}
}

func newTestApp(t *testing.T, rdb *redis.Client) (*App, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	a := New(testConfig(), db, rdb)
	a.RegisterRoutes()
	return a, mock
}

func get(a *App, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func TestRoot(t *testing.T) {
	a, _ := newTestApp(t, nil)

	rec := get(a, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Welcome to Chimi Business CRM API"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestHealthz(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	a, mock := newTestApp(t, rdb)

	mock.ExpectPing()
	rec := get(a, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["database"])
	assert.Equal(t, "ok", body["redis"])

	// Redis down degrades but stays healthy.
	mr.Close()
	mock.ExpectPing()
	rec = get(a, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body["redis"])

	mock.ExpectPing().WillReturnError(assert.AnError)
	rec = get(a, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestErrorsAreJSON(t *testing.T) {
	a, _ := newTestApp(t, nil)

	rec := get(a, "/no-such-route")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_found", body["error"])
	assert.NotEmpty(t, body["detail"])

	rec = get(a, "/users/me")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(a, "/admin/users")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
