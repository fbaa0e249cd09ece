package middleware

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"feedhub/internal/models"
	"feedhub/internal/test"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deviceRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "token", "user_agent",
		"push_endpoint", "push_p256dh", "push_auth", "created_at"})
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "password_hash",
		"verification_code", "created_at", "updated_at"})
}

func TestAuthMiddlewareAttachesUserAndDevice(t *testing.T) {
	_, mock := test.NewMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM devices WHERE token = $1")).
		WithArgs("valid-token").
		WillReturnRows(deviceRows().
			AddRow(2, 1, "valid-token", "test-agent", nil, nil, nil, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(userRows().
			AddRow(1, "jane@example.com", "hash", nil, time.Now(), time.Now()))

	var gotUser *models.User
	var gotDevice *models.Device
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = r.Context().Value(models.UserContextKey).(*models.User)
		gotDevice, _ = r.Context().Value(models.DeviceContextKey).(*models.Device)
	})

	req := httptest.NewRequest("GET", "/items", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rr := httptest.NewRecorder()
	AuthMiddleware(next).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, gotUser)
	assert.Equal(t, "jane@example.com", gotUser.Email)
	require.NotNil(t, gotDevice)
	assert.Equal(t, "valid-token", gotDevice.Token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	test.NewMockDB(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	})

	req := httptest.NewRequest("GET", "/items", nil)
	rr := httptest.NewRecorder()
	AuthMiddleware(next).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	test.NewMockDB(t)

	req := httptest.NewRequest("GET", "/items", nil)
	req.Header.Set("Authorization", "Basic abc123")
	rr := httptest.NewRecorder()
	AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	})).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthMiddlewareUnknownToken(t *testing.T) {
	_, mock := test.NewMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM devices WHERE token = $1")).
		WithArgs("stale-token").
		WillReturnRows(deviceRows())

	req := httptest.NewRequest("GET", "/items", nil)
	req.Header.Set("Authorization", "Bearer stale-token")
	rr := httptest.NewRecorder()
	AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	})).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
