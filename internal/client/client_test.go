package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/citport/od-portal-api/internal/models"
	appErrors "github.com/citport/od-portal-api/pkg/errors"
)

func TestClientStudentLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/od/auth/login", r.URL.Path)
		var req models.StudentLoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "arjun.cse2022@citchennai.net", req.Email)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": models.StudentProfile{Email: req.Email, Name: "Arjun", Department: "CSE"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, zap.NewNop())
	profile, err := c.StudentLogin(context.Background(), "arjun.cse2022@citchennai.net")
	require.NoError(t, err)
	assert.Equal(t, "Arjun", profile.Name)
}

func TestClientFacultyLoginRetainsToken(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Path {
		case "/od/auth/faculty-login":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": models.FacultyLoginResponse{Username: "admin", Role: "faculty", AccessToken: "token-123"},
			})
		case "/od/all":
			assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(map[string]interface{}{"data": []models.ODRequest{}})
		}
	}))
	defer srv.Close()

	c := New(srv.URL, zap.NewNop())
	res, err := c.FacultyLogin(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "token-123", res.AccessToken)

	_, err = c.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestClientErrorDetailPreferred(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"detail": "unknown department code",
			"error":  map[string]interface{}{"code": "VALIDATION_ERROR", "message": "structured message", "status": 400},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, zap.NewNop())
	_, err := c.Submit(context.Background(), models.RequestDraft{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, "unknown department code", appErr.Message)
	assert.Equal(t, appErrors.ErrSubmissionFailed.Code, appErr.Code)
}

func TestClientErrorFallsBackToStructuredMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"code": "NOT_FOUND", "message": "request not found", "status": 404},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, zap.NewNop())
	_, err := c.UpdateStatus(context.Background(), "missing", models.StatusApproved)
	require.Error(t, err)
	assert.Equal(t, "request not found", appErrors.FromError(err).Message)
}

func TestClientErrorDefaultMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom")) // not an envelope
	}))
	defer srv.Close()

	c := New(srv.URL, zap.NewNop())
	_, err := c.UpdateStatus(context.Background(), "r1", models.StatusApproved)
	require.Error(t, err)
	assert.Equal(t, "Status update failed", appErrors.FromError(err).Message)
}

func TestClientNetworkError(t *testing.T) {
	c := New("http://127.0.0.1:1", zap.NewNop())
	_, err := c.ListAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNetwork.Code, appErrors.FromError(err).Code)
}

func TestClientListByEmailEscapesPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		json.NewEncoder(w).Encode(map[string]interface{}{"data": []models.HistoryEntry{{ID: "r1"}}})
	}))
	defer srv.Close()

	c := New(srv.URL, zap.NewNop())
	entries, err := c.ListByEmail(context.Background(), "arjun.cse2022@citchennai.net")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, gotPath, "/od/student/email/")
}

func TestClientHealthcheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthcheck", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok"})
	}))
	defer srv.Close()

	c := New(srv.URL, zap.NewNop())
	require.NoError(t, c.Healthcheck(context.Background()))
}
