// Package client provides HTTP bindings for the OD portal backend contract.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/citport/od-portal-api/internal/models"
	appErrors "github.com/citport/od-portal-api/pkg/errors"
)

// Client talks to a backend exposing the OD request contract. It is safe for
// use from a single goroutine; the poller and CLI share one instance.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
	token   string
}

// New constructs a Client against the given base URL.
func New(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// SetToken attaches a faculty access token to subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// StudentLogin exchanges a college email for a student profile.
func (c *Client) StudentLogin(ctx context.Context, email string) (*models.StudentProfile, error) {
	var profile models.StudentProfile
	err := c.do(ctx, http.MethodPost, "/od/auth/login", models.StudentLoginRequest{Email: email}, &profile, appErrors.ErrAuth, "Login failed")
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// FacultyLogin authenticates a reviewer. The server response is authoritative;
// the returned token is retained for protected calls.
func (c *Client) FacultyLogin(ctx context.Context, username, password string) (*models.FacultyLoginResponse, error) {
	var res models.FacultyLoginResponse
	err := c.do(ctx, http.MethodPost, "/od/auth/faculty-login", models.FacultyLoginRequest{Username: username, Password: password}, &res, appErrors.ErrAuth, "Login failed")
	if err != nil {
		return nil, err
	}
	c.token = res.AccessToken
	return &res, nil
}

// Submit sends a request draft to the backend.
func (c *Client) Submit(ctx context.Context, draft models.RequestDraft) (*models.ODRequest, error) {
	var created models.ODRequest
	err := c.do(ctx, http.MethodPost, "/od/apply", draft, &created, appErrors.ErrSubmissionFailed, "Submission failed")
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// ListByRollNo fetches a student's history by roll number.
func (c *Client) ListByRollNo(ctx context.Context, rollNo string) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	path := "/od/student/" + url.PathEscape(rollNo)
	if err := c.do(ctx, http.MethodGet, path, nil, &entries, appErrors.ErrFetchFailed, "Failed to fetch student ODs"); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListByEmail fetches a student's history by email.
func (c *Client) ListByEmail(ctx context.Context, email string) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	path := "/od/student/email/" + url.PathEscape(email)
	if err := c.do(ctx, http.MethodGet, path, nil, &entries, appErrors.ErrFetchFailed, "Failed to fetch student ODs"); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListAll fetches the full register (faculty only).
func (c *Client) ListAll(ctx context.Context) ([]models.ODRequest, error) {
	var requests []models.ODRequest
	if err := c.do(ctx, http.MethodGet, "/od/all", nil, &requests, appErrors.ErrFetchFailed, "Failed to fetch all ODs"); err != nil {
		return nil, err
	}
	return requests, nil
}

// UpdateStatus records a faculty decision (faculty only).
func (c *Client) UpdateStatus(ctx context.Context, id string, status models.RequestStatus) (*models.ODRequest, error) {
	var updated models.ODRequest
	path := "/od/status/" + url.PathEscape(id)
	err := c.do(ctx, http.MethodPatch, path, models.StatusUpdate{Status: status}, &updated, appErrors.ErrUpdateFailed, "Status update failed")
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Stats fetches the aggregate dashboard counters.
func (c *Client) Stats(ctx context.Context) (*models.RequestStats, error) {
	var stats models.RequestStats
	if err := c.do(ctx, http.MethodGet, "/od/stats", nil, &stats, appErrors.ErrFetchFailed, "Failed to fetch stats"); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Healthcheck probes the backend.
func (c *Client) Healthcheck(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthcheck", nil, nil, appErrors.ErrNetwork, "Backend unavailable")
}

// envelope mirrors the server response contract. Errors carry both a flat
// detail string and a structured error object; either is accepted.
type envelope struct {
	Data   json.RawMessage  `json:"data"`
	Error  *appErrors.Error `json:"error"`
	Detail string           `json:"detail"`
}

func (c *Client) do(ctx context.Context, method, path string, body, dest interface{}, fallback *appErrors.Error, defaultMsg string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, defaultMsg)
	}
	defer res.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, defaultMsg)
	}

	var env envelope
	if len(raw) > 0 {
		// A non-envelope body is tolerated; raw becomes the data payload.
		if err := json.Unmarshal(raw, &env); err != nil || (env.Data == nil && env.Error == nil && env.Detail == "") {
			env = envelope{Data: raw}
		}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg := env.Detail
		if msg == "" && env.Error != nil {
			msg = env.Error.Message
		}
		if msg == "" {
			msg = defaultMsg
		}
		c.logger.Debug("backend call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", res.StatusCode),
			zap.String("detail", msg),
		)
		return appErrors.Wrap(fmt.Errorf("%s %s: status %d", method, path, res.StatusCode), fallback.Code, res.StatusCode, msg)
	}

	if dest != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, dest); err != nil {
			return appErrors.Wrap(err, fallback.Code, fallback.Status, "failed to decode response")
		}
	}
	return nil
}
