package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/citport/od-portal-api/internal/models"
	"github.com/citport/od-portal-api/internal/service"
)

type fakeRequestRepo struct {
	requests    []models.ODRequest
	updateCalls int
}

func (f *fakeRequestRepo) Create(ctx context.Context, req *models.ODRequest) error {
	if req.ID == "" {
		req.ID = "generated"
	}
	req.Status = models.StatusPending
	f.requests = append(f.requests, *req)
	return nil
}

func (f *fakeRequestRepo) ListAll(ctx context.Context) ([]models.ODRequest, error) {
	return f.requests, nil
}

func (f *fakeRequestRepo) ListByRollNo(ctx context.Context, rollNo string) ([]models.ODRequest, error) {
	var out []models.ODRequest
	for _, r := range f.requests {
		if r.RollNo == rollNo {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) ListByEmail(ctx context.Context, email string) ([]models.ODRequest, error) {
	var out []models.ODRequest
	for _, r := range f.requests {
		if r.StudentEmail == email {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) FindByID(ctx context.Context, id string) (*models.ODRequest, error) {
	for i := range f.requests {
		if f.requests[i].ID == id {
			return &f.requests[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRequestRepo) UpdateStatus(ctx context.Context, id string, status models.RequestStatus) (*models.ODRequest, error) {
	f.updateCalls++
	for i := range f.requests {
		if f.requests[i].ID == id {
			f.requests[i].Status = status
			return &f.requests[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRequestRepo) CountByStatus(ctx context.Context) (*models.RequestStats, error) {
	stats := &models.RequestStats{Total: len(f.requests)}
	for _, r := range f.requests {
		switch r.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusApproved:
			stats.Approved++
		case models.StatusRejected:
			stats.Rejected++
		}
	}
	return stats, nil
}

func newODHandler(repo *fakeRequestRepo) *ODHandler {
	cache := service.NewCacheService(nil, nil, time.Minute, zap.NewNop(), false)
	svc := service.NewRequestService(repo, cache, service.NewMetricsService(), validator.New(), zap.NewNop())
	return NewODHandler(svc)
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type testEnvelope struct {
	Data   json.RawMessage        `json:"data"`
	Detail string                 `json:"detail"`
	Meta   map[string]interface{} `json:"meta"`
}

func TestODHandlerApply(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeRequestRepo{}
	handler := newODHandler(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/od/apply", `{
		"student_email": "arjun.cse2022@citchennai.net",
		"name": "Arjun",
		"dept_name": "CSE",
		"roll_no": "CSE2201",
		"section": "A",
		"reason": "Hackathon",
		"venue": "IIT Madras",
		"description": "National level hackathon"
	}`)

	handler.Apply(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var envelope testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	var created models.ODRequest
	require.NoError(t, json.Unmarshal(envelope.Data, &created))
	assert.Equal(t, models.StatusPending, created.Status)
	assert.Len(t, repo.requests, 1)
}

func TestODHandlerApplyMissingField(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newODHandler(&fakeRequestRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/od/apply", `{"name": "Arjun"}`)

	handler.Apply(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Detail)
}

func TestODHandlerAll(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeRequestRepo{requests: []models.ODRequest{
		{ID: "r1", Status: models.StatusPending, AppliedAt: time.Now()},
	}}
	handler := newODHandler(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/od/all", nil)

	handler.All(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, false, envelope.Meta["cache_hit"])
}

func TestODHandlerByRollNo(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeRequestRepo{requests: []models.ODRequest{
		{ID: "r1", RollNo: "CSE2201", Status: models.StatusPending, AppliedAt: time.Now()},
		{ID: "r2", RollNo: "ECE2202", Status: models.StatusApproved, AppliedAt: time.Now()},
	}}
	handler := newODHandler(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/od/student/CSE2201", nil)
	c.Params = gin.Params{{Key: "rollNo", Value: "CSE2201"}}

	handler.ByRollNo(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	var entries []models.HistoryEntry
	require.NoError(t, json.Unmarshal(envelope.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "r1", entries[0].ID)
}

func TestODHandlerByEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeRequestRepo{requests: []models.ODRequest{
		{ID: "r1", StudentEmail: "arjun.cse2022@citchennai.net", Status: models.StatusPending, AppliedAt: time.Now()},
	}}
	handler := newODHandler(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/od/student/email/arjun.cse2022@citchennai.net", nil)
	c.Params = gin.Params{{Key: "email", Value: "arjun.cse2022@citchennai.net"}}

	handler.ByEmail(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestODHandlerUpdateStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeRequestRepo{requests: []models.ODRequest{
		{ID: "r1", Status: models.StatusPending, AppliedAt: time.Now()},
	}}
	handler := newODHandler(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPatch, "/od/status/r1", `{"status": "approved"}`)
	c.Params = gin.Params{{Key: "id", Value: "r1"}}

	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusApproved, repo.requests[0].Status)
}

func TestODHandlerUpdateStatusNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newODHandler(&fakeRequestRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPatch, "/od/status/missing", `{"status": "rejected"}`)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var envelope testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Detail)
}

func TestODHandlerUpdateStatusBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newODHandler(&fakeRequestRepo{requests: []models.ODRequest{{ID: "r1"}}})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPatch, "/od/status/r1", `{"status": "maybe"}`)
	c.Params = gin.Params{{Key: "id", Value: "r1"}}

	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestODHandlerStats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeRequestRepo{requests: []models.ODRequest{
		{ID: "r1", Status: models.StatusPending},
		{ID: "r2", Status: models.StatusApproved},
	}}
	handler := newODHandler(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/od/stats", nil)

	handler.Stats(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	var stats models.RequestStats
	require.NoError(t, json.Unmarshal(envelope.Data, &stats))
	assert.Equal(t, 2, stats.Total)
}

func TestODHandlerExportCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeRequestRepo{requests: []models.ODRequest{
		{ID: "r1", RollNo: "CSE2201", Status: models.StatusPending, AppliedAt: time.Now()},
	}}
	handler := newODHandler(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/od/export?format=csv", nil)

	handler.Export(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "od-register.csv")
	assert.Contains(t, rec.Body.String(), "CSE2201")
}
