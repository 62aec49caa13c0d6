package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/citport/od-portal-api/internal/models"
	appErrors "github.com/citport/od-portal-api/pkg/errors"
	"github.com/citport/od-portal-api/pkg/export"
)

const (
	cacheKeyAllRequests = "od:requests:all"
	cacheKeyStats       = "od:requests:stats"
	cacheInvalidateAll  = "od:requests:*"
)

type requestRepository interface {
	Create(ctx context.Context, req *models.ODRequest) error
	ListAll(ctx context.Context) ([]models.ODRequest, error)
	ListByRollNo(ctx context.Context, rollNo string) ([]models.ODRequest, error)
	ListByEmail(ctx context.Context, email string) ([]models.ODRequest, error)
	FindByID(ctx context.Context, id string) (*models.ODRequest, error)
	UpdateStatus(ctx context.Context, id string, status models.RequestStatus) (*models.ODRequest, error)
	CountByStatus(ctx context.Context) (*models.RequestStats, error)
}

// RequestService owns the server-side OD request lifecycle.
type RequestService struct {
	repo      requestRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
}

// NewRequestService constructs the request service.
func NewRequestService(repo requestRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{
		repo:      repo,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
	}
}

// Submit validates a draft and stores it as a fresh pending request. The
// client-supplied applied_at is honoured when parseable, otherwise the server
// clock wins; status is always forced to pending.
func (s *RequestService) Submit(ctx context.Context, draft models.RequestDraft) (*models.ODRequest, error) {
	if err := s.validator.Struct(draft); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "all request fields are required")
	}
	if !models.ValidDepartment(draft.DeptName) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown department code")
	}

	appliedAt := time.Now().UTC()
	if draft.AppliedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, draft.AppliedAt); err == nil {
			appliedAt = parsed.UTC()
		}
	}

	req := &models.ODRequest{
		StudentEmail: draft.StudentEmail,
		Name:         draft.Name,
		DeptName:     draft.DeptName,
		RollNo:       draft.RollNo,
		Section:      draft.Section,
		Reason:       draft.Reason,
		Venue:        draft.Venue,
		Description:  draft.Description,
		AppliedAt:    appliedAt,
	}

	start := time.Now()
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit request")
	}
	s.metrics.ObserveDBQuery("od_request_create", time.Since(start))
	s.cache.Invalidate(ctx, cacheInvalidateAll)

	s.logger.Info("od request submitted",
		zap.String("id", req.ID),
		zap.String("roll_no", req.RollNo),
		zap.String("venue", req.Venue),
	)
	return req, nil
}

// ListAll returns the full register for faculty review, cache first.
func (s *RequestService) ListAll(ctx context.Context) ([]models.ODRequest, bool, error) {
	var cached []models.ODRequest
	if s.cache.Get(ctx, cacheKeyAllRequests, &cached) {
		return cached, true, nil
	}

	start := time.Now()
	requests, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	s.metrics.ObserveDBQuery("od_request_list_all", time.Since(start))

	s.cache.Set(ctx, cacheKeyAllRequests, requests, 0)
	return requests, false, nil
}

// HistoryByRollNo returns a student's own requests shaped for display.
func (s *RequestService) HistoryByRollNo(ctx context.Context, rollNo string) ([]models.HistoryEntry, error) {
	if rollNo == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "roll number is required")
	}
	requests, err := s.repo.ListByRollNo(ctx, rollNo)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student requests")
	}
	return toHistory(requests), nil
}

// HistoryByEmail returns a student's own requests looked up by email.
func (s *RequestService) HistoryByEmail(ctx context.Context, email string) ([]models.HistoryEntry, error) {
	if email == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "email is required")
	}
	requests, err := s.repo.ListByEmail(ctx, email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student requests")
	}
	return toHistory(requests), nil
}

// UpdateStatus applies a faculty decision to a single request.
func (s *RequestService) UpdateStatus(ctx context.Context, id string, update models.StatusUpdate) (*models.ODRequest, error) {
	if err := s.validator.Struct(update); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "status must be approved or rejected")
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if current.Status == update.Status {
		return current, nil
	}

	start := time.Now()
	updated, err := s.repo.UpdateStatus(ctx, id, update.Status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpdateFailed.Code, appErrors.ErrUpdateFailed.Status, "failed to update request status")
	}
	s.metrics.ObserveDBQuery("od_request_update_status", time.Since(start))
	s.metrics.RecordStatusUpdate(string(update.Status))
	s.cache.Invalidate(ctx, cacheInvalidateAll)

	s.logger.Info("od request status updated",
		zap.String("id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(update.Status)),
	)
	return updated, nil
}

// Stats aggregates the register into dashboard counters, cache first.
func (s *RequestService) Stats(ctx context.Context) (*models.RequestStats, error) {
	var cached models.RequestStats
	if s.cache.Get(ctx, cacheKeyStats, &cached) {
		return &cached, nil
	}

	stats, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate requests")
	}
	s.cache.Set(ctx, cacheKeyStats, stats, 0)
	return stats, nil
}

// Export renders the full register as csv or pdf.
func (s *RequestService) Export(ctx context.Context, format string) ([]byte, string, error) {
	requests, _, err := s.ListAll(ctx)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Roll No", "Name", "Dept", "Section", "Venue", "Reason", "Status", "Applied At"},
	}
	for _, req := range requests {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Roll No":    req.RollNo,
			"Name":       req.Name,
			"Dept":       req.DeptName,
			"Section":    req.Section,
			"Venue":      req.Venue,
			"Reason":     req.Reason,
			"Status":     string(req.Status),
			"Applied At": req.AppliedAt.UTC().Format(time.RFC3339),
		})
	}

	switch format {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, "On-Duty Request Register")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	}
	return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
}

func toHistory(requests []models.ODRequest) []models.HistoryEntry {
	entries := make([]models.HistoryEntry, 0, len(requests))
	for _, req := range requests {
		entries = append(entries, models.HistoryEntry{
			ID:          req.ID,
			Date:        req.AppliedAt.UTC().Format("2006-01-02"),
			Venue:       req.Venue,
			Reason:      req.Reason,
			Description: req.Description,
			Status:      req.Status,
			AppliedAt:   req.AppliedAt.UTC().Format(time.RFC3339),
		})
	}
	return entries
}
