package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/citport/od-portal-api/internal/models"
)

// RequestRepository manages persistence for OD requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs a RequestRepository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestColumns = "id, student_email, name, dept_name, roll_no, section, reason, venue, description, status, applied_at"

// Create inserts a new OD request. The status and timestamp are fixed here so
// callers cannot submit anything but a fresh pending request.
func (r *RequestRepository) Create(ctx context.Context, req *models.ODRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Status = models.StatusPending
	if req.AppliedAt.IsZero() {
		req.AppliedAt = time.Now().UTC()
	}
	const query = `INSERT INTO od_requests (id, student_email, name, dept_name, roll_no, section, reason, venue, description, status, applied_at)
        VALUES (:id, :student_email, :name, :dept_name, :roll_no, :section, :reason, :venue, :description, :status, :applied_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create od request: %w", err)
	}
	return nil
}

// ListAll returns every OD request, most recent first.
func (r *RequestRepository) ListAll(ctx context.Context) ([]models.ODRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM od_requests ORDER BY applied_at DESC", requestColumns)
	var requests []models.ODRequest
	if err := r.db.SelectContext(ctx, &requests, query); err != nil {
		return nil, fmt.Errorf("list od requests: %w", err)
	}
	return requests, nil
}

// ListByRollNo returns a student's requests looked up by roll number.
func (r *RequestRepository) ListByRollNo(ctx context.Context, rollNo string) ([]models.ODRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM od_requests WHERE roll_no = $1 ORDER BY applied_at DESC", requestColumns)
	var requests []models.ODRequest
	if err := r.db.SelectContext(ctx, &requests, query, rollNo); err != nil {
		return nil, fmt.Errorf("list od requests by roll no: %w", err)
	}
	return requests, nil
}

// ListByEmail returns a student's requests looked up by email.
func (r *RequestRepository) ListByEmail(ctx context.Context, email string) ([]models.ODRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM od_requests WHERE student_email = $1 ORDER BY applied_at DESC", requestColumns)
	var requests []models.ODRequest
	if err := r.db.SelectContext(ctx, &requests, query, email); err != nil {
		return nil, fmt.Errorf("list od requests by email: %w", err)
	}
	return requests, nil
}

// FindByID fetches a single request.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.ODRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM od_requests WHERE id = $1", requestColumns)
	var req models.ODRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateStatus applies a faculty decision and returns the stored row.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id string, status models.RequestStatus) (*models.ODRequest, error) {
	const query = `UPDATE od_requests SET status = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return nil, fmt.Errorf("update od request status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, fmt.Errorf("update od request status: no rows affected")
	}
	return r.FindByID(ctx, id)
}

// CountByStatus aggregates the register into dashboard counters.
func (r *RequestRepository) CountByStatus(ctx context.Context) (*models.RequestStats, error) {
	const query = `SELECT status, COUNT(*) AS count FROM od_requests GROUP BY status`
	rows := []struct {
		Status models.RequestStatus `db:"status"`
		Count  int                  `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count od requests: %w", err)
	}
	stats := &models.RequestStats{}
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case models.StatusPending:
			stats.Pending += row.Count
		case models.StatusApproved:
			stats.Approved += row.Count
		case models.StatusRejected:
			stats.Rejected += row.Count
		}
	}
	return stats, nil
}
