package view

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/citport/od-portal-api/internal/models"
	appErrors "github.com/citport/od-portal-api/pkg/errors"
)

// Gateway is the slice of the backend client the lifecycle model needs.
type Gateway interface {
	Submit(ctx context.Context, draft models.RequestDraft) (*models.ODRequest, error)
	UpdateStatus(ctx context.Context, id string, status models.RequestStatus) (*models.ODRequest, error)
}

// Lifecycle enforces the client-side request state machine: drafts are
// validated before any network call, and decided requests are never sent
// back to the backend for the same decision.
type Lifecycle struct {
	gateway Gateway
	logger  *zap.Logger
	now     func() time.Time
}

// NewLifecycle constructs a Lifecycle model over the given gateway.
func NewLifecycle(gateway Gateway, logger *zap.Logger) *Lifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lifecycle{gateway: gateway, logger: logger, now: time.Now}
}

// Submit validates the draft locally, stamps the submission time, and sends
// it to the backend. Blank required fields fail before any network call.
func (l *Lifecycle) Submit(ctx context.Context, draft models.RequestDraft) (*models.ODRequest, error) {
	if field := firstBlank(draft); field != "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, field+" is required")
	}
	if !models.ValidDepartment(draft.DeptName) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown department code")
	}
	draft.AppliedAt = l.now().UTC().Format(time.RFC3339)

	created, err := l.gateway.Submit(ctx, draft)
	if err != nil {
		return nil, err
	}
	l.logger.Info("request submitted", zap.String("id", created.ID), zap.String("status", string(created.Status)))
	return created, nil
}

// UpdateStatus applies a faculty decision to the collection. When the entry
// already carries the requested status the call is an idempotent no-op and
// no network request is made. On success exactly the matching entry is
// replaced in place; every other entry is untouched.
func (l *Lifecycle) UpdateStatus(ctx context.Context, entries []Entry, id string, status models.RequestStatus) ([]Entry, bool, error) {
	if status != models.StatusApproved && status != models.StatusRejected {
		return entries, false, appErrors.Clone(appErrors.ErrValidation, "status must be approved or rejected")
	}

	idx := -1
	for i, e := range entries {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return entries, false, appErrors.Clone(appErrors.ErrNotFound, "request not found in collection")
	}
	if entries[idx].Status == status {
		return entries, false, nil
	}

	updated, err := l.gateway.UpdateStatus(ctx, id, status)
	if err != nil {
		return entries, false, err
	}

	patched := make([]Entry, len(entries))
	copy(patched, entries)
	patched[idx].Status = updated.Status
	l.logger.Info("request decided", zap.String("id", id), zap.String("status", string(status)))
	return patched, true, nil
}

func firstBlank(draft models.RequestDraft) string {
	fields := []struct {
		label string
		value string
	}{
		{"name", draft.Name},
		{"department", draft.DeptName},
		{"roll number", draft.RollNo},
		{"section", draft.Section},
		{"reason", draft.Reason},
		{"venue", draft.Venue},
		{"description", draft.Description},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return f.label
		}
	}
	return ""
}
