// Package view derives display collections over OD requests: filtering,
// sorting, aggregate counters, the client-side lifecycle guard, and the
// polling synchronizer that keeps a history screen fresh.
package view

import (
	"time"

	"github.com/citport/od-portal-api/internal/models"
)

// Entry is one row of a history or dashboard screen. Timestamps stay as raw
// strings because the backend may return missing or unparsable values; the
// sort layer falls back to the epoch for those.
type Entry struct {
	ID          string
	Name        string
	RollNo      string
	DeptName    string
	Venue       string
	Reason      string
	Description string
	Status      models.RequestStatus
	AppliedAt   string
}

// FromRequests converts full register rows into view entries.
func FromRequests(requests []models.ODRequest) []Entry {
	entries := make([]Entry, 0, len(requests))
	for _, req := range requests {
		entries = append(entries, Entry{
			ID:          req.ID,
			Name:        req.Name,
			RollNo:      req.RollNo,
			DeptName:    req.DeptName,
			Venue:       req.Venue,
			Reason:      req.Reason,
			Description: req.Description,
			Status:      req.Status,
			AppliedAt:   req.AppliedAt.UTC().Format(time.RFC3339),
		})
	}
	return entries
}

// FromHistory converts student history rows into view entries.
func FromHistory(history []models.HistoryEntry) []Entry {
	entries := make([]Entry, 0, len(history))
	for _, h := range history {
		entries = append(entries, Entry{
			ID:          h.ID,
			Venue:       h.Venue,
			Reason:      h.Reason,
			Description: h.Description,
			Status:      h.Status,
			AppliedAt:   h.AppliedAt,
		})
	}
	return entries
}

// appliedTime parses the entry timestamp, treating missing or malformed
// values as the earliest possible instant.
func (e Entry) appliedTime() time.Time {
	if e.AppliedAt == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, e.AppliedAt)
	if err != nil {
		return time.Time{}
	}
	return ts
}
