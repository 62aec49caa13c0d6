package view

import (
	"sort"
	"strings"

	"github.com/citport/od-portal-api/internal/models"
)

// StatusFilter narrows a collection to one lifecycle state.
type StatusFilter string

const (
	FilterAll      StatusFilter = "all"
	FilterPending  StatusFilter = "pending"
	FilterApproved StatusFilter = "approved"
	FilterRejected StatusFilter = "rejected"
)

// SortKey orders the derived view.
type SortKey string

const (
	SortDateDesc SortKey = "date-desc"
	SortDateAsc  SortKey = "date-asc"
	SortStatus   SortKey = "status"
)

// FilterState is the ephemeral view configuration. The zero value shows
// everything, newest first.
type FilterState struct {
	Search string
	Status StatusFilter
	Sort   SortKey
}

// Apply derives a fresh, filtered and sorted view over the collection. The
// input slice is never mutated.
func Apply(entries []Entry, state FilterState) []Entry {
	if state.Status == "" {
		state.Status = FilterAll
	}
	if state.Sort == "" {
		state.Sort = SortDateDesc
	}

	search := strings.ToLower(strings.TrimSpace(state.Search))
	result := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if state.Status != FilterAll && string(e.Status) != string(state.Status) {
			continue
		}
		if search != "" && !matches(e, search) {
			continue
		}
		result = append(result, e)
	}

	switch state.Sort {
	case SortDateAsc:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].appliedTime().Before(result[j].appliedTime())
		})
	case SortStatus:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].Status < result[j].Status
		})
	default:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].appliedTime().After(result[j].appliedTime())
		})
	}

	return result
}

func matches(e Entry, search string) bool {
	return strings.Contains(strings.ToLower(e.Venue), search) ||
		strings.Contains(strings.ToLower(e.Reason), search) ||
		strings.Contains(strings.ToLower(e.Description), search)
}

// Stats aggregates the UNFILTERED collection into dashboard counters.
func Stats(entries []Entry) models.RequestStats {
	stats := models.RequestStats{Total: len(entries)}
	for _, e := range entries {
		switch e.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusApproved:
			stats.Approved++
		case models.StatusRejected:
			stats.Rejected++
		}
	}
	return stats
}
