package core

import (
	"cmp"
	"slices"
	"strings"

	"github.com/jmylchreest/cmsnotifs/internal/model"
)

// SortField represents a field to sort by.
type SortField string

const (
	SortByCreated SortField = "created"
	SortByID      SortField = "id"
	SortBySubject SortField = "subject"
)

// SortOrder represents ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortOptions specifies sorting criteria.
type SortOptions struct {
	Field SortField
	Order SortOrder
}

// DefaultSortOptions returns newest first.
func DefaultSortOptions() SortOptions {
	return SortOptions{Field: SortByCreated, Order: SortDesc}
}

// Sort sorts ns in place. Creation-time ties (and servers that omit
// timecreated) fall back to the id, which Moodle assigns in order.
func Sort(ns []model.Notification, opts SortOptions) {
	slices.SortStableFunc(ns, func(a, b model.Notification) int {
		c := compare(a, b, opts.Field)
		if opts.Order == SortDesc {
			return -c
		}
		return c
	})
}

func compare(a, b model.Notification, field SortField) int {
	switch field {
	case SortBySubject:
		return strings.Compare(strings.ToLower(a.Subject), strings.ToLower(b.Subject))
	case SortByID:
		return cmp.Compare(a.ID, b.ID)
	default:
		return cmp.Or(cmp.Compare(a.TimeCreated, b.TimeCreated), cmp.Compare(a.ID, b.ID))
	}
}

// ParseSortField parses a sort field, defaulting to SortByCreated.
func ParseSortField(s string) SortField {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "id", "i":
		return SortByID
	case "subject", "s":
		return SortBySubject
	default:
		return SortByCreated
	}
}

// ParseSortOrder parses a sort order, defaulting to SortDesc.
func ParseSortOrder(s string) SortOrder {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending", "a":
		return SortAsc
	default:
		return SortDesc
	}
}
