// Package domain contains the pending-work types for the gap detector.
package domain

import (
	"context"
	"errors"
	"time"
)

// Window bounds a gap scan: either the last Days calendar days (today
// inclusive) or one explicit Date. Date wins when both are set.
type Window struct {
	Days int
	Date *time.Time
}

// PendingEntry is one piece of equipment missing a reading on a date.
type PendingEntry struct {
	EquipmentID string `json:"equipment_id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Category    string `json:"category"`
}

// Result maps yyyy-MM-dd dates to their pending equipment. Warnings lists
// the source tags that failed and therefore contributed zero coverage; the
// view renders them so a full-looking pending list is never silently wrong.
type Result struct {
	Pending  map[string][]PendingEntry `json:"pending"`
	Warnings []string                  `json:"warnings,omitempty"`
}

type Service interface {
	// FindGaps returns, per date in the window, the active equipment with
	// no recorded reading from any source. The free-text filter narrows
	// the roster by code, name, category or description.
	FindGaps(ctx context.Context, window Window, filter string) (*Result, error)
}

var ErrInvalidWindow = errors.New("invalid_window")
