// Package domain contains the spreadsheet-sync source types.
package domain

import (
	"context"
	"errors"
	"time"
)

// SheetData is one sheet's content as served by the sync service. Row keys
// are the sheet's live column headers, which vary between deployments and
// over time; callers resolve them through the column alias table.
type SheetData struct {
	Headers []string         `json:"headers"`
	Rows    []map[string]any `json:"rows"`
}

// Source pairs a configured sheet name with its reading source tag.
type Source struct {
	Sheet string
	Tag   string
}

// RowReading is a sheet row lifted into typed fields. A nil Date marks a
// row whose date cell could not be parsed; it stays usable as a
// low-confidence candidate.
type RowReading struct {
	Code      string
	Date      *time.Time
	HourMeter *float64
	Odometer  *float64
	Liters    *float64
	Operator  string
	Source    string
}

// CodeDate is one (equipment code, date) coverage pair from a sheet.
type CodeDate struct {
	Code string
	Date time.Time
}

// MirrorReading is the subset of a stored reading mirrored back to the
// readings sheet after a form submission.
type MirrorReading struct {
	Code        string
	Date        time.Time
	HourMeter   *float64
	Odometer    *float64
	Operator    string
	Observation string
}

type Client interface {
	GetRows(ctx context.Context, sheet string) (*SheetData, error)
	AppendOrUpsertRow(ctx context.Context, sheet string, values map[string]any) error
}

type Service interface {
	// Sources lists the configured sheets in priority order.
	Sources() []Source
	// ReadingsByCode returns the source's rows whose equipment code matches
	// after normalization and which carry at least one positive measurement.
	ReadingsByCode(ctx context.Context, source Source, code string) ([]RowReading, error)
	// Coverage returns the source's (code, date) pairs inside the window.
	Coverage(ctx context.Context, source Source, from, to time.Time) ([]CodeDate, error)
	// MirrorReading appends or upserts a reading row on the readings sheet.
	MirrorReading(ctx context.Context, row MirrorReading) error
}

var (
	ErrSheetUnavailable = errors.New("sheet_unavailable")
	ErrInvalidSheet     = errors.New("invalid_sheet")
)
