// Package domain contains the candidate and resolution types for the
// previous-value engine.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	readingdomain "github.com/obralog/fleetmeter/internal/reading/domain"
)

// Candidate is one source's best answer for an equipment's last known
// counters. Never persisted. A nil Date marks a low-confidence candidate
// whose date cell could not be parsed; it ranks after every dated one.
type Candidate struct {
	EquipmentID snowflake.ID
	Date        *time.Time
	HourMeter   *float64
	Odometer    *float64
	Operator    string
	Source      string
	CreatedAt   time.Time
}

// Resolution is the single authoritative answer assembled from the
// candidates. The two counters resolve independently, so the hour meter
// and odometer may come from different candidates than the date.
type Resolution struct {
	Date      *time.Time
	HourMeter *float64
	Odometer  *float64
	Operator  string
	Source    string
}

// Empty reports the no-history case: no candidate from any source.
func (r Resolution) Empty() bool {
	return r.Date == nil && r.HourMeter == nil && r.Odometer == nil &&
		r.Operator == "" && r.Source == ""
}

// SourcePriority ranks source tags for recency ties. Spreadsheets win
// because field staff correct them directly, making them the operational
// source of truth; the fuel log sits between because pump attendants
// record counters at dispensing time.
func SourcePriority(source string) int {
	switch source {
	case readingdomain.SourceSheetReadings, readingdomain.SourceSheetFuelLog:
		return 3
	case readingdomain.SourceDBFuelEvent:
		return 2
	case readingdomain.SourceDBReading:
		return 1
	default:
		return 0
	}
}

// Response is the form pre-fill payload for the previous-value endpoint.
type Response struct {
	EquipmentID string   `json:"equipment_id"`
	Code        string   `json:"code"`
	Date        string   `json:"date,omitempty"`
	HourMeter   *float64 `json:"hour_meter,omitempty"`
	Odometer    *float64 `json:"odometer,omitempty"`
	Operator    string   `json:"operator,omitempty"`
	Source      string   `json:"source,omitempty"`
	HasHistory  bool     `json:"has_history"`
}

type Service interface {
	// Collect fans out to every source concurrently and returns whatever
	// candidates survived. A failing source contributes nothing; Collect
	// itself never fails.
	Collect(ctx context.Context, code string, equipmentID snowflake.ID) []Candidate
	// Resolve picks the authoritative candidate by recency then source
	// priority. Pure; an empty input yields the zero Resolution.
	Resolve(candidates []Candidate) Resolution
	// Previous runs Collect then Resolve for one catalog entry.
	Previous(ctx context.Context, equipmentID string) (*Response, error)
}
