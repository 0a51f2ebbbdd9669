package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// List serves the dashboard roster view.
	List(ctx context.Context, req ListRequest) ([]Response, error)
	GetByID(ctx context.Context, id string) (*Response, error)
	GetByCode(ctx context.Context, code string) (*Response, error)

	// Roster returns the active catalog for the gap and reconcile engines.
	Roster(ctx context.Context) ([]Equipment, error)
	// Catalog returns every entry, retired ones included. The backfill
	// corrector still needs kind mapping for equipment that has left the
	// site but kept its reading history.
	Catalog(ctx context.Context) ([]Equipment, error)
	// Lookup resolves a raw code to exactly one catalog entry. A code whose
	// normalized form matches several entries is ambiguous and must never be
	// matched; picking one would corrupt another machine's history.
	Lookup(ctx context.Context, code string) (*Equipment, error)
}

type ListRequest struct {
	ActiveOnly bool
	Query      string
}

type Response struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Category    string    `json:"category"`
	Kind        string    `json:"kind"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var (
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidCode   = errors.New("invalid_code")
	ErrNotFound      = errors.New("not_found")
	ErrAmbiguousCode = errors.New("ambiguous_code")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
