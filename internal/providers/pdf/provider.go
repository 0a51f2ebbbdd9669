package pdf

import (
	"context"
	"io"
)

// ChecklistData is everything the printed pending checklist needs. One
// section per date, oldest first, matching the clipboard route the site
// supervisor walks.
type ChecklistData struct {
	SiteName    string
	GeneratedAt string
	Window      string
	Warnings    []string
	Sections    []ChecklistSection
}

type ChecklistSection struct {
	Date    string
	Entries []ChecklistEntry
}

type ChecklistEntry struct {
	Code     string
	Name     string
	Category string
}

type Provider interface {
	GenerateChecklist(ctx context.Context, data ChecklistData) (io.Reader, error)
}

type NoOpProvider struct{}

func (p *NoOpProvider) GenerateChecklist(ctx context.Context, data ChecklistData) (io.Reader, error) {
	return nil, nil
}
