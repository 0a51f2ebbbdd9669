package server

import (
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gapsdomain "github.com/obralog/fleetmeter/internal/gaps/domain"
	"github.com/obralog/fleetmeter/internal/providers/pdf"
)

type pendingQuery struct {
	Days  string `form:"days"`
	Date  string `form:"date"`
	Query string `form:"q"`
}

func (s *Server) GetPending(c *gin.Context) {
	window, filter, err := bindPendingQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.gapsSvc.FindGaps(c.Request.Context(), window, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetPendingChecklistPDF renders the pending list as a printable clipboard
// sheet, one section per date.
func (s *Server) GetPendingChecklistPDF(c *gin.Context) {
	window, filter, err := bindPendingQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.gapsSvc.FindGaps(c.Request.Context(), window, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	reader, err := s.pdfProvider.GenerateChecklist(c.Request.Context(), checklistData(s.cfg.Site.SiteName, window, result))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	payload, err := io.ReadAll(reader)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="pending-checklist.pdf"`)
	c.Data(http.StatusOK, "application/pdf", payload)
}

func bindPendingQuery(c *gin.Context) (gapsdomain.Window, string, error) {
	var query pendingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		return gapsdomain.Window{}, "", invalidRequestError()
	}

	days, err := parseOptionalInt(query.Days)
	if err != nil {
		return gapsdomain.Window{}, "", newValidationError("days", "invalid_days", "invalid days")
	}
	date, err := parseOptionalDate(query.Date)
	if err != nil {
		return gapsdomain.Window{}, "", newValidationError("date", "invalid_date", "invalid date")
	}

	window := gapsdomain.Window{Date: date}
	if days != nil {
		window.Days = *days
	}
	return window, strings.TrimSpace(query.Query), nil
}

func checklistData(siteName string, window gapsdomain.Window, result *gapsdomain.Result) pdf.ChecklistData {
	dates := make([]string, 0, len(result.Pending))
	for date := range result.Pending {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	sections := make([]pdf.ChecklistSection, 0, len(dates))
	for _, date := range dates {
		entries := make([]pdf.ChecklistEntry, 0, len(result.Pending[date]))
		for _, pending := range result.Pending[date] {
			entries = append(entries, pdf.ChecklistEntry{
				Code:     pending.Code,
				Name:     pending.Name,
				Category: pending.Category,
			})
		}
		sections = append(sections, pdf.ChecklistSection{Date: date, Entries: entries})
	}

	label := "last 7 days"
	switch {
	case window.Date != nil:
		label = window.Date.Format("2006-01-02")
	case window.Days > 0:
		label = "last " + strconv.Itoa(window.Days) + " days"
	}

	return pdf.ChecklistData{
		SiteName:    siteName,
		GeneratedAt: time.Now().UTC().Format("2006-01-02 15:04 MST"),
		Window:      label,
		Warnings:    result.Warnings,
		Sections:    sections,
	}
}
