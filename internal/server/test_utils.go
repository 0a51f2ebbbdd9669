package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type testCleanupRequest struct {
	Prefix string `json:"prefix"`
}

// TestCleanup removes equipment created by integration suites, keyed by a
// code prefix, together with its readings and fuel events. Not routed in
// production.
func (s *Server) TestCleanup(c *gin.Context) {
	if s.cfg.Environment == "production" {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req testCleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	prefix := strings.TrimSpace(req.Prefix)
	if prefix == "" {
		AbortWithError(c, newValidationError("prefix", "required", "prefix is required"))
		return
	}

	ctx := c.Request.Context()
	like := prefix + "%"

	var equipmentIDs []int64
	if err := s.db.WithContext(ctx).
		Table("equipment").
		Select("id").
		Where("code LIKE ?", like).
		Scan(&equipmentIDs).Error; err != nil {
		AbortWithError(c, err)
		return
	}

	if len(equipmentIDs) > 0 {
		if err := s.db.WithContext(ctx).Exec(
			`DELETE FROM readings WHERE equipment_id IN ?`, equipmentIDs,
		).Error; err != nil {
			AbortWithError(c, err)
			return
		}
		if err := s.db.WithContext(ctx).Exec(
			`DELETE FROM equipment WHERE id IN ?`, equipmentIDs,
		).Error; err != nil {
			AbortWithError(c, err)
			return
		}
	}

	if err := s.db.WithContext(ctx).Exec(
		`DELETE FROM fuel_events WHERE equipment_code LIKE ?`, like,
	).Error; err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
