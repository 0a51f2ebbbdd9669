package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	equipmentdomain "github.com/obralog/fleetmeter/internal/equipment/domain"
)

func (s *Server) ListEquipment(c *gin.Context) {
	var query struct {
		Active string `form:"active"`
		Query  string `form:"q"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	req := equipmentdomain.ListRequest{
		Query: strings.TrimSpace(query.Query),
	}
	if active != nil {
		req.ActiveOnly = *active
	}

	resp, err := s.equipmentSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetEquipmentByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.equipmentSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetEquipmentPrevious pre-fills the reading form with the last known
// counters resolved across every source.
func (s *Server) GetEquipmentPrevious(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.reconcileSvc.Previous(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("equipment_code", resp.Code)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
