package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	fuelingdomain "github.com/obralog/fleetmeter/internal/fueling/domain"
)

type createFuelEventRequest struct {
	EquipmentCode string   `json:"equipment_code"`
	Date          string   `json:"date"`
	HourMeter     *float64 `json:"hour_meter"`
	Odometer      *float64 `json:"odometer"`
	Liters        float64  `json:"liters"`
	Operator      string   `json:"operator"`
}

func (s *Server) CreateFuelEvent(c *gin.Context) {
	var req createFuelEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.fuelingSvc.Create(c.Request.Context(), fuelingdomain.CreateRequest{
		EquipmentCode: strings.TrimSpace(req.EquipmentCode),
		Date:          strings.TrimSpace(req.Date),
		HourMeter:     req.HourMeter,
		Odometer:      req.Odometer,
		Liters:        req.Liters,
		Operator:      strings.TrimSpace(req.Operator),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("equipment_code", resp.EquipmentCode)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListFuelEvents(c *gin.Context) {
	var query struct {
		EquipmentCode string `form:"equipment_code"`
		From          string `form:"from"`
		To            string `form:"to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.fuelingSvc.List(c.Request.Context(), fuelingdomain.ListRequest{
		EquipmentCode: strings.TrimSpace(query.EquipmentCode),
		From:          strings.TrimSpace(query.From),
		To:            strings.TrimSpace(query.To),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
