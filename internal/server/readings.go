package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	readingdomain "github.com/obralog/fleetmeter/internal/reading/domain"
)

type createReadingRequest struct {
	EquipmentID   string   `json:"equipment_id"`
	Date          string   `json:"date"`
	HourMeter     *float64 `json:"hour_meter"`
	Odometer      *float64 `json:"odometer"`
	PrevHourMeter *float64 `json:"prev_hour_meter"`
	PrevOdometer  *float64 `json:"prev_odometer"`
	Operator      string   `json:"operator"`
	Observation   string   `json:"observation"`
	PhotoURLs     []string `json:"photo_urls"`
}

func (s *Server) CreateReading(c *gin.Context) {
	var req createReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.readingSvc.Create(c.Request.Context(), readingdomain.CreateRequest{
		EquipmentID:   strings.TrimSpace(req.EquipmentID),
		Date:          strings.TrimSpace(req.Date),
		HourMeter:     req.HourMeter,
		Odometer:      req.Odometer,
		PrevHourMeter: req.PrevHourMeter,
		PrevOdometer:  req.PrevOdometer,
		Operator:      strings.TrimSpace(req.Operator),
		Observation:   strings.TrimSpace(req.Observation),
		PhotoURLs:     req.PhotoURLs,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListReadings(c *gin.Context) {
	var query struct {
		EquipmentID string `form:"equipment_id"`
		From        string `form:"from"`
		To          string `form:"to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.readingSvc.List(c.Request.Context(), readingdomain.ListRequest{
		EquipmentID: strings.TrimSpace(query.EquipmentID),
		From:        strings.TrimSpace(query.From),
		To:          strings.TrimSpace(query.To),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
