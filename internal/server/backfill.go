package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RunBackfill triggers a corrector pass on demand. The daily scheduler run
// goes through the once-per-day guard; this endpoint does not, so repeated
// manual runs are possible and safe because the corrector is idempotent.
func (s *Server) RunBackfill(c *gin.Context) {
	report, err := s.backfillSvc.Run(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}
