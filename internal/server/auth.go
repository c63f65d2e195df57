package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/siteassist/insight/internal/auth/domain"
)

func (s *Server) ValidateDashboardAccess(c *gin.Context) {
	var req authdomain.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.authsvc.Validate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
