package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/siteassist/insight/internal/analytics/domain"
)

func (s *Server) DashboardStats(c *gin.Context) {
	resp, err := s.analyticsSvc.Stats(c.Request.Context(), principalFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) DownloadsActivations(c *gin.Context) {
	var req analyticsdomain.DownloadsActivationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.analyticsSvc.DownloadsActivations(c.Request.Context(), principalFrom(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) Products(c *gin.Context) {
	resp, err := s.analyticsSvc.Products(c.Request.Context(), principalFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) LicenseStats(c *gin.Context) {
	resp, err := s.analyticsSvc.LicenseStats(c.Request.Context(), principalFrom(c), c.Param("licenseKey"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
