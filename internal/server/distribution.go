package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) Distribution(c *gin.Context) {
	resp, err := s.analyticsSvc.Distribution(c.Request.Context(), principalFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ProductDistribution(c *gin.Context) {
	resp, err := s.analyticsSvc.ProductDistribution(c.Request.Context(), principalFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
