package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	productcatalogdomain "github.com/siteassist/insight/internal/productcatalog/domain"
)

func (s *Server) CustomProductData(c *gin.Context) {
	resp, err := s.catalogSvc.Data(c.Request.Context(), principalFrom(c), c.Param("productType"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) RegisterCustomProduct(c *gin.Context) {
	p := principalFrom(c)
	if err := p.RequireMaster(); err != nil {
		AbortWithError(c, err)
		return
	}

	var req productcatalogdomain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.catalogSvc.Register(c.Request.Context(), req); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
