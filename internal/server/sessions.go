package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	sessiondomain "github.com/siteassist/insight/internal/session/domain"
)

// ChatbotSessions serves the three session views. The default "all" view
// returns the overview envelope; by-domain and recent wrap their lists in a
// sessions field.
func (s *Server) ChatbotSessions(c *gin.Context) {
	p := principalFrom(c)
	req := sessiondomain.ListRequest{
		Domain: c.Query("domain"),
		Limit:  intQuery(c, "limit", 50),
	}

	ctx := c.Request.Context()
	switch c.DefaultQuery("view", "all") {
	case "by-domain":
		sessions, err := s.sessionSvc.ByDomain(ctx, p, req)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessions": sessions})

	case "recent":
		sessions, err := s.sessionSvc.Recent(ctx, p, req)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessions": sessions})

	default:
		resp, err := s.sessionSvc.Overview(ctx, p, req)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func (s *Server) ConversationMessages(c *gin.Context) {
	messages, err := s.sessionSvc.MessagesByConversation(c.Request.Context(), principalFrom(c), c.Param("conversationId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
