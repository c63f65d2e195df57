package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	eventlogdomain "github.com/siteassist/insight/internal/eventlog/domain"
)

func (s *Server) ChatbotWebhook(c *gin.Context) {
	var req eventlogdomain.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.eventlogSvc.Ingest(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ChatbotWebhookStatus is a field manifest used by producers to probe the
// endpoint.
func (s *Server) ChatbotWebhookStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"endpoint": "/api/webhook/chatbot",
		"accepts":  "POST",
		"fields": gin.H{
			"required": []string{"session_id"},
			"optional": []string{
				"license_key",
				"domain",
				"user_id",
				"customer_message",
				"chatbot_response",
				"content",
				"intent_detected",
				"timestamp",
				"conversation_id",
				"role",
			},
		},
	})
}

type setupAgentRequest struct {
	SiteKey   string `json:"site_key"`
	SessionID string `json:"session_id"`
}

// SetupAgentWebhook acknowledges setup agent events. Their log table is not
// provisioned yet; the license is resolved so a bad site key is visible in
// the logs.
func (s *Server) SetupAgentWebhook(c *gin.Context) {
	var req setupAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if strings.TrimSpace(req.SiteKey) == "" || strings.TrimSpace(req.SessionID) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	s.resolveSiteKey(c, req.SiteKey)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Setup agent webhook received",
		"data": gin.H{
			"session_id": req.SessionID,
			"site_key":   req.SiteKey,
		},
	})
}

type emailAssistantRequest struct {
	SiteKey string `json:"site_key"`
	EmailID string `json:"email_id"`
}

func (s *Server) EmailAssistantWebhook(c *gin.Context) {
	var req emailAssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if strings.TrimSpace(req.SiteKey) == "" || strings.TrimSpace(req.EmailID) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	s.resolveSiteKey(c, req.SiteKey)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Email assistant webhook received",
		"data": gin.H{
			"email_id": req.EmailID,
			"site_key": req.SiteKey,
		},
	})
}

type voiceAssistantRequest struct {
	SiteKey string `json:"site_key"`
	CallID  string `json:"call_id"`
}

func (s *Server) VoiceAssistantWebhook(c *gin.Context) {
	var req voiceAssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if strings.TrimSpace(req.SiteKey) == "" || strings.TrimSpace(req.CallID) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	s.resolveSiteKey(c, req.SiteKey)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Voice assistant webhook received",
		"data": gin.H{
			"call_id":  req.CallID,
			"site_key": req.SiteKey,
		},
	})
}

func (s *Server) resolveSiteKey(c *gin.Context, siteKey string) {
	lic, err := s.licenseSvc.GetBySiteKey(c.Request.Context(), siteKey)
	if err != nil || lic == nil {
		s.log.Warn("webhook for unknown site key")
	}
}
