package domain

import (
	"context"
	"errors"

	sessiondomain "github.com/siteassist/insight/internal/session/domain"
)

// IngestRequest is the webhook payload from the automation pipeline. Only
// session_id is required; license_key is validated permissively unless strict
// mode is configured.
type IngestRequest struct {
	SessionID       string `json:"session_id"`
	LicenseKey      string `json:"license_key"`
	Domain          string `json:"domain"`
	UserID          string `json:"user_id"`
	CustomerMessage string `json:"customer_message"`
	ChatbotResponse string `json:"chatbot_response"`
	Content         string `json:"content"`
	IntentDetected  string `json:"intent_detected"`
	Timestamp       string `json:"timestamp"`
	ConversationID  string `json:"conversation_id"`
	Role            string `json:"role"`
}

type IngestResponse struct {
	Success bool                   `json:"success"`
	LogID   string                 `json:"logId"`
	Session *sessiondomain.Summary `json:"session"`
}

type Service interface {
	Ingest(ctx context.Context, req IngestRequest) (*IngestResponse, error)
}

var (
	ErrMissingSessionID = errors.New("missing_session_id")
	ErrInvalidTimestamp = errors.New("invalid_timestamp")
	ErrUnknownLicense   = errors.New("unknown_license")
	ErrLicenseInactive  = errors.New("license_inactive")
	ErrDuplicateEntry   = errors.New("duplicate_entry")
)
