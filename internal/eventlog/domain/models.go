// Package domain contains the append-only conversation log. One row per
// conversational turn; rows are created by the webhook and never mutated.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationLog is a single turn of a conversation. Older producers send
// customer_message/chatbot_response instead of role+content, so both shapes
// are stored and normalized on read.
//
// The unique index over (session_id, timestamp, role) is the explicit
// idempotency key for ingestion; replays surface as duplicate-key errors.
type ConversationLog struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	SessionID       *string           `gorm:"index;uniqueIndex:idx_conversation_logs_dedup" json:"session_id"`
	LicenseKey      *string           `gorm:"index" json:"license_key"`
	Domain          *string           `json:"domain"`
	UserID          *string           `json:"user_id"`
	ConversationID  *string           `gorm:"index" json:"conversation_id"`
	Role            *string           `gorm:"uniqueIndex:idx_conversation_logs_dedup" json:"role"`
	Content         *string           `json:"content"`
	CustomerMessage *string           `json:"customer_message"`
	ChatbotResponse *string           `json:"chatbot_response"`
	IntentDetected  *string           `json:"intent_detected"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	Timestamp       time.Time         `gorm:"index;not null;uniqueIndex:idx_conversation_logs_dedup" json:"timestamp"`
	CreatedAt       time.Time         `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (ConversationLog) TableName() string { return "conversation_logs" }

// ResolvedRole returns the explicit role, or infers one: a customer message
// implies user, anything else assistant.
func (l ConversationLog) ResolvedRole() string {
	if l.Role != nil && *l.Role != "" {
		return *l.Role
	}
	if l.CustomerMessage != nil && *l.CustomerMessage != "" {
		return RoleUser
	}
	return RoleAssistant
}

// ResolvedContent coalesces content across the current and legacy columns.
func (l ConversationLog) ResolvedContent() string {
	if l.Content != nil && *l.Content != "" {
		return *l.Content
	}
	if l.CustomerMessage != nil && *l.CustomerMessage != "" {
		return *l.CustomerMessage
	}
	if l.ChatbotResponse != nil {
		return *l.ChatbotResponse
	}
	return ""
}

// ResolvedDomain returns the row domain or the given fallback.
func (l ConversationLog) ResolvedDomain(fallback string) string {
	if l.Domain != nil && *l.Domain != "" {
		return *l.Domain
	}
	return fallback
}
