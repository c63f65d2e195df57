// Package domain defines sessions: derived groupings of conversation log rows
// sharing a session id. Sessions are computed fresh on every query and never
// persisted.
package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/siteassist/insight/internal/tenancy"
)

// MaxDurationSeconds bounds a plausible session. Durations at or beyond a
// full day come from clock skew or stitched session ids and are reported as 0.
const MaxDurationSeconds = 86400

// Summary is the aggregate view of one session.
type Summary struct {
	SessionID    string    `json:"sessionId"`
	Domain       string    `json:"domain"`
	LicenseKey   string    `json:"licenseKey,omitempty"`
	MessageCount int       `json:"messageCount"`
	StartTime    time.Time `json:"startTime"`
	LastActivity time.Time `json:"lastActivity"`
	// Duration is seconds between first and last event, or 0 when invalid
	// (single-event sessions and out-of-range spans).
	Duration int `json:"duration"`
}

// DomainSession is the by-domain grouping variant.
type DomainSession struct {
	Domain       string    `json:"domain"`
	SessionID    string    `json:"sessionId"`
	MessageCount int       `json:"messageCount"`
	StartTime    time.Time `json:"startTime"`
	LastActivity time.Time `json:"lastActivity"`
}

// Message is one turn inside a reconstructed conversation, with role and
// content already normalized.
type Message struct {
	ID             string    `json:"id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	IntentDetected string    `json:"intentDetected,omitempty"`
}

// Conversation is a session materialized with its message list for the
// recent-conversations view. Messages are ordered by timestamp ascending even
// though conversations themselves are sorted most-recent first.
type Conversation struct {
	SessionID      string    `json:"sessionId"`
	Domain         string    `json:"domain"`
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	Messages       []Message `json:"messages"`
	StartTime      time.Time `json:"startTime"`
	LastActivity   time.Time `json:"lastActivity"`
}

// DomainActivity summarizes per-domain volume over the trailing day.
type DomainActivity struct {
	Domain       string `json:"domain"`
	SessionCount int    `json:"sessionCount"`
	MessageCount int    `json:"messageCount"`
}

type OverviewSummary struct {
	TotalSessions int `json:"totalSessions"`
	ActiveDomains int `json:"activeDomains"`
	TotalMessages int `json:"totalMessages"`
}

type OverviewResponse struct {
	Summary  OverviewSummary  `json:"summary"`
	Sessions []Summary        `json:"sessions"`
	Domains  []DomainActivity `json:"domains"`
}

// ListRequest carries the shared read filters.
type ListRequest struct {
	Domain string
	Limit  int
}

type Service interface {
	// Overview returns the all-sessions view: summary counters, per-session
	// aggregates ordered by recency, and 24h domain activity.
	Overview(ctx context.Context, p tenancy.Principal, req ListRequest) (*OverviewResponse, error)
	// ByDomain groups sessions by (domain, session id).
	ByDomain(ctx context.Context, p tenancy.Principal, req ListRequest) ([]DomainSession, error)
	// Recent materializes the most recent conversations with message lists.
	Recent(ctx context.Context, p tenancy.Principal, req ListRequest) ([]Conversation, error)
	// Summarize aggregates a single session, optionally pinned to a license.
	Summarize(ctx context.Context, sessionID, licenseKey string) (*Summary, error)
	// MessagesByConversation returns one conversation's messages in
	// chronological order, tenant scoped.
	MessagesByConversation(ctx context.Context, p tenancy.Principal, conversationID string) ([]Message, error)
}

// ClampDuration converts a start/end pair to whole seconds, reporting 0 for
// anything outside the open interval (0, MaxDurationSeconds).
func ClampDuration(start, end time.Time) int {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	secs := int(end.Sub(start) / time.Second)
	if secs <= 0 || secs >= MaxDurationSeconds {
		return 0
	}
	return secs
}

// FormatDuration renders seconds for display; 0 means not applicable.
func FormatDuration(seconds int) string {
	switch {
	case seconds == 0:
		return "N/A"
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm", seconds/60)
	default:
		return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
	}
}
