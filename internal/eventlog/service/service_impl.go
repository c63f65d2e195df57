package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/siteassist/insight/internal/clock"
	"github.com/siteassist/insight/internal/config"
	"github.com/siteassist/insight/internal/eventlog/domain"
	licensedomain "github.com/siteassist/insight/internal/license/domain"
	sessiondomain "github.com/siteassist/insight/internal/session/domain"
	"github.com/siteassist/insight/pkg/db"
	"github.com/siteassist/insight/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// sessionTouchWindow bounds how far back we look for earlier turns of the
// same session before counting it as fresh license activity.
const sessionTouchWindow = time.Hour

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	GenID    *snowflake.Node
	Cfg      config.Config
	Repo     repository.Repository[domain.ConversationLog]
	Licenses licensedomain.Service
	Sessions sessiondomain.Service
}

type Service struct {
	log      *zap.Logger
	clock    clock.Clock
	genID    *snowflake.Node
	cfg      config.Config
	repo     repository.Repository[domain.ConversationLog]
	licenses licensedomain.Service
	sessions sessiondomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("eventlog.service"),
		clock:    p.Clock,
		genID:    p.GenID,
		cfg:      p.Cfg,
		repo:     p.Repo,
		licenses: p.Licenses,
		sessions: p.Sessions,
	}
}

func (s *Service) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResponse, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return nil, domain.ErrMissingSessionID
	}

	ts, err := s.resolveTimestamp(req.Timestamp)
	if err != nil {
		return nil, err
	}

	licenseKey := strings.TrimSpace(req.LicenseKey)
	var lic *licensedomain.License
	if licenseKey != "" {
		lic, err = s.checkLicense(ctx, licenseKey)
		if err != nil {
			return nil, err
		}
	}

	conversationID := strings.TrimSpace(req.ConversationID)
	if conversationID == "" {
		conversationID = sessionID
	}

	// Normalize on write: the row always carries a resolved role and domain,
	// and content is mirrored into the legacy per-role columns.
	role := strings.TrimSpace(req.Role)
	if role == "" {
		if req.CustomerMessage != "" {
			role = domain.RoleUser
		} else {
			role = domain.RoleAssistant
		}
	}

	eventDomain := strings.TrimSpace(req.Domain)
	if eventDomain == "" && lic != nil {
		eventDomain = lic.Domain
	}
	if eventDomain == "" {
		eventDomain = "Unknown"
	}

	customerMessage := req.CustomerMessage
	chatbotResponse := req.ChatbotResponse
	if role == domain.RoleUser && req.Content != "" {
		customerMessage = req.Content
	}
	if role == domain.RoleAssistant && req.Content != "" {
		chatbotResponse = req.Content
	}
	content := req.Content
	if content == "" {
		content = req.CustomerMessage
	}
	if content == "" {
		content = req.ChatbotResponse
	}

	row := domain.ConversationLog{
		ID:              s.genID.Generate(),
		SessionID:       &sessionID,
		LicenseKey:      optional(licenseKey),
		Domain:          &eventDomain,
		UserID:          optional(strings.TrimSpace(req.UserID)),
		ConversationID:  &conversationID,
		Role:            &role,
		Content:         optional(content),
		CustomerMessage: optional(customerMessage),
		ChatbotResponse: optional(chatbotResponse),
		IntentDetected:  optional(strings.TrimSpace(req.IntentDetected)),
		Timestamp:       ts,
		CreatedAt:       s.clock.Now(),
	}

	firstInSession := false
	if licenseKey != "" {
		firstInSession, err = s.sessionIsFresh(ctx, licenseKey, sessionID)
		if err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, &row); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateEntry
		}
		return nil, err
	}

	if firstInSession {
		if err := s.licenses.MarkUsed(ctx, licenseKey, s.clock.Now()); err != nil {
			s.log.Warn("mark license used failed",
				zap.String("license_key", licenseKey),
				zap.Error(err),
			)
		}
	}

	summary, err := s.sessions.Summarize(ctx, sessionID, licenseKey)
	if err != nil {
		s.log.Warn("session summary failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		summary = nil
	}

	return &domain.IngestResponse{
		Success: true,
		LogID:   row.ID.String(),
		Session: summary,
	}, nil
}

// resolveTimestamp parses the producer timestamp, defaulting to now when the
// field is absent.
func (s *Service) resolveTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.clock.Now(), nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, domain.ErrInvalidTimestamp
	}
	return ts.UTC(), nil
}

// checkLicense enforces the configured ingest policy and returns the license
// record when one exists. In permissive mode an unknown or inactive license is
// logged and the event is kept anyway, so a misconfigured widget never loses
// data.
func (s *Service) checkLicense(ctx context.Context, licenseKey string) (*licensedomain.License, error) {
	lic, err := s.licenses.GetByKey(ctx, licenseKey)
	if err != nil {
		return nil, err
	}

	if lic == nil {
		if s.cfg.IngestStrictLicense {
			return nil, domain.ErrUnknownLicense
		}
		s.log.Warn("event for unknown license", zap.String("license_key", licenseKey))
		return nil, nil
	}
	if !lic.Usable() {
		if s.cfg.IngestStrictLicense {
			return nil, domain.ErrLicenseInactive
		}
		s.log.Warn("event for inactive license",
			zap.String("license_key", licenseKey),
			zap.String("status", lic.Status),
		)
	}
	return lic, nil
}

// sessionIsFresh reports whether this session has no earlier turn for the
// license within the touch window.
func (s *Service) sessionIsFresh(ctx context.Context, licenseKey, sessionID string) (bool, error) {
	since := s.clock.Now().Add(-sessionTouchWindow)

	count, err := s.repo.Count(ctx, &domain.ConversationLog{},
		repository.WithCondition("license_key = ? AND session_id = ? AND timestamp >= ?", licenseKey, sessionID, since),
	)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
