package service

import (
	"context"
	"sort"
	"time"

	"github.com/siteassist/insight/internal/clock"
	eventlogdomain "github.com/siteassist/insight/internal/eventlog/domain"
	licensedomain "github.com/siteassist/insight/internal/license/domain"
	"github.com/siteassist/insight/internal/session/domain"
	"github.com/siteassist/insight/internal/tenancy"
	"github.com/siteassist/insight/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultLimit     = 50
	recentSessionCap = 20
	unknownDomain    = "Unknown"
	noDomainFallback = "Not configured"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Licenses repository.Repository[licensedomain.License]
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	licenses repository.Repository[licensedomain.License]
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("session.service"),
		clock:    p.Clock,
		licenses: p.Licenses,
	}
}

// group accumulates one session while scanning the log.
type group struct {
	sessionID  string
	domain     string
	licenseKey string
	count      int
	start      time.Time
	end        time.Time
}

func (g *group) observe(ts time.Time) {
	g.count++
	if g.start.IsZero() || ts.Before(g.start) {
		g.start = ts
	}
	if g.end.IsZero() || ts.After(g.end) {
		g.end = ts
	}
}

func (s *Service) scopedLogs(ctx context.Context, p tenancy.Principal, domainFilter string) *gorm.DB {
	q := s.db.WithContext(ctx).
		Model(&eventlogdomain.ConversationLog{}).
		Where("session_id IS NOT NULL")
	q = p.Scope(q)
	if domainFilter != "" {
		q = q.Where("domain = ?", domainFilter)
	}
	return q
}

func (s *Service) Overview(ctx context.Context, p tenancy.Principal, req domain.ListRequest) (*domain.OverviewResponse, error) {
	if !p.Valid() {
		return nil, tenancy.ErrNotAuthenticated
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var rows []eventlogdomain.ConversationLog
	if err := s.scopedLogs(ctx, p, req.Domain).
		Select("id", "session_id", "domain", "license_key", "timestamp").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	groups := map[string]*group{}
	sessionIDs := map[string]struct{}{}
	licenseKeys := map[string]struct{}{}
	for _, row := range rows {
		if row.SessionID == nil {
			continue
		}
		sessionIDs[*row.SessionID] = struct{}{}

		key := *row.SessionID + "\x00" + deref(row.Domain) + "\x00" + deref(row.LicenseKey)
		g, ok := groups[key]
		if !ok {
			g = &group{
				sessionID:  *row.SessionID,
				domain:     deref(row.Domain),
				licenseKey: deref(row.LicenseKey),
			}
			groups[key] = g
		}
		g.observe(row.Timestamp)
		if g.licenseKey != "" {
			licenseKeys[g.licenseKey] = struct{}{}
		}
	}

	licenseDomains, err := s.loadLicenseDomains(ctx, licenseKeys)
	if err != nil {
		return nil, err
	}

	sessions := make([]domain.Summary, 0, len(groups))
	for _, g := range groups {
		actualDomain := g.domain
		if actualDomain == "" {
			actualDomain = licenseDomains[g.licenseKey]
		}
		if actualDomain == "" {
			actualDomain = noDomainFallback
		}

		summary := domain.Summary{
			SessionID:    g.sessionID,
			Domain:       actualDomain,
			MessageCount: g.count,
			StartTime:    g.start,
			LastActivity: g.end,
			Duration:     domain.ClampDuration(g.start, g.end),
		}
		if p.IsMaster {
			summary.LicenseKey = g.licenseKey
		}
		sessions = append(sessions, summary)
	}
	sortSummaries(sessions)
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}

	domains := s.domainActivity(rows)
	totalMessages := 0
	for _, d := range domains {
		totalMessages += d.MessageCount
	}

	return &domain.OverviewResponse{
		Summary: domain.OverviewSummary{
			TotalSessions: len(sessionIDs),
			ActiveDomains: len(domains),
			TotalMessages: totalMessages,
		},
		Sessions: sessions,
		Domains:  domains,
	}, nil
}

// domainActivity buckets the trailing 24 hours of traffic per domain.
func (s *Service) domainActivity(rows []eventlogdomain.ConversationLog) []domain.DomainActivity {
	since := s.clock.Now().Add(-24 * time.Hour)

	type bucket struct {
		sessions map[string]struct{}
		messages int
	}
	buckets := map[string]*bucket{}
	for _, row := range rows {
		if row.Timestamp.Before(since) {
			continue
		}
		name := deref(row.Domain)
		if name == "" {
			name = unknownDomain
		}
		b, ok := buckets[name]
		if !ok {
			b = &bucket{sessions: map[string]struct{}{}}
			buckets[name] = b
		}
		b.messages++
		if row.SessionID != nil {
			b.sessions[*row.SessionID] = struct{}{}
		}
	}

	out := make([]domain.DomainActivity, 0, len(buckets))
	for name, b := range buckets {
		out = append(out, domain.DomainActivity{
			Domain:       name,
			SessionCount: len(b.sessions),
			MessageCount: b.messages,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MessageCount != out[j].MessageCount {
			return out[i].MessageCount > out[j].MessageCount
		}
		return out[i].Domain < out[j].Domain
	})
	return out
}

func (s *Service) ByDomain(ctx context.Context, p tenancy.Principal, req domain.ListRequest) ([]domain.DomainSession, error) {
	if !p.Valid() {
		return nil, tenancy.ErrNotAuthenticated
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var rows []eventlogdomain.ConversationLog
	if err := s.scopedLogs(ctx, p, req.Domain).
		Select("id", "session_id", "domain", "timestamp").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	groups := map[string]*group{}
	for _, row := range rows {
		if row.SessionID == nil {
			continue
		}
		name := deref(row.Domain)
		if name == "" {
			name = unknownDomain
		}
		key := name + "\x00" + *row.SessionID
		g, ok := groups[key]
		if !ok {
			g = &group{sessionID: *row.SessionID, domain: name}
			groups[key] = g
		}
		g.observe(row.Timestamp)
	}

	out := make([]domain.DomainSession, 0, len(groups))
	for _, g := range groups {
		out = append(out, domain.DomainSession{
			Domain:       g.domain,
			SessionID:    g.sessionID,
			MessageCount: g.count,
			StartTime:    g.start,
			LastActivity: g.end,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActivity.Equal(out[j].LastActivity) {
			return out[i].LastActivity.After(out[j].LastActivity)
		}
		return out[i].SessionID < out[j].SessionID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Service) Recent(ctx context.Context, p tenancy.Principal, req domain.ListRequest) ([]domain.Conversation, error) {
	if !p.Valid() {
		return nil, tenancy.ErrNotAuthenticated
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var rows []eventlogdomain.ConversationLog
	if err := s.scopedLogs(ctx, p, req.Domain).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	conversations := map[string]*domain.Conversation{}
	order := []string{}
	for _, row := range rows {
		if row.SessionID == nil {
			continue
		}
		conv, ok := conversations[*row.SessionID]
		if !ok {
			conv = &domain.Conversation{
				SessionID:      *row.SessionID,
				Domain:         deref(row.Domain),
				ConversationID: deref(row.ConversationID),
				UserID:         deref(row.UserID),
				StartTime:      row.Timestamp,
				LastActivity:   row.Timestamp,
			}
			conversations[*row.SessionID] = conv
			order = append(order, *row.SessionID)
		}

		conv.Messages = append(conv.Messages, domain.Message{
			ID:             row.ID.String(),
			Role:           row.ResolvedRole(),
			Content:        row.ResolvedContent(),
			Timestamp:      row.Timestamp,
			IntentDetected: deref(row.IntentDetected),
		})
		if row.Timestamp.After(conv.LastActivity) {
			conv.LastActivity = row.Timestamp
		}
		if row.Timestamp.Before(conv.StartTime) {
			conv.StartTime = row.Timestamp
		}
	}

	out := make([]domain.Conversation, 0, len(order))
	for _, id := range order {
		conv := conversations[id]
		// Display order inside a session is chronological even though the
		// fetch was newest-first.
		sort.SliceStable(conv.Messages, func(i, j int) bool {
			return conv.Messages[i].Timestamp.Before(conv.Messages[j].Timestamp)
		})
		out = append(out, *conv)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LastActivity.Equal(out[j].LastActivity) {
			return out[i].LastActivity.After(out[j].LastActivity)
		}
		return out[i].SessionID < out[j].SessionID
	})
	if len(out) > recentSessionCap {
		out = out[:recentSessionCap]
	}
	return out, nil
}

func (s *Service) Summarize(ctx context.Context, sessionID, licenseKey string) (*domain.Summary, error) {
	q := s.db.WithContext(ctx).
		Model(&eventlogdomain.ConversationLog{}).
		Where("session_id = ?", sessionID)
	if licenseKey != "" {
		q = q.Where("license_key = ?", licenseKey)
	}

	var rows []eventlogdomain.ConversationLog
	if err := q.Select("id", "session_id", "domain", "timestamp").Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	g := &group{sessionID: sessionID}
	name := ""
	for _, row := range rows {
		g.observe(row.Timestamp)
		if name == "" {
			name = deref(row.Domain)
		}
	}
	if name == "" {
		name = unknownDomain
	}

	return &domain.Summary{
		SessionID:    sessionID,
		Domain:       name,
		MessageCount: g.count,
		StartTime:    g.start,
		LastActivity: g.end,
		Duration:     domain.ClampDuration(g.start, g.end),
	}, nil
}

func (s *Service) MessagesByConversation(ctx context.Context, p tenancy.Principal, conversationID string) ([]domain.Message, error) {
	if !p.Valid() {
		return nil, tenancy.ErrNotAuthenticated
	}

	q := s.db.WithContext(ctx).
		Model(&eventlogdomain.ConversationLog{}).
		Where("conversation_id = ?", conversationID)
	q = p.Scope(q)

	var rows []eventlogdomain.ConversationLog
	if err := q.Order("timestamp ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, domain.Message{
			ID:             row.ID.String(),
			Role:           row.ResolvedRole(),
			Content:        row.ResolvedContent(),
			Timestamp:      row.Timestamp,
			IntentDetected: deref(row.IntentDetected),
		})
	}
	return messages, nil
}

func (s *Service) loadLicenseDomains(ctx context.Context, keys map[string]struct{}) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}
	list := make([]string, 0, len(keys))
	for k := range keys {
		list = append(list, k)
	}

	licenses, err := s.licenses.Find(ctx, &licensedomain.License{},
		repository.WithCondition("license_key IN ?", list),
	)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(licenses))
	for _, l := range licenses {
		out[l.LicenseKey] = l.Domain
	}
	return out, nil
}

func sortSummaries(sessions []domain.Summary) {
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].LastActivity.Equal(sessions[j].LastActivity) {
			return sessions[i].LastActivity.After(sessions[j].LastActivity)
		}
		return sessions[i].SessionID < sessions[j].SessionID
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
