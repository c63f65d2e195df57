package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	eventlogdomain "github.com/siteassist/insight/internal/eventlog/domain"
	"github.com/siteassist/insight/pkg/repository"
)

// CheckLogs is a non-production diagnostic: the 10 most recent rows with a
// summary of suspicious null fields.
func (s *Server) CheckLogs(c *gin.Context) {
	rows, err := s.eventlogRepo.Find(c.Request.Context(), &eventlogdomain.ConversationLog{},
		repository.WithOrder("timestamp DESC"),
		repository.WithLimit(10),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	nullDomain, nullLicense, nullSession, withContent := 0, 0, 0, 0
	domainSet := map[string]struct{}{}
	licenseSet := map[string]struct{}{}
	formatted := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		if row.Domain == nil || *row.Domain == "" {
			nullDomain++
		} else {
			domainSet[*row.Domain] = struct{}{}
		}
		if row.LicenseKey == nil || *row.LicenseKey == "" {
			nullLicense++
		} else {
			licenseSet[*row.LicenseKey] = struct{}{}
		}
		if row.SessionID == nil || *row.SessionID == "" {
			nullSession++
		}
		if row.ResolvedContent() != "" {
			withContent++
		}

		formatted = append(formatted, gin.H{
			"id":         row.ID.String(),
			"sessionId":  orNull(row.SessionID),
			"domain":     orNull(row.Domain),
			"licenseKey": orNull(row.LicenseKey),
			"message":    orDefault(row.ResolvedContent(), "No content"),
			"role":       row.ResolvedRole(),
			"timestamp":  row.Timestamp.UTC().Format(time.RFC3339),
			"userId":     orDefault(strDeref(row.UserID), "anonymous"),
		})
	}

	domains := make([]string, 0, len(domainSet))
	for d := range domainSet {
		domains = append(domains, d)
	}
	licenses := make([]string, 0, len(licenseSet))
	for l := range licenseSet {
		licenses = append(licenses, l)
	}

	summary := gin.H{
		"totalLogs":           len(rows),
		"logsWithNullDomain":  nullDomain,
		"logsWithNullLicense": nullLicense,
		"logsWithNullSession": nullSession,
		"logsWithContent":     withContent,
		"uniqueDomains":       domains,
		"uniqueLicenses":      licenses,
	}
	if len(formatted) > 0 {
		summary["mostRecentLog"] = gin.H{
			"timestamp":  formatted[0]["timestamp"],
			"domain":     formatted[0]["domain"],
			"hasContent": formatted[0]["message"] != "No content",
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":    summary,
		"recentLogs": formatted,
	})
}

func orNull(s *string) string {
	if s == nil || *s == "" {
		return "NULL"
	}
	return *s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
