package server

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	eventlogdomain "github.com/siteassist/insight/internal/eventlog/domain"
	"github.com/siteassist/insight/internal/tenancy"
)

type exportRow struct {
	ConversationID *string   `json:"conversation_id"`
	Domain         *string   `json:"domain"`
	UserID         *string   `json:"user_id"`
	Role           *string   `json:"role"`
	Content        *string   `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Export streams the raw event log as CSV or JSON. Non-master callers are
// pinned to their own license and the domain their token was issued for.
func (s *Server) Export(c *gin.Context) {
	p := principalFrom(c)
	if !p.Valid() {
		AbortWithError(c, tenancy.ErrNotAuthenticated)
		return
	}

	q := s.db.WithContext(c.Request.Context()).
		Model(&eventlogdomain.ConversationLog{}).
		Select("conversation_id", "domain", "user_id", "role", "content", "created_at")
	if !p.IsMaster {
		q = q.Where("license_key = ? AND domain = ?", p.LicenseKey, p.Domain)
	}
	if t, ok := parseExportDate(c.Query("startDate")); ok {
		q = q.Where("created_at >= ?", t)
	}
	if t, ok := parseExportDate(c.Query("endDate")); ok {
		q = q.Where("created_at <= ?", t)
	}

	var rows []exportRow
	if err := q.Order("created_at DESC").Scan(&rows).Error; err != nil {
		AbortWithError(c, err)
		return
	}

	if c.DefaultQuery("format", "csv") != "csv" {
		c.JSON(http.StatusOK, rows)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition",
		fmt.Sprintf(`attachment; filename="chatbot-export-%d.csv"`, time.Now().UnixMilli()))

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"conversation_id", "domain", "user_id", "role", "content", "created_at"})
	for _, row := range rows {
		_ = w.Write([]string{
			strDeref(row.ConversationID),
			strDeref(row.Domain),
			strDeref(row.UserID),
			strDeref(row.Role),
			strDeref(row.Content),
			row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	w.Flush()
}

func parseExportDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
