package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// intQuery parses an integer query parameter, returning def when absent or
// unparseable.
func intQuery(c *gin.Context, name string, def int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
