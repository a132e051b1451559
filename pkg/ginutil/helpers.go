// Package ginutil has small request parsing helpers shared by handlers
package ginutil

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// QueryInt parses ?key= as an int, returning def when absent or malformed
func QueryInt(c *gin.Context, key string, def int) int {
	raw, ok := c.GetQuery(key)
	if !ok {
		return def
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	return def
}

// QueryIntInRange is QueryInt that also rejects values outside [lo, hi]
func QueryIntInRange(c *gin.Context, key string, def, lo, hi int) int {
	if n := QueryInt(c, key, def); n >= lo && n <= hi {
		return n
	}
	return def
}
