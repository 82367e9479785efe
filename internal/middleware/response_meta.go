package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	metaKey      = "responseMeta"
	metaStartKey = "responseMetaStart"
)

// WithResponseMeta attaches a per-request meta map that handlers merge into the envelope.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(metaStartKey, time.Now())
		c.Set(metaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetCacheHit flags whether the payload came from the aggregate cache.
func SetCacheHit(c *gin.Context, hit bool) {
	meta := ExtractMeta(c)
	if meta != nil {
		meta["cache_hit"] = hit
	}
}

// ExtractMeta returns the request meta map with the elapsed time filled in.
// Nil when WithResponseMeta is not installed.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	raw, ok := c.Get(metaKey)
	if !ok {
		return nil
	}
	meta, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	if start, ok := c.Get(metaStartKey); ok {
		if t, ok := start.(time.Time); ok {
			meta["processing_time_ms"] = time.Since(t).Milliseconds()
		}
	}
	return meta
}
