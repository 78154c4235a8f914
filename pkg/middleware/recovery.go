package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/reelstack/recoserve/pkg/metric"
)

// HTTPRecovery recovers from handler panics and returns a 500 instead of
// crashing the process.
func HTTPRecovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				route := c.FullPath()
				if route == "" {
					route = "unknown"
				}
				log.Error().Msgf("Recovered from panic on %s: %v\n%s", route, r, debug.Stack())
				metric.Incr("api_panic_recovered", metric.BuildTag(metric.NewTag(metric.TagPath, route)))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}
