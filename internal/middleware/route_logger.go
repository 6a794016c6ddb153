package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// RouteLogger logs each request with duration, status, and trace ID. When the
// route carries a vault ID parameter it is included, so one vault's operations
// can be followed across the ledger endpoints.
func RouteLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		traceID := GetTraceID(c)
		if traceID == "" {
			traceID = "no-trace-id"
		}
		start := time.Now()
		err := c.Next()
		ms := time.Since(start).Milliseconds()
		entry := log.Info().
			Str("trace_id", traceID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Int64("ms", ms)
		if vaultID := c.Params("id"); vaultID != "" {
			entry = entry.Str("vault_id", vaultID)
		}
		entry.Msg("Request handled")
		return err
	}
}
