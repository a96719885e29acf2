// Package handlers exposes the HTTP surface: enrichment workflow
// triggers, video and job lookups, the identity webhook, and health.
package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Response is the standard API envelope.
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func respond(c *fiber.Ctx, code int, data interface{}) error {
	return c.Status(code).JSON(Response{
		Success:   code >= 200 && code < 300,
		Data:      data,
		RequestID: c.GetRespHeader("X-Request-ID"),
		Timestamp: time.Now().UTC(),
	})
}

// HealthCheck reports liveness.
func HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}
