package handlers

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/nijaru/yt-enrich/errors"
	"github.com/nijaru/yt-enrich/metrics"
	"github.com/nijaru/yt-enrich/models"
	"github.com/nijaru/yt-enrich/webhook"
	"github.com/sirupsen/logrus"
)

// EventApplier applies a verified identity event to local state.
type EventApplier interface {
	HandleEvent(ctx context.Context, event *models.WebhookEvent) error
}

type WebhookHandler struct {
	verifier webhook.Verifier
	users    EventApplier
}

func NewWebhookHandler(verifier webhook.Verifier, users EventApplier) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, users: users}
}

// Handle ingests a signed identity-provider delivery. The provider retries
// on any non-2xx response, so validation failures return 400 and only
// store errors return 500.
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	id := c.Get(webhook.HeaderID)
	timestamp := c.Get(webhook.HeaderTimestamp)
	signature := c.Get(webhook.HeaderSignature)

	if id == "" || timestamp == "" || signature == "" {
		metrics.WebhookEvents.WithLabelValues("unknown", "missing_headers").Inc()
		return c.Status(fiber.StatusBadRequest).SendString("Error occurred - no webhook headers")
	}

	body := c.Body()
	if err := h.verifier.Verify(id, timestamp, signature, body); err != nil {
		logrus.WithError(err).WithField("webhook_id", id).Warn("Webhook verification failed")
		metrics.WebhookEvents.WithLabelValues("unknown", "verification_failed").Inc()
		return c.Status(fiber.StatusBadRequest).SendString("Error occurred - verification failed")
	}

	var event models.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "malformed").Inc()
		return c.Status(fiber.StatusBadRequest).SendString("Error occurred - invalid payload")
	}

	if err := h.users.HandleEvent(c.Context(), &event); err != nil {
		if errors.Is(err, errors.KindBadRequest) {
			metrics.WebhookEvents.WithLabelValues(event.Type, "invalid").Inc()
			return c.Status(fiber.StatusBadRequest).SendString("Error occurred - missing user id")
		}
		logrus.WithError(err).WithField("event_type", event.Type).
			Error("Failed to apply webhook event")
		metrics.WebhookEvents.WithLabelValues(event.Type, "error").Inc()
		return c.Status(fiber.StatusInternalServerError).SendString("Error occurred while processing webhook")
	}

	metrics.WebhookEvents.WithLabelValues(event.Type, "ok").Inc()
	return c.Status(fiber.StatusOK).SendString("Webhook received")
}
