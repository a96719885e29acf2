package handlers

import (
	stderrors "errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nijaru/yt-enrich/errors"
	"github.com/sirupsen/logrus"
)

// ErrorHandler converts errors returned by handlers into the standard
// envelope, preserving AppError status codes and messages.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		code = appErr.Code
		message = appErr.Message
	} else if fiberErr, ok := err.(*fiber.Error); ok {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	logEntry := logrus.WithFields(logrus.Fields{
		"request_id": c.GetRespHeader("X-Request-ID"),
		"path":       c.Path(),
		"method":     c.Method(),
		"status":     code,
	}).WithError(err)
	if code >= 500 {
		logEntry.Error("Request error")
	} else {
		logEntry.Warn("Request error")
	}

	return c.Status(code).JSON(Response{
		Success:   false,
		Error:     message,
		RequestID: c.GetRespHeader("X-Request-ID"),
		Timestamp: time.Now().UTC(),
	})
}
