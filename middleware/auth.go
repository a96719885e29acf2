// Package middleware holds request middleware that needs application
// state: bearer-token authentication and per-user rate limiting.
package middleware

import (
	"context"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/nijaru/yt-enrich/errors"
	"github.com/nijaru/yt-enrich/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const userContextKey = "current_user"

// UserResolver maps an authenticated external identity to a local record,
// creating it on first sight.
type UserResolver interface {
	GetOrCreate(ctx context.Context, externalID string) (*models.User, error)
}

// Auth verifies the Authorization bearer token and resolves the local user.
// The token subject carries the identity provider's user id.
func Auth(jwtSecret string, users UserResolver) fiber.Handler {
	secret := []byte(jwtSecret)

	return func(c *fiber.Ctx) error {
		const op = "middleware.Auth"

		header := c.Get(fiber.HeaderAuthorization)
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			return errors.E(op, nil, "Authentication required", fiber.StatusUnauthorized)
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			return errors.E(op, err, "Invalid token", fiber.StatusUnauthorized)
		}

		subject, err := token.Claims.GetSubject()
		if err != nil || subject == "" {
			return errors.E(op, err, "Invalid token", fiber.StatusUnauthorized)
		}

		user, err := users.GetOrCreate(c.Context(), subject)
		if err != nil {
			logrus.WithError(err).WithField("external_id", subject).
				Error("Failed to resolve authenticated user")
			return err
		}

		SetUser(c, user)
		return c.Next()
	}
}

// SetUser attaches the resolved user to the request context.
func SetUser(c *fiber.Ctx, user *models.User) {
	c.Locals(userContextKey, user)
}

// CurrentUser returns the authenticated user set by Auth, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userContextKey).(*models.User)
	return user
}

// userLimiters keeps one token bucket per user id.
type userLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rpm      int
	burst    int
}

func (l *userLimiters) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(l.rpm)/60, l.burst)
		// The key may point into fasthttp's reused request buffer; copy it
		// before it outlives the request.
		l.limiters[utils.CopyString(key)] = limiter
	}
	return limiter
}

// RateLimitPerUser limits each authenticated user separately. Requests
// without a resolved user fall back to the client IP.
func RateLimitPerUser(requestsPerMinute, burst int) fiber.Handler {
	limiters := &userLimiters{
		limiters: make(map[string]*rate.Limiter),
		rpm:      requestsPerMinute,
		burst:    burst,
	}

	return func(c *fiber.Ctx) error {
		const op = "middleware.RateLimitPerUser"

		key := c.IP()
		if user := CurrentUser(c); user != nil {
			key = user.ID
		}

		if !limiters.get(key).Allow() {
			return errors.E(op, nil, "Rate limit exceeded", fiber.StatusTooManyRequests)
		}
		return c.Next()
	}
}
