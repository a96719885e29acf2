// Package user maintains the local identity mirror. Records are created
// and updated from identity-provider webhook events and lazily on first
// authenticated request.
package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nijaru/yt-enrich/errors"
	"github.com/nijaru/yt-enrich/models"
	"github.com/nijaru/yt-enrich/repository"
	"github.com/sirupsen/logrus"
)

type Service struct {
	users  repository.UserRepository
	logger *logrus.Logger
}

func NewService(users repository.UserRepository) *Service {
	return &Service{
		users:  users,
		logger: logrus.StandardLogger(),
	}
}

// HandleEvent applies a verified identity event to the local mirror.
// Event types without a handler are ignored.
func (s *Service) HandleEvent(ctx context.Context, event *models.WebhookEvent) error {
	const op = "UserService.HandleEvent"
	logger := s.logger.WithFields(logrus.Fields{
		"event_type":  event.Type,
		"external_id": event.Data.ID,
	})

	switch event.Type {
	case models.EventUserCreated:
		if event.Data.ID == "" {
			return errors.InvalidInput(op, nil, "Event data is missing the user id")
		}
		if err := s.createFromEvent(ctx, &event.Data); err != nil {
			logger.WithError(err).Error("Failed to create user from event")
			return err
		}
		logger.Info("User created from event")
		return nil

	case models.EventUserUpdated:
		if event.Data.ID == "" {
			return errors.InvalidInput(op, nil, "Event data is missing the user id")
		}
		if err := s.users.UpdateByExternalID(ctx, event.Data.ID, event.Data.DisplayName(), event.Data.ImageURL); err != nil {
			logger.WithError(err).Error("Failed to update user from event")
			return err
		}
		logger.Info("User updated from event")
		return nil

	case models.EventUserDeleted:
		if event.Data.ID == "" {
			return errors.InvalidInput(op, nil, "Event data is missing the user id")
		}
		if err := s.users.DeleteByExternalID(ctx, event.Data.ID); err != nil {
			logger.WithError(err).Error("Failed to delete user from event")
			return err
		}
		logger.Info("User deleted from event")
		return nil

	default:
		logger.Debug("Ignoring unhandled event type")
		return nil
	}
}

func (s *Service) createFromEvent(ctx context.Context, data *models.WebhookEventData) error {
	now := time.Now()
	u := &models.User{
		ID:         uuid.New().String(),
		ExternalID: data.ID,
		Name:       data.DisplayName(),
		ImageURL:   data.ImageURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := s.users.Insert(ctx, u)
	if errors.IsDuplicate(err) {
		// Redelivered event; the mirror already holds the record.
		return s.users.UpdateByExternalID(ctx, data.ID, u.Name, u.ImageURL)
	}
	return err
}

// GetOrCreate resolves the local record for an authenticated external id,
// creating a placeholder on first sight. A concurrent insert losing the
// unique-constraint race falls back to reading the winner's row.
func (s *Service) GetOrCreate(ctx context.Context, externalID string) (*models.User, error) {
	const op = "UserService.GetOrCreate"

	u, err := s.users.FindByExternalID(ctx, externalID)
	if err == nil {
		return u, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	now := time.Now()
	u = &models.User{
		ID:         uuid.New().String(),
		ExternalID: externalID,
		Name:       "User",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	insertErr := s.users.Insert(ctx, u)
	if insertErr == nil {
		s.logger.WithField("external_id", externalID).Info("Created user on first request")
		return u, nil
	}
	if errors.IsDuplicate(insertErr) {
		return s.users.FindByExternalID(ctx, externalID)
	}
	return nil, errors.Storage(op, insertErr, "Failed to create user")
}
