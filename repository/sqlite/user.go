package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/nijaru/yt-enrich/errors"
	"github.com/nijaru/yt-enrich/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Insert(ctx context.Context, user *models.User) error {
	const op = "SQLiteUserRepository.Insert"

	_, err := r.db.ExecContext(ctx, insertUserQuery,
		user.ID,
		user.ExternalID,
		user.Name,
		user.ImageURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Duplicate(op, err, "User already exists")
		}
		return errors.Storage(op, err, "Failed to insert user")
	}
	return nil
}

func (r *UserRepository) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	const op = "SQLiteUserRepository.FindByExternalID"

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, getUserByExternalIDQuery, externalID).Scan(
		&user.ID,
		&user.ExternalID,
		&user.Name,
		&user.ImageURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.NotFound(op, nil, "User not found")
	}
	if err != nil {
		return nil, errors.Storage(op, err, "Failed to query user")
	}

	return user, nil
}

func (r *UserRepository) UpdateByExternalID(ctx context.Context, externalID, name, imageURL string) error {
	const op = "SQLiteUserRepository.UpdateByExternalID"

	_, err := r.db.ExecContext(ctx, updateUserByExternalIDQuery, name, imageURL, time.Now(), externalID)
	if err != nil {
		return errors.Storage(op, err, "Failed to update user")
	}
	return nil
}

func (r *UserRepository) DeleteByExternalID(ctx context.Context, externalID string) error {
	const op = "SQLiteUserRepository.DeleteByExternalID"

	_, err := r.db.ExecContext(ctx, deleteUserByExternalIDQuery, externalID)
	if err != nil {
		return errors.Storage(op, err, "Failed to delete user")
	}
	return nil
}
