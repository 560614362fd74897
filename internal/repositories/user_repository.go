package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"spark-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository resolves acting and target identities to the
// canonical user record.
type UserRepository interface {
	GetByID(ctx context.Context, userID int) (models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, handle, display_name, avatar_url, email, created_at`

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, userID int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}
