package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smartrail/booking-backend/internal/models"
)

// UserRepository exposes the minimal account view the booking core needs.
// Account lifecycle is owned by a separate system.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetUser retrieves a user by ID. Returns nil when the user does not exist.
func (r *UserRepository) GetUser(id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.Get(&user, `SELECT id, name, blocked, created_at FROM users WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}
