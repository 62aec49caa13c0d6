package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/citport/od-portal-api/internal/models"
)

// FacultyRepository manages reviewer accounts.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository constructs a FacultyRepository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

// FindByUsername fetches a faculty account by username.
func (r *FacultyRepository) FindByUsername(ctx context.Context, username string) (*models.FacultyUser, error) {
	const query = `SELECT id, username, password_hash, created_at FROM faculty_users WHERE username = $1`
	var user models.FacultyUser
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a faculty account.
func (r *FacultyRepository) Create(ctx context.Context, user *models.FacultyUser) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO faculty_users (id, username, password_hash, created_at)
        VALUES (:id, :username, :password_hash, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create faculty user: %w", err)
	}
	return nil
}
