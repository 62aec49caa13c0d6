package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citport/od-portal-api/internal/models"
)

func TestFacultyRepositoryFindByUsername(t *testing.T) {
	db, mock, cleanup := newRequestMock(t)
	defer cleanup()
	repo := NewFacultyRepository(db)

	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at"}).
		AddRow("f1", "admin", "$2a$10$hash", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, password_hash, created_at FROM faculty_users WHERE username = $1")).
		WithArgs("admin").
		WillReturnRows(rows)

	user, err := repo.FindByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacultyRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRequestMock(t)
	defer cleanup()
	repo := NewFacultyRepository(db)

	mock.ExpectExec("INSERT INTO faculty_users").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.FacultyUser{Username: "admin", PasswordHash: "$2a$10$hash"}
	err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
