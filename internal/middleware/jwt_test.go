package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/citport/od-portal-api/internal/models"
	"github.com/citport/od-portal-api/internal/service"
)

type noFacultyRepo struct{}

func (noFacultyRepo) FindByUsername(ctx context.Context, username string) (*models.FacultyUser, error) {
	return nil, sql.ErrNoRows
}

func (noFacultyRepo) Create(ctx context.Context, user *models.FacultyUser) error {
	return nil
}

func newJWTRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	authSvc := service.NewAuthService(noFacultyRepo{}, nil, zap.NewNop(), service.AuthServiceConfig{
		TokenSecret: "secret",
		TokenExpiry: time.Hour,
	})

	r := gin.New()
	r.GET("/protected", FacultyJWT(authSvc), func(c *gin.Context) {
		claims, ok := c.Get(ContextUserKey)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"username": claims.(*models.JWTClaims).Username})
	})
	return r
}

// facultyToken issues a real token signed with the same secret the router
// validates against.
func facultyToken(t *testing.T) string {
	t.Helper()
	repo := &seedRepo{}
	issuer := service.NewAuthService(repo, nil, zap.NewNop(), service.AuthServiceConfig{
		TokenSecret: "secret",
		TokenExpiry: time.Hour,
	})
	require.NoError(t, issuer.EnsureDefaultFaculty(context.Background(), "admin", "admin123"))
	res, err := issuer.FacultyLogin(context.Background(), models.FacultyLoginRequest{Username: "admin", Password: "admin123"})
	require.NoError(t, err)
	return res.AccessToken
}

type seedRepo struct {
	user *models.FacultyUser
}

func (r *seedRepo) FindByUsername(ctx context.Context, username string) (*models.FacultyUser, error) {
	if r.user != nil && r.user.Username == username {
		return r.user, nil
	}
	return nil, sql.ErrNoRows
}

func (r *seedRepo) Create(ctx context.Context, user *models.FacultyUser) error {
	r.user = user
	return nil
}

func TestFacultyJWTMissingHeader(t *testing.T) {
	r := newJWTRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFacultyJWTMalformedHeader(t *testing.T) {
	r := newJWTRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFacultyJWTInvalidToken(t *testing.T) {
	r := newJWTRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFacultyJWTValidToken(t *testing.T) {
	r := newJWTRouter(t)
	token := facultyToken(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "admin")
}
