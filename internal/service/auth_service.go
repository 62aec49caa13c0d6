package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/citport/od-portal-api/internal/models"
	appErrors "github.com/citport/od-portal-api/pkg/errors"
)

const facultyRole = "faculty"

// localPartPattern encodes the college email grammar: name "." dept digits.
var localPartPattern = regexp.MustCompile(`^([a-z]+)\.([a-z]+)([0-9]{4})$`)

type facultyRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.FacultyUser, error)
	Create(ctx context.Context, user *models.FacultyUser) error
}

// AuthServiceConfig defines configuration for authentication flows.
type AuthServiceConfig struct {
	EmailDomain string
	TokenSecret string
	TokenExpiry time.Duration
	Issuer      string
}

// AuthService validates student identities and authenticates faculty.
type AuthService struct {
	faculty   facultyRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthServiceConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(faculty facultyRepository, validate *validator.Validate, logger *zap.Logger, config AuthServiceConfig) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.EmailDomain == "" {
		config.EmailDomain = "citchennai.net"
	}
	if config.TokenExpiry <= 0 {
		config.TokenExpiry = 12 * time.Hour
	}
	return &AuthService{faculty: faculty, validator: validate, logger: logger, config: config}
}

// ParseStudentEmail derives the student profile from a college email. The
// local-part must follow name.deptYEAR and the department must be recognised.
func (s *AuthService) ParseStudentEmail(email string) (*models.StudentProfile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid college email format")
	}
	local, domain := email[:at], email[at+1:]
	if domain != s.config.EmailDomain {
		return nil, appErrors.Clone(appErrors.ErrValidation, "email must belong to "+s.config.EmailDomain)
	}
	match := localPartPattern.FindStringSubmatch(local)
	if match == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "use name.departmentYEAR@"+s.config.EmailDomain)
	}
	dept := strings.ToUpper(match[2])
	if !models.ValidDepartment(dept) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown department code in email")
	}
	return &models.StudentProfile{
		Email:      email,
		Username:   local,
		Name:       strings.ToUpper(match[1][:1]) + match[1][1:],
		Department: dept,
		RollYear:   match[3],
	}, nil
}

// StudentLogin validates the email and returns the derived profile.
func (s *AuthService) StudentLogin(ctx context.Context, req models.StudentLoginRequest) (*models.StudentProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	profile, err := s.ParseStudentEmail(req.Email)
	if err != nil {
		return nil, err
	}
	s.logger.Info("student login", zap.String("email", profile.Email), zap.String("dept", profile.Department))
	return profile, nil
}

// FacultyLogin authenticates a reviewer and issues an access token. The
// server response is the single source of truth for faculty identity.
func (s *AuthService) FacultyLogin(ctx context.Context, req models.FacultyLoginRequest) (*models.FacultyLoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.faculty.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrAuth, "invalid faculty credentials")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch faculty account")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrAuth, "invalid faculty credentials")
	}

	now := time.Now().UTC()
	claims := &models.JWTClaims{
		Username: user.Username,
		Role:     facultyRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenExpiry)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.TokenSecret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign access token")
	}

	return &models.FacultyLoginResponse{
		Username:    user.Username,
		Role:        facultyRole,
		AccessToken: token,
		ExpiresIn:   int64(s.config.TokenExpiry.Seconds()),
		IssuedAt:    now,
	}, nil
}

// ValidateToken parses and verifies a faculty access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unexpected signing method")
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	if claims.Role != facultyRole {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "faculty access required")
	}
	return claims, nil
}

// EnsureDefaultFaculty seeds the reviewer account on first boot.
func (s *AuthService) EnsureDefaultFaculty(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	if _, err := s.faculty.FindByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check faculty account")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash faculty password")
	}
	if err := s.faculty.Create(ctx, &models.FacultyUser{Username: username, PasswordHash: string(hash)}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed faculty account")
	}
	s.logger.Info("seeded default faculty account", zap.String("username", username))
	return nil
}
