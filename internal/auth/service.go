package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medok/medok-backend/internal/profiles"
	"github.com/medok/medok-backend/internal/users"
	pkgAuth "github.com/medok/medok-backend/pkg/auth"
	"github.com/medok/medok-backend/pkg/auth/session"
	"github.com/medok/medok-backend/pkg/config"
	"github.com/medok/medok-backend/pkg/db/models"
	pkgerrors "github.com/medok/medok-backend/pkg/errors"
	"github.com/medok/medok-backend/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	emailTakenMessage         = "email already registered"
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, accessID string, req RefreshRequest) (*AuthResponse, error)
	Logout(ctx context.Context, accessID string) error
	Session(ctx context.Context, userID uuid.UUID) (*SessionResponse, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error
}

type identityRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Identity, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Identity, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type profileRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type sessionManager interface {
	Generate(ctx context.Context, userID uuid.UUID) (session.Session, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (session.Session, error)
	Revoke(ctx context.Context, accessID string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	DB             txRunner
	Identities     identityRepository
	Profiles       profileRepository
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Now            func() time.Time
}

type service struct {
	db          txRunner
	identities  identityRepository
	profiles    profileRepository
	session     sessionManager
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	now         func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	if params.Identities == nil {
		return nil, fmt.Errorf("identity repository is required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		db:          params.DB,
		identities:  params.Identities,
		profiles:    params.Profiles,
		session:     params.SessionManager,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		now:         now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	identity, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.FindByID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}

	now := s.now()
	if err := s.identities.UpdateLastLogin(ctx, identity.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update last login")
	}
	identity.LastLoginAt = &now

	sess, err := s.session.Generate(ctx, identity.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	return s.issue(sess, identity, profile, now)
}

func (s *service) Refresh(ctx context.Context, accessID string, req RefreshRequest) (*AuthResponse, error) {
	sess, err := s.session.Rotate(ctx, accessID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}
	identity, profile, err := s.loadAccount(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	return s.issue(sess, identity, profile, s.now())
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) Session(ctx context.Context, userID uuid.UUID) (*SessionResponse, error) {
	identity, profile, err := s.loadAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &SessionResponse{
		User:    users.FromModel(identity),
		Profile: profiles.FromModel(profile),
	}, nil
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error {
	if err := security.CheckPasswordChange(req.NewPassword, req.ConfirmPassword); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	hash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.identities.UpdatePasswordHash(ctx, userID, hash); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "identity not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}
	return nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.Identity, error) {
	input := users.NormalizeEmail(email)
	if input == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	identity, err := s.identities.FindByEmail(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup identity")
	}

	valid, err := security.VerifyPassword(password, identity.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return identity, nil
}

func (s *service) loadAccount(ctx context.Context, userID uuid.UUID) (*models.Identity, *models.Profile, error) {
	identity, err := s.identities.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load identity")
	}
	profile, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	return identity, profile, nil
}

// issue mints an access token bound to the session's access id.
func (s *service) issue(sess session.Session, identity *models.Identity, profile *models.Profile, now time.Time) (*AuthResponse, error) {
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID:     identity.ID,
		HospitalID: profile.HospitalID,
		Role:       profile.Role,
		JTI:        sess.AccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: sess.RefreshToken,
		ExpiresIn:    s.jwtCfg.ExpirationMinutes * 60,
		User:         users.FromModel(identity),
		Profile:      profiles.FromModel(profile),
	}, nil
}
