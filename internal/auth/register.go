package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/medok/medok-backend/internal/profiles"
	"github.com/medok/medok-backend/internal/reference"
	"github.com/medok/medok-backend/internal/users"
	"github.com/medok/medok-backend/pkg/db"
	"github.com/medok/medok-backend/pkg/db/models"
	pkgerrors "github.com/medok/medok-backend/pkg/errors"
	"github.com/medok/medok-backend/pkg/security"
)

// Register creates the identity and profile atomically, then signs the new user in.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := users.NormalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	switch {
	case email == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	case name == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case !req.Role.IsValid():
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	case req.RegionID != nil && req.HospitalID == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hospital is required when a region is selected")
	}
	if err := security.CheckPasswordPolicy(req.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var (
		identity *models.Identity
		profile  *models.Profile
	)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		identityRepo := users.NewRepository(tx)
		profileRepo := profiles.NewRepository(tx)
		referenceRepo := reference.NewRepository(tx)

		if _, err := identityRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, emailTakenMessage)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check identity email")
		}

		if req.HospitalID != nil {
			hospital, err := referenceRepo.FindHospital(ctx, *req.HospitalID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeValidation, "unknown hospital")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load hospital")
			}
			if req.RegionID != nil && hospital.RegionID != *req.RegionID {
				return pkgerrors.New(pkgerrors.CodeValidation, "hospital does not belong to the selected region")
			}
		}

		created, err := identityRepo.Create(ctx, users.CreateIdentityDTO{
			Email:        email,
			PasswordHash: passwordHash,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, emailTakenMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create identity")
		}
		identity = created

		profile, err = profileRepo.Create(ctx, profiles.CreateProfileDTO{
			ID:         created.ID,
			Name:       name,
			Email:      email,
			Role:       req.Role,
			Phone:      req.Phone,
			HospitalID: req.HospitalID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create profile")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sess, err := s.session.Generate(ctx, identity.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	return s.issue(sess, identity, profile, s.now())
}
