package profiles

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/medok/medok-backend/pkg/db"
	"github.com/medok/medok-backend/pkg/db/models"
	pkgerrors "github.com/medok/medok-backend/pkg/errors"
)

const profileNotFoundMessage = "profile not found"

type repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]models.Profile, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.Profile, error)
}

// Service resolves profiles within the caller's hospital.
type Service interface {
	Me(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error)
	Get(ctx context.Context, viewerID, profileID uuid.UUID) (*ProfileDTO, error)
	UpdateMe(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*ProfileDTO, error)
	SetAvatarURL(ctx context.Context, userID uuid.UUID, url string) (*ProfileDTO, error)
	Team(ctx context.Context, userID uuid.UUID) ([]ProfileDTO, error)
}

type service struct {
	repo repository
}

func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error) {
	profile, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(profile), nil
}

// Get returns another profile only when it shares the viewer's hospital.
func (s *service) Get(ctx context.Context, viewerID, profileID uuid.UUID) (*ProfileDTO, error) {
	if viewerID == profileID {
		return s.Me(ctx, viewerID)
	}
	viewer, err := s.load(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if viewer.HospitalID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeHospitalUnassigned, "user not assigned to a hospital")
	}
	target, err := s.load(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if target.HospitalID == nil || *target.HospitalID != *viewer.HospitalID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, profileNotFoundMessage)
	}
	return FromModel(target), nil
}

func (s *service) UpdateMe(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*ProfileDTO, error) {
	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
		}
		fields["name"] = name
	}
	if req.Phone != nil {
		fields["phone"] = nullableString(*req.Phone)
	}
	if req.AvatarURL != nil {
		fields["avatar_url"] = nullableString(*req.AvatarURL)
	}
	if req.SocialLinks != nil {
		links := req.SocialLinks.Normalize()
		if err := links.Validate(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
		}
		fields["social_links"] = links
	}

	if len(fields) == 0 {
		return s.Me(ctx, userID)
	}
	updated, err := s.repo.Update(ctx, userID, fields)
	if err != nil {
		return nil, mapRepoErr(err, "update profile")
	}
	return FromModel(updated), nil
}

func (s *service) SetAvatarURL(ctx context.Context, userID uuid.UUID, url string) (*ProfileDTO, error) {
	updated, err := s.repo.Update(ctx, userID, map[string]any{"avatar_url": url})
	if err != nil {
		return nil, mapRepoErr(err, "update avatar")
	}
	return FromModel(updated), nil
}

// Team lists the caller's hospital colleagues, including the caller.
func (s *service) Team(ctx context.Context, userID uuid.UUID) ([]ProfileDTO, error) {
	caller, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if caller.HospitalID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeHospitalUnassigned, "user not assigned to a hospital")
	}
	rows, err := s.repo.ListByHospital(ctx, *caller.HospitalID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list team")
	}
	out := make([]ProfileDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "load profile")
	}
	return profile, nil
}

func mapRepoErr(err error, op string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, profileNotFoundMessage)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func nullableString(v string) any {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return v
}
