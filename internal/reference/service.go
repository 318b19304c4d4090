package reference

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/medok/medok-backend/pkg/db"
	"github.com/medok/medok-backend/pkg/db/models"
	pkgerrors "github.com/medok/medok-backend/pkg/errors"
)

// RegionDTO is the public region shape used by sign-up selectors.
type RegionDTO struct {
	ID     uuid.UUID `json:"id"`
	NameCS string    `json:"name_cs"`
	NameEN string    `json:"name_en"`
}

// HospitalDTO is the public hospital shape.
type HospitalDTO struct {
	ID       uuid.UUID `json:"id"`
	RegionID uuid.UUID `json:"region_id"`
	Name     string    `json:"name"`
}

type repository interface {
	ListRegions(ctx context.Context) ([]models.Region, error)
	FindRegion(ctx context.Context, id uuid.UUID) (*models.Region, error)
	ListHospitals(ctx context.Context, regionID uuid.UUID) ([]models.Hospital, error)
}

// Service exposes read access to regions and hospitals.
type Service interface {
	Regions(ctx context.Context) ([]RegionDTO, error)
	Hospitals(ctx context.Context, regionID uuid.UUID) ([]HospitalDTO, error)
}

type service struct {
	repo repository
}

func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reference repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Regions(ctx context.Context) ([]RegionDTO, error) {
	rows, err := s.repo.ListRegions(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list regions")
	}
	out := make([]RegionDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, RegionDTO{ID: r.ID, NameCS: r.NameCS, NameEN: r.NameEN})
	}
	return out, nil
}

func (s *service) Hospitals(ctx context.Context, regionID uuid.UUID) ([]HospitalDTO, error) {
	if _, err := s.repo.FindRegion(ctx, regionID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "region not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load region")
	}
	rows, err := s.repo.ListHospitals(ctx, regionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list hospitals")
	}
	out := make([]HospitalDTO, 0, len(rows))
	for _, h := range rows {
		out = append(out, HospitalDTO{ID: h.ID, RegionID: h.RegionID, Name: h.Name})
	}
	return out, nil
}
