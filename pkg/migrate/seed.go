package migrate

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/medok/medok-backend/pkg/db/models"
)

// SeedFile is the YAML document describing reference data.
type SeedFile struct {
	Regions []SeedRegion `yaml:"regions"`
}

type SeedRegion struct {
	ID        string         `yaml:"id"`
	NameCS    string         `yaml:"name_cs"`
	NameEN    string         `yaml:"name_en"`
	Hospitals []SeedHospital `yaml:"hospitals"`
}

type SeedHospital struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// SeedResult counts the rows written by Seed.
type SeedResult struct {
	Regions   int
	Hospitals int
}

// LoadSeedFile reads and parses a seed document from disk.
func LoadSeedFile(path string) (*SeedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file %q: %w", path, err)
	}
	return ParseSeed(raw)
}

// ParseSeed decodes a seed document and checks every entry carries ids and names.
func ParseSeed(raw []byte) (*SeedFile, error) {
	var file SeedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	for i, region := range file.Regions {
		if _, err := uuid.Parse(region.ID); err != nil {
			return nil, fmt.Errorf("regions[%d]: invalid id %q", i, region.ID)
		}
		if region.NameCS == "" || region.NameEN == "" {
			return nil, fmt.Errorf("regions[%d]: name_cs and name_en are required", i)
		}
		for j, hospital := range region.Hospitals {
			if _, err := uuid.Parse(hospital.ID); err != nil {
				return nil, fmt.Errorf("regions[%d].hospitals[%d]: invalid id %q", i, j, hospital.ID)
			}
			if hospital.Name == "" {
				return nil, fmt.Errorf("regions[%d].hospitals[%d]: name is required", i, j)
			}
		}
	}
	return &file, nil
}

// Seed upserts regions and hospitals so it can be re-run safely.
func Seed(ctx context.Context, conn *gorm.DB, file *SeedFile) (SeedResult, error) {
	var result SeedResult
	if file == nil {
		return result, nil
	}
	err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, region := range file.Regions {
			row := models.Region{ID: uuid.MustParse(region.ID), NameCS: region.NameCS, NameEN: region.NameEN}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"name_cs", "name_en", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("upsert region %s: %w", region.ID, err)
			}
			result.Regions++

			for _, hospital := range region.Hospitals {
				h := models.Hospital{ID: uuid.MustParse(hospital.ID), RegionID: row.ID, Name: hospital.Name}
				if err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "id"}},
					DoUpdates: clause.AssignmentColumns([]string{"region_id", "name", "updated_at"}),
				}).Create(&h).Error; err != nil {
					return fmt.Errorf("upsert hospital %s: %w", hospital.ID, err)
				}
				result.Hospitals++
			}
		}
		return nil
	})
	return result, err
}
