package database

import (
	"context"
	"errors"
	"fmt"

	"donation-api/internal/models"

	"gorm.io/gorm"
)

// DirectoryStore reads and writes schools, governing bodies and equipment
type DirectoryStore struct {
	db *gorm.DB
}

// NewDirectoryStore creates a new directory store
func NewDirectoryStore(db *gorm.DB) *DirectoryStore {
	return &DirectoryStore{db: db}
}

// GetSchool returns a school by ID
func (s *DirectoryStore) GetSchool(ctx context.Context, id uint) (*models.School, error) {
	var school models.School
	if err := first(ctx, s.db, &school, id); err != nil {
		return nil, err
	}
	return &school, nil
}

// GetGovernBody returns a governing body by ID
func (s *DirectoryStore) GetGovernBody(ctx context.Context, id uint) (*models.GovernBody, error) {
	var body models.GovernBody
	if err := first(ctx, s.db, &body, id); err != nil {
		return nil, err
	}
	return &body, nil
}

// GetEquipment returns an equipment record by ID
func (s *DirectoryStore) GetEquipment(ctx context.Context, id uint) (*models.Equipment, error) {
	var equipment models.Equipment
	if err := first(ctx, s.db, &equipment, id); err != nil {
		return nil, err
	}
	return &equipment, nil
}

// GetSchoolByCode returns a school by its unique code
func (s *DirectoryStore) GetSchoolByCode(ctx context.Context, code string) (*models.School, error) {
	var school models.School
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&school).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting school by code: %w", err)
	}
	return &school, nil
}

func first(ctx context.Context, db *gorm.DB, dest interface{}, id uint) error {
	err := db.WithContext(ctx).First(dest, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("getting record %d: %w", id, err)
	}
	return nil
}

// CreateSchool inserts a school
func (s *DirectoryStore) CreateSchool(ctx context.Context, school *models.School) error {
	if err := s.db.WithContext(ctx).Create(school).Error; err != nil {
		return fmt.Errorf("creating school: %w", err)
	}
	return nil
}

// CreateGovernBody inserts a governing body
func (s *DirectoryStore) CreateGovernBody(ctx context.Context, body *models.GovernBody) error {
	if err := s.db.WithContext(ctx).Create(body).Error; err != nil {
		return fmt.Errorf("creating governing body: %w", err)
	}
	return nil
}

// CreateEquipment inserts an equipment record
func (s *DirectoryStore) CreateEquipment(ctx context.Context, equipment *models.Equipment) error {
	if err := s.db.WithContext(ctx).Create(equipment).Error; err != nil {
		return fmt.Errorf("creating equipment: %w", err)
	}
	return nil
}

// ListSchools returns all schools ordered by name
func (s *DirectoryStore) ListSchools(ctx context.Context) ([]models.School, error) {
	var schools []models.School
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&schools).Error; err != nil {
		return nil, fmt.Errorf("listing schools: %w", err)
	}
	return schools, nil
}

// ListGovernBodies returns all governing bodies ordered by name
func (s *DirectoryStore) ListGovernBodies(ctx context.Context) ([]models.GovernBody, error) {
	var bodies []models.GovernBody
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&bodies).Error; err != nil {
		return nil, fmt.Errorf("listing governing bodies: %w", err)
	}
	return bodies, nil
}

// ListEquipment returns all equipment ordered by name
func (s *DirectoryStore) ListEquipment(ctx context.Context) ([]models.Equipment, error) {
	var equipment []models.Equipment
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&equipment).Error; err != nil {
		return nil, fmt.Errorf("listing equipment: %w", err)
	}
	return equipment, nil
}
