package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"donation-api/internal/apperrors"
	"donation-api/internal/database"
	"donation-api/internal/models"
)

// Directory resolves the parties and equipment a transaction references.
type Directory interface {
	ResolveSchool(ctx context.Context, id uint) (*models.School, error)
	ResolveGovernBody(ctx context.Context, id uint) (*models.GovernBody, error)
	ResolveEquipment(ctx context.Context, id uint) (*models.Equipment, error)
}

// DirectoryService provides school, governing body and equipment operations
type DirectoryService struct {
	store *database.DirectoryStore
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(store *database.DirectoryStore) *DirectoryService {
	return &DirectoryService{store: store}
}

// ResolveSchool gets school by ID
func (s *DirectoryService) ResolveSchool(ctx context.Context, id uint) (*models.School, error) {
	school, err := s.store.GetSchool(ctx, id)
	if err != nil {
		return nil, lookupError("school", id, err)
	}
	return school, nil
}

// ResolveGovernBody gets governing body by ID
func (s *DirectoryService) ResolveGovernBody(ctx context.Context, id uint) (*models.GovernBody, error) {
	body, err := s.store.GetGovernBody(ctx, id)
	if err != nil {
		return nil, lookupError("governing body", id, err)
	}
	return body, nil
}

// ResolveEquipment gets equipment by ID
func (s *DirectoryService) ResolveEquipment(ctx context.Context, id uint) (*models.Equipment, error) {
	equipment, err := s.store.GetEquipment(ctx, id)
	if err != nil {
		return nil, lookupError("equipment", id, err)
	}
	return equipment, nil
}

func lookupError(entity string, id uint, err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return apperrors.WithMetadata(
			apperrors.CodeNotFound,
			fmt.Sprintf("%s %d not found", entity, id),
			map[string]string{"entity": entity, "id": fmt.Sprint(id)},
		)
	}
	return apperrors.Wrap(apperrors.CodeStoreFailure, "failed to load "+entity, err)
}

// CreateSchool creates a new school
func (s *DirectoryService) CreateSchool(ctx context.Context, school *models.School) error {
	school.Name = strings.TrimSpace(school.Name)
	school.Code = strings.TrimSpace(school.Code)
	if school.Name == "" {
		return missingName()
	}

	// Check if school code already exists
	if school.Code != "" {
		existing, err := s.store.GetSchoolByCode(ctx, school.Code)
		if err == nil {
			return apperrors.WithMetadata(
				apperrors.CodeAlreadyExists,
				fmt.Sprintf("school with code %s already exists", school.Code),
				map[string]string{"field": "code", "id": fmt.Sprint(existing.ID)},
			)
		}
		if !errors.Is(err, database.ErrNotFound) {
			return apperrors.Wrap(apperrors.CodeStoreFailure, "failed to check school code", err)
		}
	}

	if err := s.store.CreateSchool(ctx, school); err != nil {
		return apperrors.Wrap(apperrors.CodeStoreFailure, "failed to create school", err)
	}
	return nil
}

// CreateGovernBody creates a new governing body
func (s *DirectoryService) CreateGovernBody(ctx context.Context, body *models.GovernBody) error {
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		return missingName()
	}
	if err := s.store.CreateGovernBody(ctx, body); err != nil {
		return apperrors.Wrap(apperrors.CodeStoreFailure, "failed to create governing body", err)
	}
	return nil
}

// CreateEquipment creates a new equipment record
func (s *DirectoryService) CreateEquipment(ctx context.Context, equipment *models.Equipment) error {
	equipment.Name = strings.TrimSpace(equipment.Name)
	if equipment.Name == "" {
		return missingName()
	}
	if err := s.store.CreateEquipment(ctx, equipment); err != nil {
		return apperrors.Wrap(apperrors.CodeStoreFailure, "failed to create equipment", err)
	}
	return nil
}

func missingName() error {
	return apperrors.WithMetadata(apperrors.CodeMissingFields, "name is required",
		map[string]string{"fields": "name"})
}

// ListSchools gets all schools
func (s *DirectoryService) ListSchools(ctx context.Context) ([]models.School, error) {
	schools, err := s.store.ListSchools(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStoreFailure, "failed to list schools", err)
	}
	return schools, nil
}

// ListGovernBodies gets all governing bodies
func (s *DirectoryService) ListGovernBodies(ctx context.Context) ([]models.GovernBody, error) {
	bodies, err := s.store.ListGovernBodies(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStoreFailure, "failed to list governing bodies", err)
	}
	return bodies, nil
}

// ListEquipment gets all equipment
func (s *DirectoryService) ListEquipment(ctx context.Context) ([]models.Equipment, error) {
	equipment, err := s.store.ListEquipment(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStoreFailure, "failed to list equipment", err)
	}
	return equipment, nil
}
