package services

import (
	"context"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/server/models"
	"github.com/dmitrijs2005/liberandum/internal/server/repositories/records"
	"github.com/dmitrijs2005/liberandum/internal/server/repositories/repomanager"
)

// Search modes of DataService.Search.
const (
	SearchExact    = "exact"
	SearchContains = "contains"
)

// DataService is the generic record API for authenticated users. Only the
// allowed market tables are reachable.
type DataService struct {
	repos   repomanager.RepositoryManager
	allowed []string
}

func NewDataService(repos repomanager.RepositoryManager, allowed []string) *DataService {
	return &DataService{repos: repos, allowed: allowed}
}

func (s *DataService) repo(table string) (records.Repository, error) {
	if !slices.Contains(s.allowed, table) {
		return nil, fmt.Errorf("%w: table %q is not available", common.ErrorForbidden, table)
	}
	return s.repos.Records(table)
}

// Create stores rec on behalf of user. The id is always generated.
func (s *DataService) Create(ctx context.Context, user *models.User, table string, rec models.Record) (models.Record, error) {
	repo, err := s.repo(table)
	if err != nil {
		return nil, err
	}
	rec = rec.Clone()
	delete(rec, models.FieldID)
	rec[models.FieldCreatedBy] = user.ID
	rec["created_by_email"] = user.Email
	return repo.Create(ctx, rec)
}

func (s *DataService) Get(ctx context.Context, table, id string) (models.Record, error) {
	repo, err := s.repo(table)
	if err != nil {
		return nil, err
	}
	return repo.Get(ctx, id)
}

func (s *DataService) Update(ctx context.Context, user *models.User, table, id string, fields models.Record) (models.Record, error) {
	repo, err := s.repo(table)
	if err != nil {
		return nil, err
	}
	fields = fields.Clone()
	fields["updated_by"] = user.ID
	fields["updated_by_email"] = user.Email
	return repo.Update(ctx, id, fields)
}

func (s *DataService) Delete(ctx context.Context, table, id string) error {
	repo, err := s.repo(table)
	if err != nil {
		return err
	}
	return repo.Delete(ctx, id)
}

func (s *DataService) List(ctx context.Context, table string, limit int) ([]models.Record, error) {
	repo, err := s.repo(table)
	if err != nil {
		return nil, err
	}
	return repo.List(ctx, limit)
}

// Search finds records whose field equals value, or contains it when mode is
// SearchContains.
func (s *DataService) Search(ctx context.Context, table, field, value, mode string) ([]models.Record, error) {
	if field == "" {
		return nil, fmt.Errorf("%w: field is required", common.ErrorInvalidArgument)
	}
	repo, err := s.repo(table)
	if err != nil {
		return nil, err
	}
	switch mode {
	case "", SearchExact:
		return repo.FindByField(ctx, field, value)
	case SearchContains:
		return repo.Search(ctx, field, value)
	default:
		return nil, fmt.Errorf("%w: search_type must be exact or contains", common.ErrorInvalidArgument)
	}
}
