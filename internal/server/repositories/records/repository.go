// Package records is the generic repository over the market-data tables.
// Items travel as models.Record; the repository owns the id and the
// created_at/updated_at stamps.
package records

import (
	"context"
	"time"

	"github.com/dmitrijs2005/liberandum/internal/server/models"
)

// Repository is the CRUD and query facade over one table.
type Repository interface {
	Table() string
	Create(ctx context.Context, rec models.Record) (models.Record, error)
	Get(ctx context.Context, id string) (models.Record, error)
	// Update merges fields into the stored record. The id and created_at
	// cannot be changed.
	Update(ctx context.Context, id string, fields models.Record) (models.Record, error)
	Delete(ctx context.Context, id string) error
	// List returns up to limit records, all of them when limit is 0.
	List(ctx context.Context, limit int) ([]models.Record, error)
	FindByField(ctx context.Context, field, value string) ([]models.Record, error)
	// Search matches records whose field contains value, case-insensitively.
	Search(ctx context.Context, field, value string) ([]models.Record, error)
	Count(ctx context.Context) (int, error)
	// DistinctValues returns the sorted distinct string values of field.
	DistinctValues(ctx context.Context, field string) ([]string, error)
	BatchCreate(ctx context.Context, recs []models.Record) (int, error)
	BatchDelete(ctx context.Context, ids []string) (int, error)
	// DeleteOlderThan removes records created before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
