package records

import (
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/server/models"
	"github.com/google/uuid"
)

// prepareNew copies rec and fills id and timestamps.
func prepareNew(rec models.Record, now time.Time) models.Record {
	out := rec.Clone()
	if out == nil {
		out = models.Record{}
	}
	if out.ID() == "" {
		out[models.FieldID] = uuid.NewString()
	}
	ts := common.FormatTime(now)
	if out.String(models.FieldCreatedAt) == "" {
		out[models.FieldCreatedAt] = ts
	}
	out[models.FieldUpdatedAt] = ts
	return out
}

// prepareUpdate drops immutable fields and stamps updated_at.
func prepareUpdate(fields models.Record, now time.Time) (models.Record, error) {
	out := fields.Clone()
	delete(out, models.FieldID)
	delete(out, models.FieldCreatedAt)
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", common.ErrorInvalidArgument)
	}
	out[models.FieldUpdatedAt] = common.FormatTime(now)
	return out, nil
}

func distinct(recs []models.Record, field string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range recs {
		v := r.String(field)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

func createdBefore(r models.Record, cutoff string) bool {
	c := r.String(models.FieldCreatedAt)
	return c != "" && c < cutoff
}
