package records

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bigredeye/gradebook/internal/models"
)

// Query answers exact-match lookups over stored score records.
type Query struct {
	store Store
}

func NewQuery(store Store) *Query {
	return &Query{store}
}

// Find returns every record matching all non-empty filter fields.
// Subject is not part of the lookup surface and is ignored.
func (q *Query) Find(ctx context.Context, filter models.Filter) ([]models.ScoreRecord, error) {
	filter.Subject = ""
	records, err := q.store.ListScoreRecords(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to list score records")
	}
	if records == nil {
		records = make([]models.ScoreRecord, 0)
	}
	return records, nil
}
