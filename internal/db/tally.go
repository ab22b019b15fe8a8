package db

import (
	"context"
	"fmt"

	"github.com/formdesk/backend/internal/model"
)

// tallyColumns maps caller-facing dimension names to real columns.
// Only values from this map are ever interpolated into the query.
var tallyColumns = map[string]string{
	"category": "category",
	"user":     "user_id::TEXT",
}

func (db *Postgres) TallySubmissions(ctx context.Context, by string) ([]model.TallyBucket, error) {
	col, ok := tallyColumns[by]
	if !ok {
		return nil, fmt.Errorf("unknown tally dimension: %s", by)
	}

	query := fmt.Sprintf(`
		SELECT %s AS label, COUNT(*) AS cnt
		FROM form_submissions
		GROUP BY label
		ORDER BY cnt DESC, label
	`, col)

	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buckets []model.TallyBucket
	for rows.Next() {
		var b model.TallyBucket
		if err := rows.Scan(&b.Label, &b.Count); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// KnownTallyDimension reports whether by is an allow-listed dimension.
func KnownTallyDimension(by string) bool {
	_, ok := tallyColumns[by]
	return ok
}
