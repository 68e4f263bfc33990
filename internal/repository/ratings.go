package repository

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
)

const selectRatings = `SELECT username, beer_name, beer_description, abv, ibu, global_rating, user_rating
	FROM prepped_data`

// AllRatings returns every rating row, deduplicated.
func (r *Repository) AllRatings(ctx context.Context) ([]domain.Rating, error) {
	var rs []domain.Rating
	err := r.run(ctx, "all_ratings", func(ctx context.Context) error {
		var err error
		rs, err = r.queryRatings(ctx, selectRatings+` ORDER BY id`)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("query all ratings: %w", err)
	}
	return domain.DedupRatings(rs), nil
}

// RatingTriples returns (username, beer_name, user_rating) for every row, as
// stored. Repeated ratings are kept so the user-item matrix can average them.
func (r *Repository) RatingTriples(ctx context.Context) ([]domain.Rating, error) {
	var rs []domain.Rating
	err := r.run(ctx, "rating_triples", func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx, `SELECT username, beer_name, user_rating FROM prepped_data ORDER BY id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var rt domain.Rating
			if err := rows.Scan(&rt.Username, &rt.BeerName, &rt.UserRating); err != nil {
				return fmt.Errorf("scan rating triple: %w", err)
			}
			rt.ABV, rt.IBU, rt.GlobalRating = math.NaN(), math.NaN(), math.NaN()
			rs = append(rs, rt)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query rating triples: %w", err)
	}
	return rs, nil
}

func (r *Repository) queryRatings(ctx context.Context, sql string, args ...any) ([]domain.Rating, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Rating
	for rows.Next() {
		var rt domain.Rating
		var abv, ibu, global *float64
		if err := rows.Scan(&rt.Username, &rt.BeerName, &rt.BeerDescription, &abv, &ibu, &global, &rt.UserRating); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		rt.ABV, rt.IBU, rt.GlobalRating = orNaN(abv), orNaN(ibu), orNaN(global)
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}
	return out, nil
}

// orNaN maps SQL NULL to NaN.
func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// ResetRatings empties the table and restarts row ids.
func (r *Repository) ResetRatings(ctx context.Context) error {
	return r.run(ctx, "reset_ratings", func(ctx context.Context) error {
		if _, err := r.pool.Exec(ctx, `TRUNCATE prepped_data RESTART IDENTITY`); err != nil {
			return fmt.Errorf("truncate ratings: %w", err)
		}
		return nil
	})
}

// InsertRatings appends rows in one batch. NaN attributes are stored as NULL.
func (r *Repository) InsertRatings(ctx context.Context, rs []domain.Rating) error {
	if len(rs) == 0 {
		return nil
	}
	return r.run(ctx, "insert_ratings", func(ctx context.Context) error {
		rows := make([][]any, len(rs))
		for i, rt := range rs {
			rows[i] = []any{rt.Username, rt.BeerName, rt.BeerDescription,
				nullable(rt.ABV), nullable(rt.IBU), nullable(rt.GlobalRating), rt.UserRating}
		}
		_, err := r.pool.CopyFrom(ctx,
			pgx.Identifier{"prepped_data"},
			[]string{"username", "beer_name", "beer_description", "abv", "ibu", "global_rating", "user_rating"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("copy ratings: %w", err)
		}
		return nil
	})
}

// nullable maps NaN to SQL NULL.
func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
