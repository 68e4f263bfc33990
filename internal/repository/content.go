package repository

import (
	"context"
	"fmt"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
)

const selectBeers = `SELECT beer_name, beer_description, abv, ibu, global_rating FROM prepped_data`

// ListBeers returns every distinct beer name, sorted.
func (r *Repository) ListBeers(ctx context.Context) ([]string, error) {
	var names []string
	err := r.run(ctx, "list_beers", func(ctx context.Context) error {
		var err error
		names, err = r.queryStrings(ctx, `SELECT DISTINCT beer_name FROM prepped_data ORDER BY beer_name`)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list beers: %w", err)
	}
	return names, nil
}

// Catalog returns the beer attributes of every rating row, exact duplicates
// removed. A beer rated by several users appears once per distinct row.
func (r *Repository) Catalog(ctx context.Context) ([]domain.Beer, error) {
	var bs []domain.Beer
	err := r.run(ctx, "catalog", func(ctx context.Context) error {
		var err error
		bs, err = r.queryBeers(ctx, selectBeers+` ORDER BY id`)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	return bs, nil
}

// BeersByName returns the catalog rows of the named beers.
func (r *Repository) BeersByName(ctx context.Context, names []string) ([]domain.Beer, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var bs []domain.Beer
	err := r.run(ctx, "beers_by_name", func(ctx context.Context) error {
		var err error
		bs, err = r.queryBeers(ctx, selectBeers+` WHERE beer_name = ANY($1) ORDER BY id`, names)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("query beers by name: %w", err)
	}
	return bs, nil
}

func (r *Repository) queryBeers(ctx context.Context, sql string, args ...any) ([]domain.Beer, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Beer
	for rows.Next() {
		var b domain.Beer
		var abv, ibu, global *float64
		if err := rows.Scan(&b.Name, &b.Description, &abv, &ibu, &global); err != nil {
			return nil, fmt.Errorf("scan beer: %w", err)
		}
		b.ABV, b.IBU, b.GlobalRating = orNaN(abv), orNaN(ibu), orNaN(global)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate beers: %w", err)
	}
	return domain.DedupBeers(out), nil
}
