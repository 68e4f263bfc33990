package repository

import (
	"context"
	"fmt"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
)

// ListUsernames returns every distinct username, sorted.
func (r *Repository) ListUsernames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.run(ctx, "list_usernames", func(ctx context.Context) error {
		var err error
		names, err = r.queryStrings(ctx, `SELECT DISTINCT username FROM prepped_data ORDER BY username`)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list usernames: %w", err)
	}
	return names, nil
}

// UsernamesPage returns one page of sorted usernames.
func (r *Repository) UsernamesPage(ctx context.Context, page, limit int) ([]string, error) {
	offset := (page - 1) * limit
	var names []string
	err := r.run(ctx, "usernames_page", func(ctx context.Context) error {
		var err error
		names, err = r.queryStrings(ctx,
			`SELECT DISTINCT username FROM prepped_data ORDER BY username LIMIT $1 OFFSET $2`,
			limit, offset,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("query usernames for page %d: %w", page, err)
	}
	return names, nil
}

// CountUsers counts distinct usernames.
func (r *Repository) CountUsers(ctx context.Context) (int, error) {
	var total int
	err := r.run(ctx, "count_users", func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT username) FROM prepped_data`).Scan(&total)
	})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return total, nil
}

// UserRatings returns the deduplicated rating rows of one user. An unknown
// user is domain.ErrUserNotFound.
func (r *Repository) UserRatings(ctx context.Context, username string) ([]domain.Rating, error) {
	var rs []domain.Rating
	err := r.run(ctx, "user_ratings", func(ctx context.Context) error {
		var err error
		rs, err = r.queryRatings(ctx, selectRatings+` WHERE username = $1 ORDER BY id`, username)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("query ratings of %s: %w", username, err)
	}
	if len(rs) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, username)
	}
	return domain.DedupRatings(rs), nil
}

func (r *Repository) queryStrings(ctx context.Context, sql string, args ...any) ([]string, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
