//go:build integration

package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
)

// Usage:
//   go test -tags integration ./internal/repository/...

func startPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if err := exec.CommandContext(ctx, "docker", "info").Run(); err != nil {
		t.Skip("Skipping test: Docker not available")
	}

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_DB":       "beers",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithStartupTimeout(90 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatal(err)
	}

	url := fmt.Sprintf("postgresql://admin:password@%s:%s/beers?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile("../../migrations/create_tables.up.sql")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func TestRepository_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repo := New(startPostgres(t, ctx))
	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	nan := math.NaN()
	rows := []domain.Rating{
		{Username: "ann", BeerName: "Pils", BeerDescription: "Pale Lager", ABV: 4.9, IBU: 35, GlobalRating: 3.6, UserRating: 4},
		{Username: "ann", BeerName: "Pils", BeerDescription: "Pale Lager", ABV: 4.9, IBU: 35, GlobalRating: 3.6, UserRating: 4},
		{Username: "ann", BeerName: "Stout", BeerDescription: "Imperial Stout", ABV: 10, IBU: nan, GlobalRating: 4.2, UserRating: 3.5},
		{Username: "bob", BeerName: "Pils", BeerDescription: "Pale Lager", ABV: 4.9, IBU: 35, GlobalRating: 3.6, UserRating: 2},
		{Username: "bob'; DROP TABLE prepped_data; --", BeerName: "IPA", BeerDescription: "IPA", ABV: 6.5, IBU: 60, GlobalRating: 3.9, UserRating: 5},
	}
	if err := repo.InsertRatings(ctx, rows[:1]); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := repo.ResetRatings(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n, err := repo.CountUsers(ctx); err != nil || n != 0 {
		t.Fatalf("after reset: %d users, %v", n, err)
	}
	if err := repo.InsertRatings(ctx, rows); err != nil {
		t.Fatalf("insert: %v", err)
	}

	users, err := repo.ListUsernames(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 3 || users[0] != "ann" {
		t.Errorf("unexpected usernames %v", users)
	}

	ann, err := repo.UserRatings(ctx, "ann")
	if err != nil {
		t.Fatal(err)
	}
	if len(ann) != 2 {
		t.Errorf("expected 2 deduplicated rows for ann, got %d", len(ann))
	}
	if !math.IsNaN(ann[1].IBU) {
		t.Errorf("NULL IBU should scan as NaN, got %v", ann[1].IBU)
	}

	if _, err := repo.UserRatings(ctx, "nobody"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}

	evil, err := repo.UserRatings(ctx, rows[4].Username)
	if err != nil || len(evil) != 1 {
		t.Errorf("parameter bound lookup failed: %v %v", evil, err)
	}

	triples, err := repo.RatingTriples(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(triples) != len(rows) {
		t.Errorf("rating triples must not be deduplicated: got %d", len(triples))
	}

	beers, err := repo.BeersByName(ctx, []string{"Pils", "IPA"})
	if err != nil {
		t.Fatal(err)
	}
	if len(beers) != 2 {
		t.Errorf("expected 2 distinct catalog rows, got %v", beers)
	}

	names, err := repo.ListBeers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(names) != "[IPA Pils Stout]" {
		t.Errorf("unexpected beers %v", names)
	}

	total, err := repo.CountUsers(ctx)
	if err != nil || total != 3 {
		t.Errorf("CountUsers = %d, %v", total, err)
	}
	page, err := repo.UsernamesPage(ctx, 2, 2)
	if err != nil || len(page) != 1 {
		t.Errorf("UsernamesPage = %v, %v", page, err)
	}
}
