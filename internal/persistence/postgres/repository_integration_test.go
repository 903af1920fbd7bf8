//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/directory/internal/domain"
	"example.com/directory/internal/seed"
)

func startRepository(t *testing.T, ctx context.Context) *Repository {
	t.Helper()

	pg, err := postgrescontainer.Run(ctx, "postgis/postgis:16-3.4",
		postgrescontainer.WithDatabase("directory"),
		postgrescontainer.WithUsername("directory"),
		postgrescontainer.WithPassword("directory"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	repo := NewRepository(pool)
	require.NoError(t, repo.Migrate(ctx))
	return repo
}

func TestRepositoryFiltersAndHydration(t *testing.T) {
	ctx := context.Background()
	repo := startRepository(t, ctx)
	require.NoError(t, seed.Apply(ctx, repo))

	total, err := repo.CountOrganizations(ctx, domain.Criteria{})
	require.NoError(t, err)
	require.Equal(t, 8, total)

	// Case-insensitive name match through ILIKE.
	matched, err := repo.ListOrganizations(ctx, domain.Criteria{Name: "молочная"}, 0, 20)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	require.Equal(t, seed.OrgDairyFarm, matched[0].ID)

	// Hydration: building, phones, linked activities.
	org, err := repo.GetOrganization(ctx, seed.OrgRogaIKopyta)
	require.NoError(t, err)
	require.NotNil(t, org)
	require.Equal(t, seed.BuildingLenina, org.Building.ID)
	require.Len(t, org.Phones, 3)
	require.Len(t, org.Activities, 2)

	// Direct activity filter does not descend the hierarchy.
	count, err := repo.CountOrganizations(ctx, domain.Criteria{ActivityID: seed.ActivityFood})
	require.NoError(t, err)
	require.Equal(t, 0, count)

	// Expanded id set covers the subtree.
	count, err = repo.CountOrganizations(ctx, domain.Criteria{
		ActivityIDs: []string{seed.ActivityFood, seed.ActivityMeat, seed.ActivityDairy, seed.ActivityBread},
	})
	require.NoError(t, err)
	require.Equal(t, 4, count)

	missing, err := repo.GetOrganization(ctx, uuid.NewString())
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestRepositoryGeoQueries(t *testing.T) {
	ctx := context.Background()
	repo := startRepository(t, ctx)
	require.NoError(t, seed.Apply(ctx, repo))

	radius, err := domain.NewGeoFilter(domain.GeoParams{
		Lat: 55.7558, Lon: 37.6176, RadiusKM: fptr(0.5),
	})
	require.NoError(t, err)

	// Ленина and Тверская fall inside 500 m of the center.
	orgs, err := repo.ListOrganizations(ctx, domain.Criteria{Geo: radius}, 0, 20)
	require.NoError(t, err)
	require.Len(t, orgs, 4)

	box, err := domain.NewGeoFilter(domain.GeoParams{
		Lat: 55.7558, Lon: 37.6176,
		MinLat: fptr(55.74), MaxLat: fptr(55.76), MinLon: fptr(37.58), MaxLon: fptr(37.65),
	})
	require.NoError(t, err)

	count, err := repo.CountOrganizations(ctx, domain.Criteria{Geo: box})
	require.NoError(t, err)
	require.Equal(t, 8, count)
}

func TestBoundingBoxSkipsUnparseableCoordinates(t *testing.T) {
	ctx := context.Background()
	repo := startRepository(t, ctx)
	require.NoError(t, seed.Apply(ctx, repo))

	// Corrupt one row out-of-band. The query must exclude the row, not fail.
	_, err := repo.pool.Exec(ctx,
		"UPDATE buildings SET latitude = 'not-a-number' WHERE id = $1::uuid", seed.BuildingArbat)
	require.NoError(t, err)

	box, err := domain.NewGeoFilter(domain.GeoParams{
		Lat: 55.7558, Lon: 37.6176,
		MinLat: fptr(55.74), MaxLat: fptr(55.76), MinLon: fptr(37.58), MaxLon: fptr(37.65),
	})
	require.NoError(t, err)

	orgs, err := repo.ListOrganizations(ctx, domain.Criteria{Geo: box}, 0, 20)
	require.NoError(t, err)
	// Мясной двор and Грузоперевозки sit in the corrupted building.
	require.Len(t, orgs, 6)
	for _, org := range orgs {
		require.NotEqual(t, seed.BuildingArbat, org.BuildingID)
	}
}

func TestActivityDepthEnforced(t *testing.T) {
	ctx := context.Background()
	repo := startRepository(t, ctx)
	require.NoError(t, seed.Apply(ctx, repo))

	parts := seed.ActivityParts // level 3
	err := repo.CreateActivity(ctx, domain.Activity{
		ID:       uuid.NewString(),
		Name:     "Свечи зажигания",
		ParentID: &parts,
	})
	require.ErrorIs(t, err, domain.ErrActivityDepthExceeded)

	// Levels are derived from the parent, not trusted from input.
	a, err := repo.GetActivity(ctx, seed.ActivityParts)
	require.NoError(t, err)
	require.Equal(t, 3, a.Level)
}

func fptr(v float64) *float64 { return &v }

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
