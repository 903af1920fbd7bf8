package domain_test

import (
	"context"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"example.com/directory/internal/domain"
	"example.com/directory/internal/persistence/memory"
	"example.com/directory/internal/seed"
)

func newFixtureService(t *testing.T) *domain.Service {
	t.Helper()
	store := memory.NewStore(zerolog.Nop())
	require.NoError(t, seed.Apply(context.Background(), store))
	return domain.NewService(store)
}

func orgIDs(page domain.Page[domain.Organization]) []string {
	out := make([]string, 0, len(page.Items))
	for _, org := range page.Items {
		out = append(out, org.ID)
	}
	sort.Strings(out)
	return out
}

func sorted(ids ...string) []string {
	sort.Strings(ids)
	return ids
}

func TestDescendants(t *testing.T) {
	svc := newFixtureService(t)
	ctx := context.Background()

	food, err := svc.Descendants(ctx, seed.ActivityFood)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{seed.ActivityMeat, seed.ActivityDairy, seed.ActivityBread}, food)

	cars, err := svc.Descendants(ctx, seed.ActivityCars)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{
		seed.ActivityCargo, seed.ActivityPassenger, seed.ActivityParts, seed.ActivityAccessories,
	}, cars)

	leaf, err := svc.Descendants(ctx, seed.ActivityParts)
	require.NoError(t, err)
	require.Empty(t, leaf)

	missing, err := svc.Descendants(ctx, "ffffffff-ffff-4fff-8fff-ffffffffffff")
	require.NoError(t, err)
	require.Empty(t, missing)
}

func TestOrganizationsByActivityTree(t *testing.T) {
	svc := newFixtureService(t)
	ctx := context.Background()

	food, err := svc.OrganizationsByActivityTree(ctx, seed.ActivityFood, domain.PageRequest{})
	require.NoError(t, err)
	require.Equal(t, 4, food.Total)
	require.Equal(t,
		sorted(seed.OrgRogaIKopyta, seed.OrgDairyFarm, seed.OrgMeatYard, seed.OrgBakery),
		orgIDs(food))

	services, err := svc.OrganizationsByActivityTree(ctx, seed.ActivityServices, domain.PageRequest{})
	require.NoError(t, err)
	require.Equal(t, sorted(seed.OrgAutoService), orgIDs(services))

	cars, err := svc.OrganizationsByActivityTree(ctx, seed.ActivityCars, domain.PageRequest{})
	require.NoError(t, err)
	require.Equal(t,
		sorted(seed.OrgAutoParts, seed.OrgAutoAccessories, seed.OrgCargo),
		orgIDs(cars))
}

func TestOrganizationsByActivityDirectOnly(t *testing.T) {
	svc := newFixtureService(t)
	ctx := context.Background()

	// No organization is tagged with the root itself, only with its children.
	root, err := svc.OrganizationsByActivity(ctx, seed.ActivityFood, domain.PageRequest{})
	require.NoError(t, err)
	require.Zero(t, root.Total)

	dairy, err := svc.OrganizationsByActivity(ctx, seed.ActivityDairy, domain.PageRequest{})
	require.NoError(t, err)
	require.Equal(t, sorted(seed.OrgRogaIKopyta, seed.OrgDairyFarm), orgIDs(dairy))
}

func TestSearchOrganizationsByNameCaseInsensitive(t *testing.T) {
	svc := newFixtureService(t)
	ctx := context.Background()

	page, err := svc.SearchOrganizationsByName(ctx, "молочная", domain.PageRequest{})
	require.NoError(t, err)
	require.Equal(t, sorted(seed.OrgDairyFarm), orgIDs(page))

	page, err = svc.SearchOrganizationsByName(ctx, "АВТО", domain.PageRequest{})
	require.NoError(t, err)
	require.Equal(t,
		sorted(seed.OrgAutoService, seed.OrgAutoParts, seed.OrgAutoAccessories),
		orgIDs(page))

	_, err = svc.SearchOrganizationsByName(ctx, "", domain.PageRequest{})
	require.ErrorIs(t, err, domain.ErrInvalidCriteria)
}

func TestListOrganizationsCombinesFiltersWithAND(t *testing.T) {
	svc := newFixtureService(t)
	ctx := context.Background()

	page, err := svc.ListOrganizations(ctx, domain.OrganizationFilters{
		Name:       "ооо",
		BuildingID: seed.BuildingLenina,
	}, domain.PageRequest{})
	require.NoError(t, err)
	require.Equal(t, sorted(seed.OrgRogaIKopyta, seed.OrgAutoParts), orgIDs(page))

	page, err = svc.ListOrganizations(ctx, domain.OrganizationFilters{
		Name:       "ооо",
		BuildingID: seed.BuildingLenina,
		ActivityID: seed.ActivityMeat,
	}, domain.PageRequest{})
	require.NoError(t, err)
	require.Equal(t, sorted(seed.OrgRogaIKopyta), orgIDs(page))
}

func TestPaginationWindows(t *testing.T) {
	svc := newFixtureService(t)
	ctx := context.Background()

	first, err := svc.ListOrganizations(ctx, domain.OrganizationFilters{}, domain.PageRequest{Page: 1, Size: 3})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	require.Equal(t, 8, first.Total)
	require.Equal(t, 3, first.Pages)

	last, err := svc.ListOrganizations(ctx, domain.OrganizationFilters{}, domain.PageRequest{Page: 3, Size: 3})
	require.NoError(t, err)
	require.Len(t, last.Items, 2)

	beyond, err := svc.ListOrganizations(ctx, domain.OrganizationFilters{}, domain.PageRequest{Page: 4, Size: 3})
	require.NoError(t, err)
	require.Empty(t, beyond.Items)
	require.Equal(t, first.Total, beyond.Total)
	require.Equal(t, first.Pages, beyond.Pages)

	_, err = svc.ListOrganizations(ctx, domain.OrganizationFilters{}, domain.PageRequest{Page: 1, Size: 101})
	require.ErrorIs(t, err, domain.ErrInvalidCriteria)
}

func TestOrganizationsNearbyRadius(t *testing.T) {
	svc := newFixtureService(t)
	ctx := context.Background()

	center := domain.Point{Lat: 55.7558, Lon: 37.6176}   // Ленина 1
	neighbor := domain.Point{Lat: 55.7576, Lon: 37.6136} // Тверская 10
	boundary := domain.DistanceMeters(center, neighbor)

	// Radius exactly at the neighbor's distance: inclusive.
	exact := boundary / 1000
	page, err := svc.OrganizationsNearby(ctx, domain.GeoParams{
		Lat: center.Lat, Lon: center.Lon, RadiusKM: &exact,
	}, domain.PageRequest{})
	require.NoError(t, err)
	require.Equal(t,
		sorted(seed.OrgRogaIKopyta, seed.OrgAutoParts, seed.OrgDairyFarm, seed.OrgAutoAccessories),
		orgIDs(page))

	// One meter short: the neighbor building drops out.
	short := (boundary - 1) / 1000
	page, err = svc.OrganizationsNearby(ctx, domain.GeoParams{
		Lat: center.Lat, Lon: center.Lon, RadiusKM: &short,
	}, domain.PageRequest{})
	require.NoError(t, err)
	require.Equal(t, sorted(seed.OrgRogaIKopyta, seed.OrgAutoParts), orgIDs(page))
}

func TestOrganizationsNearbyBoundingBox(t *testing.T) {
	svc := newFixtureService(t)
	ctx := context.Background()

	fl := func(v float64) *float64 { return &v }

	// Ленина 1 sits exactly on min_lat, Тверская 10 exactly on min_lon,
	// Блюхера 32/1 exactly on the max corner; all inclusive.
	page, err := svc.OrganizationsNearby(ctx, domain.GeoParams{
		Lat: 55.7558, Lon: 37.6176,
		MinLat: fl(55.7558), MaxLat: fl(55.7600),
		MinLon: fl(37.6136), MaxLon: fl(37.6400),
	}, domain.PageRequest{})
	require.NoError(t, err)
	require.Equal(t,
		sorted(seed.OrgRogaIKopyta, seed.OrgAutoParts, seed.OrgDairyFarm, seed.OrgAutoAccessories, seed.OrgAutoService),
		orgIDs(page))

	// Partial box without radius is invalid.
	_, err = svc.OrganizationsNearby(ctx, domain.GeoParams{
		Lat: 55.7558, Lon: 37.6176, MinLat: fl(55.7),
	}, domain.PageRequest{})
	require.ErrorIs(t, err, domain.ErrInvalidCriteria)
}

func TestSingleEntityLookups(t *testing.T) {
	svc := newFixtureService(t)
	ctx := context.Background()

	org, err := svc.GetOrganization(ctx, seed.OrgRogaIKopyta)
	require.NoError(t, err)
	require.Equal(t, `ООО "Рога и Копыта"`, org.Name)
	require.Equal(t, "г. Москва, ул. Ленина 1, офис 3", org.Building.Address)
	require.Len(t, org.Phones, 3)
	require.Len(t, org.Activities, 2)

	_, err = svc.GetOrganization(ctx, "ffffffff-ffff-4fff-8fff-ffffffffffff")
	require.ErrorIs(t, err, domain.ErrOrganizationNotFound)

	building, err := svc.GetBuilding(ctx, seed.BuildingArbat)
	require.NoError(t, err)
	require.Equal(t, "55.7494", building.Latitude)

	_, err = svc.GetBuilding(ctx, "ffffffff-ffff-4fff-8fff-ffffffffffff")
	require.ErrorIs(t, err, domain.ErrBuildingNotFound)

	activity, err := svc.GetActivity(ctx, seed.ActivityParts)
	require.NoError(t, err)
	require.Equal(t, 3, activity.Level)

	_, err = svc.GetActivity(ctx, "ffffffff-ffff-4fff-8fff-ffffffffffff")
	require.ErrorIs(t, err, domain.ErrActivityNotFound)
}

func TestActivityTree(t *testing.T) {
	svc := newFixtureService(t)

	nodes, err := svc.ActivityTree(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	byName := make(map[string]domain.ActivityNode, len(nodes))
	for _, node := range nodes {
		require.Equal(t, 1, node.Level)
		byName[node.Name] = node
	}

	food := byName["Еда"]
	require.Len(t, food.Children, 3)

	cars := byName["Автомобили"]
	require.Len(t, cars.Children, 2)
	for _, child := range cars.Children {
		require.Equal(t, 2, child.Level)
		if child.Name == "Легковые" {
			require.Len(t, child.Children, 2)
			for _, grandchild := range child.Children {
				require.Equal(t, 3, grandchild.Level)
				require.Empty(t, grandchild.Children)
			}
		}
	}
}
