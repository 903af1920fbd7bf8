// Package postgres provides the Postgres-backed entity store. Radius
// queries push down to PostGIS ST_DWithin against the derived geography
// column; bounding-box queries compare the canonical text coordinates, cast
// per row.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/directory/internal/domain"
)

// Repository implements domain.Store and domain.Writer over a pgx pool.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Migrate creates the schema if it does not exist. The level check mirrors
// the write-path invariant so the constraint holds even for out-of-band
// writes.
func (r *Repository) Migrate(ctx context.Context) error {
	const schema = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS buildings (
    id UUID PRIMARY KEY,
    address TEXT NOT NULL UNIQUE CHECK (address <> ''),
    latitude TEXT NOT NULL,
    longitude TEXT NOT NULL,
    geom GEOGRAPHY(POINT, 4326) NOT NULL
);

CREATE TABLE IF NOT EXISTS activities (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL,
    parent_id UUID REFERENCES activities(id),
    level INT NOT NULL DEFAULT 1 CHECK (level >= 1 AND level <= 3)
);

CREATE TABLE IF NOT EXISTS organizations (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL,
    building_id UUID NOT NULL REFERENCES buildings(id)
);

CREATE TABLE IF NOT EXISTS organization_phones (
    organization_id UUID NOT NULL REFERENCES organizations(id),
    phone TEXT NOT NULL,
    PRIMARY KEY (organization_id, phone)
);

CREATE TABLE IF NOT EXISTS organization_activities (
    organization_id UUID NOT NULL REFERENCES organizations(id),
    activity_id UUID NOT NULL REFERENCES activities(id),
    PRIMARY KEY (organization_id, activity_id)
);

CREATE INDEX IF NOT EXISTS idx_activities_parent ON activities(parent_id);
CREATE INDEX IF NOT EXISTS idx_organizations_building ON organizations(building_id);
CREATE INDEX IF NOT EXISTS idx_buildings_geom ON buildings USING GIST (geom);
`
	_, err := r.pool.Exec(ctx, schema)
	return err
}

// numericText guards the per-row cast in bounding-box mode: rows whose
// stored coordinates are not decimal text simply fail the predicate instead
// of aborting the query.
const numericText = `~ '^-?[0-9]+(\.[0-9]+)?$'`

// organizationFilter renders c as a WHERE clause over organizations o joined
// with buildings b. Absent filters contribute nothing; present filters AND
// together.
func organizationFilter(c domain.Criteria) (string, []any) {
	var clauses []string
	var args []any

	if c.Name != "" {
		args = append(args, "%"+c.Name+"%")
		clauses = append(clauses, fmt.Sprintf("o.name ILIKE $%d", len(args)))
	}
	if c.BuildingID != "" {
		args = append(args, c.BuildingID)
		clauses = append(clauses, fmt.Sprintf("o.building_id = $%d::uuid", len(args)))
	}
	if c.ActivityID != "" {
		args = append(args, c.ActivityID)
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM organization_activities oa WHERE oa.organization_id = o.id AND oa.activity_id = $%d::uuid)",
			len(args)))
	}
	if len(c.ActivityIDs) > 0 {
		args = append(args, c.ActivityIDs)
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM organization_activities oa WHERE oa.organization_id = o.id AND oa.activity_id = ANY($%d::uuid[]))",
			len(args)))
	}
	if c.Geo != nil {
		if c.Geo.IsRadius() {
			center, meters := c.Geo.Radius()
			args = append(args, center.Lon, center.Lat, meters)
			clauses = append(clauses, fmt.Sprintf(
				"ST_DWithin(b.geom, ST_SetSRID(ST_MakePoint($%d, $%d), 4326)::geography, $%d)",
				len(args)-2, len(args)-1, len(args)))
		} else {
			box := c.Geo.Box()
			args = append(args, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
			clauses = append(clauses, fmt.Sprintf(
				"b.latitude %s AND b.longitude %s AND CAST(b.latitude AS numeric) BETWEEN $%d AND $%d AND CAST(b.longitude AS numeric) BETWEEN $%d AND $%d",
				numericText, numericText, len(args)-3, len(args)-2, len(args)-1, len(args)))
		}
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// CountOrganizations returns the number of organizations matching c.
func (r *Repository) CountOrganizations(ctx context.Context, c domain.Criteria) (int, error) {
	where, args := organizationFilter(c)
	query := "SELECT count(*) FROM organizations o JOIN buildings b ON b.id = o.building_id" + where

	var total int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// ListOrganizations returns a window of matching organizations ordered by
// id, with building, phones and activities hydrated.
func (r *Repository) ListOrganizations(ctx context.Context, c domain.Criteria, offset, limit int) ([]domain.Organization, error) {
	where, args := organizationFilter(c)
	query := fmt.Sprintf(`SELECT o.id::text, o.name, o.building_id::text, b.address, b.latitude, b.longitude
        FROM organizations o JOIN buildings b ON b.id = o.building_id%s
        ORDER BY o.id LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Organization, 0, limit)
	ids := make([]string, 0, limit)
	for rows.Next() {
		var org domain.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.BuildingID, &org.Building.Address, &org.Building.Latitude, &org.Building.Longitude); err != nil {
			return nil, err
		}
		org.Building.ID = org.BuildingID
		org.Phones = []string{}
		org.Activities = []domain.Activity{}
		results = append(results, org)
		ids = append(ids, org.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return results, nil
	}

	phones, err := r.loadPhones(ctx, ids)
	if err != nil {
		return nil, err
	}
	activities, err := r.loadActivities(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range results {
		if p, ok := phones[results[i].ID]; ok {
			results[i].Phones = p
		}
		if a, ok := activities[results[i].ID]; ok {
			results[i].Activities = a
		}
	}
	return results, nil
}

// GetOrganization returns the organization or nil when absent.
func (r *Repository) GetOrganization(ctx context.Context, id string) (*domain.Organization, error) {
	const query = `SELECT o.id::text, o.name, o.building_id::text, b.address, b.latitude, b.longitude
        FROM organizations o JOIN buildings b ON b.id = o.building_id WHERE o.id = $1::uuid`

	var org domain.Organization
	err := r.pool.QueryRow(ctx, query, id).Scan(&org.ID, &org.Name, &org.BuildingID, &org.Building.Address, &org.Building.Latitude, &org.Building.Longitude)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	org.Building.ID = org.BuildingID

	phones, err := r.loadPhones(ctx, []string{org.ID})
	if err != nil {
		return nil, err
	}
	activities, err := r.loadActivities(ctx, []string{org.ID})
	if err != nil {
		return nil, err
	}
	org.Phones = phones[org.ID]
	if org.Phones == nil {
		org.Phones = []string{}
	}
	org.Activities = activities[org.ID]
	if org.Activities == nil {
		org.Activities = []domain.Activity{}
	}
	return &org, nil
}

func (r *Repository) loadPhones(ctx context.Context, orgIDs []string) (map[string][]string, error) {
	const query = `SELECT organization_id::text, phone FROM organization_phones
        WHERE organization_id = ANY($1::uuid[]) ORDER BY phone`

	rows, err := r.pool.Query(ctx, query, orgIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var orgID, phone string
		if err := rows.Scan(&orgID, &phone); err != nil {
			return nil, err
		}
		out[orgID] = append(out[orgID], phone)
	}
	return out, rows.Err()
}

func (r *Repository) loadActivities(ctx context.Context, orgIDs []string) (map[string][]domain.Activity, error) {
	const query = `SELECT oa.organization_id::text, a.id::text, a.name, a.parent_id::text, a.level
        FROM organization_activities oa
        JOIN activities a ON a.id = oa.activity_id
        WHERE oa.organization_id = ANY($1::uuid[]) ORDER BY a.name`

	rows, err := r.pool.Query(ctx, query, orgIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.Activity)
	for rows.Next() {
		var orgID string
		var a domain.Activity
		if err := rows.Scan(&orgID, &a.ID, &a.Name, &a.ParentID, &a.Level); err != nil {
			return nil, err
		}
		out[orgID] = append(out[orgID], a)
	}
	return out, rows.Err()
}

// CountBuildings returns the number of buildings.
func (r *Repository) CountBuildings(ctx context.Context) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, "SELECT count(*) FROM buildings").Scan(&total)
	return total, err
}

// ListBuildings returns a window of buildings ordered by id.
func (r *Repository) ListBuildings(ctx context.Context, offset, limit int) ([]domain.Building, error) {
	const query = `SELECT id::text, address, latitude, longitude FROM buildings
        ORDER BY id LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Building, 0, limit)
	for rows.Next() {
		var b domain.Building
		if err := rows.Scan(&b.ID, &b.Address, &b.Latitude, &b.Longitude); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetBuilding returns the building or nil when absent.
func (r *Repository) GetBuilding(ctx context.Context, id string) (*domain.Building, error) {
	const query = `SELECT id::text, address, latitude, longitude FROM buildings WHERE id = $1::uuid`

	var b domain.Building
	err := r.pool.QueryRow(ctx, query, id).Scan(&b.ID, &b.Address, &b.Latitude, &b.Longitude)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CountActivities returns the number of activities.
func (r *Repository) CountActivities(ctx context.Context) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, "SELECT count(*) FROM activities").Scan(&total)
	return total, err
}

// ListActivities returns a window of activities ordered by id.
func (r *Repository) ListActivities(ctx context.Context, offset, limit int) ([]domain.Activity, error) {
	const query = `SELECT id::text, name, parent_id::text, level FROM activities
        ORDER BY id LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Activity, 0, limit)
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.Name, &a.ParentID, &a.Level); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetActivity returns the activity or nil when absent.
func (r *Repository) GetActivity(ctx context.Context, id string) (*domain.Activity, error) {
	const query = `SELECT id::text, name, parent_id::text, level FROM activities WHERE id = $1::uuid`

	var a domain.Activity
	err := r.pool.QueryRow(ctx, query, id).Scan(&a.ID, &a.Name, &a.ParentID, &a.Level)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ChildrenOf returns the direct children of the activity ordered by name.
func (r *Repository) ChildrenOf(ctx context.Context, activityID string) ([]domain.Activity, error) {
	const query = `SELECT id::text, name, parent_id::text, level FROM activities
        WHERE parent_id = $1::uuid ORDER BY name`

	rows, err := r.pool.Query(ctx, query, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.Name, &a.ParentID, &a.Level); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// RootActivities returns all activities without a parent ordered by name.
func (r *Repository) RootActivities(ctx context.Context) ([]domain.Activity, error) {
	const query = `SELECT id::text, name, parent_id::text, level FROM activities
        WHERE parent_id IS NULL ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.Name, &a.ParentID, &a.Level); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateBuilding inserts a building, deriving the geography point from the
// canonical text coordinates.
func (r *Repository) CreateBuilding(ctx context.Context, b domain.Building) error {
	lat, err := strconv.ParseFloat(strings.TrimSpace(b.Latitude), 64)
	if err != nil {
		return fmt.Errorf("latitude %q: %w", b.Latitude, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(b.Longitude), 64)
	if err != nil {
		return fmt.Errorf("longitude %q: %w", b.Longitude, err)
	}

	const stmt = `INSERT INTO buildings (id, address, latitude, longitude, geom)
        VALUES ($1::uuid, $2, $3, $4, ST_SetSRID(ST_MakePoint($5, $6), 4326)::geography)`
	_, err = r.pool.Exec(ctx, stmt, b.ID, b.Address, b.Latitude, b.Longitude, lon, lat)
	return err
}

// CreateActivity inserts an activity, deriving its level from the parent and
// rejecting nodes below the depth cap.
func (r *Repository) CreateActivity(ctx context.Context, a domain.Activity) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	level := 1
	if a.ParentID != nil {
		var parentLevel int
		err := tx.QueryRow(ctx, "SELECT level FROM activities WHERE id = $1::uuid", *a.ParentID).Scan(&parentLevel)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("parent activity %s does not exist", *a.ParentID)
		}
		if err != nil {
			return err
		}
		level = parentLevel + 1
		if level > domain.MaxActivityLevel {
			return domain.ErrActivityDepthExceeded
		}
	}

	const stmt = `INSERT INTO activities (id, name, parent_id, level) VALUES ($1::uuid, $2, $3::uuid, $4)`
	if _, err := tx.Exec(ctx, stmt, a.ID, a.Name, a.ParentID, level); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CreateOrganization inserts an organization with its phones and activity
// links in one transaction.
func (r *Repository) CreateOrganization(ctx context.Context, o domain.Organization) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const orgStmt = `INSERT INTO organizations (id, name, building_id) VALUES ($1::uuid, $2, $3::uuid)`
	if _, err := tx.Exec(ctx, orgStmt, o.ID, o.Name, o.BuildingID); err != nil {
		return err
	}
	for _, phone := range o.Phones {
		const stmt = `INSERT INTO organization_phones (organization_id, phone) VALUES ($1::uuid, $2)`
		if _, err := tx.Exec(ctx, stmt, o.ID, phone); err != nil {
			return err
		}
	}
	for _, a := range o.Activities {
		const stmt = `INSERT INTO organization_activities (organization_id, activity_id) VALUES ($1::uuid, $2::uuid)`
		if _, err := tx.Exec(ctx, stmt, o.ID, a.ID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
