// Package memory provides an in-memory entity store for local development
// and tests.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"example.com/directory/internal/domain"
	"example.com/directory/internal/observability"
)

// Store holds the directory entities in process. Insertion order is
// preserved per entity kind, which gives the stable ordering the pagination
// contract requires.
type Store struct {
	mu sync.RWMutex

	buildings     map[string]domain.Building
	buildingOrder []string

	activities    map[string]domain.Activity
	activityOrder []string
	children      map[string][]string

	organizations map[string]domain.Organization
	orgOrder      []string

	log zerolog.Logger
}

// NewStore constructs an empty Store.
func NewStore(log zerolog.Logger) *Store {
	return &Store{
		buildings:     make(map[string]domain.Building),
		activities:    make(map[string]domain.Activity),
		children:      make(map[string][]string),
		organizations: make(map[string]domain.Organization),
		log:           log,
	}
}

// CreateBuilding stores a building after validating the address is unique
// and non-empty and both coordinates parse.
func (s *Store) CreateBuilding(ctx context.Context, b domain.Building) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(b.Address) == "" {
		return fmt.Errorf("building address is required")
	}
	for _, existing := range s.buildings {
		if existing.Address == b.Address {
			return fmt.Errorf("building address %q already exists", b.Address)
		}
	}
	if _, _, err := parseCoordinates(b); err != nil {
		return err
	}

	s.buildings[b.ID] = b
	s.buildingOrder = append(s.buildingOrder, b.ID)
	return nil
}

// CreateActivity stores an activity, deriving Level from the parent and
// rejecting nodes that would land below the depth cap.
func (s *Store) CreateActivity(ctx context.Context, a domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.Level = 1
	if a.ParentID != nil {
		parent, ok := s.activities[*a.ParentID]
		if !ok {
			return fmt.Errorf("parent activity %s does not exist", *a.ParentID)
		}
		a.Level = parent.Level + 1
		if a.Level > domain.MaxActivityLevel {
			return domain.ErrActivityDepthExceeded
		}
	}

	s.activities[a.ID] = a
	s.activityOrder = append(s.activityOrder, a.ID)
	if a.ParentID != nil {
		s.children[*a.ParentID] = append(s.children[*a.ParentID], a.ID)
	}
	return nil
}

// CreateOrganization stores an organization after checking its building and
// activities exist.
func (s *Store) CreateOrganization(ctx context.Context, o domain.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.buildings[o.BuildingID]; !ok {
		return fmt.Errorf("building %s does not exist", o.BuildingID)
	}
	for _, a := range o.Activities {
		if _, ok := s.activities[a.ID]; !ok {
			return fmt.Errorf("activity %s does not exist", a.ID)
		}
	}

	s.organizations[o.ID] = o
	s.orgOrder = append(s.orgOrder, o.ID)
	return nil
}

// CountOrganizations returns the number of organizations matching c.
func (s *Store) CountOrganizations(ctx context.Context, c domain.Criteria) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, id := range s.orgOrder {
		if s.matches(s.organizations[id], c) {
			count++
		}
	}
	return count, nil
}

// ListOrganizations returns the requested window of matching organizations
// in insertion order, with building and activities hydrated.
func (s *Store) ListOrganizations(ctx context.Context, c domain.Criteria, offset, limit int) ([]domain.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Organization, 0, limit)
	skipped := 0
	for _, id := range s.orgOrder {
		org := s.organizations[id]
		if !s.matches(org, c) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(out) >= limit {
			break
		}
		out = append(out, s.hydrate(org))
	}
	return out, nil
}

// GetOrganization returns the organization or nil when absent.
func (s *Store) GetOrganization(ctx context.Context, id string) (*domain.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, ok := s.organizations[id]
	if !ok {
		return nil, nil
	}
	hydrated := s.hydrate(org)
	return &hydrated, nil
}

// CountBuildings returns the number of stored buildings.
func (s *Store) CountBuildings(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buildingOrder), nil
}

// ListBuildings returns a window of buildings in insertion order.
func (s *Store) ListBuildings(ctx context.Context, offset, limit int) ([]domain.Building, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Building, 0, limit)
	for _, id := range window(s.buildingOrder, offset, limit) {
		out = append(out, s.buildings[id])
	}
	return out, nil
}

// GetBuilding returns the building or nil when absent.
func (s *Store) GetBuilding(ctx context.Context, id string) (*domain.Building, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.buildings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

// CountActivities returns the number of stored activities.
func (s *Store) CountActivities(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.activityOrder), nil
}

// ListActivities returns a window of activities in insertion order.
func (s *Store) ListActivities(ctx context.Context, offset, limit int) ([]domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Activity, 0, limit)
	for _, id := range window(s.activityOrder, offset, limit) {
		out = append(out, s.activities[id])
	}
	return out, nil
}

// GetActivity returns the activity or nil when absent.
func (s *Store) GetActivity(ctx context.Context, id string) (*domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.activities[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// ChildrenOf returns the direct children of the activity in insertion order.
func (s *Store) ChildrenOf(ctx context.Context, activityID string) ([]domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.children[activityID]
	out := make([]domain.Activity, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.activities[id])
	}
	return out, nil
}

// RootActivities returns all activities without a parent in insertion order.
func (s *Store) RootActivities(ctx context.Context) ([]domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Activity
	for _, id := range s.activityOrder {
		a := s.activities[id]
		if a.ParentID == nil {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) matches(org domain.Organization, c domain.Criteria) bool {
	if c.Name != "" && !strings.Contains(strings.ToLower(org.Name), strings.ToLower(c.Name)) {
		return false
	}
	if c.BuildingID != "" && org.BuildingID != c.BuildingID {
		return false
	}
	if c.ActivityID != "" && !tagged(org, c.ActivityID) {
		return false
	}
	if len(c.ActivityIDs) > 0 {
		any := false
		for _, id := range c.ActivityIDs {
			if tagged(org, id) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	if c.Geo != nil && !s.geoMatches(org, c.Geo) {
		return false
	}
	return true
}

func (s *Store) geoMatches(org domain.Organization, filter *domain.GeoFilter) bool {
	building, ok := s.buildings[org.BuildingID]
	if !ok {
		return false
	}
	lat, lon, err := parseCoordinates(building)
	if err != nil {
		// Bad stored coordinates exclude the row, never the query.
		s.log.Warn().Str("building_id", building.ID).Err(err).
			Msg("unparseable coordinates, excluding row")
		observability.RecordCoordinateParseFailure()
		return false
	}
	point := domain.Point{Lat: lat, Lon: lon}
	if filter.IsRadius() {
		center, meters := filter.Radius()
		return domain.DistanceMeters(center, point) <= meters
	}
	return filter.Box().Contains(point)
}

func (s *Store) hydrate(org domain.Organization) domain.Organization {
	out := org
	out.Building = s.buildings[org.BuildingID]
	activities := make([]domain.Activity, 0, len(org.Activities))
	for _, a := range org.Activities {
		if stored, ok := s.activities[a.ID]; ok {
			activities = append(activities, stored)
		}
	}
	out.Activities = activities
	if out.Phones == nil {
		out.Phones = []string{}
	}
	return out
}

func tagged(org domain.Organization, activityID string) bool {
	for _, a := range org.Activities {
		if a.ID == activityID {
			return true
		}
	}
	return false
}

func window(ids []string, offset, limit int) []string {
	if offset >= len(ids) {
		return nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	return ids[offset:end]
}

func parseCoordinates(b domain.Building) (float64, float64, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(b.Latitude), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("latitude %q: %w", b.Latitude, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(b.Longitude), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("longitude %q: %w", b.Longitude, err)
	}
	return lat, lon, nil
}
