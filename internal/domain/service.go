// Package domain defines the query engine for the directory service.
package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidCriteria indicates malformed or incomplete caller input.
	ErrInvalidCriteria = errors.New("invalid criteria")
	// ErrOrganizationNotFound is returned when an organization cannot be located.
	ErrOrganizationNotFound = errors.New("organization not found")
	// ErrBuildingNotFound is returned when a building cannot be located.
	ErrBuildingNotFound = errors.New("building not found")
	// ErrActivityNotFound is returned when an activity cannot be located.
	ErrActivityNotFound = errors.New("activity not found")
)

// Store captures the read capability the query engine needs. The count/list
// pair must use a stable ordering for a given criteria so pagination windows
// neither skip nor duplicate rows.
type Store interface {
	CountOrganizations(ctx context.Context, c Criteria) (int, error)
	ListOrganizations(ctx context.Context, c Criteria, offset, limit int) ([]Organization, error)
	GetOrganization(ctx context.Context, id string) (*Organization, error)

	CountBuildings(ctx context.Context) (int, error)
	ListBuildings(ctx context.Context, offset, limit int) ([]Building, error)
	GetBuilding(ctx context.Context, id string) (*Building, error)

	CountActivities(ctx context.Context) (int, error)
	ListActivities(ctx context.Context, offset, limit int) ([]Activity, error)
	GetActivity(ctx context.Context, id string) (*Activity, error)
	ChildrenOf(ctx context.Context, activityID string) ([]Activity, error)
	RootActivities(ctx context.Context) ([]Activity, error)
}

// Writer captures the provisioning capability used by the seeder. Both
// implementations enforce the write-time invariants: unique building
// address, parseable coordinates, existing parent with level capped at
// MaxActivityLevel, and existing building for organizations.
type Writer interface {
	CreateBuilding(ctx context.Context, b Building) error
	CreateActivity(ctx context.Context, a Activity) error
	CreateOrganization(ctx context.Context, o Organization) error
}

// Service is the query facade. Every operation is a stateless, side-effect
// free read.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// OrganizationFilters are the optional filters for the plain list operation.
type OrganizationFilters struct {
	Name       string
	BuildingID string
	ActivityID string
}

// ListOrganizations returns organizations matching the optional filters.
func (s *Service) ListOrganizations(ctx context.Context, f OrganizationFilters, req PageRequest) (Page[Organization], error) {
	return s.pageOrganizations(ctx, Criteria{
		Name:       f.Name,
		BuildingID: f.BuildingID,
		ActivityID: f.ActivityID,
	}, req)
}

// SearchOrganizationsByName returns organizations whose name contains the
// query, case-insensitively.
func (s *Service) SearchOrganizationsByName(ctx context.Context, name string, req PageRequest) (Page[Organization], error) {
	if name == "" {
		return Page[Organization]{}, fmt.Errorf("%w: name is required", ErrInvalidCriteria)
	}
	return s.pageOrganizations(ctx, Criteria{Name: name}, req)
}

// OrganizationsByBuilding returns organizations housed in the building.
func (s *Service) OrganizationsByBuilding(ctx context.Context, buildingID string, req PageRequest) (Page[Organization], error) {
	return s.pageOrganizations(ctx, Criteria{BuildingID: buildingID}, req)
}

// OrganizationsByActivity returns organizations tagged directly with the
// activity.
func (s *Service) OrganizationsByActivity(ctx context.Context, activityID string, req PageRequest) (Page[Organization], error) {
	return s.pageOrganizations(ctx, Criteria{ActivityID: activityID}, req)
}

// OrganizationsByActivityTree returns organizations tagged with the activity
// or any of its descendants.
func (s *Service) OrganizationsByActivityTree(ctx context.Context, activityID string, req PageRequest) (Page[Organization], error) {
	ids, err := s.Descendants(ctx, activityID)
	if err != nil {
		return Page[Organization]{}, err
	}
	ids = append(ids, activityID)
	return s.pageOrganizations(ctx, Criteria{ActivityIDs: ids}, req)
}

// OrganizationsNearby returns organizations whose building satisfies the
// geographic containment predicate built from params.
func (s *Service) OrganizationsNearby(ctx context.Context, params GeoParams, req PageRequest) (Page[Organization], error) {
	filter, err := NewGeoFilter(params)
	if err != nil {
		return Page[Organization]{}, err
	}
	return s.pageOrganizations(ctx, Criteria{Geo: filter}, req)
}

// GetOrganization fetches a single organization by id.
func (s *Service) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	org, err := s.store.GetOrganization(ctx, id)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, ErrOrganizationNotFound
	}
	return org, nil
}

// ListBuildings returns all buildings, paginated.
func (s *Service) ListBuildings(ctx context.Context, req PageRequest) (Page[Building], error) {
	return paginate(ctx, req,
		s.store.CountBuildings,
		s.store.ListBuildings)
}

// GetBuilding fetches a single building by id.
func (s *Service) GetBuilding(ctx context.Context, id string) (*Building, error) {
	b, err := s.store.GetBuilding(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrBuildingNotFound
	}
	return b, nil
}

// ListActivities returns all activities, paginated.
func (s *Service) ListActivities(ctx context.Context, req PageRequest) (Page[Activity], error) {
	return paginate(ctx, req,
		s.store.CountActivities,
		s.store.ListActivities)
}

// GetActivity fetches a single activity by id.
func (s *Service) GetActivity(ctx context.Context, id string) (*Activity, error) {
	a, err := s.store.GetActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrActivityNotFound
	}
	return a, nil
}

// ActivityTree returns every root activity with its children nested, at most
// two levels deep below each root.
func (s *Service) ActivityTree(ctx context.Context) ([]ActivityNode, error) {
	roots, err := s.store.RootActivities(ctx)
	if err != nil {
		return nil, err
	}
	nodes := make([]ActivityNode, 0, len(roots))
	for _, root := range roots {
		node, err := s.buildNode(ctx, root)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (s *Service) buildNode(ctx context.Context, a Activity) (ActivityNode, error) {
	node := ActivityNode{Activity: a, Children: []ActivityNode{}}
	children, err := s.store.ChildrenOf(ctx, a.ID)
	if err != nil {
		return ActivityNode{}, err
	}
	for _, child := range children {
		childNode, err := s.buildNode(ctx, child)
		if err != nil {
			return ActivityNode{}, err
		}
		node.Children = append(node.Children, childNode)
	}
	return node, nil
}

// Descendants returns the ids of every activity reachable below activityID,
// excluding activityID itself. A nonexistent id yields an empty set, not an
// error. The traversal runs over an explicit queue; the level cap bounds it
// to two hops below any node.
func (s *Service) Descendants(ctx context.Context, activityID string) ([]string, error) {
	var out []string
	queue := []string{activityID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		children, err := s.store.ChildrenOf(ctx, current)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			out = append(out, child.ID)
			queue = append(queue, child.ID)
		}
	}
	return out, nil
}

func (s *Service) pageOrganizations(ctx context.Context, c Criteria, req PageRequest) (Page[Organization], error) {
	return paginate(ctx, req,
		func(ctx context.Context) (int, error) { return s.store.CountOrganizations(ctx, c) },
		func(ctx context.Context, offset, limit int) ([]Organization, error) {
			return s.store.ListOrganizations(ctx, c, offset, limit)
		})
}

// paginate runs the count/list pair for one window and assembles the
// envelope. Validation failures surface before the store is touched.
func paginate[T any](
	ctx context.Context,
	req PageRequest,
	count func(ctx context.Context) (int, error),
	list func(ctx context.Context, offset, limit int) ([]T, error),
) (Page[T], error) {
	validated, err := NewPageRequest(req.Page, req.Size)
	if err != nil {
		return Page[T]{}, err
	}
	total, err := count(ctx)
	if err != nil {
		return Page[T]{}, err
	}
	items, err := list(ctx, validated.Offset(), validated.Size)
	if err != nil {
		return Page[T]{}, err
	}
	return NewPage(items, total, validated), nil
}
