package domain

// Criteria is the immutable set of optional organization filters for one
// query. All present filters combine with logical AND. The store evaluates
// the same criteria twice per request, once for the total count and once for
// the offset/limit window, so the full result set is never materialized.
type Criteria struct {
	// Name, when non-empty, matches organizations whose name contains the
	// value, case-insensitively.
	Name string
	// BuildingID, when non-empty, matches organizations housed in that
	// building.
	BuildingID string
	// ActivityID, when non-empty, matches organizations tagged directly
	// with that activity.
	ActivityID string
	// ActivityIDs, when non-empty, matches organizations tagged with any of
	// the listed activities. The facade fills this with a subtree root plus
	// its resolved descendants; the store treats it as a plain membership
	// set.
	ActivityIDs []string
	// Geo, when non-nil, restricts results to organizations whose building
	// satisfies the containment predicate.
	Geo *GeoFilter
}
