package domain

import "errors"

// MaxActivityLevel bounds the depth of the activity taxonomy. Roots are
// level 1, so a node may have at most two further levels below it.
const MaxActivityLevel = 3

// ErrActivityDepthExceeded is returned by the write path when a child would
// land below MaxActivityLevel.
var ErrActivityDepthExceeded = errors.New("activity depth limit exceeded")

// Building represents a physical address housing zero or more organizations.
// Latitude and longitude are stored as decimal text; that text is the
// canonical representation, and the geographic point used for geodesic
// queries is derived from it at write time.
type Building struct {
	ID        string
	Address   string
	Latitude  string
	Longitude string
}

// Activity is a node in the business-activity taxonomy. ParentID is nil for
// roots; Level is 1 for roots and parent+1 for children, capped at
// MaxActivityLevel.
type Activity struct {
	ID       string
	Name     string
	ParentID *string
	Level    int
}

// ActivityNode is an Activity with its children resolved, used by the tree
// view.
type ActivityNode struct {
	Activity
	Children []ActivityNode
}

// Organization is a directory entry tied to exactly one building and tagged
// with zero or more activities. Building and Activities are hydrated on
// read; writes only need the identifiers.
type Organization struct {
	ID         string
	Name       string
	BuildingID string
	Phones     []string
	Building   Building
	Activities []Activity
}
