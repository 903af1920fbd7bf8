// Package api exposes HTTP handlers for the directory service.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"example.com/directory/internal/domain"
	"example.com/directory/internal/observability"
)

// Handler coordinates HTTP requests with the query service.
type Handler struct {
	service *domain.Service
	log     zerolog.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, log zerolog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/organizations/", h.organizations)
	mux.HandleFunc("/api/buildings/", h.buildings)
	mux.HandleFunc("/api/activities/", h.activities)
	mux.HandleFunc("/healthz", healthz)
	mux.HandleFunc("/", h.root)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not_found", "unknown route")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "directory",
		"version": "1.0.0",
	})
}

func (h *Handler) organizations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/organizations/")
	switch {
	case rest == "":
		h.listOrganizations(w, r)
	case rest == "search/" || rest == "search":
		h.searchOrganizations(w, r)
	case rest == "nearby/" || rest == "nearby":
		h.organizationsNearby(w, r)
	case strings.HasPrefix(rest, "by-building/"):
		h.organizationsByBuilding(w, r, strings.TrimSuffix(strings.TrimPrefix(rest, "by-building/"), "/"))
	case strings.HasPrefix(rest, "by-activity-tree/"):
		h.organizationsByActivityTree(w, r, strings.TrimSuffix(strings.TrimPrefix(rest, "by-activity-tree/"), "/"))
	case strings.HasPrefix(rest, "by-activity/"):
		h.organizationsByActivity(w, r, strings.TrimSuffix(strings.TrimPrefix(rest, "by-activity/"), "/"))
	default:
		h.getOrganization(w, r, strings.TrimSuffix(rest, "/"))
	}
}

func (h *Handler) listOrganizations(w http.ResponseWriter, r *http.Request) {
	req, err := pageRequest(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	filters := domain.OrganizationFilters{
		Name:       r.URL.Query().Get("name"),
		BuildingID: r.URL.Query().Get("building_id"),
		ActivityID: r.URL.Query().Get("activity_id"),
	}
	if filters.BuildingID != "" {
		if err := validID(filters.BuildingID, "building_id"); err != nil {
			h.respondError(w, err)
			return
		}
	}
	if filters.ActivityID != "" {
		if err := validID(filters.ActivityID, "activity_id"); err != nil {
			h.respondError(w, err)
			return
		}
	}
	page, err := h.service.ListOrganizations(r.Context(), filters, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	observability.RecordQuery("organizations_list")
	writeJSON(w, http.StatusOK, organizationEnvelope(page))
}

func (h *Handler) searchOrganizations(w http.ResponseWriter, r *http.Request) {
	req, err := pageRequest(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	page, err := h.service.SearchOrganizationsByName(r.Context(), r.URL.Query().Get("name"), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	observability.RecordQuery("organizations_search")
	writeJSON(w, http.StatusOK, organizationEnvelope(page))
}

func (h *Handler) organizationsByBuilding(w http.ResponseWriter, r *http.Request, buildingID string) {
	req, err := pageRequest(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := validID(buildingID, "building_id"); err != nil {
		h.respondError(w, err)
		return
	}

	page, err := h.service.OrganizationsByBuilding(r.Context(), buildingID, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	observability.RecordQuery("organizations_by_building")
	writeJSON(w, http.StatusOK, organizationEnvelope(page))
}

func (h *Handler) organizationsByActivity(w http.ResponseWriter, r *http.Request, activityID string) {
	req, err := pageRequest(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := validID(activityID, "activity_id"); err != nil {
		h.respondError(w, err)
		return
	}

	page, err := h.service.OrganizationsByActivity(r.Context(), activityID, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	observability.RecordQuery("organizations_by_activity")
	writeJSON(w, http.StatusOK, organizationEnvelope(page))
}

func (h *Handler) organizationsByActivityTree(w http.ResponseWriter, r *http.Request, activityID string) {
	req, err := pageRequest(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := validID(activityID, "activity_id"); err != nil {
		h.respondError(w, err)
		return
	}

	page, err := h.service.OrganizationsByActivityTree(r.Context(), activityID, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	observability.RecordQuery("organizations_by_activity_tree")
	writeJSON(w, http.StatusOK, organizationEnvelope(page))
}

func (h *Handler) organizationsNearby(w http.ResponseWriter, r *http.Request) {
	req, err := pageRequest(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	query := r.URL.Query()
	lat, err := requiredFloat(query, "latitude")
	if err != nil {
		h.respondError(w, err)
		return
	}
	lon, err := requiredFloat(query, "longitude")
	if err != nil {
		h.respondError(w, err)
		return
	}

	params := domain.GeoParams{Lat: lat, Lon: lon}
	for _, field := range []struct {
		name string
		dst  **float64
	}{
		{"radius_km", &params.RadiusKM},
		{"min_lat", &params.MinLat},
		{"max_lat", &params.MaxLat},
		{"min_lon", &params.MinLon},
		{"max_lon", &params.MaxLon},
	} {
		value, err := optionalFloat(query, field.name)
		if err != nil {
			h.respondError(w, err)
			return
		}
		*field.dst = value
	}

	page, err := h.service.OrganizationsNearby(r.Context(), params, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	observability.RecordQuery("organizations_nearby")
	writeJSON(w, http.StatusOK, organizationEnvelope(page))
}

func (h *Handler) getOrganization(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing organization id")
		return
	}
	if err := validID(id, "organization id"); err != nil {
		h.respondError(w, err)
		return
	}

	org, err := h.service.GetOrganization(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	observability.RecordQuery("organization_get")
	writeJSON(w, http.StatusOK, toOrganizationView(*org))
}

func (h *Handler) buildings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	rest := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/buildings/"), "/")
	if rest == "" {
		h.listBuildings(w, r)
		return
	}
	if err := validID(rest, "building id"); err != nil {
		h.respondError(w, err)
		return
	}

	b, err := h.service.GetBuilding(r.Context(), rest)
	if err != nil {
		h.respondError(w, err)
		return
	}
	observability.RecordQuery("building_get")
	writeJSON(w, http.StatusOK, toBuildingView(*b))
}

func (h *Handler) listBuildings(w http.ResponseWriter, r *http.Request) {
	req, err := pageRequest(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	page, err := h.service.ListBuildings(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	observability.RecordQuery("buildings_list")

	items := make([]BuildingView, 0, len(page.Items))
	for _, b := range page.Items {
		items = append(items, toBuildingView(b))
	}
	writeJSON(w, http.StatusOK, Envelope[BuildingView]{
		Items: items, Total: page.Total, Page: page.Page, Size: page.Size, Pages: page.Pages,
	})
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	rest := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/activities/"), "/")
	switch rest {
	case "":
		h.listActivities(w, r)
	case "tree":
		h.activityTree(w, r)
	default:
		if err := validID(rest, "activity id"); err != nil {
			h.respondError(w, err)
			return
		}
		a, err := h.service.GetActivity(r.Context(), rest)
		if err != nil {
			h.respondError(w, err)
			return
		}
		observability.RecordQuery("activity_get")
		writeJSON(w, http.StatusOK, toActivityView(*a))
	}
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	req, err := pageRequest(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	page, err := h.service.ListActivities(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	observability.RecordQuery("activities_list")

	items := make([]ActivityView, 0, len(page.Items))
	for _, a := range page.Items {
		items = append(items, toActivityView(a))
	}
	writeJSON(w, http.StatusOK, Envelope[ActivityView]{
		Items: items, Total: page.Total, Page: page.Page, Size: page.Size, Pages: page.Pages,
	})
}

func (h *Handler) activityTree(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.service.ActivityTree(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	observability.RecordQuery("activity_tree")

	out := make([]ActivityNodeView, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, toActivityNodeView(node))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCriteria):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrOrganizationNotFound),
		errors.Is(err, domain.ErrBuildingNotFound),
		errors.Is(err, domain.ErrActivityNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		h.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func pageRequest(r *http.Request) (domain.PageRequest, error) {
	query := r.URL.Query()
	page, err := intParam(query, "page")
	if err != nil {
		return domain.PageRequest{}, err
	}
	size, err := intParam(query, "size")
	if err != nil {
		return domain.PageRequest{}, err
	}
	return domain.NewPageRequest(page, size)
}

// intParam returns 0 when the key is absent so the domain defaults apply.
// An explicitly supplied value must be a positive integer; in particular an
// explicit 0 is rejected rather than silently defaulted.
func intParam(query map[string][]string, name string) (int, error) {
	values := query[name]
	if len(values) == 0 || values[0] == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(values[0])
	if err != nil {
		return 0, invalidParam(name)
	}
	if parsed < 1 {
		return 0, fmt.Errorf("%w: %s must be >= 1", domain.ErrInvalidCriteria, name)
	}
	return parsed, nil
}

func requiredFloat(query map[string][]string, name string) (float64, error) {
	values := query[name]
	if len(values) == 0 || values[0] == "" {
		return 0, invalidParam(name)
	}
	parsed, err := strconv.ParseFloat(values[0], 64)
	if err != nil {
		return 0, invalidParam(name)
	}
	return parsed, nil
}

func optionalFloat(query map[string][]string, name string) (*float64, error) {
	values := query[name]
	if len(values) == 0 || values[0] == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(values[0], 64)
	if err != nil {
		return nil, invalidParam(name)
	}
	return &parsed, nil
}

func invalidParam(name string) error {
	return fmt.Errorf("%w: %s is missing or not a number", domain.ErrInvalidCriteria, name)
}

// validID rejects malformed entity identifiers before they reach the store,
// where a non-UUID would otherwise fail the typed cast as a query error.
func validID(id, name string) error {
	if uuid.Validate(id) != nil {
		return fmt.Errorf("%w: %s must be a UUID", domain.ErrInvalidCriteria, name)
	}
	return nil
}

// BuildingView exposes a building over the API.
type BuildingView struct {
	ID        string `json:"id"`
	Address   string `json:"address"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

// ActivityView exposes an activity over the API.
type ActivityView struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id,omitempty"`
	Level    int     `json:"level"`
}

// ActivityNodeView is an activity with its children nested.
type ActivityNodeView struct {
	ActivityView
	Children []ActivityNodeView `json:"children"`
}

// OrganizationView exposes an organization with its building and activities.
type OrganizationView struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Phones     []string       `json:"phones"`
	Building   BuildingView   `json:"building"`
	Activities []ActivityView `json:"activities"`
}

// Envelope is the uniform paginated response shape.
type Envelope[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Pages int `json:"pages"`
}

func organizationEnvelope(page domain.Page[domain.Organization]) Envelope[OrganizationView] {
	items := make([]OrganizationView, 0, len(page.Items))
	for _, org := range page.Items {
		items = append(items, toOrganizationView(org))
	}
	return Envelope[OrganizationView]{
		Items: items, Total: page.Total, Page: page.Page, Size: page.Size, Pages: page.Pages,
	}
}

func toBuildingView(b domain.Building) BuildingView {
	return BuildingView{ID: b.ID, Address: b.Address, Latitude: b.Latitude, Longitude: b.Longitude}
}

func toActivityView(a domain.Activity) ActivityView {
	return ActivityView{ID: a.ID, Name: a.Name, ParentID: a.ParentID, Level: a.Level}
}

func toActivityNodeView(node domain.ActivityNode) ActivityNodeView {
	out := ActivityNodeView{ActivityView: toActivityView(node.Activity), Children: []ActivityNodeView{}}
	for _, child := range node.Children {
		out.Children = append(out.Children, toActivityNodeView(child))
	}
	return out
}

func toOrganizationView(org domain.Organization) OrganizationView {
	activities := make([]ActivityView, 0, len(org.Activities))
	for _, a := range org.Activities {
		activities = append(activities, toActivityView(a))
	}
	phones := org.Phones
	if phones == nil {
		phones = []string{}
	}
	return OrganizationView{
		ID:         org.ID,
		Name:       org.Name,
		Phones:     phones,
		Building:   toBuildingView(org.Building),
		Activities: activities,
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
