package permissions

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"

	"hotel/shared/constant"

	"github.com/rs/zerolog/log"
)

//go:embed permissions.json
var permissionsData []byte

// Permission describes who may call one route. Roles lists the staff roles
// allowed on the route; an empty list admits any authenticated user.
type Permission struct {
	Roles  []string `json:"permissions"`
	Path   string   `json:"path"`
	Method string   `json:"method"`
	Skip   bool     `json:"skip"`
}

func (p Permission) Allows(role string) bool {
	return len(p.Roles) == 0 || slices.Contains(p.Roles, role)
}

type PermissionData struct {
	Endpoints []Permission `json:"endpoints"`
	Skip      bool         `json:"skip"`

	index map[string]Permission
}

func routeKey(method, path string) string {
	return method + " " + path
}

// FindPermissions looks up a route by its chi pattern, e.g. "/v1/rooms/adm/{id}".
func (r *PermissionData) FindPermissions(path, method string) Permission {
	if r.index == nil {
		r.buildIndex()
	}

	return r.index[routeKey(method, path)]
}

func (r *PermissionData) buildIndex() {
	r.index = make(map[string]Permission, len(r.Endpoints))

	for _, endpoint := range r.Endpoints {
		r.index[routeKey(endpoint.Method, endpoint.Path)] = endpoint
	}
}

func (r *PermissionData) validate() error {
	seen := make(map[string]struct{}, len(r.Endpoints))

	for _, endpoint := range r.Endpoints {
		key := routeKey(endpoint.Method, endpoint.Path)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("duplicate permission for %s", key) //nolint:err113
		}

		seen[key] = struct{}{}

		for _, role := range endpoint.Roles {
			if !slices.Contains(constant.Roles, role) {
				return fmt.Errorf("unknown role %q on %s", role, key) //nolint:err113
			}
		}
	}

	return nil
}

func Parse(data []byte) (*PermissionData, error) {
	var permissions PermissionData

	if err := json.Unmarshal(data, &permissions); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}

	if err := permissions.validate(); err != nil {
		return nil, err
	}

	permissions.buildIndex()

	return &permissions, nil
}

func Get() *PermissionData {
	permissions, err := Parse(permissionsData)
	if err != nil {
		log.Err(err).Msg("Failed to load embedded permissions")

		return nil
	}

	log.Info().Int("endpoints", len(permissions.Endpoints)).Msg("Successfully loaded embedded permissions")

	return permissions
}
