// internal/app/system/permissions/permissions.go
package permissions

import (
	"net/http"
	"sort"
)

// Permission names a capability granted to a user.
const (
	DataEdit       = "DATA_EDIT"
	OwnersRead     = "OWNERS_READ"
	UserAdd        = "USER_ADD"
	UserSearch     = "USER_SEARCH"
	UserManagement = "USER_MANAGEMENT"
	DataManagement = "DATA_MANAGEMENT"
)

// implied maps a granted permission to everything it grants.
var implied = map[string][]string{
	DataEdit:       {DataEdit, UserAdd, UserSearch},
	OwnersRead:     {OwnersRead},
	UserAdd:        {UserAdd},
	UserSearch:     {UserSearch},
	UserManagement: {UserManagement, UserAdd, UserSearch},
	DataManagement: {DataManagement, DataEdit, OwnersRead},
}

// All returns every known permission name, sorted.
func All() []string {
	out := make([]string, 0, len(implied))
	for p := range implied {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// IsKnown reports whether p is a grantable permission.
func IsKnown(p string) bool {
	_, ok := implied[p]
	return ok
}

// Expand returns the set of permissions effectively held given the granted
// ones. Unknown grants are ignored.
func Expand(granted []string) map[string]struct{} {
	set := make(map[string]struct{}, len(granted)*2)
	for _, g := range granted {
		for _, p := range implied[g] {
			set[p] = struct{}{}
		}
	}
	return set
}

// Has reports whether the granted permissions include p, directly or implied.
func Has(granted []string, p string) bool {
	_, ok := Expand(granted)[p]
	return ok
}

// Check evaluates required permissions for a request:
// 401 when not signed in, 403 when any required permission is missing,
// 200 otherwise.
func Check(required, granted []string, signedIn bool) int {
	if !signedIn {
		return http.StatusUnauthorized
	}
	held := Expand(granted)
	for _, p := range required {
		if _, ok := held[p]; !ok {
			return http.StatusForbidden
		}
	}
	return http.StatusOK
}
