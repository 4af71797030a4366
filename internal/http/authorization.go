package httpx

import (
	"sort"
	"strings"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
)

// RouteRule restricts every path under Prefix to holders of Role.
type RouteRule struct {
	Prefix string
	Role   domainauth.Role
}

// AuthorizationTable is the single place that maps protected route prefixes to
// the role allowed to reach them. Paths with no matching rule are public.
type AuthorizationTable struct {
	rules []RouteRule
}

// NewAuthorizationTable builds a table from rules. When prefixes overlap the
// longest match wins, independent of the order rules are given in.
func NewAuthorizationTable(rules ...RouteRule) *AuthorizationTable {
	sorted := make([]RouteRule, 0, len(rules))
	for _, r := range rules {
		r.Prefix = "/" + strings.Trim(r.Prefix, "/")
		sorted = append(sorted, r)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	return &AuthorizationTable{rules: sorted}
}

// DefaultAuthorizationTable is the portal's route protection.
func DefaultAuthorizationTable() *AuthorizationTable {
	return NewAuthorizationTable(
		RouteRule{Prefix: domainauth.PatientHome, Role: domainauth.RolePatient},
		RouteRule{Prefix: domainauth.DoctorHome, Role: domainauth.RoleDoctor},
		RouteRule{Prefix: domainauth.NurseHome, Role: domainauth.RoleNurse},
		RouteRule{Prefix: domainauth.AdminHome, Role: domainauth.RoleAdmin},
		RouteRule{Prefix: "/api/admin", Role: domainauth.RoleAdmin},
	)
}

// Lookup returns the rule governing path. A prefix matches the path itself and
// anything below it on a segment boundary, so "/admin" covers "/admin/staff"
// but not "/administrator".
func (t *AuthorizationTable) Lookup(path string) (RouteRule, bool) {
	if t == nil {
		return RouteRule{}, false
	}
	for _, r := range t.rules {
		if r.Prefix == "/" || path == r.Prefix || strings.HasPrefix(path, r.Prefix+"/") {
			return r, true
		}
	}
	return RouteRule{}, false
}

// Rules returns the rules, longest prefix first.
func (t *AuthorizationTable) Rules() []RouteRule {
	if t == nil {
		return nil
	}
	out := make([]RouteRule, len(t.rules))
	copy(out, t.rules)
	return out
}
