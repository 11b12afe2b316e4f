// Package policy resolves which dashboard sections and API namespaces a
// role may reach. The tables are static: roles, capabilities and path
// renames are fixed at build time and deny by default.
package policy

import "strings"

// AllCapabilities grants every capability to the mapped role.
const AllCapabilities = "*"

// Capability names gate dashboard sections and API namespaces.
const (
	CapAdmin     = "admin"
	CapCows      = "cows"
	CapHealth    = "health"
	CapInventory = "inventory"
	CapFinance   = "finance"
	CapStaff     = "staff"
	CapGateLogs  = "gatelogs"
	CapReports   = "reports"
)

// Role names as carried in session tokens.
const (
	RoleAdmin    = "Admin"
	RoleOwner    = "Owner"
	RoleManager  = "Manager"
	RoleDoctor   = "Doctor"
	RoleWatchman = "Watchman"
)

// Policy maps roles to capability sets and request paths to required
// capabilities.
type Policy struct {
	roles    map[string][]string
	homes    map[string]string
	renames  map[string]string
	superAPI string
}

// Default returns the shelter's built-in access policy.
func Default() *Policy {
	return &Policy{
		roles: map[string][]string{
			RoleAdmin:    {AllCapabilities},
			RoleOwner:    {CapFinance, CapReports, CapCows, CapInventory, CapStaff, CapHealth},
			RoleManager:  {CapCows, CapInventory, CapStaff, CapReports},
			RoleDoctor:   {CapHealth, CapCows},
			RoleWatchman: {CapGateLogs},
		},
		homes: map[string]string{
			RoleAdmin:    "/dashboard/admin",
			RoleOwner:    "/dashboard/finance",
			RoleManager:  "/dashboard/cows",
			RoleDoctor:   "/dashboard/health",
			RoleWatchman: "/dashboard/gate-logs",
		},
		// API namespaces whose literal name differs from the capability.
		renames: map[string]string{
			"gate-logs":      CapGateLogs,
			"users":          CapAdmin,
			"health-records": CapHealth,
			"medicines":      CapInventory,
		},
		superAPI: RoleAdmin,
	}
}

// CanAccess reports whether role holds capability. Unknown roles resolve
// to the empty set.
func (p *Policy) CanAccess(role, capability string) bool {
	caps, ok := p.roles[role]
	if !ok {
		return false
	}
	for _, c := range caps {
		if c == AllCapabilities || c == capability {
			return true
		}
	}
	return false
}

// RoleHome returns the default landing page for role.
func (p *Policy) RoleHome(role string) string {
	if home, ok := p.homes[role]; ok {
		return home
	}
	return "/dashboard"
}

// IsAPISuperRole reports whether role bypasses per-namespace checks on
// API routes.
func (p *Policy) IsAPISuperRole(role string) bool {
	return role == p.superAPI
}

// Capability derives the required capability from a request path under
// /dashboard or /api. ok is false when the path carries no capability
// requirement (bare /dashboard, or a path outside both prefixes).
func (p *Policy) Capability(path string) (capability string, ok bool) {
	var rest string
	switch {
	case strings.HasPrefix(path, "/dashboard/"):
		rest = strings.TrimPrefix(path, "/dashboard/")
	case strings.HasPrefix(path, "/api/"):
		rest = strings.TrimPrefix(path, "/api/")
	default:
		return "", false
	}
	segment := rest
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		segment = rest[:i]
	}
	if segment == "" {
		return "", false
	}
	if renamed, found := p.renames[segment]; found {
		return renamed, true
	}
	return segment, true
}
