package domain

// Membership roles. The authorization gate maps each to a casbin role.
const (
	RoleOwner  = "OWNER"
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER" // may edit rosters of the org's opportunities
	RoleViewer = "VIEWER" // read-only
)
