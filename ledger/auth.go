// auth.go - Authorization port.
//
// Authentication mechanics live outside this system; the engine only asks
// two questions: who is calling, and may they act at a given role level.
// Mutating operations check before any computation runs.
package ledger

// Role is an access level. Levels are ordered: admin covers manager,
// manager covers staff.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

var roleRank = map[Role]int{
	RoleStaff:   1,
	RoleManager: 2,
	RoleAdmin:   3,
}

// User is the calling identity as the authorization collaborator sees it.
type User struct {
	ID   string
	Name string
	Role Role
}

// Authorizer is the external capability check.
type Authorizer interface {
	// HasPermission reports whether the current user acts at `role` level
	// or above.
	HasPermission(role Role) bool
	CurrentUser() User
}

// StaticAuthorizer is the in-repo implementation: one fixed caller.
// Deployments with a real identity provider supply their own Authorizer.
type StaticAuthorizer struct {
	user User
}

func NewStaticAuthorizer(user User) *StaticAuthorizer {
	return &StaticAuthorizer{user: user}
}

func (a *StaticAuthorizer) HasPermission(role Role) bool {
	return roleRank[a.user.Role] >= roleRank[role]
}

func (a *StaticAuthorizer) CurrentUser() User {
	return a.user
}
