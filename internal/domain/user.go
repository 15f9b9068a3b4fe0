package domain

import "time"

// Role enumerates institutional roles.
type Role string

const (
	RoleStudent           Role = "student"
	RoleFaculty           Role = "faculty"
	RoleHOD               Role = "hod"
	RoleDean              Role = "dean"
	RolePrincipal         Role = "principal"
	RoleAdmin             Role = "admin"
	RoleWarden            Role = "warden"
	RoleTransportIncharge Role = "transport_incharge"
)

// AuthorityRoles lists every role that can handle issues.
var AuthorityRoles = []Role{
	RoleFaculty,
	RoleHOD,
	RoleDean,
	RolePrincipal,
	RoleAdmin,
	RoleWarden,
	RoleTransportIncharge,
}

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	return r == RoleStudent || r.IsAuthority()
}

// IsAuthority reports whether the role handles issues.
func (r Role) IsAuthority() bool {
	for _, candidate := range AuthorityRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// DepartmentScoped reports whether directory lookups for the role honour department.
func (r Role) DepartmentScoped() bool {
	return r == RoleHOD || r == RoleFaculty || r == RoleDean
}

// Score bounds.
const (
	MinAccountabilityScore     = 0
	MaxAccountabilityScore     = 100
	DefaultAccountabilityScore = 100
)

// User is a student or authority.
type User struct {
	ID                  string
	Name                string
	Email               string
	PasswordHash        string
	Role                Role
	Department          string
	AccountabilityScore int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
