package model

// Role of an authenticated user.
type Role string

const (
	RoleTechnician Role = "TECHNICIAN"
	RoleAdmin      Role = "ATS_ADMIN"
)

// Principal is the authenticated caller of an operation.
type Principal struct {
	ID       string
	Name     string
	Role     Role
	CenterID string
}

// HasRole reports whether the principal holds one of roles.
func (p Principal) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// Inspector is the identity snapshot stored on a test instance.
type Inspector struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

func (p Principal) Inspector() Inspector {
	return Inspector{ID: p.ID, Name: p.Name, Role: p.Role}
}
