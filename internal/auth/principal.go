package auth

import "strings"

// Capability is a permission checked by handlers.
type Capability string

const (
	CapRead           Capability = "read"
	CapUpload         Capability = "upload"
	CapManageSubjects Capability = "manage_subjects"
)

type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleStudent    Role = "student"
)

var roleCapabilities = map[Role][]Capability{
	RoleSuperadmin: {CapRead, CapUpload, CapManageSubjects},
	RoleAdmin:      {CapRead, CapUpload},
	RoleStudent:    {CapRead},
}

// ParseRole maps a claim value onto a known role. Unknown values yield "".
func ParseRole(s string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := roleCapabilities[r]; ok {
		return r
	}
	return ""
}

// Principal is the authenticated caller of a request.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  Role   `json:"role"`
}

// Can reports whether the principal's role grants c. A nil principal has no capabilities.
func (p *Principal) Can(c Capability) bool {
	if p == nil {
		return false
	}
	for _, have := range roleCapabilities[p.Role] {
		if have == c {
			return true
		}
	}
	return false
}
