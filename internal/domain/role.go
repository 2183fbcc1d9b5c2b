package domain

import "strings"

// Built-in role names seeded at bootstrap.
const (
	RoleUser     = "ROLE_USER"
	RoleAdmin    = "ROLE_ADMIN"
	RoleSysAdmin = "ROLE_SYSADMIN"
)

type Role struct {
	Name       string `json:"name" dynamodbav:"name"`
	Permission string `json:"permission" dynamodbav:"permission"` // comma-separated, e.g. "READ:USER,UPDATE:USER"
}

// Authorities returns the authority set a user holding this role carries in
// its access token: the role name followed by each individual permission.
func (r *Role) Authorities() []string {
	out := []string{r.Name}
	for _, p := range strings.Split(r.Permission, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
