package domain

// Principal is the authenticated identity attached to a request after a
// successful token verification. It is derived, never persisted, and owned
// by the request for its duration.
type Principal struct {
	Subject     string   // user email
	Authorities []string // role name + individual permissions
}

// HasAuthority reports whether the principal carries the given authority.
func (p Principal) HasAuthority(authority string) bool {
	for _, a := range p.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}
