package auth

// Principal is the authenticated identity resolved for a request. It is
// rebuilt from the user record on every request and never persisted.
type Principal struct {
	ID    string
	Name  string
	Email string
	Age   int
	Role  Role
}

// PrincipalFromUser projects the stored record into a request identity.
func PrincipalFromUser(u *User) Principal {
	return Principal{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Age:   u.Age,
		Role:  u.Role,
	}
}

// Authorize reports whether the principal satisfies a route's required
// role set. An empty requirement authorizes by default; the check is
// opt-in per route.
func Authorize(p Principal, required ...Role) bool {
	if len(required) == 0 {
		return true
	}
	for _, role := range required {
		if p.Role == role {
			return true
		}
	}
	return false
}
