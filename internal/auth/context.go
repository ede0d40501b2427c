package auth

// RoleAdmin gates enrollment and full listings.
const RoleAdmin = "admin"

// AuthContext is the authenticated caller: an opaque subject plus role
// capabilities. It carries no provider-specific claims.
type AuthContext struct {
	SubjectID string
	Roles     map[string]struct{}
}

func NewAuthContext(subjectID string, roles ...string) AuthContext {
	rs := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		rs[r] = struct{}{}
	}
	return AuthContext{SubjectID: subjectID, Roles: rs}
}

func (a AuthContext) HasRole(role string) bool {
	_, ok := a.Roles[role]
	return ok
}
