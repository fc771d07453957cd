package bugtracker

// Role is the coarse permission level of a principal.
type Role string

// Roles known to the service.
const (
	RoleUser   Role = "User"
	RoleTester Role = "Tester"
	RoleAdmin  Role = "Admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleTester, RoleAdmin:
		return true
	default:
		return false
	}
}

// Principal is the authenticated actor of one request. It is rebuilt from
// the identity store on every request and never persisted.
type Principal struct {
	ID   string
	Role Role
}

// Authenticator validates a request and returns a principal.
type Authenticator interface {
	Authenticate(*Context) (*Principal, error)
}

// Authorizer checks if a principal can access a route.
type Authorizer interface {
	Authorize(*Context, *Principal) error
}

const principalKey = "bugtracker.principal"

// PrincipalFromContext extracts the principal from context storage.
func PrincipalFromContext(ctx *Context) (*Principal, bool) {
	value, ok := ctx.Get(principalKey)
	if !ok {
		return nil, false
	}
	principal, ok := value.(*Principal)
	return principal, ok
}

// SetPrincipal stores the principal in context storage.
func SetPrincipal(ctx *Context, principal *Principal) {
	ctx.Set(principalKey, principal)
}
