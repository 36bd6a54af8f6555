package nav

import (
	"github.com/pkg/errors"
)

// Visibility tags a route as reachable without authentication or not.
type Visibility int

const (
	Public Visibility = iota
	Protected
)

func (v Visibility) String() string {
	if v == Public {
		return "public"
	}
	return "protected"
}

// Route is one entry of the static navigation table.
type Route struct {
	Path       string
	Name       string // view name, resolved by the shell renderer
	Layout     bool   // wrap the view in the navigation shell
	Visibility Visibility
	// AllowedRoles restricts a Protected route to the listed roles; empty
	// means any authenticated role. Only expressible on Protected routes:
	// the guard's first rule resolves Public routes before any role check
	// could run, so a role list there would be dead configuration.
	AllowedRoles []string
}

// Table is the immutable route table; exactly one route matches a given
// path, or none.
type Table struct {
	routes []Route
	byPath map[string]int
}

func NewTable(routes ...Route) (*Table, error) {
	t := &Table{
		routes: routes,
		byPath: make(map[string]int, len(routes)),
	}
	for i, rt := range routes {
		if rt.Path == "" {
			return nil, errors.New("route path is required")
		}
		if _, dup := t.byPath[rt.Path]; dup {
			return nil, errors.Errorf("duplicate route path %q", rt.Path)
		}
		if rt.Visibility == Public && len(rt.AllowedRoles) > 0 {
			return nil, errors.Errorf("public route %q cannot restrict roles", rt.Path)
		}
		t.byPath[rt.Path] = i
	}
	return t, nil
}

// Match resolves a concrete path to its route by literal equality.
// Unknown paths report ok=false; the caller falls back to the login
// redirect (deliberate product behavior, not a 404).
func (t *Table) Match(path string) (Route, bool) {
	if i, ok := t.byPath[path]; ok {
		return t.routes[i], true
	}
	return Route{}, false
}

// Routes returns the table entries in declaration order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}
