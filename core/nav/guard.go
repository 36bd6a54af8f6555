package nav

// Well-known redirect targets.
const (
	HomePath         = "/"
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

// SessionState is the read-only session snapshot the guard decides on.
type SessionState interface {
	IsAuthenticated() bool
	CurrentRole() string
}

// Outcome is the guard's verdict for one navigation.
type Outcome struct {
	Allow      bool
	RedirectTo string // set iff !Allow
}

var render = Outcome{Allow: true}

func redirect(to string) Outcome {
	return Outcome{RedirectTo: to}
}

// Decide evaluates a matched route against the current session, first
// matching rule wins:
//
//  1. public route, authenticated session  -> home (no re-login)
//  2. protected route, unauthenticated     -> login
//  3. role list set, role not in it        -> unauthorized
//  4. otherwise                            -> render
//
// It is a pure function of its inputs; no I/O, safe on every render.
// Redirects are defined outcomes, never errors.
func Decide(rt Route, sess SessionState) Outcome {
	authed := sess.IsAuthenticated()

	if rt.Visibility == Public && authed {
		return redirect(HomePath)
	}
	if rt.Visibility == Protected && !authed {
		return redirect(LoginPath)
	}
	if len(rt.AllowedRoles) > 0 && !hasRole(rt.AllowedRoles, sess.CurrentRole()) {
		return redirect(UnauthorizedPath)
	}
	return render
}

// DecidePath resolves path through the table first; an unmatched path
// redirects to login.
func DecidePath(t *Table, path string, sess SessionState) (Route, Outcome) {
	rt, ok := t.Match(path)
	if !ok {
		return Route{}, redirect(LoginPath)
	}
	return rt, Decide(rt, sess)
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
