package nav

import "testing"

type fakeSession struct {
	authed bool
	role   string
}

func (s fakeSession) IsAuthenticated() bool { return s.authed }
func (s fakeSession) CurrentRole() string   { return s.role }

func TestDecide(t *testing.T) {
	login := Route{Path: "/login", Name: "login", Visibility: Public}
	home := Route{Path: "/", Name: "home", Visibility: Protected}
	courses := Route{Path: "/courses", Name: "courses", Visibility: Protected, AllowedRoles: []string{"maintenance_office", "admin"}}

	tests := []struct {
		name string
		rt   Route
		sess fakeSession
		want Outcome
	}{
		// rule 1: public + authenticated -> home
		{name: "authenticated on login page", rt: login, sess: fakeSession{authed: true, role: "admin"}, want: Outcome{RedirectTo: HomePath}},
		{name: "anonymous on login page", rt: login, sess: fakeSession{}, want: Outcome{Allow: true}},

		// rule 2: protected + unauthenticated -> login
		{name: "anonymous on protected page", rt: home, sess: fakeSession{}, want: Outcome{RedirectTo: LoginPath}},
		{name: "anonymous on role-guarded page", rt: courses, sess: fakeSession{}, want: Outcome{RedirectTo: LoginPath}},

		// rule 3: role list set, role not in it -> unauthorized
		{name: "wrong role", rt: courses, sess: fakeSession{authed: true, role: "teacher"}, want: Outcome{RedirectTo: UnauthorizedPath}},
		{name: "no role at all", rt: courses, sess: fakeSession{authed: true}, want: Outcome{RedirectTo: UnauthorizedPath}},
		{name: "allowed role", rt: courses, sess: fakeSession{authed: true, role: "admin"}, want: Outcome{Allow: true}},
		{name: "other allowed role", rt: courses, sess: fakeSession{authed: true, role: "maintenance_office"}, want: Outcome{Allow: true}},

		// rule 4: protected, no role list -> any authenticated role
		{name: "any role on open protected page", rt: home, sess: fakeSession{authed: true, role: "teacher"}, want: Outcome{Allow: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.rt, tt.sess); got != tt.want {
				t.Errorf("Decide() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// rule 2 beats rule 3: an unauthenticated visitor is sent to login, never
// to the unauthorized page, whatever the route's role list says.
func TestDecide_precedence(t *testing.T) {
	rt := Route{Path: "/courses", Visibility: Protected, AllowedRoles: []string{"admin"}}
	got := Decide(rt, fakeSession{authed: false, role: "teacher"})
	if got.RedirectTo != LoginPath {
		t.Errorf("Decide() redirect = %q, want %q", got.RedirectTo, LoginPath)
	}
}

func TestDecidePath(t *testing.T) {
	table, err := NewTable(
		Route{Path: "/login", Name: "login", Visibility: Public},
		Route{Path: "/", Name: "home", Visibility: Protected},
	)
	if err != nil {
		t.Fatalf("NewTable(): %v", err)
	}

	tests := []struct {
		name string
		path string
		sess fakeSession
		want Outcome
	}{
		{name: "matched allow", path: "/", sess: fakeSession{authed: true, role: "admin"}, want: Outcome{Allow: true}},
		{name: "matched redirect", path: "/", sess: fakeSession{}, want: Outcome{RedirectTo: LoginPath}},
		// unknown paths fall back to login, authenticated or not
		{name: "unknown path anonymous", path: "/nope", sess: fakeSession{}, want: Outcome{RedirectTo: LoginPath}},
		{name: "unknown path authenticated", path: "/nope", sess: fakeSession{authed: true, role: "admin"}, want: Outcome{RedirectTo: LoginPath}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, got := DecidePath(table, tt.path, tt.sess); got != tt.want {
				t.Errorf("DecidePath() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
