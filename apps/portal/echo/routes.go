package echoportal

import (
	"github.com/darasa-dev/portal/core/nav"
	"github.com/darasa-dev/portal/core/session"
)

// NewRouteTable declares every navigable path once: view name, shell
// wrapping and access requirements. The guard consumes these; handlers
// never re-check access themselves.
func NewRouteTable() *nav.Table {
	t, err := nav.NewTable(
		// public, bare pages
		nav.Route{Path: "/login", Name: "login", Visibility: nav.Public},
		nav.Route{Path: "/register", Name: "register", Visibility: nav.Public},

		// bare but protected: the denial page is only meaningful to an
		// authenticated session, and rule 1 would bounce it off a public route
		nav.Route{Path: "/unauthorized", Name: "unauthorized", Visibility: nav.Protected},

		// protected pages inside the navigation shell
		nav.Route{Path: "/", Name: "home", Layout: true, Visibility: nav.Protected},
		nav.Route{Path: "/students", Name: "students", Layout: true, Visibility: nav.Protected},
		nav.Route{
			Path: "/courses", Name: "courses", Layout: true, Visibility: nav.Protected,
			AllowedRoles: []string{session.RoleMaintenanceOffice, session.RoleAdmin},
		},
		nav.Route{
			Path: "/attendance/mark", Name: "attendance_mark", Layout: true, Visibility: nav.Protected,
			AllowedRoles: []string{session.RoleMaintenanceOffice, session.RoleTeacher, session.RoleAdmin},
		},
		nav.Route{
			Path: "/attendance/view", Name: "attendance_view", Layout: true, Visibility: nav.Protected,
			AllowedRoles: []string{session.RoleMaintenanceOffice, session.RoleTeacher},
		},
		nav.Route{Path: "/reports", Name: "reports", Layout: true, Visibility: nav.Protected},
		nav.Route{Path: "/settings", Name: "settings", Layout: true, Visibility: nav.Protected},
		nav.Route{Path: "/profile", Name: "profile", Layout: true, Visibility: nav.Protected},
		nav.Route{Path: "/profile/update", Name: "profile_update", Layout: true, Visibility: nav.Protected},
	)
	if err != nil {
		panic(err) // static table; a bad entry is a programming error
	}
	return t
}
