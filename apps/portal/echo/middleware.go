package echoportal

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-dev/portal/core/nav"
	"github.com/darasa-dev/portal/core/session"
)

// gateMiddleware holds every request until the session store has been
// rehydrated from durable storage; the guard below never sees a
// half-restored session.
func gateMiddleware(gate *session.Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if err := gate.Wait(ctx.Request().Context()); err != nil {
				return errors.Wrap(err, "gating request")
			}
			return next(ctx)
		}
	}
}

// guardMiddleware applies the access decision for one declared route.
func guardMiddleware(rt nav.Route, store *session.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if out := nav.Decide(rt, store); !out.Allow {
				return ctx.Redirect(http.StatusFound, out.RedirectTo)
			}
			return next(ctx)
		}
	}
}

// authMiddleware protects action endpoints (form posts) that have no route
// table entry of their own: unauthenticated posts bounce to the login page.
func authMiddleware(store *session.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if !store.IsAuthenticated() {
				return ctx.Redirect(http.StatusFound, nav.LoginPath)
			}
			return next(ctx)
		}
	}
}
