package echoportal

import (
	"net/http"
	"sync"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-dev/portal/core"
	"github.com/darasa-dev/portal/core/auth"
	"github.com/darasa-dev/portal/core/nav"
	"github.com/darasa-dev/portal/core/session"
)

// flowHolder owns the current login attempt. A fresh attempt replaces the
// previous flow wholesale, so a response straggling in from an abandoned
// one can never reach the session store.
type flowHolder struct {
	mu       sync.Mutex
	flow     *auth.Flow
	backend  auth.Authenticator
	store    *session.Store
	validate *validator.Validate
}

func newFlowHolder(deps ServerDeps) *flowHolder {
	return &flowHolder{
		backend:  deps.Backend,
		store:    deps.Store,
		validate: deps.Validate,
	}
}

func (h *flowHolder) current() *auth.Flow {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.flow == nil {
		h.flow = auth.NewFlow(h.backend, h.store, h.validate)
	}
	return h.flow
}

func (h *flowHolder) reset() *auth.Flow {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.flow != nil {
		h.flow.Cancel()
	}
	h.flow = auth.NewFlow(h.backend, h.store, h.validate)
	return h.flow
}

type authApi struct {
	fl         *flowHolder
	store      *session.Store
	log        core.Logger
	translator ut.Translator
	views      *views
}

func registerAuthActions(e *echo.Echo, deps ServerDeps, fl *flowHolder, v *views) {
	api := authApi{
		fl:         fl,
		store:      deps.Store,
		log:        deps.Logger,
		translator: deps.Translator,
		views:      v,
	}

	e.POST("/login", api.login)
	e.POST("/login/verify-2fa", api.verifyTwoFactor)
	e.POST("/login/cancel-2fa", api.cancelTwoFactor)
	e.POST("/logout", api.logout, authMiddleware(deps.Store))
}

// login submits the email+password pair. The submit control is disabled
// client-side while a request is in flight; the flow serializes mutations
// regardless.
func (api *authApi) login(ctx echo.Context) error {
	if api.store.IsAuthenticated() {
		return ctx.Redirect(http.StatusFound, nav.HomePath)
	}

	email := ctx.FormValue("email")
	flow := api.fl.current()
	if flow.State() != auth.StateCredentialsEntry {
		flow = api.fl.reset()
	}

	err := flow.Submit(ctx.Request().Context(), email, ctx.FormValue("password"))

	switch flow.State() {
	case auth.StateAuthenticated:
		if err != nil {
			// authenticated, but the token could not be persisted; the
			// session works until restart
			api.log.Error("persisting credentials", err)
		}
		return ctx.Redirect(http.StatusFound, nav.HomePath)
	case auth.StateTwoFactorPending:
		return api.views.renderLogin(ctx, loginView{TwoFactor: true, Email: email, FlowID: flow.ID().String()}, "", msgTwoFactorPrompt)
	default:
		return api.views.renderLogin(ctx, loginView{Email: email}, userMessage(err, api.translator, msgLoginFailed), "")
	}
}

func (api *authApi) verifyTwoFactor(ctx echo.Context) error {
	if api.store.IsAuthenticated() {
		return ctx.Redirect(http.StatusFound, nav.HomePath)
	}

	flow := api.fl.current()
	if flow.State() != auth.StateTwoFactorPending || ctx.FormValue("flow") != flow.ID().String() {
		// no code pending, or the form belongs to an attempt that has since
		// been replaced
		return ctx.Redirect(http.StatusFound, nav.LoginPath)
	}

	err := flow.SubmitCode(ctx.Request().Context(), ctx.FormValue("code"))

	switch flow.State() {
	case auth.StateAuthenticated:
		if err != nil {
			api.log.Error("persisting credentials", err)
		}
		return ctx.Redirect(http.StatusFound, nav.HomePath)
	case auth.StateTwoFactorPending:
		// bad code: the temp token survives for another try
		return api.views.renderLogin(ctx, loginView{TwoFactor: true, FlowID: flow.ID().String()}, userMessage(err, api.translator, msgTwoFactorFailed), "")
	default:
		return api.views.renderLogin(ctx, loginView{}, userMessage(err, api.translator, msgLoginFailed), "")
	}
}

// cancelTwoFactor abandons the pending attempt and discards its temp token.
func (api *authApi) cancelTwoFactor(ctx echo.Context) error {
	flow := api.fl.current()
	if ctx.FormValue("flow") == flow.ID().String() {
		flow.Cancel()
	}
	return ctx.Redirect(http.StatusFound, nav.LoginPath)
}

// logout fully clears the session before any further route evaluation can
// observe it.
func (api *authApi) logout(ctx echo.Context) error {
	api.fl.reset()
	if err := api.store.Logout(); err != nil {
		// in-memory state is already cleared; only the persisted copy failed
		api.log.Warn("removing persisted token", errors.Wrap(err, "logging out"))
	}
	return ctx.Redirect(http.StatusFound, nav.LoginPath)
}
