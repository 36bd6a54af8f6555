package echoportal

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/darasa-dev/portal/core"
	"github.com/darasa-dev/portal/core/nav"
	"github.com/darasa-dev/portal/core/session"
	"github.com/darasa-dev/portal/services/backend"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Store      *session.Store
		Gate       *session.Gate
		Backend    *backend.Client
		Validate   *validator.Validate
		Translator ut.Translator

		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps  ServerDeps
		app   *echo.Echo
		table *nav.Table

		errCh      chan error
		shutdownCh chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:       deps,
		app:        echo.New(),
		table:      NewRouteTable(),
		errCh:      make(chan error, 1),
		shutdownCh: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	// no route is evaluated until the session has rehydrated
	s.app.Use(gateMiddleware(s.deps.Gate))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Store, s.signalShutdown)
	s.app.Debug = conf.Debug

	renderer, err := newShellRenderer(s.table)
	if err != nil {
		s.deps.Logger.Fatal("parsing view templates", err)
	}
	s.app.Renderer = renderer

	sh := newShellState(conf.Shell.CollapseWidth)
	fl := newFlowHolder(s.deps)
	views := registerViews(s.app, s.table, s.deps, sh, fl)
	registerAuthActions(s.app, s.deps, fl, views)
	registerShellActions(s.app, s.deps.Store, sh)
	registerPageActions(s.app, s.deps, views)

	// unmatched paths fall back to the login redirect, not a 404
	s.app.Any("/*", func(ctx echo.Context) error {
		return ctx.Redirect(http.StatusFound, nav.LoginPath)
	})
}

func (s *server) Start() {
	s.errCh <- s.app.Start(s.deps.Conf.Server.Addr)
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errCh
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdownCh
}

func (s *server) signalShutdown() {
	s.shutdownCh <- syscall.SIGTERM
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
