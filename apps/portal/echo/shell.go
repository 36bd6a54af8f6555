package echoportal

import (
	"embed"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-dev/portal/core/nav"
	"github.com/darasa-dev/portal/core/session"
	"github.com/darasa-dev/portal/core/shell"
)

//go:embed templates
var templatesFS embed.FS

// shellRenderer caches one parsed template per view: the view's content
// paired with the navigation shell when its route asks for the layout,
// with the bare skeleton otherwise.
type shellRenderer struct {
	pages map[string]*template.Template
}

var _ echo.Renderer = (*shellRenderer)(nil)

func newShellRenderer(table *nav.Table) (*shellRenderer, error) {
	r := &shellRenderer{pages: make(map[string]*template.Template)}
	for _, rt := range table.Routes() {
		if err := r.parse(rt.Name, rt.Layout); err != nil {
			return nil, err
		}
	}
	// the error page has no route of its own
	if err := r.parse("error", false); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *shellRenderer) parse(name string, layout bool) error {
	base := "templates/bare.gohtml"
	if layout {
		base = "templates/layout.gohtml"
	}
	tmpl, err := template.ParseFS(templatesFS, base, "templates/pages/"+name+".gohtml")
	if err != nil {
		return errors.Wrapf(err, "parsing view %q", name)
	}
	r.pages[name] = tmpl
	return nil
}

func (r *shellRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return errors.Errorf("unknown view %q", name)
	}
	return tmpl.Execute(w, data)
}

type (
	NavItem struct {
		Name string
		Path string
	}

	// ViewData is what every template receives.
	ViewData struct {
		AppName       string
		Title         string
		Active        string // current path, for nav highlighting
		User          *session.User
		DarkMode      bool
		PanelExpanded bool
		NavItems      []NavItem
		Error         string
		Notice        string
		Data          interface{}
	}
)

// navItems lists the sidebar entries visible to usr.
func navItems(usr session.User) []NavItem {
	items := []NavItem{
		{Name: "Dashboard", Path: "/"},
		{Name: "Students", Path: "/students"},
		{Name: "Courses", Path: "/courses"},
		{Name: "Mark Attendance", Path: "/attendance/mark"},
		{Name: "View Records", Path: "/attendance/view"},
		{Name: "Reports", Path: "/reports"},
		{Name: "Settings", Path: "/settings"},
	}
	if usr.IsAdmin() {
		items = append(items[:2], append([]NavItem{{Name: "Register Staff", Path: "/register"}}, items[2:]...)...)
	}
	return items
}

// shellState holds the side panel for the running session. The panel is
// seeded lazily from the first nonzero viewport width the browser reports;
// renders before that show a transient collapsed shell without seeding, so
// a wide viewport still opens expanded once its width is known.
type shellState struct {
	mu        sync.Mutex
	panel     *shell.Panel
	threshold int
}

func newShellState(threshold int) *shellState {
	return &shellState{threshold: threshold}
}

// stateFor reports the panel position for one render. Width 0 means the
// browser has not reported yet; that render is collapsed but decides
// nothing.
func (s *shellState) stateFor(viewportWidth int) shell.PanelState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panel == nil {
		if viewportWidth == 0 {
			return shell.Collapsed
		}
		s.panel = shell.NewPanel(viewportWidth, s.threshold)
	}
	return s.panel.State()
}

func (s *shellState) panelFor(viewportWidth int) *shell.Panel {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panel == nil {
		s.panel = shell.NewPanel(viewportWidth, s.threshold)
	}
	return s.panel
}

// widthHint reads the viewport width the shell script reports via cookie;
// 0 when unknown.
func widthHint(ctx echo.Context) int {
	if c, err := ctx.Cookie("vw"); err == nil {
		if w, err := strconv.Atoi(c.Value); err == nil {
			return w
		}
	}
	return 0
}

func registerShellActions(e *echo.Echo, store *session.Store, sh *shellState) {
	g := e.Group("/shell", authMiddleware(store))

	g.POST("/toggle", func(ctx echo.Context) error {
		sh.panelFor(widthHint(ctx)).Toggle()
		return redirectBack(ctx)
	})

	// the shell script posts width changes; dropping below the threshold
	// collapses the panel, growing back leaves it alone
	g.POST("/resize", func(ctx echo.Context) error {
		w, err := strconv.Atoi(ctx.FormValue("width"))
		if err != nil || w <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid width")
		}
		sh.panelFor(w).Resize(w)
		return ctx.NoContent(http.StatusNoContent)
	})
}

func redirectBack(ctx echo.Context) error {
	if ref := ctx.Request().Referer(); ref != "" {
		return ctx.Redirect(http.StatusFound, ref)
	}
	return ctx.Redirect(http.StatusFound, nav.HomePath)
}
