package echoportal

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/darasa-dev/portal/core"
	"github.com/darasa-dev/portal/core/auth"
	"github.com/darasa-dev/portal/core/nav"
	"github.com/darasa-dev/portal/core/session"
	"github.com/darasa-dev/portal/core/shell"
	"github.com/darasa-dev/portal/services/backend"
)

type views struct {
	conf    *core.Config
	log     core.Logger
	store   *session.Store
	backend *backend.Client
	table   *nav.Table
	sh      *shellState
	fl      *flowHolder

	mu           sync.Mutex
	pendingSetup *backend.TwoFactorSetup // 2FA enrollment material, shown once
}

func (v *views) putPendingSetup(setup backend.TwoFactorSetup) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pendingSetup = &setup
}

func (v *views) takePendingSetup() *backend.TwoFactorSetup {
	v.mu.Lock()
	defer v.mu.Unlock()
	setup := v.pendingSetup
	v.pendingSetup = nil
	return setup
}

func registerViews(e *echo.Echo, table *nav.Table, deps ServerDeps, sh *shellState, fl *flowHolder) *views {
	v := &views{
		conf:    deps.Conf,
		log:     deps.Logger,
		store:   deps.Store,
		backend: deps.Backend,
		table:   table,
		sh:      sh,
		fl:      fl,
	}
	for _, rt := range table.Routes() {
		e.GET(rt.Path, v.handler(rt), guardMiddleware(rt, deps.Store))
	}
	return v
}

func (v *views) handler(rt nav.Route) echo.HandlerFunc {
	switch rt.Name {
	case "login":
		return v.login(rt)
	case "home":
		return v.home(rt)
	case "students":
		return v.students(rt)
	case "courses":
		return v.courses(rt)
	case "attendance_mark":
		return v.attendanceMark(rt)
	case "attendance_view":
		return v.attendanceView(rt)
	case "settings":
		return v.settings(rt)
	case "profile":
		return v.profile(rt)
	case "profile_update":
		return v.profileUpdate(rt)
	case "reports":
		return v.reports(rt)
	default: // register, unauthorized: nothing to fetch
		return func(ctx echo.Context) error {
			return v.render(ctx, rt, "", nil)
		}
	}
}

// render assembles the common ViewData around a page payload.
func (v *views) render(ctx echo.Context, rt nav.Route, errMsg string, data interface{}, notice ...string) error {
	vd := ViewData{
		AppName:  v.conf.AppName,
		Title:    rt.Name,
		Active:   rt.Path,
		DarkMode: v.store.Preferences().DarkMode,
		Error:    errMsg,
		Data:     data,
	}
	if len(notice) > 0 {
		vd.Notice = notice[0]
	}
	// action handlers finish with a redirect and park their outcome in the
	// query string
	if vd.Error == "" {
		vd.Error = ctx.QueryParam("err")
	}
	if vd.Notice == "" {
		vd.Notice = ctx.QueryParam("notice")
	}
	if usr, ok := v.store.CurrentUser(); ok {
		vd.User = &usr
		vd.NavItems = navItems(usr)
	}
	if rt.Layout {
		vd.PanelExpanded = v.sh.stateFor(widthHint(ctx)) == shell.Expanded
	}
	return ctx.Render(http.StatusOK, rt.Name, vd)
}

// fetch runs a backend read and folds its failure into a transient
// notice: the page still renders, the session is left alone.
func (v *views) fetch(ctx echo.Context, what string, err error) string {
	if err == nil {
		return ""
	}
	v.log.Warn("fetching "+what, err)
	if backend.IsUnavailable(err) {
		return msgBackendUnavailable
	}
	return err.Error()
}

// Login

type loginView struct {
	TwoFactor bool
	Email     string
	FlowID    string // ties the rendered 2FA form to the attempt it came from
}

func (v *views) login(rt nav.Route) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		flow := v.fl.current()
		lv := loginView{}
		if flow.State() == auth.StateTwoFactorPending {
			lv.TwoFactor = true
			lv.FlowID = flow.ID().String()
		}
		return v.render(ctx, rt, "", lv)
	}
}

func (v *views) renderLogin(ctx echo.Context, lv loginView, errMsg, notice string) error {
	rt, _ := v.table.Match(nav.LoginPath)
	return v.render(ctx, rt, errMsg, lv, notice)
}

// Dashboard

func (v *views) home(rt nav.Route) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		counts, err := v.backend.GetCounts(ctx.Request().Context())
		return v.render(ctx, rt, v.fetch(ctx, "dashboard counts", err), counts)
	}
}

// Students

type studentsView struct {
	Students []backend.Student
	Courses  []backend.Course
}

func (v *views) students(rt nav.Route) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		rctx := ctx.Request().Context()
		students, err := v.backend.ListStudents(rctx)
		if msg := v.fetch(ctx, "students", err); msg != "" {
			return v.render(ctx, rt, msg, studentsView{})
		}
		courses, err := v.backend.ListCourses(rctx)
		return v.render(ctx, rt, v.fetch(ctx, "courses", err), studentsView{Students: students, Courses: courses})
	}
}

// Courses

func (v *views) courses(rt nav.Route) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		courses, err := v.backend.ListCourses(ctx.Request().Context())
		return v.render(ctx, rt, v.fetch(ctx, "courses", err), courses)
	}
}

// Attendance

type attendanceMarkView struct {
	Courses  []backend.Course
	Students []backend.Student
	CourseID string
}

func (v *views) attendanceMark(rt nav.Route) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		rctx := ctx.Request().Context()
		view := attendanceMarkView{CourseID: ctx.QueryParam("course")}

		courses, err := v.backend.ListCourses(rctx)
		if msg := v.fetch(ctx, "courses", err); msg != "" {
			return v.render(ctx, rt, msg, view)
		}
		view.Courses = courses

		if view.CourseID != "" {
			students, err := v.backend.ListStudentsByCourse(rctx, view.CourseID)
			if msg := v.fetch(ctx, "course students", err); msg != "" {
				return v.render(ctx, rt, msg, view)
			}
			view.Students = students
		}
		return v.render(ctx, rt, "", view)
	}
}

type attendanceViewView struct {
	Courses  []backend.Course
	Records  []backend.AttendanceRecord
	CourseID string
	Roll     string
	Date     string
}

func (v *views) attendanceView(rt nav.Route) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		rctx := ctx.Request().Context()
		view := attendanceViewView{
			CourseID: ctx.QueryParam("course"),
			Roll:     ctx.QueryParam("roll"),
			Date:     ctx.QueryParam("date"),
		}

		courses, err := v.backend.ListCourses(rctx)
		if msg := v.fetch(ctx, "courses", err); msg != "" {
			return v.render(ctx, rt, msg, view)
		}
		view.Courses = courses

		switch {
		case view.Roll != "":
			view.Records, err = v.backend.AttendanceByRoll(rctx, view.Roll)
		case view.CourseID != "":
			view.Records, err = v.backend.AttendanceByCourse(rctx, view.CourseID, view.Date)
		}
		return v.render(ctx, rt, v.fetch(ctx, "attendance records", err), view)
	}
}

// Reports

func (v *views) reports(rt nav.Route) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		counts, err := v.backend.GetCounts(ctx.Request().Context())
		return v.render(ctx, rt, v.fetch(ctx, "report counts", err), counts)
	}
}

// Settings

type settingsView struct {
	DarkMode         bool
	TwoFactorEnabled bool
	Setup            *backend.TwoFactorSetup // present right after 2FA setup
}

func (v *views) settings(rt nav.Route) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		view := settingsView{
			DarkMode: v.store.Preferences().DarkMode,
			Setup:    v.takePendingSetup(),
		}

		// the 2FA flag may have changed since login; prefer a fresh profile
		// and fall back to the session copy when the backend is unreachable
		usr, err := v.backend.Profile(ctx.Request().Context())
		errMsg := v.fetch(ctx, "profile", err)
		if err != nil {
			if u, ok := v.store.CurrentUser(); ok {
				usr = u
			}
		}
		view.TwoFactorEnabled = usr.TwoFactorEnabled
		return v.render(ctx, rt, errMsg, view)
	}
}

// Profile

func (v *views) profile(rt nav.Route) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := v.backend.Profile(ctx.Request().Context())
		return v.render(ctx, rt, v.fetch(ctx, "profile", err), usr)
	}
}

func (v *views) profileUpdate(rt nav.Route) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := v.backend.Profile(ctx.Request().Context())
		return v.render(ctx, rt, v.fetch(ctx, "profile", err), usr)
	}
}
