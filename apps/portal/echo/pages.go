package echoportal

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/darasa-dev/portal/core"
	"github.com/darasa-dev/portal/core/nav"
	"github.com/darasa-dev/portal/core/session"
	"github.com/darasa-dev/portal/services/backend"
)

// pagesApi carries the form posts of the CRUD and settings pages. All of
// them proxy straight to the backend; the session store is only touched by
// preference toggles and the account-deletion logout.
type pagesApi struct {
	views      *views
	backend    *backend.Client
	store      *session.Store
	log        core.Logger
	validate   *validator.Validate
	translator ut.Translator
}

func registerPageActions(e *echo.Echo, deps ServerDeps, v *views) {
	api := pagesApi{
		views:      v,
		backend:    deps.Backend,
		store:      deps.Store,
		log:        deps.Logger,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	// staff registration posts from the public register page
	e.POST("/register", api.registerStaff)

	// per-route middleware rather than an empty-prefix Group: echo's
	// Group.Use registers a NotFoundHandler on the bare prefix, which for
	// "" is "/" and would shadow the home view
	authed := authMiddleware(deps.Store)

	e.POST("/students", api.registerStudent, authed)
	e.POST("/students/:id/update", api.updateStudent, authed)
	e.POST("/students/:id/delete", api.deleteStudent, authed)

	e.POST("/courses", api.createCourse, authed)
	e.POST("/courses/:id/update", api.updateCourse, authed)
	e.POST("/courses/:id/delete", api.deleteCourse, authed)

	e.POST("/attendance", api.markAttendance, authed)

	e.POST("/profile", api.updateProfile, authed)

	e.POST("/settings/dark-mode", api.toggleDarkMode, authed)
	e.POST("/settings/password", api.changePassword, authed)
	e.POST("/settings/2fa/setup", api.setupTwoFactor, authed)
	e.POST("/settings/2fa/verify", api.enableTwoFactor, authed)
	e.POST("/settings/2fa/disable", api.disableTwoFactor, authed)
	e.POST("/settings/delete-account", api.deleteAccount, authed)
	e.GET("/settings/2fa/qr.png", api.twoFactorQR, authed)
}

// done finishes a post-redirect-get round trip; the target page picks the
// message up from the query string.
func done(ctx echo.Context, path, notice string) error {
	if notice != "" {
		path += "?notice=" + url.QueryEscape(notice)
	}
	return ctx.Redirect(http.StatusFound, path)
}

func failed(ctx echo.Context, path, errMsg string) error {
	return ctx.Redirect(http.StatusFound, path+"?err="+url.QueryEscape(errMsg))
}

// Staff registration (public page)

func (api *pagesApi) registerStaff(ctx echo.Context) error {
	if api.store.IsAuthenticated() {
		return ctx.Redirect(http.StatusFound, nav.HomePath)
	}

	reg := backend.StaffRegistration{
		FirstName: core.CleanString(ctx.FormValue("first_name")),
		LastName:  core.CleanString(ctx.FormValue("last_name")),
		Email:     core.CleanString(ctx.FormValue("email"), true /* lower */),
		Password:  ctx.FormValue("password"),
		Role:      core.CleanString(ctx.FormValue("role"), true /* lower */),
	}
	if err := api.validate.Struct(reg); err != nil {
		return failed(ctx, "/register", userMessage(err, api.translator, "registration failed"))
	}
	if err := api.backend.RegisterStaff(ctx.Request().Context(), reg); err != nil {
		return failed(ctx, "/register", userMessage(err, api.translator, "registration failed"))
	}
	return done(ctx, nav.LoginPath, "Registration successful. Please sign in.")
}

// Students

func (api *pagesApi) registerStudent(ctx echo.Context) error {
	ns := backend.NewStudent{
		FirstName:  core.CleanString(ctx.FormValue("first_name")),
		LastName:   core.CleanString(ctx.FormValue("last_name")),
		Email:      core.CleanString(ctx.FormValue("email"), true /* lower */),
		RollNumber: core.CleanString(ctx.FormValue("roll_number")),
		CourseID:   ctx.FormValue("course_id"),
	}
	if err := api.validate.Struct(ns); err != nil {
		return failed(ctx, "/students", userMessage(err, api.translator, "invalid student"))
	}
	if _, err := api.backend.RegisterStudent(ctx.Request().Context(), ns); err != nil {
		return failed(ctx, "/students", userMessage(err, api.translator, "could not register student"))
	}
	return done(ctx, "/students", "Student registered")
}

func (api *pagesApi) updateStudent(ctx echo.Context) error {
	ns := backend.NewStudent{
		FirstName:  core.CleanString(ctx.FormValue("first_name")),
		LastName:   core.CleanString(ctx.FormValue("last_name")),
		Email:      core.CleanString(ctx.FormValue("email"), true /* lower */),
		RollNumber: core.CleanString(ctx.FormValue("roll_number")),
		CourseID:   ctx.FormValue("course_id"),
	}
	if err := api.validate.Struct(ns); err != nil {
		return failed(ctx, "/students", userMessage(err, api.translator, "invalid student"))
	}
	if _, err := api.backend.UpdateStudent(ctx.Request().Context(), ctx.Param("id"), ns); err != nil {
		return failed(ctx, "/students", userMessage(err, api.translator, "could not update student"))
	}
	return done(ctx, "/students", "Student updated")
}

func (api *pagesApi) deleteStudent(ctx echo.Context) error {
	if err := api.backend.DeleteStudent(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return failed(ctx, "/students", userMessage(err, api.translator, "could not delete student"))
	}
	return done(ctx, "/students", "Student deleted")
}

// Courses

func (api *pagesApi) bindCourse(ctx echo.Context) (backend.NewCourse, error) {
	credits, _ := strconv.Atoi(ctx.FormValue("credits"))
	nc := backend.NewCourse{
		Name:       core.CleanString(ctx.FormValue("name")),
		Code:       core.CleanString(ctx.FormValue("code")),
		Instructor: core.CleanString(ctx.FormValue("instructor")),
		Credits:    credits,
	}
	return nc, api.validate.Struct(nc)
}

func (api *pagesApi) createCourse(ctx echo.Context) error {
	nc, err := api.bindCourse(ctx)
	if err == nil {
		_, err = api.backend.CreateCourse(ctx.Request().Context(), nc)
	}
	if err != nil {
		return failed(ctx, "/courses", userMessage(err, api.translator, "could not create course"))
	}
	return done(ctx, "/courses", "Course created")
}

func (api *pagesApi) updateCourse(ctx echo.Context) error {
	nc, err := api.bindCourse(ctx)
	if err == nil {
		_, err = api.backend.UpdateCourse(ctx.Request().Context(), ctx.Param("id"), nc)
	}
	if err != nil {
		return failed(ctx, "/courses", userMessage(err, api.translator, "could not update course"))
	}
	return done(ctx, "/courses", "Course updated")
}

func (api *pagesApi) deleteCourse(ctx echo.Context) error {
	if err := api.backend.DeleteCourse(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return failed(ctx, "/courses", userMessage(err, api.translator, "could not delete course"))
	}
	return done(ctx, "/courses", "Course deleted")
}

// Attendance

// markAttendance collects the per-student statuses posted as
// "status-<studentID>" fields into one sheet.
func (api *pagesApi) markAttendance(ctx echo.Context) error {
	form, err := ctx.FormParams()
	if err != nil {
		return errors.Wrap(err, "reading attendance form")
	}

	sheet := backend.AttendanceSheet{
		CourseID: ctx.FormValue("course_id"),
		Date:     ctx.FormValue("date"),
	}
	for key, vals := range form {
		if strings.HasPrefix(key, "status-") && len(vals) > 0 {
			sheet.Records = append(sheet.Records, backend.AttendanceEntry{
				StudentID: strings.TrimPrefix(key, "status-"),
				Status:    vals[0],
			})
		}
	}

	if err = api.validate.Struct(sheet); err != nil {
		return failed(ctx, "/attendance/mark", userMessage(err, api.translator, "invalid attendance sheet"))
	}
	if err = api.backend.MarkAttendance(ctx.Request().Context(), sheet); err != nil {
		return failed(ctx, "/attendance/mark", userMessage(err, api.translator, "could not save attendance"))
	}
	return done(ctx, "/attendance/mark", "Attendance saved")
}

// Profile

func (api *pagesApi) updateProfile(ctx echo.Context) error {
	upd := backend.ProfileUpdate{
		FirstName: core.CleanString(ctx.FormValue("first_name")),
		LastName:  core.CleanString(ctx.FormValue("last_name")),
		Email:     core.CleanString(ctx.FormValue("email"), true /* lower */),
		Phone:     core.CleanString(ctx.FormValue("phone")),
	}
	if err := api.validate.Struct(upd); err != nil {
		return failed(ctx, "/profile/update", userMessage(err, api.translator, "invalid profile"))
	}
	if _, err := api.backend.UpdateProfile(ctx.Request().Context(), upd); err != nil {
		return failed(ctx, "/profile/update", userMessage(err, api.translator, "could not update profile"))
	}
	return done(ctx, "/profile", "Profile updated")
}

// Settings

func (api *pagesApi) toggleDarkMode(ctx echo.Context) error {
	on := !api.store.Preferences().DarkMode
	if err := api.store.SetDarkMode(on); err != nil {
		api.log.Warn("persisting preferences", errors.Wrap(err, "setting dark mode"))
	}
	return done(ctx, "/settings", "")
}

type changePasswordInput struct {
	Current string `json:"current_password" validate:"required"`
	New     string `json:"new_password" validate:"required,min=8"`
	Confirm string `json:"confirm_password" validate:"required,eqfield=New"`
}

func (api *pagesApi) changePassword(ctx echo.Context) error {
	in := changePasswordInput{
		Current: ctx.FormValue("current_password"),
		New:     ctx.FormValue("new_password"),
		Confirm: ctx.FormValue("confirm_password"),
	}
	if err := api.validate.Struct(in); err != nil {
		return failed(ctx, "/settings", userMessage(err, api.translator, "invalid password"))
	}
	if err := api.backend.ChangePassword(ctx.Request().Context(), in.Current, in.New); err != nil {
		return failed(ctx, "/settings", userMessage(err, api.translator, "could not change password"))
	}
	return done(ctx, "/settings", "Password changed")
}

func (api *pagesApi) setupTwoFactor(ctx echo.Context) error {
	setup, err := api.backend.SetupTwoFactor(ctx.Request().Context())
	if err != nil {
		return failed(ctx, "/settings", userMessage(err, api.translator, "could not set up 2FA"))
	}
	api.views.putPendingSetup(setup)
	return done(ctx, "/settings", "")
}

func (api *pagesApi) enableTwoFactor(ctx echo.Context) error {
	if err := api.backend.EnableTwoFactor(ctx.Request().Context(), core.CleanString(ctx.FormValue("code"))); err != nil {
		return failed(ctx, "/settings", userMessage(err, api.translator, msgTwoFactorFailed))
	}
	return done(ctx, "/settings", "Two-factor authentication enabled")
}

func (api *pagesApi) disableTwoFactor(ctx echo.Context) error {
	if err := api.backend.DisableTwoFactor(ctx.Request().Context()); err != nil {
		return failed(ctx, "/settings", userMessage(err, api.translator, "could not disable 2FA"))
	}
	return done(ctx, "/settings", "Two-factor authentication disabled")
}

// deleteAccount removes the account after the backend re-checks the
// password, then fully clears the session.
func (api *pagesApi) deleteAccount(ctx echo.Context) error {
	if err := api.backend.DeleteAccount(ctx.Request().Context(), ctx.FormValue("password")); err != nil {
		return failed(ctx, "/settings", userMessage(err, api.translator, "could not delete account"))
	}
	if err := api.store.Logout(); err != nil {
		api.log.Warn("removing persisted token", errors.Wrap(err, "clearing deleted account"))
	}
	return done(ctx, nav.LoginPath, "Account deleted")
}

// twoFactorQR renders the provisioning URI handed out by the settings page
// as a scannable PNG.
func (api *pagesApi) twoFactorQR(ctx echo.Context) error {
	uri := ctx.QueryParam("u")
	if uri == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing provisioning uri")
	}
	png, err := qrcode.Encode(uri, qrcode.Medium, 256)
	if err != nil {
		return errors.Wrap(err, "encoding provisioning qr")
	}
	return ctx.Blob(http.StatusOK, "image/png", png)
}
