package tests

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	. "github.com/darasa-dev/portal/apps/portal/echo"
	"github.com/darasa-dev/portal/core"
	"github.com/darasa-dev/portal/core/auth"
	"github.com/darasa-dev/portal/core/session"
	"github.com/darasa-dev/portal/services/backend"
)

var (
	adminUser   = session.User{ID: "u1", FirstName: "Ada", LastName: "Admin", Email: "ada@test.cd", Role: session.RoleAdmin}
	teacherUser = session.User{ID: "u2", FirstName: "Tom", LastName: "Teacher", Email: "tom@test.cd", Role: session.RoleTeacher}
	twoFAUser   = session.User{ID: "u3", FirstName: "Tia", LastName: "Careful", Email: "2fa@test.cd", Role: session.RoleAdmin, TwoFactorEnabled: true}
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type memPersistence struct {
	mu    sync.Mutex
	token string
	prefs session.Preferences
}

func (p *memPersistence) SaveToken(token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = token
	return nil
}

func (p *memPersistence) DeleteToken() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = ""
	return nil
}

func (p *memPersistence) LoadToken() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token, nil
}

func (p *memPersistence) SavePreferences(prefs session.Preferences) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prefs = prefs
	return nil
}

func (p *memPersistence) LoadPreferences() (session.Preferences, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prefs, nil
}

func (p *memPersistence) persistedToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

// fakeBackend scripts the API surface the portal touches during tests:
// login for ada/tom (password "pwd"), a 2FA dance for the third account
// (code "123456"), and empty-but-valid domain listings for the pages.
func fakeBackend() http.Handler {
	type loginResponse struct {
		Requires2FA bool         `json:"requires2FA"`
		TempToken   string       `json:"tempToken"`
		User        session.User `json:"user"`
		Token       string       `json:"token"`
	}

	writeJSON := func(w http.ResponseWriter, v interface{}) { _ = json.NewEncoder(w).Encode(v) }
	refuse := func(w http.ResponseWriter, msg string) {
		w.WriteHeader(http.StatusUnauthorized)
		writeJSON(w, map[string]string{"message": msg})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["password"] != "pwd" {
			refuse(w, "invalid credentials")
			return
		}
		switch in["email"] {
		case adminUser.Email:
			writeJSON(w, loginResponse{User: adminUser, Token: "admin-token"})
		case teacherUser.Email:
			writeJSON(w, loginResponse{User: teacherUser, Token: "teacher-token"})
		case twoFAUser.Email:
			writeJSON(w, loginResponse{Requires2FA: true, TempToken: "temp-token"})
		default:
			refuse(w, "invalid credentials")
		}
	})
	mux.HandleFunc("/auth/login/verify-2fa", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["tempToken"] != "temp-token" || in["code"] != "123456" {
			refuse(w, "invalid code")
			return
		}
		writeJSON(w, loginResponse{User: twoFAUser, Token: "2fa-token"})
	})
	mux.HandleFunc("/auth/profile", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]session.User{"user": adminUser})
	})
	mux.HandleFunc("/students/count", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]int{"count": 12})
	})
	mux.HandleFunc("/courses/count", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]int{"count": 3})
	})
	mux.HandleFunc("/students/enrolled", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]int{"count": 9})
	})
	mux.HandleFunc("/students", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []backend.Student{})
	})
	mux.HandleFunc("/courses", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []backend.Course{})
	})
	return mux
}

type harness struct {
	app        Server
	store      *session.Store
	persys     *memPersistence
	backendSrv *httptest.Server
}

// breakBackend simulates an outage; every backend call fails from here on.
func (h *harness) breakBackend() {
	h.backendSrv.Close()
}

func setup(t *testing.T) *harness {
	return setupWithPersistence(t, &memPersistence{})
}

// setupWithPersistence boots the portal on top of pre-existing client
// state, like a process restart would.
func setupWithPersistence(t *testing.T, persys *memPersistence) *harness {
	t.Helper()

	backendSrv := httptest.NewServer(fakeBackend())
	t.Cleanup(backendSrv.Close)

	conf := &core.Config{TestMode: true, AppName: "Darasa Portal"}
	conf.Backend.BaseURL = backendSrv.URL
	conf.Backend.Timeout = 5 * time.Second
	conf.Shell.CollapseWidth = 1024

	store := session.NewStore(persys)

	// rehydrate synchronously; requests would block on the gate otherwise
	gate := session.NewGate(store, auth.DecodeToken, nopLogger{})
	gate.Rehydrate()

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)

	app := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         nopLogger{},
		Store:          store,
		Gate:           gate,
		Backend:        backend.NewClient(conf, store.Token),
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return &harness{app: app, store: store, persys: persys, backendSrv: backendSrv}
}

func (h *harness) authenticate(t *testing.T, usr session.User) {
	t.Helper()
	if err := h.store.SetCredentials(usr, usr.ID+"-token"); err != nil {
		t.Fatalf("SetCredentials(): %v", err)
	}
}

type httpTest struct {
	name         string
	method       string
	path         string
	form         url.Values
	user         *session.User // authenticate as this user first
	width        int           // viewport width the shell script would have reported; 0 for none
	wantCode     int
	wantLocation string // for redirects
	wantBody     string // substring of the rendered page
}

func (h *harness) do(t *testing.T, tt httpTest) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if tt.form != nil {
		req = httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(tt.method, tt.path, nil)
	}
	if tt.width > 0 {
		req.AddCookie(&http.Cookie{Name: "vw", Value: strconv.Itoa(tt.width)})
	}
	rec := httptest.NewRecorder()
	h.app.ServeHTTP(rec, req)
	return rec
}

func checkResponse(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
	}
	if tt.wantLocation != "" {
		if loc := rec.Header().Get("Location"); loc != tt.wantLocation {
			t.Errorf("Location = %q, want %q", loc, tt.wantLocation)
		}
	}
	if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
		t.Errorf("body does not contain %q:\n%s", tt.wantBody, rec.Body.String())
	}
}
