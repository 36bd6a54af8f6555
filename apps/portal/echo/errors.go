package echoportal

import (
	"fmt"
	"net/http"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-dev/portal/core"
	"github.com/darasa-dev/portal/core/session"
	"github.com/darasa-dev/portal/services/backend"
)

// user-visible feedback
const (
	msgBackendUnavailable = "Service unavailable. Please try again."
	msgLoginFailed        = "Login failed"
	msgTwoFactorFailed    = "2FA verification failed"
	msgTwoFactorPrompt    = "Please enter your 2FA code"
)

// userMessage converts an error caught at an auth-flow call site into the
// feedback shown on the form. Backend refusals carry the backend's own
// message; unreachable backends surface the transient notice; anything
// else falls back to the generic text.
func userMessage(err error, translator ut.Translator, fallback string) string {
	if err == nil {
		return ""
	}
	switch origErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		parts := make([]string, 0, len(origErr))
		for _, vErr := range origErr {
			parts = append(parts, fmt.Sprintf("%s: %s", vErr.Field(), vErr.Translate(translator)))
		}
		return strings.Join(parts, "; ")
	case *core.ValidationError:
		if len(origErr.Fields) > 0 {
			parts := make([]string, 0, len(origErr.Fields))
			for _, fErr := range origErr.Fields {
				parts = append(parts, fmt.Sprintf("%s: %s", fErr.Field, fErr.Error))
			}
			return strings.Join(parts, "; ")
		}
		return origErr.Error()
	case *backend.APIError:
		if origErr.Denied() && origErr.Message != "" {
			return origErr.Message
		}
		if !origErr.Denied() {
			return msgBackendUnavailable
		}
		return fallback
	}
	if backend.IsUnavailable(err) {
		return msgBackendUnavailable
	}
	return fallback
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, store *session.Store, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message string

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = fmt.Sprintf("%v", origErr.Message)
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			parts := make([]string, 0, len(origErr))
			for _, vErr := range origErr {
				parts = append(parts, vErr.Error())
			}
			message = strings.Join(parts, "; ")
		case *core.ValidationError:
			code = http.StatusBadRequest
			message = origErr.Error()
		default: // any other error is a server error
			code = http.StatusInternalServerError
			message = http.StatusText(http.StatusInternalServerError)

			if usr, ok := store.CurrentUser(); ok {
				logger.Error(message, errors.Wrap(err, message), usr)
			} else {
				logger.Error(message, errors.Wrap(err, message))
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead {
				err = ctx.NoContent(code)
			} else {
				err = ctx.Render(code, "error", ViewData{Title: "error", Error: message})
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
