package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/epe202/ulas/core"
	"github.com/epe202/ulas/core/attendance"
	"github.com/epe202/ulas/core/rep"
)

var (
	errMissingToken         = echo.NewHTTPError(http.StatusUnauthorized, "rep not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
)

// conflictErrs are refused writes the client can fix by looking at the fresh
// state: someone else already holds or changed what it tried to touch.
var conflictErrs = map[error]bool{
	attendance.ErrSessionExists:   true,
	attendance.ErrDuplicateName:   true,
	attendance.ErrDuplicateMatric: true,
	attendance.ErrInvalidCode:     true,
	attendance.ErrDeviceUsed:      true,
}

var notFoundErrs = map[error]bool{
	attendance.ErrNoActiveSession: true,
	attendance.ErrNoSuchEntry:     true,
	attendance.ErrNoSuchRecord:    true,
}

// retryableErrs are transient storage failures; the client should simply try
// again.
var retryableErrs = map[error]bool{
	attendance.ErrWriteConflict: true,
	rep.ErrWriteConflict:        true,
	core.ErrStoreUnavailable:    true,
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.FieldErrors != nil {
				message = origErr.FieldErrors
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			switch {
			case conflictErrs[origErr]:
				code = http.StatusConflict
				message = origErr.Error()
			case notFoundErrs[origErr]:
				code = http.StatusNotFound
				message = origErr.Error()
			case origErr == rep.ErrBadCredentials:
				code = errAuthenticationFailed.Code
				message = errAuthenticationFailed.Message
			case retryableErrs[origErr]:
				code = http.StatusServiceUnavailable
				message = "storage is busy, please retry"
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				logger.Error(msg, errors.Wrap(err, msg))

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
