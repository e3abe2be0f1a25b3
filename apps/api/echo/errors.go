package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gestiabsences/backend/core"
	"github.com/gestiabsences/backend/core/school"
	"github.com/gestiabsences/backend/core/user"
)

// user-facing messages
const (
	msgServerError     = "Erreur serveur"
	msgInvalidData     = "Données invalides"
	msgNotFound        = "Non trouvé"
	msgStudentNotFound = "Élève non trouvé"
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var body interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			if msg, ok := origErr.Message.(string); ok {
				body = echo.Map{"message": msg}
			} else {
				body = origErr.Message
			}
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			body = echo.Map{"message": msgInvalidData, "errors": fldErrs}
		case *core.ValidationError:
			code = http.StatusBadRequest
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				body = echo.Map{"message": origErr.Error(), "errors": fldErrs}
			} else {
				body = echo.Map{"message": origErr.Error()}
			}
		default:
			switch origErr {
			case school.ErrNotFound:
				code = http.StatusNotFound
				body = echo.Map{"message": msgStudentNotFound}
			case user.ErrNotFound:
				code = http.StatusNotFound
				body = echo.Map{"message": msgNotFound}
			default: // any other error is a server error
				code = http.StatusInternalServerError
				body = echo.Map{"message": msgServerError}

				args := []interface{}{errors.Wrap(err, msgServerError)}
				if usr, ok := ctx.Get(ctxUserKey).(user.User); ok {
					args = append(args, usr)
				}
				logger.Error(msgServerError, args...)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead {
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, body)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
