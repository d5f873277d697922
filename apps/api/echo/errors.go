package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/user"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "principal not authenticated")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound  = echo.NewHTTPError(http.StatusNotFound, "not found")
)

type (
	conflictResponse struct {
		Error       string         `json:"error"`
		Conflicting schedule.Entry `json:"conflicting_entry"`
	}

	batchEntryError struct {
		Index     int    `json:"index"`
		Day       string `json:"day,omitempty"`
		StartTime string `json:"start_time,omitempty"`
		EndTime   string `json:"end_time,omitempty"`
		Error     string `json:"error"`
	}

	batchResponse struct {
		Error   string            `json:"error"`
		Details []batchEntryError `json:"details"`
	}
)

func newBatchResponse(batchErr *schedule.BatchError) batchResponse {
	details := make([]batchEntryError, 0, len(batchErr.Errors))
	for _, entryErr := range batchErr.Errors {
		details = append(details, batchEntryError{
			Index:     entryErr.Index,
			Day:       string(entryErr.Day),
			StartTime: entryErr.StartTime,
			EndTime:   entryErr.EndTime,
			Error:     entryErr.Err.Error(),
		})
	}
	return batchResponse{Error: batchErr.Error(), Details: details}
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
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
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *schedule.ConflictError:
			code = http.StatusConflict
			message = conflictResponse{Error: origErr.Error(), Conflicting: origErr.Conflicting}
		case *schedule.BatchError:
			code = http.StatusBadRequest
			message = newBatchResponse(origErr)
		default:
			switch errors.Cause(err) {
			case schedule.ErrNotFound:
				code = http.StatusNotFound
				message = errors.Cause(err).Error()
			case schedule.ErrTimeFormat, schedule.ErrInvalidTimeRange,
				schedule.ErrAssignmentMismatch, schedule.ErrInconsistentBatch:
				code = http.StatusBadRequest
				message = errors.Cause(err).Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var p user.Principal
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					p.ID = claims.Subject
					p.Username = claims.Username
					p.Email = claims.Email
					p.SchoolID = claims.SchoolID
				}
				logger.Error(msg, errors.Wrap(err, msg), p)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if m, ok := message.(string); ok {
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
