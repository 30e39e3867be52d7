package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/realmkeeper/internal/common"
	"github.com/dmitrijs2005/realmkeeper/internal/logging"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
)

// blankMessage is the text ozzo-validation's Required rule reports.
const blankMessage = "cannot be blank"

// statusFor maps a service error to the status and client message. Internal
// error text never reaches the client.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, msgValidationFailed
	case errors.Is(err, common.ErrDuplicateIdentity):
		return http.StatusBadRequest, msgEmailInUse
	case errors.Is(err, common.ErrNoAssetProvided):
		return http.StatusBadRequest, msgNoImage
	case errors.Is(err, common.ErrAuthenticationFailure):
		return http.StatusUnauthorized, msgInvalidLogin
	case errors.Is(err, common.ErrNoToken):
		return http.StatusUnauthorized, msgNoToken
	case errors.Is(err, common.ErrTokenMalformed),
		errors.Is(err, common.ErrTokenSignature),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusForbidden, msgTokenRejected
	case errors.Is(err, common.ErrIdentityNotFound):
		return http.StatusNotFound, msgUserNotFound
	case errors.Is(err, common.ErrorInternal):
		return http.StatusInternalServerError, common.GenericFailureMessage
	default:
		return http.StatusInternalServerError, common.GenericFailureMessage
	}
}

// fieldErrors flattens ozzo field errors. The second result reports whether
// any field was blank.
func fieldErrors(err error) (map[string]string, bool) {
	var ve validation.Errors
	if !errors.As(err, &ve) {
		return nil, false
	}

	fields := make(map[string]string, len(ve))
	blank := false
	for name, fe := range ve {
		if fe == nil {
			continue
		}
		fields[name] = fe.Error()
		if fe.Error() == blankMessage {
			blank = true
		}
	}
	return fields, blank
}

// respondError writes the failure envelope for err. Unexpected errors are
// logged with their detail before the generic message goes out.
func respondError(c *fiber.Ctx, l logging.Logger, err error) error {
	status, message := statusFor(err)

	if status == http.StatusInternalServerError {
		l.Error(c.UserContext(), "request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}

	if errors.Is(err, common.ErrValidation) {
		fields, blank := fieldErrors(err)
		if blank {
			message = msgFieldsRequired
		}
		return fail(c, status, message, fields)
	}

	return fail(c, status, message, nil)
}

// errorHandler is the fiber ErrorHandler. fiber's own errors (unknown route,
// body too large) keep their status; everything else is a generic 500.
func errorHandler(l logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return fail(c, fe.Code, fe.Message, nil)
		}

		if !errors.Is(err, common.ErrorInternal) {
			err = fmt.Errorf("%w: %w", common.ErrorInternal, err)
		}
		l.Error(c.UserContext(), "unhandled request error", "method", c.Method(), "path", c.Path(), "error", err)
		return fail(c, http.StatusInternalServerError, common.GenericFailureMessage, nil)
	}
}
