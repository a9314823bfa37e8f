package server

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/seniorchoi/gigagig/internal/auth"
	"github.com/seniorchoi/gigagig/internal/booking"
	apierrors "github.com/seniorchoi/gigagig/internal/errors"
	"github.com/seniorchoi/gigagig/internal/geo"
	"github.com/seniorchoi/gigagig/internal/gig"
	"github.com/seniorchoi/gigagig/internal/logging"
	"github.com/seniorchoi/gigagig/internal/message"
	"github.com/seniorchoi/gigagig/internal/middleware"
	"github.com/seniorchoi/gigagig/internal/payment"
)

var (
	forbiddenErrors = []error{
		booking.ErrNotAuthorized,
		gig.ErrGigNotOwned,
	}

	duplicateErrors = []error{
		booking.ErrAlreadyReviewed,
		gig.ErrCategoryExists,
		auth.ErrUsernameTaken,
		auth.ErrEmailAlreadyExists,
	}

	invalidRequestErrors = []error{
		booking.ErrInvalidDate,
		booking.ErrInvalidRating,
		gig.ErrInvalidTitle,
		gig.ErrInvalidPrice,
		gig.ErrInvalidRadius,
		gig.ErrInvalidCategory,
		gig.ErrCategoryNotFound,
		auth.ErrInvalidUsername,
		auth.ErrPasswordTooShort,
		auth.ErrAboutMeTooLong,
		auth.ErrInvalidImageURL,
		message.ErrEmptyBody,
		message.ErrBodyTooLong,
		message.ErrSelfMessage,
		payment.ErrInvalidAmount,
		payment.ErrInvalidWebhookSig,
		payment.ErrMissingBookingID,
		payment.ErrSessionMismatch,
	}

	userNotFoundErrors = []error{
		auth.ErrUserNotFound,
	}

	gigNotFoundErrors = []error{
		gig.ErrGigNotFound,
		booking.ErrGigNotFound,
	}
)

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// mapError translates a domain error into the API error returned to the
// client. Unknown errors become 500.
func mapError(err error) *apierrors.APIError {
	var apiErr *apierrors.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case isAny(err, forbiddenErrors):
		return apierrors.NewAuthorizationError(err.Error())
	case errors.Is(err, booking.ErrInvalidState):
		return apierrors.NewInvalidStateError(strings.TrimPrefix(err.Error(), booking.ErrInvalidState.Error()+": "))
	case isAny(err, duplicateErrors):
		return apierrors.NewDuplicateError(err.Error())
	case errors.Is(err, geo.ErrGeocodeFailed):
		return apierrors.NewExternalServiceError("could not geocode location")
	case errors.Is(err, payment.ErrPaymentsDisabled):
		return apierrors.NewExternalServiceError("payments are not configured")
	case errors.Is(err, payment.ErrPaymentProvider):
		return apierrors.NewExternalServiceError("payment provider unavailable")
	case errors.Is(err, booking.ErrBookingNotFound):
		return apierrors.ErrBookingNotFoundError
	case isAny(err, gigNotFoundErrors):
		return apierrors.ErrGigNotFoundError
	case errors.Is(err, message.ErrUserNotFound):
		return apierrors.ErrUserNotFoundError.WithMessage("Recipient not found")
	case isAny(err, userNotFoundErrors):
		return apierrors.ErrUserNotFoundError
	case isAny(err, invalidRequestErrors):
		return apierrors.NewInvalidRequestError(err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apierrors.ErrInvalidCredentialsError
	case errors.Is(err, auth.ErrTokenExpired):
		return apierrors.ErrTokenExpiredError
	case errors.Is(err, auth.ErrInvalidToken):
		return apierrors.ErrUnauthorizedError
	default:
		return apierrors.ErrInternalServerError
	}
}

// handleError maps err, logs it when it is a server fault and writes the
// error response
func handleError(c *gin.Context, operation string, err error) {
	apiErr := mapError(err)
	if apierrors.IsServerError(apiErr) {
		logging.LogError(err, middleware.GetRequestIDFromContext(c), "api", operation)
	}
	respondError(c, apiErr)
}

// respondError sends a standardized error response
func respondError(c *gin.Context, err *apierrors.APIError) {
	c.JSON(err.HTTPStatus, apierrors.NewErrorResponse(err, middleware.GetRequestIDFromContext(c)))
}
