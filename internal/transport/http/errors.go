package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"quizdesk/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrIncompleteSubmission):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrTooFar),
		errors.Is(err, domain.ErrResultsNotPublished),
		errors.Is(err, domain.ErrQuizNotPublished):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrSubmissionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyPublished),
		errors.Is(err, domain.ErrResultsReleased),
		errors.Is(err, domain.ErrAlreadySubmitted),
		errors.Is(err, domain.ErrDuplicateCode),
		errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes err as JSON. Server errors are logged and their
// details withheld from the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}
