package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	participantdomain "github.com/smallbiznis/dealroster/internal/participant/domain"
)

type errorPayload = participantdomain.ErrorDetail

type errorResponse struct {
	Error *errorPayload `json:"error"`
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRouteNotFound  = errors.New("route_not_found")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError(message string) error {
	return &participantdomain.ValidationError{Errors: []string{message}}
}

func mapError(err error) (int, *errorPayload) {
	if errors.Is(err, ErrRouteNotFound) {
		return http.StatusNotFound, &errorPayload{Type: "not_found", Message: "route not found"}
	}

	detail := participantdomain.DetailOf(err)
	if detail == nil {
		return http.StatusInternalServerError, &errorPayload{Type: "internal", Message: "internal error"}
	}
	return statusOf(detail.Type), detail
}

func statusOf(kind string) int {
	switch kind {
	case "unauthenticated":
		return http.StatusUnauthorized
	case "forbidden":
		return http.StatusForbidden
	case "not_found":
		return http.StatusNotFound
	case "validation_failed":
		return http.StatusUnprocessableEntity
	case "constraint_violated", "conflict":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// classifyErrorForLog returns the error kind and, for constraint failures, the invariant.
func classifyErrorForLog(err error) (string, string) {
	detail := participantdomain.DetailOf(err)
	if detail == nil {
		return "", ""
	}
	return detail.Type, detail.Invariant
}
