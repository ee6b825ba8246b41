package server

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/dealroster/internal/callercontext"
	obscontext "github.com/smallbiznis/dealroster/internal/observability/context"
	participantdomain "github.com/smallbiznis/dealroster/internal/participant/domain"
)

const (
	HeaderCallerID    = "X-Caller-Id"
	HeaderCallerAdmin = "X-Caller-Admin"
)

// CallerRequired resolves the caller forwarded by the identity provider.
func CallerRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := callerFromHeaders(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := callercontext.WithCaller(c.Request.Context(), caller)
		ctx = obscontext.WithCallerID(ctx, caller.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func callerFromHeaders(c *gin.Context) (callercontext.Caller, error) {
	raw := strings.TrimSpace(c.GetHeader(HeaderCallerID))
	if raw == "" {
		return callercontext.Caller{}, fmt.Errorf("%w: %s header is required", participantdomain.ErrUnauthenticated, HeaderCallerID)
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return callercontext.Caller{}, fmt.Errorf("%w: %s header is not a valid id", participantdomain.ErrUnauthenticated, HeaderCallerID)
	}

	admin := false
	if value := strings.TrimSpace(c.GetHeader(HeaderCallerAdmin)); value != "" {
		admin, err = strconv.ParseBool(value)
		if err != nil {
			return callercontext.Caller{}, fmt.Errorf("%w: %s header must be true or false", participantdomain.ErrUnauthenticated, HeaderCallerAdmin)
		}
	}
	return callercontext.Caller{ID: id, IsAdmin: admin}, nil
}
