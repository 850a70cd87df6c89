package handler

import (
	"chatview/backend/internal/identity"
	"chatview/backend/internal/logging"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	authHeaderKey = "Authorization"
	bearerPrefix  = "Bearer "
	// Browsers cannot set headers on a websocket handshake.
	tokenQueryKey = "token"
)

// AuthMiddleware resolves the bearer token to a user id and stores it under
// logging.FieldUserID.
func AuthMiddleware(resolver identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing authorization token")
			return
		}

		userID, err := resolver.Resolve(c.Request.Context(), identity.Principal{Token: token})
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
			return
		}

		c.Set(logging.FieldUserID, userID)
		l := logging.Ctx(c.Request.Context()).With().Str(logging.FieldUserID, userID).Logger()
		c.Request = c.Request.WithContext(logging.WithLogger(c.Request.Context(), l))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader(authHeaderKey); strings.HasPrefix(h, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix))
	}
	return c.Query(tokenQueryKey)
}

// GetUserID extracts the authenticated user id from the gin context.
func GetUserID(c *gin.Context) string {
	return c.GetString(logging.FieldUserID)
}
