package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// contextKey is a type for context keys
type contextKey string

// ActorContextKey is the gin context key holding the request actor
const ActorContextKey contextKey = "actor"

// ActorMiddleware extracts the caller identity supplied by the upstream
// authenticator. Identity is trusted unconditionally; the gateway in
// front of this service is responsible for validating tokens.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := c.GetHeader("X-Actor-Id")
		if actorID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "X-Actor-Id header required",
			})
			c.Abort()
			return
		}

		actor := Actor{
			ID:    actorID,
			Roles: ParseRoles(c.GetHeader("X-Actor-Roles")),
		}

		c.Set(string(ActorContextKey), actor)
		c.Next()
	}
}

// ActorFromContext returns the actor stored by ActorMiddleware
func ActorFromContext(c *gin.Context) (Actor, bool) {
	value, ok := c.Get(string(ActorContextKey))
	if !ok {
		return Actor{}, false
	}
	actor, ok := value.(Actor)
	return actor, ok
}
