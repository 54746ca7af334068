package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scolarite-api/internal/models"
	appErrors "github.com/noah-isme/scolarite-api/pkg/errors"
	"github.com/noah-isme/scolarite-api/pkg/response"
)

// ContextClaimsKey is the gin context key storing unlock token claims.
const ContextClaimsKey = "unlockClaims"

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// Unlock attaches the claims of a valid bearer token when one is sent. It
// never blocks: services decide from the actor whether an action is allowed.
// A malformed or expired token is rejected so callers notice their session ended.
func Unlock(validator tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := validator.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextClaimsKey, claims)
		c.Next()
	}
}

// ClaimsFromContext returns the claims attached by Unlock, if any.
func ClaimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextClaimsKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// ActorFor describes the caller for an action guarded by scope.
func ActorFor(c *gin.Context, scope models.Scope) models.Actor {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return models.Actor{}
	}
	return models.Actor{Name: claims.Operator, Authorized: claims.HasScope(scope)}
}
