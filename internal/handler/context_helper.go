package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/m88-digital/idea-intake-api/internal/middleware"
	"github.com/m88-digital/idea-intake-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext resolves the display name recorded in the audit
// trail for admin actions.
func actorFromContext(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil {
		return ""
	}
	if claims.FullName != "" {
		return claims.FullName
	}
	return claims.Email
}
