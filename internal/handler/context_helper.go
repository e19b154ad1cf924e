package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roster-ledger-api/internal/middleware"
	"github.com/noah-isme/roster-ledger-api/internal/models"
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

// actor is the username recorded as by_user on audit entries.
func actor(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.Username
	}
	return ""
}

func roleOf(c *gin.Context) models.UserRole {
	if claims := claimsFromContext(c); claims != nil {
		return claims.Role
	}
	return models.RoleUser
}
