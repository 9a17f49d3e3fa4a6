package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/teaching-portal-api/internal/middleware"
	"github.com/noah-isme/teaching-portal-api/internal/models"
	appErrors "github.com/noah-isme/teaching-portal-api/pkg/errors"
	"github.com/noah-isme/teaching-portal-api/pkg/response"
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

func actorFromContext(c *gin.Context) string {
	return claimsFromContext(c).Actor()
}

// studentFromContext resolves the student record of the caller.
func studentFromContext(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil {
		return ""
	}
	if claims.ProfileID != "" {
		return claims.ProfileID
	}
	return claims.UserID
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}
