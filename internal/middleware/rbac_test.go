package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/m88-digital/idea-intake-api/internal/models"
)

func performRBAC(claims *models.JWTClaims, allowed ...models.UserRole) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/protected", nil)
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}

	RBAC(allowed...)(c)
	if !c.IsAborted() {
		c.Status(http.StatusOK)
	}
	return rec
}

func TestRBACAllowsMatchingRole(t *testing.T) {
	rec := performRBAC(&models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}, models.RoleAdmin)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRBACRejectsOtherRole(t *testing.T) {
	rec := performRBAC(&models.JWTClaims{UserID: "u1", Role: models.RoleEmployee}, models.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRBACRejectsMissingClaims(t *testing.T) {
	rec := performRBAC(nil, models.RoleAdmin)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
