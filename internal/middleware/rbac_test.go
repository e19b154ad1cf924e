package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roster-ledger-api/internal/models"
)

func routerWithClaims(claims *models.JWTClaims, mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	})
	r.Use(mw...)
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func serve(r *gin.Engine) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec
}

func TestAdminOnly(t *testing.T) {
	rec := serve(routerWithClaims(&models.JWTClaims{Username: "root", Role: models.RoleAdmin}, AdminOnly()))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(routerWithClaims(&models.JWTClaims{Username: "clerk", Role: models.RoleUser}, AdminOnly()))
	require.Equal(t, http.StatusForbidden, rec.Code)
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "admin role required", body.Error.Message)

	rec = serve(routerWithClaims(nil, AdminOnly()))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRolesAcceptsAnyListedRole(t *testing.T) {
	mw := RequireRoles(models.RoleAdmin, models.RoleUser)
	rec := serve(routerWithClaims(&models.JWTClaims{Username: "clerk", Role: models.RoleUser}, mw))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(routerWithClaims(&models.JWTClaims{Username: "ghost", Role: "viewer"}, mw))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestResponseMetaCarriesRevision(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	var meta map[string]interface{}
	r.GET("/", func(c *gin.Context) {
		SetRevision(c, 42)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	serve(r)
	assert.Equal(t, uint64(42), meta["revision"])

	assert.Nil(t, ExtractMeta(nil))
}
