package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-performance-api/internal/models"
	appErrors "github.com/noah-isme/sma-performance-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
	err    error
	seen   string
}

func (v *validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	v.seen = token
	if v.err != nil {
		return nil, v.err
	}
	return v.claims, nil
}

type observerStub struct {
	paths    []string
	statuses []int
}

func (o *observerStub) ObserveHTTPRequest(_, path string, status int, _ time.Duration) {
	o.paths = append(o.paths, path)
	o.statuses = append(o.statuses, status)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func withClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}
}

func serve(router *gin.Engine, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestJWT(t *testing.T) {
	stub := &validatorStub{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}}
	router := gin.New()
	router.GET("/secure", JWT(stub), func(c *gin.Context) {
		claims, ok := CurrentUser(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.UserID)
	})

	rec := serve(router, http.MethodGet, "/secure", "Bearer abc")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())
	assert.Equal(t, "abc", stub.seen)

	rec = serve(router, http.MethodGet, "/secure", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(router, http.MethodGet, "/secure", "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	stub.err = appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	rec = serve(router, http.MethodGet, "/secure", "Bearer expired")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, rec))
}

func TestRBAC(t *testing.T) {
	cases := []struct {
		name   string
		claims *models.JWTClaims
		path   string
		status int
	}{
		{name: "teacher allowed", claims: &models.JWTClaims{Role: models.RoleTeacher}, path: "/students/s1", status: http.StatusOK},
		{name: "superadmin inherits admin", claims: &models.JWTClaims{Role: models.RoleSuperAdmin}, path: "/students/s1", status: http.StatusOK},
		{name: "student self", claims: &models.JWTClaims{Role: models.RoleStudent, StudentID: "s1"}, path: "/students/s1", status: http.StatusOK},
		{name: "student other", claims: &models.JWTClaims{Role: models.RoleStudent, StudentID: "s2"}, path: "/students/s1", status: http.StatusForbidden},
		{name: "student without link", claims: &models.JWTClaims{Role: models.RoleStudent}, path: "/students/s1", status: http.StatusForbidden},
		{name: "anonymous", path: "/students/s1", status: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/students/:id", withClaims(tc.claims), RBAC(string(models.RoleAdmin), string(models.RoleTeacher), RoleSelf), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})
			rec := serve(router, http.MethodGet, tc.path, "")
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRequireRoles(t *testing.T) {
	router := gin.New()
	router.PUT("/policy", withClaims(&models.JWTClaims{Role: models.RoleTeacher}), RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	rec := serve(router, http.MethodPut, "/policy", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, rec))
}

func TestFeatureFlag(t *testing.T) {
	router := gin.New()
	router.GET("/on", FeatureFlag(true), func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/off", FeatureFlag(false), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/on", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/off", "").Code)
}

func TestMetricsMiddleware(t *testing.T) {
	observer := &observerStub{}
	router := gin.New()
	router.Use(Metrics(observer))
	router.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	serve(router, http.MethodGet, "/items/42", "")
	serve(router, http.MethodGet, "/nowhere", "")

	assert.Equal(t, []string{"/items/:id", "unmatched"}, observer.paths)
	assert.Equal(t, []int{http.StatusAccepted, http.StatusNotFound}, observer.statuses)
}

func TestResponseMeta(t *testing.T) {
	router := gin.New()
	router.Use(WithResponseMeta())
	router.GET("/meta", func(c *gin.Context) {
		SetCacheHit(c, true)
		SetMeta(c, "scheme", "plus")
		c.JSON(http.StatusOK, ExtractMeta(c))
	})

	rec := serve(router, http.MethodGet, "/meta", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	assert.Equal(t, true, meta["cache_hit"])
	assert.Equal(t, "plus", meta["scheme"])
	assert.Contains(t, meta, "processing_time_ms")
}

func TestExtractMetaWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	meta := ExtractMeta(c)
	require.NotNil(t, meta)
	assert.NotContains(t, meta, "processing_time_ms")
	assert.Nil(t, ExtractMeta(nil))
}
