package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/javajoker/servicemart-backend/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("middleware-test-secret")
}

func newProtectedEngine() *gin.Engine {
	r := gin.New()
	r.Use(I18nMiddleware("en"))
	r.GET("/me", AuthRequired(), func(c *gin.Context) {
		userID, _ := utils.GetUserIDFromContext(c)
		c.String(http.StatusOK, userID)
	})
	r.GET("/admin", AuthRequired(), AdminRequired(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/maybe", OptionalAuth(), func(c *gin.Context) {
		userID, ok := utils.GetUserIDFromContext(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, userID)
	})
	return r
}

func doRequest(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	r := newProtectedEngine()
	userID := uuid.New()
	token, err := utils.GenerateJWT(userID, "buyer@example.com", "buyer", 1)
	require.NoError(t, err)

	w := doRequest(r, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String(), w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "/me", "not-a-jwt").Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRequired(t *testing.T) {
	r := newProtectedEngine()

	buyer, err := utils.GenerateJWT(uuid.New(), "buyer@example.com", "buyer", 1)
	require.NoError(t, err)
	admin, err := utils.GenerateJWT(uuid.New(), "admin@example.com", "admin", 1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, doRequest(r, "/admin", buyer).Code)
	assert.Equal(t, http.StatusNoContent, doRequest(r, "/admin", admin).Code)
}

func TestOptionalAuth(t *testing.T) {
	r := newProtectedEngine()
	userID := uuid.New()
	token, err := utils.GenerateJWT(userID, "buyer@example.com", "buyer", 1)
	require.NoError(t, err)

	assert.Equal(t, "anonymous", doRequest(r, "/maybe", "").Body.String())
	assert.Equal(t, "anonymous", doRequest(r, "/maybe", "garbage").Body.String())
	assert.Equal(t, userID.String(), doRequest(r, "/maybe", token).Body.String())
}

func TestParseLanguage(t *testing.T) {
	tests := map[string]string{
		"":                        "en",
		"zh-TW,zh;q=0.9,en;q=0.8": "zh_TW",
		"en-GB":                   "en",
		"fr-FR,fr;q=0.9":          "en",
		"zh-Hant":                 "zh_TW",
	}
	for header, want := range tests {
		assert.Equal(t, want, parseLanguage(header, "en"), header)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(rate.Every(time.Hour), 2)
	r := gin.New()
	r.GET("/", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, doRequest(r, "/", "").Code)
	}
	w := doRequest(r, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	now := time.Now()
	rl.now = func() time.Time { return now.Add(time.Hour) }
	rl.evict(time.Minute)
	assert.Empty(t, rl.visitors)
}

func TestRedact(t *testing.T) {
	data := map[string]interface{}{
		"email":        "a@example.com",
		"password":     "Secret1!",
		"new_password": "Secret2!",
		"code":         "12345678",
		"profile":      map[string]interface{}{"refresh_token": "x", "city": "Taipei"},
	}
	redact(data)
	assert.Equal(t, "a@example.com", data["email"])
	assert.Equal(t, "[REDACTED]", data["password"])
	assert.Equal(t, "[REDACTED]", data["new_password"])
	assert.Equal(t, "[REDACTED]", data["code"])
	nested := data["profile"].(map[string]interface{})
	assert.Equal(t, "[REDACTED]", nested["refresh_token"])
	assert.Equal(t, "Taipei", nested["city"])
}

func TestExtractResource(t *testing.T) {
	id := uuid.New().String()
	assert.Equal(t, "partners", extractResourceType("/v1/partners/"+id+"/status"))
	assert.Equal(t, "settings", extractResourceType("/v1/admin/settings/assignment/strategy"))
	assert.Equal(t, "health", extractResourceType("/health"))
	assert.Equal(t, id, extractResourceID("/v1/orders/"+id+"/cancel"))
	assert.Empty(t, extractResourceID("/v1/orders"))
}
