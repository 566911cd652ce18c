package middelware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"jobdispatch-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestCORSAllowedOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cors := NewCORSMiddleware(&models.Config{CORSOrigins: []string{"https://dispatch.example.com", "*.field.example.com"}})

	r := gin.New()
	r.Use(cors.CORS())
	r.GET("/jobs", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"https://dispatch.example.com", true},
		{"https://crew.field.example.com", true},
		{"https://evil.example.org", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
		req.Header.Set("Origin", tt.origin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if tt.allowed {
			assert.Equal(t, tt.origin, w.Header().Get("Access-Control-Allow-Origin"))
		} else {
			assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		}
	}

	req := httptest.NewRequest(http.MethodOptions, "/jobs", nil)
	req.Header.Set("Origin", "https://dispatch.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCORSWildcardMatchesBareDomain(t *testing.T) {
	cors := NewCORSMiddleware(&models.Config{CORSOrigins: []string{"*.field.example.com"}})

	assert.True(t, cors.isOriginAllowed("https://field.example.com"))
	assert.True(t, cors.isOriginAllowed("https://crew.field.example.com:8443"))
	assert.False(t, cors.isOriginAllowed("https://badfield.example.com"))
	assert.False(t, cors.isOriginAllowed("https://field.example.com.evil.org"))
	assert.False(t, cors.isOriginAllowed("null"))
}

func TestCORSPreflightAdvertisesAPIRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cors := NewCORSMiddleware(&models.Config{CORSOrigins: []string{"https://dispatch.example.com"}})

	r := gin.New()
	r.Use(cors.CORS())
	r.POST("/jobs/:id/complete", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/jobs/j1/complete", nil)
	req.Header.Set("Origin", "https://dispatch.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "GET, POST, PUT, PATCH, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.NotContains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodDelete)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.Equal(t, "Retry-After", w.Header().Get("Access-Control-Expose-Headers"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))

	// disallowed preflight is refused outright
	req = httptest.NewRequest(http.MethodOptions, "/jobs/j1/complete", nil)
	req.Header.Set("Origin", "https://evil.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	// same-origin and non-browser calls carry no CORS headers
	req = httptest.NewRequest(http.MethodPost, "/jobs/j1/complete", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Vary"))
}

func TestStructuredLoggerLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := &MockLogger{}
	log.On("WithFields", mock.MatchedBy(func(fields map[string]interface{}) bool {
		return fields["status"] == http.StatusConflict && fields["path"] == "/jobs/1/claim"
	})).Return().Once()
	log.On("Warn", "HTTP request completed with client error").Return().Once()

	logging := NewLoggingMiddleware(log, "/health")
	r := gin.New()
	r.Use(logging.StructuredLogger())
	r.POST("/jobs/:id/claim", func(c *gin.Context) { c.Status(http.StatusConflict) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/jobs/1/claim", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	log.AssertExpectations(t)
}

func TestRecoveryReturnsEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logging := NewLoggingMiddleware(newMockLogger())

	r := gin.New()
	r.Use(logging.Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"InternalError"`)
}
