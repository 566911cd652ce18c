package middelware

import (
	"net/http"
	"net/url"
	"strings"

	"jobdispatch-backend/models"

	"github.com/gin-gonic/gin"
)

// Methods the dispatch API routes on. Jobs are never deleted.
var corsAllowedMethods = strings.Join([]string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodOptions,
}, ", ")

// Content-Type covers both JSON bodies and the multipart completion upload
var corsAllowedHeaders = strings.Join([]string{
	"Authorization",
	"Content-Type",
	"Accept",
	"X-Requested-With",
}, ", ")

// Retry-After accompanies 503s from the job store and the in-flight guard
const corsExposedHeaders = "Retry-After"

// CORSMiddleware answers browser cross-origin checks for the configured origins
type CORSMiddleware struct {
	config *models.Config
}

// NewCORSMiddleware creates a new CORS middleware
func NewCORSMiddleware(cfg *models.Config) *CORSMiddleware {
	return &CORSMiddleware{
		config: cfg,
	}
}

// CORS returns a gin.HandlerFunc for handling CORS. Requests without an
// Origin header are not cross-origin and pass through untouched.
func (m *CORSMiddleware) CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			c.Next()
			return
		}

		c.Header("Vary", "Origin")
		allowed := m.isOriginAllowed(origin)
		preflight := c.Request.Method == http.MethodOptions && c.Request.Header.Get("Access-Control-Request-Method") != ""

		if !allowed {
			if preflight {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Expose-Headers", corsExposedHeaders)

		if preflight {
			c.Header("Access-Control-Allow-Methods", corsAllowedMethods)
			c.Header("Access-Control-Allow-Headers", corsAllowedHeaders)
			c.Header("Access-Control-Max-Age", "86400") // 24 hours
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// isOriginAllowed matches origin against cors_origins: "*", an exact origin,
// or "*.example.com" for example.com and any subdomain of it
func (m *CORSMiddleware) isOriginAllowed(origin string) bool {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := strings.ToLower(parsed.Hostname())

	for _, allowedOrigin := range m.config.CORSOrigins {
		if allowedOrigin == "*" || strings.EqualFold(allowedOrigin, origin) {
			return true
		}

		if strings.HasPrefix(allowedOrigin, "*.") {
			domain := strings.ToLower(allowedOrigin[2:])
			if host == domain || strings.HasSuffix(host, "."+domain) {
				return true
			}
		}
	}

	return false
}
