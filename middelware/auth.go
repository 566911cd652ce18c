package middelware

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"jobdispatch-backend/models"
	"jobdispatch-backend/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Context keys set by AuthMiddleware
const (
	ContextClaims = "jwt_claims"
	ContextUserID = "user_id"
	ContextActor  = "actor"
)

// JWTManager validates session tokens issued by the auth service
type JWTManager struct {
	Config            *models.Config
	Logger            logger.Logger
	BlacklistedTokens map[string]time.Time // Token revocation blacklist (for immediate invalidation)
	TokenMutex        sync.RWMutex
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(cfg *models.Config, log logger.Logger) *JWTManager {
	return &JWTManager{
		Config:            cfg,
		Logger:            log,
		BlacklistedTokens: make(map[string]time.Time),
	}
}

// SessionIdentity is what a token asserts about its bearer
type SessionIdentity struct {
	UserID       string
	Email        string
	Name         string
	Role         models.UserRole
	TechnicianID string
}

// GenerateToken signs a token for identity. The auth service owns login;
// this is used by operator tooling and tests.
func (j *JWTManager) GenerateToken(identity SessionIdentity) (string, error) {
	now := time.Now()
	expiresIn := j.Config.JWTExpiresIn
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}

	claims := models.JWTClaims{
		UserID:       identity.UserID,
		Email:        identity.Email,
		Name:         identity.Name,
		Role:         identity.Role,
		TechnicianID: identity.TechnicianID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(), // JTI (JWT ID)
			Subject:   identity.UserID,
			Issuer:    j.Config.AppName,
			Audience:  jwt.ClaimStrings{j.Config.AppName},
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(j.Config.JWTSecret))
	if err != nil {
		j.Logger.Errorf("Failed to sign JWT token: %v", err)
		return "", err
	}

	j.Logger.Debugf("Generated JWT token for user: %s", identity.UserID)
	return tokenString, nil
}

// ValidateToken validates a JWT token and returns its claims
func (j *JWTManager) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		// CRITICAL: Prevent algorithm confusion attacks
		if method, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		} else if method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("invalid signing algorithm: %v", method.Alg())
		}
		return []byte(j.Config.JWTSecret), nil
	})
	if err != nil {
		j.Logger.Errorf("Failed to parse JWT token: %v", err)
		return nil, err
	}

	if !token.Valid {
		j.Logger.Error("Invalid JWT token")
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok {
		j.Logger.Error("Failed to extract JWT claims")
		return nil, fmt.Errorf("invalid claims")
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("token has no user")
	}
	if !claims.Role.IsValid() {
		return nil, fmt.Errorf("token carries unknown role %q", claims.Role)
	}
	if claims.Role == models.UserRoleTechnician && claims.TechnicianID == "" {
		return nil, fmt.Errorf("technician token has no technician id")
	}

	if j.isRevoked(claims.ID) {
		j.Logger.Error("Token is blacklisted")
		return nil, fmt.Errorf("token has been revoked")
	}

	j.Logger.Debugf("Successfully validated JWT token for user: %s", claims.UserID)
	return claims, nil
}

// isRevoked reports whether tokenID is blacklisted. Tokens without a jti can
// never be revoked, so they never match.
func (j *JWTManager) isRevoked(tokenID string) bool {
	if tokenID == "" {
		return false
	}
	j.TokenMutex.RLock()
	expiry, revoked := j.BlacklistedTokens[tokenID]
	j.TokenMutex.RUnlock()
	return revoked && expiry.After(time.Now())
}

// RevokeToken blacklists a token id until it would have expired anyway.
// It returns false for an empty id.
func (j *JWTManager) RevokeToken(tokenID string, expiry time.Time) bool {
	if tokenID == "" {
		return false
	}
	j.TokenMutex.Lock()
	defer j.TokenMutex.Unlock()

	j.BlacklistedTokens[tokenID] = expiry
	j.Logger.Debugf("Revoked token %s", tokenID)
	return true
}

// CleanupExpiredTokens removes expired tokens from blacklist
func (j *JWTManager) CleanupExpiredTokens() int {
	j.TokenMutex.Lock()
	defer j.TokenMutex.Unlock()

	now := time.Now()
	removed := 0
	for tokenID, expiry := range j.BlacklistedTokens {
		if expiry.Before(now) {
			delete(j.BlacklistedTokens, tokenID)
			removed++
		}
	}
	j.Logger.Debugf("Cleaned up %d expired blacklisted tokens", removed)
	return removed
}

func abortUnauthorized(c *gin.Context, message, details string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.APIResponse{
		Status:  "error",
		Code:    http.StatusUnauthorized,
		Message: message,
		Error: &models.APIError{
			Type:    "AuthenticationError",
			Details: details,
		},
	})
}

// AuthMiddleware validates the bearer token and stores the claims and the
// acting user on the context
func (j *JWTManager) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			j.Logger.Warn("Missing Authorization header")
			abortUnauthorized(c, "Missing Authorization header", "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			j.Logger.Warn("Invalid Authorization header format")
			abortUnauthorized(c, "Invalid Authorization header format", "Authorization header must be in format: Bearer <token>")
			return
		}

		claims, err := j.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			j.Logger.Errorf("Token validation failed: %v", err)
			abortUnauthorized(c, "Invalid or expired token", err.Error())
			return
		}

		c.Set(ContextClaims, claims)
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextActor, models.Actor{
			UserID:       claims.UserID,
			Role:         claims.Role,
			TechnicianID: claims.TechnicianID,
		})

		j.Logger.Debugf("User authenticated: %s", claims.UserID)
		c.Next()
	}
}

// ActorFromContext returns the acting user set by AuthMiddleware
func ActorFromContext(c *gin.Context) (models.Actor, bool) {
	value, exists := c.Get(ContextActor)
	if !exists {
		return models.Actor{}, false
	}
	actor, ok := value.(models.Actor)
	return actor, ok
}

// RequireRole lets the request through when the caller holds any of roles
func (j *JWTManager) RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok {
			j.Logger.Error("JWT claims not found in context")
			abortUnauthorized(c, "Authentication required", "User not authenticated")
			return
		}

		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}

		names := make([]string, len(roles))
		for i, role := range roles {
			names[i] = string(role)
		}
		j.Logger.Warnf("User %s with role %s denied, requires one of %v", actor.UserID, actor.Role, names)
		c.AbortWithStatusJSON(http.StatusForbidden, models.APIResponse{
			Status:  "error",
			Code:    http.StatusForbidden,
			Message: "Insufficient permissions",
			Error: &models.APIError{
				Type:    "AuthorizationError",
				Details: fmt.Sprintf("Required role: %s", strings.Join(names, " or ")),
			},
		})
	}
}

// Logout revokes the caller's current token
func (j *JWTManager) Logout(c *gin.Context) {
	value, _ := c.Get(ContextClaims)
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		abortUnauthorized(c, "Authentication required", "User not authenticated")
		return
	}

	expiry := time.Now().Add(j.Config.JWTExpiresIn)
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}
	if !j.RevokeToken(claims.ID, expiry) {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.APIResponse{
			Status:  "error",
			Code:    http.StatusBadRequest,
			Message: "Token cannot be revoked",
			Error: &models.APIError{
				Type:    "ValidationError",
				Details: "token has no jti claim",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Status:  "success",
		Code:    http.StatusOK,
		Message: "Logged out successfully",
	})
}

// Session returns what the current token asserts
func (j *JWTManager) Session(c *gin.Context) {
	value, _ := c.Get(ContextClaims)
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		abortUnauthorized(c, "Authentication required", "User not authenticated")
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Status:  "success",
		Code:    http.StatusOK,
		Message: "Token is valid",
		Data: map[string]interface{}{
			"valid":         true,
			"user_id":       claims.UserID,
			"email":         claims.Email,
			"name":          claims.Name,
			"role":          claims.Role,
			"technician_id": claims.TechnicianID,
			"expires_at":    claims.ExpiresAt,
			"issued_at":     claims.IssuedAt,
		},
	})
}
