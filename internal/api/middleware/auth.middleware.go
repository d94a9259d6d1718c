package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/callcoach/callcoach-core/internal/config"
	"github.com/callcoach/callcoach-core/internal/models"
	"github.com/callcoach/callcoach-core/internal/monitoring"
	"github.com/callcoach/callcoach-core/pkg/cache"
)

// identityKey is the gin context key carrying the verified caller.
const identityKey = "caller_identity"

// sessionTTL bounds how long an idle session token stays valid.
const sessionTTL = 24 * time.Hour

// AuthMiddleware verifies the caller's token and attaches a
// CallerIdentity to the request context. Token issuance happens in an
// external auth service; this core only verifies.
func AuthMiddleware(authConfig config.AuthConfig, sessions cache.Valkey) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isPublicEndpoint(c.Request.URL.Path) {
			c.Next()
			return
		}

		token := extractToken(c)
		if token == "" {
			monitoring.RecordAuthAttempt("failure")
			c.JSON(http.StatusUnauthorized, gin.H{
				"status": "error",
				"error":  "Authentication required",
			})
			c.Abort()
			return
		}

		identity, err := validateToken(c, token, authConfig, sessions)
		if err != nil {
			monitoring.RecordAuthAttempt("failure")
			c.JSON(http.StatusUnauthorized, gin.H{
				"status": "error",
				"error":  "Invalid authentication token",
			})
			c.Abort()
			return
		}
		monitoring.RecordAuthAttempt("success")

		c.Set(identityKey, identity)
		c.Set("user_id", identity.ID)

		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")

		c.Next()
	}
}

// DevIdentityMiddleware attaches a fixed admin identity when auth is
// disabled. Local development only.
func DevIdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(identityKey, &models.CallerIdentity{
			ID:     "dev-admin",
			Email:  "dev@localhost",
			Role:   models.RoleAdmin,
			Active: true,
		})
		c.Set("user_id", "dev-admin")
		c.Next()
	}
}

// IdentityFromContext returns the verified caller, or nil when the
// request was not authenticated.
func IdentityFromContext(c *gin.Context) *models.CallerIdentity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, ok := v.(*models.CallerIdentity)
	if !ok {
		return nil
	}
	return identity
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}

	if sessionToken := c.GetHeader("X-Session-Token"); sessionToken != "" {
		return sessionToken
	}

	if cookie, err := c.Cookie("callcoach_session"); err == nil {
		return cookie
	}

	return ""
}

// validateToken accepts either a cached session token or a JWT.
func validateToken(c *gin.Context, token string, authConfig config.AuthConfig, sessions cache.Valkey) (*models.CallerIdentity, error) {
	if sessions != nil {
		if session, err := validateSessionToken(c, token, sessions); err == nil {
			return session.Identity(), nil
		}
	}

	session, err := validateJWTToken(token, authConfig)
	if err != nil {
		return nil, err
	}

	if sessions != nil {
		session.ID = token
		session.IPAddress = c.ClientIP()
		session.UserAgent = c.Request.UserAgent()
		if cacheErr := sessions.SetSession(c.Request.Context(), session); cacheErr != nil {
			monitoring.RecordCacheOperation("set_session", "error")
		}
	}
	return session.Identity(), nil
}

func validateSessionToken(c *gin.Context, token string, sessions cache.Valkey) (*models.UserSession, error) {
	session, err := sessions.GetSession(c.Request.Context(), token)
	if err != nil {
		return nil, err
	}
	if time.Since(session.LastActivity) > sessionTTL {
		_ = sessions.InvalidateSession(c.Request.Context(), token)
		return nil, fmt.Errorf("session expired")
	}

	session.LastActivity = time.Now()
	if err := sessions.SetSession(c.Request.Context(), session); err != nil {
		monitoring.RecordCacheOperation("set_session", "error")
	}
	return session, nil
}

// validateJWTToken verifies an HMAC-signed JWT and maps its claims onto
// a session. Deactivated users are rejected here, before any handler.
func validateJWTToken(tokenString string, authConfig config.AuthConfig) (*models.UserSession, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(authConfig.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid JWT token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return nil, fmt.Errorf("missing user id in token")
	}

	if active, exists := claims["active"].(bool); exists && !active {
		return nil, fmt.Errorf("account deactivated")
	}

	role, _ := claims["role"].(string)
	switch models.Role(role) {
	case models.RoleAdmin, models.RoleManager, models.RoleAgent:
	default:
		return nil, fmt.Errorf("unknown role in token")
	}

	session := &models.UserSession{
		ID:           uuid.NewString(),
		UserID:       userID,
		Role:         models.Role(role),
		CreatedAt:    time.Now(),
		LastActivity: time.Now(),
	}
	if email, exists := claims["email"].(string); exists {
		session.Email = email
	}
	if teamID, exists := claims["team_id"].(string); exists {
		session.TeamID = teamID
	}
	if linked, exists := claims["linked_agent_id"].(string); exists {
		session.LinkedAgentID = linked
	}
	return session, nil
}

func isPublicEndpoint(path string) bool {
	publicPaths := []string{
		"/health",
		"/ready",
		"/metrics",
	}
	for _, publicPath := range publicPaths {
		if strings.HasPrefix(path, publicPath) {
			return true
		}
	}
	return false
}
