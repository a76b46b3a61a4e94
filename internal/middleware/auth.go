package middleware

import (
	"net/http"
	"os"
	"strings"

	"kelabpetani/internal/auth"
	"kelabpetani/internal/service"
	"kelabpetani/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	tokenCookie = "access_token"
	actorKey    = "actor"
)

func cookieFlags() (http.SameSite, bool) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	if os.Getenv("GIN_MODE") == "release" || os.Getenv("ENV") == "production" {
		return http.SameSiteNoneMode, true
	}
	return http.SameSiteLaxMode, false
}

// SetTokenCookie stores the access token as an HttpOnly cookie.
func SetTokenCookie(c *gin.Context, token string, maxAge int) {
	sameSite, secure := cookieFlags()
	c.SetSameSite(sameSite)
	c.SetCookie(tokenCookie, token, maxAge, "/", "", secure, true)
}

// ClearTokenCookie removes the access token cookie.
func ClearTokenCookie(c *gin.Context) {
	sameSite, secure := cookieFlags()
	c.SetSameSite(sameSite)
	c.SetCookie(tokenCookie, "", -1, "/", "", secure, true)
}

// tokenFromRequest tries the cookie first, then an Authorization: Bearer header.
func tokenFromRequest(c *gin.Context) (string, bool) {
	if tokenString, err := c.Cookie(tokenCookie); err == nil && tokenString != "" {
		return tokenString, true
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

func actorFromToken(secret []byte, tokenString string) (service.Actor, error) {
	claims, err := auth.ParseToken(secret, tokenString)
	if err != nil {
		return service.Actor{}, err
	}
	id, err := claims.UserID()
	if err != nil {
		return service.Actor{}, err
	}
	return service.Actor{ID: id, IsAdmin: claims.Admin}, nil
}

// RequireAuth validates the access token and stores the Actor on the context.
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := tokenFromRequest(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}
		actor, err := actorFromToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// OptionalAuth sets the Actor when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := tokenFromRequest(c); ok {
			if actor, err := actorFromToken(secret, tokenString); err == nil {
				c.Set(actorKey, actor)
			}
		}
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok || !actor.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: admin only"))
			return
		}
		c.Next()
	}
}

// ActorFrom returns the authenticated actor, if any.
func ActorFrom(c *gin.Context) (service.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return service.Actor{}, false
	}
	actor, ok := v.(service.Actor)
	return actor, ok
}
