package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/dentscan/dentclaim/apperr"
	"github.com/dentscan/dentclaim/cache"
	"github.com/dentscan/dentclaim/config"
	"github.com/dentscan/dentclaim/model"
	"github.com/gin-gonic/gin"
)

const PrincipalKey = "principal"

// SessionKey is the cache key proving a token has not been logged out.
func SessionKey(token string) string { return "session:" + token }

// Principal is the authenticated caller.
type Principal struct {
	ID    string
	Role  model.Role
	Email string
	Name  string
	Token string
}

// PrincipalLoader resolves a token subject to a live account. It returns
// an *apperr.Error for unknown or deleted accounts.
type PrincipalLoader func(ctx context.Context, subject string, role model.Role) (*Principal, error)

// BearerToken returns the token from the Authorization header, or "".
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// Auth validates the Bearer JWT token, checks the session cache and loads
// the principal.
func Auth(sec config.SecurityConfig, c cache.Cache, load PrincipalLoader) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenStr := BearerToken(ctx)
		if tokenStr == "" {
			Fail(ctx, apperr.Unauthorized("missing token"))
			return
		}

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			Fail(ctx, apperr.Unauthorized("invalid token"))
			return
		}

		// Check session still valid in cache.
		cacheCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		exists, err := c.Exists(cacheCtx, SessionKey(tokenStr))
		if err != nil || !exists {
			Fail(ctx, apperr.Unauthorized("session expired"))
			return
		}

		p, err := load(ctx.Request.Context(), claims.Subject, claims.Role)
		if err != nil {
			Fail(ctx, err)
			return
		}
		p.Token = tokenStr
		ctx.Set(PrincipalKey, p)
		ctx.Next()
	}
}

// RequireRoles rejects principals whose role is not listed.
func RequireRoles(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := GetPrincipal(c)
		if p == nil {
			Fail(c, apperr.Unauthorized("missing token"))
			return
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		Fail(c, apperr.Unauthorized("You are not authorized"))
	}
}

// GetPrincipal retrieves the authenticated principal from the Gin context.
func GetPrincipal(c *gin.Context) *Principal {
	if v, exists := c.Get(PrincipalKey); exists {
		return v.(*Principal)
	}
	return nil
}
