package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/postboard/config"
	"github.com/cppla/postboard/services"
	"github.com/cppla/postboard/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextTokenKey stores the raw bearer token, used by logout.
	ContextTokenKey = "token"
	// ContextClaimsKey stores the parsed *utils.Claims.
	ContextClaimsKey = "claims"
)

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.GetHeader("Authorization") == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			ctx.Abort()
			return
		}
		if !authenticate(ctx) {
			return
		}
		ctx.Next()
	}
}

// OptionalAuth attaches the identity when a bearer token is present and lets anonymous
// requests through. A token that is present but invalid is still rejected.
func OptionalAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.GetHeader("Authorization") != "" && !authenticate(ctx) {
			return
		}
		ctx.Next()
	}
}

// AdminRequired must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !CurrentIdentity(ctx).Admin {
			utils.Error(ctx, http.StatusForbidden, 40301, "admin only")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// CurrentIdentity returns the caller attached by the auth middleware, or services.Anonymous.
func CurrentIdentity(ctx *gin.Context) services.Identity {
	id := ctx.GetUint(ContextUserIDKey)
	if id == 0 {
		return services.Anonymous
	}
	username := ctx.GetString(ContextUsernameKey)
	return services.Identity{
		UserID:   id,
		Username: username,
		Admin:    config.Get().IsAdmin(username),
	}
}

// authenticate validates the bearer token and stores the identity. On failure it has
// already answered and aborted.
func authenticate(ctx *gin.Context) bool {
	parts := strings.SplitN(ctx.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
		ctx.Abort()
		return false
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
		ctx.Abort()
		return false
	}

	if utils.IsTokenBlacklisted(tokenString) {
		utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
		ctx.Abort()
		return false
	}

	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		ctx.Abort()
		return false
	}

	ctx.Set(ContextUserIDKey, claims.UserID)
	ctx.Set(ContextUsernameKey, claims.Username)
	ctx.Set(ContextTokenKey, tokenString)
	ctx.Set(ContextClaimsKey, claims)
	return true
}
