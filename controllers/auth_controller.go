package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/postboard/config"
	"github.com/cppla/postboard/middleware"
	"github.com/cppla/postboard/models"
	"github.com/cppla/postboard/services"
	"github.com/cppla/postboard/utils"
)

// Accounts is the account management used by the auth endpoints.
type Accounts interface {
	Register(ctx context.Context, in services.RegisterInput) (models.User, error)
	Authenticate(ctx context.Context, username, password string) (models.User, error)
	Get(ctx context.Context, id uint) (models.User, error)
	List(ctx context.Context, who services.Identity, page int) (services.Page[models.User], error)
	FindOrCreateOAuth(ctx context.Context, p services.OAuthProfile) (models.User, error)
	Delete(ctx context.Context, who services.Identity, id uint) error
}

// AuthController handles authentication related endpoints including local and third-party providers.
type AuthController struct {
	users Accounts
	log   *zap.Logger
}

// NewAuthController creates an AuthController.
func NewAuthController(users Accounts, logger *zap.Logger) *AuthController {
	return &AuthController{users: users, log: logger}
}

// Register handles local account registration with bcrypt hashing.
func (a *AuthController) Register(ctx *gin.Context) {
	var req services.RegisterInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	user, err := a.users.Register(ctx.Request.Context(), req)
	if err != nil {
		respondServiceError(ctx, a.log, err)
		return
	}
	a.issueToken(ctx, http.StatusCreated, user)
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}
	user, err := a.users.Authenticate(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondServiceError(ctx, a.log, err)
		return
	}
	a.issueToken(ctx, http.StatusOK, user)
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	expiresAt := time.Now().Add(utils.TokenTTL())
	if claims, ok := ctx.Get(middleware.ContextClaimsKey); ok {
		if c, ok := claims.(*utils.Claims); ok && c.ExpiresAt != nil {
			expiresAt = c.ExpiresAt.Time
		}
	}
	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	who := middleware.CurrentIdentity(ctx)
	user, err := a.users.Get(ctx.Request.Context(), who.UserID)
	if err != nil {
		respondServiceError(ctx, a.log, err)
		return
	}
	utils.Success(ctx, userResponse(user, who.Admin))
}

// DeleteAccount removes the caller's account with everything they wrote, then revokes the token.
func (a *AuthController) DeleteAccount(ctx *gin.Context) {
	who := middleware.CurrentIdentity(ctx)
	if err := a.users.Delete(ctx.Request.Context(), who, who.UserID); err != nil {
		respondServiceError(ctx, a.log, err)
		return
	}
	a.Logout(ctx)
}

func (a *AuthController) issueToken(ctx *gin.Context, status int, user models.User) {
	token, err := utils.GenerateToken(user.ID, user.Username, utils.TokenTTL())
	if err != nil {
		a.log.Error("token generation failed", zap.Uint("user_id", user.ID), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to generate token")
		return
	}
	message := "success"
	if status == http.StatusCreated {
		message = "created"
	}
	utils.Respond(ctx, status, 0, message, gin.H{
		"token": token,
		"user":  userResponse(user, config.Get().IsAdmin(user.Username)),
	})
}

// userResponse includes is_admin for authenticated responses.
func userResponse(user models.User, admin bool) gin.H {
	return gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"avatar_url": user.AvatarURL,
		"created_at": user.CreatedAt,
		"is_admin":   admin,
	}
}
