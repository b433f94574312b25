package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/postboard/middleware"
	"github.com/cppla/postboard/models"
	"github.com/cppla/postboard/services"
	"github.com/cppla/postboard/utils"
)

// MessageModeration is the administrator side of the message lifecycle.
type MessageModeration interface {
	List(ctx context.Context, f services.MessageFilter) ([]models.Message, error)
	Get(ctx context.Context, id uint) (models.Message, error)
	AdminUpdate(ctx context.Context, who services.Identity, id uint, patch services.MessageUpdate) (models.Message, error)
	AdminDelete(ctx context.Context, who services.Identity, id uint) error
}

// AdminController is the moderation backend. Routes are mounted behind AdminRequired.
type AdminController struct {
	messages MessageModeration
	users    Accounts
	log      *zap.Logger
}

func NewAdminController(messages MessageModeration, users Accounts, logger *zap.Logger) *AdminController {
	return &AdminController{messages: messages, users: users, log: logger}
}

// ListMessages lists messages with the is_active, author, search and date filters.
func (a *AdminController) ListMessages(ctx *gin.Context) {
	filter, ok := messageFilter(ctx)
	if !ok {
		return
	}
	msgs, err := a.messages.List(ctx.Request.Context(), filter)
	if err != nil {
		respondServiceError(ctx, a.log, err)
		return
	}
	utils.Success(ctx, gin.H{"items": msgs, "total": len(msgs)})
}

func (a *AdminController) GetMessage(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	msg, err := a.messages.Get(ctx.Request.Context(), id)
	if err != nil {
		respondServiceError(ctx, a.log, err)
		return
	}
	utils.Success(ctx, msg)
}

// UpdateMessage edits title, content or is_active of any message.
func (a *AdminController) UpdateMessage(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req services.MessageUpdate
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	msg, err := a.messages.AdminUpdate(ctx.Request.Context(), middleware.CurrentIdentity(ctx), id, req)
	if err != nil {
		respondServiceError(ctx, a.log, err)
		return
	}
	utils.Success(ctx, msg)
}

func (a *AdminController) DeleteMessage(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := a.messages.AdminDelete(ctx.Request.Context(), middleware.CurrentIdentity(ctx), id); err != nil {
		respondServiceError(ctx, a.log, err)
		return
	}
	utils.Success(ctx, gin.H{"id": id, "deleted": true})
}

// ListUsers returns paginated users.
func (a *AdminController) ListUsers(ctx *gin.Context) {
	page, err := a.users.List(ctx.Request.Context(), middleware.CurrentIdentity(ctx), parsePage(ctx))
	if err != nil {
		respondServiceError(ctx, a.log, err)
		return
	}
	utils.Success(ctx, page)
}

// DeleteUser removes a user with all their posts and messages.
func (a *AdminController) DeleteUser(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := a.users.Delete(ctx.Request.Context(), middleware.CurrentIdentity(ctx), id); err != nil {
		respondServiceError(ctx, a.log, err)
		return
	}
	utils.Success(ctx, gin.H{"id": id, "deleted": true})
}
