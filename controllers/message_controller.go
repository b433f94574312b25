package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/postboard/middleware"
	"github.com/cppla/postboard/models"
	"github.com/cppla/postboard/services"
	"github.com/cppla/postboard/utils"
)

// MessageStore is the message lifecycle as the HTTP layer uses it.
type MessageStore interface {
	List(ctx context.Context, f services.MessageFilter) ([]models.Message, error)
	Get(ctx context.Context, id uint) (models.Message, error)
	Create(ctx context.Context, who services.Identity, in services.MessageInput) (models.Message, error)
	Update(ctx context.Context, who services.Identity, id uint, patch services.MessageUpdate) (models.Message, error)
	Delete(ctx context.Context, who services.Identity, id uint) error
}

// MessageController serves the public message board.
type MessageController struct {
	messages MessageStore
	log      *zap.Logger
}

func NewMessageController(messages MessageStore, logger *zap.Logger) *MessageController {
	return &MessageController{messages: messages, log: logger}
}

// ListMessages returns every message, newest first. ?is_active narrows by visibility.
func (m *MessageController) ListMessages(ctx *gin.Context) {
	filter, ok := messageFilter(ctx)
	if !ok {
		return
	}
	msgs, err := m.messages.List(ctx.Request.Context(), filter)
	if err != nil {
		respondServiceError(ctx, m.log, err)
		return
	}
	utils.Success(ctx, gin.H{"items": msgs, "total": len(msgs)})
}

// ListUserMessages returns the messages written by one user.
func (m *MessageController) ListUserMessages(ctx *gin.Context) {
	userID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	filter, ok := messageFilter(ctx)
	if !ok {
		return
	}
	filter.AuthorID = userID
	msgs, err := m.messages.List(ctx.Request.Context(), filter)
	if err != nil {
		respondServiceError(ctx, m.log, err)
		return
	}
	utils.Success(ctx, gin.H{"items": msgs, "total": len(msgs)})
}

// GetMessage returns one message.
func (m *MessageController) GetMessage(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	msg, err := m.messages.Get(ctx.Request.Context(), id)
	if err != nil {
		respondServiceError(ctx, m.log, err)
		return
	}
	utils.Success(ctx, msg)
}

// CreateMessage stores a message authored by the caller. Any author in the body is ignored.
func (m *MessageController) CreateMessage(ctx *gin.Context) {
	var req services.MessageInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	msg, err := m.messages.Create(ctx.Request.Context(), middleware.CurrentIdentity(ctx), req)
	if err != nil {
		respondServiceError(ctx, m.log, err)
		return
	}
	utils.Created(ctx, msg.Path(), msg)
}

// UpdateMessage overwrites the fields present in the body. Only the author may do this.
func (m *MessageController) UpdateMessage(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req services.MessageUpdate
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	msg, err := m.messages.Update(ctx.Request.Context(), middleware.CurrentIdentity(ctx), id, req)
	if err != nil {
		respondServiceError(ctx, m.log, err)
		return
	}
	utils.Success(ctx, msg)
}

// DeleteMessage removes a message. Only the author may do this.
func (m *MessageController) DeleteMessage(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := m.messages.Delete(ctx.Request.Context(), middleware.CurrentIdentity(ctx), id); err != nil {
		respondServiceError(ctx, m.log, err)
		return
	}
	utils.Success(ctx, gin.H{"id": id, "deleted": true})
}

// messageFilter reads the listing query parameters. On a malformed value it has already answered.
func messageFilter(ctx *gin.Context) (services.MessageFilter, bool) {
	f := services.MessageFilter{
		Author: strings.TrimSpace(ctx.Query("author")),
		Search: strings.TrimSpace(ctx.Query("search")),
		Date:   strings.TrimSpace(ctx.Query("date")),
	}
	if raw := strings.TrimSpace(ctx.Query("is_active")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			utils.ErrorWithData(ctx, http.StatusBadRequest, 40000, "invalid input", &services.ValidationError{
				Fields: []services.FieldError{{Field: "is_active", Message: "must be true or false"}},
			})
			return f, false
		}
		f.Active = &active
	}
	return f, true
}
