package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/postboard/services"
	"github.com/cppla/postboard/utils"
)

// parseID reads a positive numeric path parameter. Anything else names no record.
func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
		return 0, false
	}
	return uint(id), true
}

// parsePage reads ?page=, treating a missing or malformed value as the first page.
func parsePage(ctx *gin.Context) int {
	if p, err := strconv.Atoi(strings.TrimSpace(ctx.Query("page"))); err == nil && p > 0 {
		return p
	}
	return 1
}

// respondServiceError maps service errors onto the response envelope.
func respondServiceError(ctx *gin.Context, log *zap.Logger, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.ErrorWithData(ctx, http.StatusBadRequest, 40000, "invalid input", verr)
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	case errors.Is(err, services.ErrUnauthorized):
		utils.Error(ctx, http.StatusUnauthorized, 40100, "authentication required")
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
	case errors.Is(err, services.ErrForbidden):
		utils.Error(ctx, http.StatusForbidden, 40300, "forbidden")
	case errors.Is(err, services.ErrConflict):
		utils.Error(ctx, http.StatusConflict, 40900, "already exists")
	default:
		log.Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	}
}
