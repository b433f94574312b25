package controllers

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/postboard/models"
	"github.com/cppla/postboard/services"
	"github.com/cppla/postboard/utils"
)

// StatsReader reports board counters.
type StatsReader interface {
	Totals(ctx context.Context) (services.Totals, error)
	ObjectStats(ctx context.Context, kind string, id uint) (services.ObjectStats, error)
}

// StatsController provides board statistics such as counts and daily views.
type StatsController struct {
	stats StatsReader
	log   *zap.Logger
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(stats StatsReader, logger *zap.Logger) *StatsController {
	return &StatsController{stats: stats, log: logger}
}

// GetStats returns aggregate statistics for the board.
func (s *StatsController) GetStats(ctx *gin.Context) {
	totals, err := s.stats.Totals(ctx.Request.Context())
	if err != nil {
		respondServiceError(ctx, s.log, err)
		return
	}
	utils.Success(ctx, totals)
}

// GetPostStats returns the detail views of one post.
func (s *StatsController) GetPostStats(ctx *gin.Context) {
	s.objectStats(ctx, models.KindPost)
}

// GetMessageStats returns the detail views of one message.
func (s *StatsController) GetMessageStats(ctx *gin.Context) {
	s.objectStats(ctx, models.KindMessage)
}

func (s *StatsController) objectStats(ctx *gin.Context, kind string) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	out, err := s.stats.ObjectStats(ctx.Request.Context(), kind, id)
	if err != nil {
		respondServiceError(ctx, s.log, err)
		return
	}
	utils.Success(ctx, out)
}
