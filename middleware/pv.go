package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ViewRecorder is the part of services.StatsService the view counter needs.
type ViewRecorder interface {
	RecordView(ctx context.Context, kind string, id uint) error
}

// ViewCounter counts successful GETs of a detail route as one view of kind/:id.
// Mount it on the detail route only.
func ViewCounter(rec ViewRecorder, kind string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != http.MethodGet || c.Writer.Status() != http.StatusOK {
			return
		}
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil || id == 0 {
			return
		}
		// the request context may already be cancelled once the response is written
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rec.RecordView(ctx, kind, uint(id)); err != nil {
			logger.Warn("view not recorded", zap.String("kind", kind), zap.Uint64("id", id), zap.Error(err))
		}
	}
}
