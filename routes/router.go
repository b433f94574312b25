package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/postboard/config"
	"github.com/cppla/postboard/controllers"
	"github.com/cppla/postboard/middleware"
	"github.com/cppla/postboard/models"
	"github.com/cppla/postboard/services"
	"github.com/cppla/postboard/utils"
)

// Services bundles the domain services behind the HTTP layer.
type Services struct {
	Messages *services.MessageService
	Posts    *services.PostService
	Assets   *services.AssetService
	Users    *services.UserService
	Stats    *services.StatsService
}

// NewServices builds every service on db with the configured media store.
func NewServices(db *gorm.DB, cfg config.AppConfig, logger *zap.Logger) *Services {
	grace := time.Duration(cfg.AssetGraceMinutes) * time.Minute
	store := utils.NewAssetStore(cfg.MediaRoot, cfg.MediaURL, int64(cfg.MaxUploadMB)<<20)
	return &Services{
		Messages: services.NewMessageService(db, logger.Named("messages")),
		Posts:    services.NewPostService(db, logger.Named("posts"), grace),
		Assets:   services.NewAssetService(db, store, logger.Named("assets"), grace),
		Users:    services.NewUserService(db, logger.Named("users"), grace),
		Stats:    services.NewStatsService(db),
	}
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, svc *Services, logger *zap.Logger) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log goes to its own rolling file when configured
	accessLog := logger
	if cfg.GinPath != "" {
		if gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg); err == nil {
			accessLog = gl
		} else {
			logger.Warn("access log unavailable, using application logger", zap.Error(err))
		}
	}
	r.Use(ginzap.Ginzap(accessLog, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(accessLog, true))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Location"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		// credentials cannot be combined with a wildcard origin
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	// images are already compressed
	excluded := []string{"/metrics"}
	if cfg.MediaURL != "" {
		excluded = append(excluded, cfg.MediaURL)
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths(excluded)))

	if cfg.MetricsEnabled {
		r.Use(middleware.Metrics())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	if cfg.MediaURL != "" && cfg.MediaRoot != "" {
		r.Static(cfg.MediaURL, cfg.MediaRoot)
	}

	pagesController := controllers.NewPagesController()
	authController := controllers.NewAuthController(svc.Users, logger.Named("auth"))
	messageController := controllers.NewMessageController(svc.Messages, logger.Named("messages"))
	postController := controllers.NewPostController(svc.Posts, svc.Assets, logger.Named("posts"))
	statsController := controllers.NewStatsController(svc.Stats, logger.Named("stats"))
	adminController := controllers.NewAdminController(svc.Messages, svc.Users, logger.Named("admin"))

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	viewLog := logger.Named("views")

	r.GET("/health", pagesController.Health)

	api := r.Group("/api/v1")
	api.GET("/pages/home", pagesController.Home)
	api.GET("/pages/about", pagesController.About)

	authGroup := api.Group("/auth")
	authGroup.Use(limiter.Middleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.DELETE("/me", middleware.AuthRequired(), authController.DeleteAccount)

	api.GET("/messages", messageController.ListMessages)
	api.GET("/messages/:id", middleware.ViewCounter(svc.Stats, models.KindMessage, viewLog), messageController.GetMessage)
	api.GET("/messages/:id/stats", statsController.GetMessageStats)
	api.GET("/posts", postController.ListPosts)
	api.GET("/posts/:id", middleware.ViewCounter(svc.Stats, models.KindPost, viewLog), postController.GetPost)
	api.GET("/posts/:id/stats", statsController.GetPostStats)
	api.GET("/users/:id/posts", postController.ListUserPosts)
	api.GET("/users/:id/messages", messageController.ListUserMessages)
	api.GET("/stats", statsController.GetStats)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), limiter.Middleware())
	protected.POST("/messages", messageController.CreateMessage)
	protected.PUT("/messages/:id", messageController.UpdateMessage)
	protected.PATCH("/messages/:id", messageController.UpdateMessage)
	protected.DELETE("/messages/:id", messageController.DeleteMessage)
	protected.POST("/posts", postController.CreatePost)
	protected.PUT("/posts/:id", postController.UpdatePost)
	protected.PATCH("/posts/:id", postController.UpdatePost)
	protected.DELETE("/posts/:id", postController.DeletePost)
	protected.POST("/uploads", postController.UploadImage)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
	admin.GET("/messages", adminController.ListMessages)
	admin.GET("/messages/:id", adminController.GetMessage)
	admin.PUT("/messages/:id", adminController.UpdateMessage)
	admin.PATCH("/messages/:id", adminController.UpdateMessage)
	admin.DELETE("/messages/:id", adminController.DeleteMessage)
	admin.GET("/users", adminController.ListUsers)
	admin.DELETE("/users/:id", adminController.DeleteUser)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
