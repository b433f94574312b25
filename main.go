package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/cppla/postboard/config"
	"github.com/cppla/postboard/models"
	"github.com/cppla/postboard/routes"
	"github.com/cppla/postboard/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	if err := utils.InitRedis(cfg); err != nil {
		utils.Sugar.Warnf("redis unavailable, falling back to in-memory stores: %v", err)
	}

	db := config.InitDatabase(&models.User{}, &models.Message{}, &models.Post{}, &models.Asset{}, &models.ContentView{})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := routes.NewServices(db, cfg, utils.Logger)
	r := routes.SetupRouter(cfg, svc, utils.Logger)

	// Remove images nothing references any more
	svc.Assets.StartCleaner(ctx, 5*time.Minute)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(ctx, ":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
