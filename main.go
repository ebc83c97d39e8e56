package main

import (
	"context"
	"embed"
	"fmt"
	"os"

	"github.com/99designs/keyring"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"

	"alignstudio/internal/config"
	"alignstudio/internal/database"
	"alignstudio/internal/events"
	"alignstudio/internal/llm/client"
	"alignstudio/internal/logging"
	"alignstudio/internal/services"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading configuration:", err)
		os.Exit(1)
	}

	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error creating logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	gormLevel := logger.Warn
	if cfg.Debug {
		gormLevel = logger.Info
	}
	db, err := database.Init(database.Config{
		Path:     cfg.DBPath,
		LogLevel: gormLevel,
		Logger:   log,
	})
	if err != nil {
		log.Error("failed to open database", zap.Error(err))
		return
	}

	ring, err := services.OpenSystemKeyring(false)
	if err != nil {
		log.Warn("OS keyring unavailable, keys will only live for this session", zap.Error(err))
		ring = keyring.NewArrayKeyring(nil)
	}

	//Create each service
	keyringService := services.NewKeyringService(ring, cfg.ProviderFallbacks())
	dbService := services.NewDbServices(db, log.Named("services"))
	dispatcher := client.NewDispatcher(log.Named("llm"))
	comparisonService := services.NewComparisonService(dispatcher, keyringService, dbService.Scenarios, dbService.ModelConfigs, log.Named("runner"))
	comparisonService.SetCallTimeout(cfg.CallTimeout)

	app := NewApp(log, cfg, db, dbService, comparisonService, keyringService)
	events.EnableRuntimeEmitter()

	err = wails.Run(&options.App{
		Title:  "Alignment Studio",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		Linux: &linux.Options{
			WindowIsTranslucent: false,
			WebviewGpuPolicy:    linux.WebviewGpuPolicyAlways,
			ProgramName:         "Alignment Studio",
		},
		BackgroundColour: &options.RGBA{R: 248, G: 250, B: 252, A: 1},
		OnStartup: func(ctx context.Context) {
			app.startup(ctx)
		},
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
			comparisonService,
			keyringService,
		},
	})

	if err != nil {
		log.Error("wails run failed", zap.Error(err))
	}
}
