package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/99designs/keyring"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"

	"alignstudio/internal/config"
	"alignstudio/internal/database"
	"alignstudio/internal/llm/client"
	"alignstudio/internal/logging"
	"alignstudio/internal/services"
)

// env holds the services shared by every subcommand.
type env struct {
	cfg        *config.Config
	log        *zap.Logger
	db         *services.DbServices
	keys       *services.KeyringService
	comparison *services.ComparisonService
	close      func() error
}

var (
	dbPath   string
	logLevel string
	current  *env
)

var rootCmd = &cobra.Command{
	Use:   "alignctl",
	Short: "Run and inspect Alignment Studio experiments from the terminal",
	Long: `alignctl shares the Alignment Studio database and keyring.

Available subcommands:
  scenarios - List, show and import scenarios
  models    - List the model catalog
  keys      - Manage provider API keys
  run       - Run a scenario against two models`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		current = e
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if current == nil {
			return nil
		}
		_ = current.log.Sync()
		return current.close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the SQLite database (defaults to the app data directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(scenariosCmd, modelsCmd, keysCmd, runCmd)
}

func setup(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	} else if !cfg.Debug {
		level = "warn"
	}
	log, err := logging.New(logging.Config{Level: level, Encoding: "console", OutputPath: "stderr"})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	db, err := database.Init(database.Config{Path: cfg.DBPath, LogLevel: logger.Silent, Logger: log})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	ring, err := services.OpenSystemKeyring(true)
	if err != nil {
		log.Warn("OS keyring unavailable, using environment keys only", zap.Error(err))
		ring = keyring.NewArrayKeyring(nil)
	}
	keys := services.NewKeyringService(ring, cfg.ProviderFallbacks())

	dbServices := services.NewDbServices(db, log.Named("services"))
	if err := dbServices.StartDbServices(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	comparison := services.NewComparisonService(client.NewDispatcher(log.Named("llm")), keys, dbServices.Scenarios, dbServices.ModelConfigs, log.Named("runner"))
	comparison.SetCallTimeout(cfg.CallTimeout)
	if err := comparison.Startup(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if settings, err := dbServices.AppSettings.Get(ctx); err == nil {
		comparison.ApplySettings(settings)
	}

	return &env{
		cfg:        cfg,
		log:        log,
		db:         dbServices,
		keys:       keys,
		comparison: comparison,
		close:      sqlDB.Close,
	}, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
