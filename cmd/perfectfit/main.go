package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/config"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/database"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/invalidation"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/logging"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/metrics"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/syncdriver"
	"go.uber.org/zap"
)

var (
	cfgFile string
	envFile string
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "perfectfit",
		Short:        "PerfectFit tailoring shop local store",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(
		newCheckCommand(),
		newWipeCommand(),
		newResetCommand(),
		newExportCommand(),
		newPendingCommand(),
		newSyncCommand(),
		newServeCommand(),
	)
	return rootCmd
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a .env file (default: ./.env when present)")
	cmd.PersistentFlags().String("database-path", defaults.GetString(config.KeyDatabasePath), "SQLite database path")
	cmd.PersistentFlags().Bool("reset-on-mismatch", defaults.GetBool(config.KeyResetOnMismatch), "Recreate the store when its schema identity does not match")
	cmd.PersistentFlags().String("log-level", defaults.GetString(config.KeyLogLevel), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Bool("log-development", defaults.GetBool(config.KeyLogDevelopment), "Human-readable console logging")
	cmd.PersistentFlags().String("http-address", defaults.GetString(config.KeyHTTPAddress), "HTTP listen address for serve")
	cmd.PersistentFlags().Int("sync-batch-size", defaults.GetInt(config.KeySyncBatchSize), "Rows per table in one sync upload")
	cmd.PersistentFlags().String("sync-remote-url", defaults.GetString(config.KeySyncRemoteURL), "Sync service endpoint")
	cmd.PersistentFlags().Duration("sync-interval", defaults.GetDuration(config.KeySyncInterval), "Background sync interval while serving (0 disables)")

	bindFlag(cmd, config.KeyDatabasePath, "database-path")
	bindFlag(cmd, config.KeyResetOnMismatch, "reset-on-mismatch")
	bindFlag(cmd, config.KeyLogLevel, "log-level")
	bindFlag(cmd, config.KeyLogDevelopment, "log-development")
	bindFlag(cmd, config.KeyHTTPAddress, "http-address")
	bindFlag(cmd, config.KeySyncBatchSize, "sync-batch-size")
	bindFlag(cmd, config.KeySyncRemoteURL, "sync-remote-url")
	bindFlag(cmd, config.KeySyncInterval, "sync-interval")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return err
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

// app is what every subcommand works with.
type app struct {
	config    config.AppConfig
	logger    *zap.Logger
	registry  *prometheus.Registry
	metrics   *metrics.Collectors
	store     *database.Store
	syncState *syncdriver.FileState
}

func openApp(ctx context.Context) (*app, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogDevelopment)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	collectors, err := metrics.New(registry)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	bus := invalidation.NewBus(collectors)
	if err := metrics.RegisterSubscriberGauge(registry, bus.SubscriberCount); err != nil {
		_ = logger.Sync()
		return nil, err
	}

	syncState, err := syncdriver.NewFileState(syncdriver.StatePathFor(appConfig.DatabasePath))
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	store, err := database.Open(ctx, database.Options{
		Path:            appConfig.DatabasePath,
		ResetOnMismatch: appConfig.ResetOnMismatch,
		Bus:             bus,
		Logger:          logger,
	})
	if err != nil {
		logger.Error("failed to open store", zap.String("path", appConfig.DatabasePath), zap.Error(err))
		_ = logger.Sync()
		return nil, err
	}

	a := &app{
		config:    appConfig,
		logger:    logger,
		registry:  registry,
		metrics:   collectors,
		store:     store,
		syncState: syncState,
	}
	if store.Recreated() {
		if err := a.forgetSyncState(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// forgetSyncState makes the next sync pass pull every remote row again. It is
// needed whenever the store loses its rows.
func (a *app) forgetSyncState(ctx context.Context) error {
	if err := a.syncState.SaveLastSyncTimestamp(ctx, 0); err != nil {
		a.logger.Error("failed to clear sync state", zap.String("path", a.syncState.Path()), zap.Error(err))
		return err
	}
	return nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close store", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// withApp opens the store for the duration of run.
func withApp(run func(cmd *cobra.Command, a *app) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, a)
	}
}
