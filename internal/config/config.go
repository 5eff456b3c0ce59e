package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix              = "PERFECTFIT"
	defaultHTTPAddress     = "127.0.0.1:8085"
	defaultDatabasePath    = "perfect_fit_database.db"
	defaultLogLevel        = "info"
	defaultSyncBatchSize   = 100
	defaultResetOnMismatch = false
	defaultLogDevelopment  = false
	defaultSyncRemoteURL   = ""
	defaultSyncInterval    = time.Duration(0)
)

// Viper keys.
const (
	KeyHTTPAddress     = "http.address"
	KeyDatabasePath    = "database.path"
	KeyResetOnMismatch = "database.reset_on_mismatch"
	KeyLogLevel        = "log.level"
	KeyLogDevelopment  = "log.development"
	KeySyncBatchSize   = "sync.batch_size"
	KeySyncRemoteURL   = "sync.remote_url"
	KeySyncInterval    = "sync.interval"
)

// AppConfig captures runtime configuration for the store and its tools.
type AppConfig struct {
	HTTPAddress     string
	DatabasePath    string
	ResetOnMismatch bool
	LogLevel        string
	LogDevelopment  bool
	SyncBatchSize   int
	// SyncRemoteURL is the sync service endpoint; empty disables uploads.
	SyncRemoteURL string
	// SyncInterval is the pause between background passes while serving;
	// zero disables them.
	SyncInterval time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault(KeyHTTPAddress, defaultHTTPAddress)
	configViper.SetDefault(KeyDatabasePath, defaultDatabasePath)
	configViper.SetDefault(KeyResetOnMismatch, defaultResetOnMismatch)
	configViper.SetDefault(KeyLogLevel, defaultLogLevel)
	configViper.SetDefault(KeyLogDevelopment, defaultLogDevelopment)
	configViper.SetDefault(KeySyncBatchSize, defaultSyncBatchSize)
	configViper.SetDefault(KeySyncRemoteURL, defaultSyncRemoteURL)
	configViper.SetDefault(KeySyncInterval, defaultSyncInterval)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:     configViper.GetString(KeyHTTPAddress),
		DatabasePath:    configViper.GetString(KeyDatabasePath),
		ResetOnMismatch: configViper.GetBool(KeyResetOnMismatch),
		LogLevel:        configViper.GetString(KeyLogLevel),
		LogDevelopment:  configViper.GetBool(KeyLogDevelopment),
		SyncBatchSize:   configViper.GetInt(KeySyncBatchSize),
		SyncRemoteURL:   strings.TrimSpace(configViper.GetString(KeySyncRemoteURL)),
		SyncInterval:    configViper.GetDuration(KeySyncInterval),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("%s is required", KeyDatabasePath)
	}
	if c.SyncBatchSize <= 0 {
		return fmt.Errorf("%s must be positive, got %d", KeySyncBatchSize, c.SyncBatchSize)
	}
	if c.SyncInterval < 0 {
		return fmt.Errorf("%s must not be negative, got %s", KeySyncInterval, c.SyncInterval)
	}
	if c.SyncInterval > 0 && c.SyncRemoteURL == "" {
		return fmt.Errorf("%s requires %s", KeySyncInterval, KeySyncRemoteURL)
	}
	return nil
}
