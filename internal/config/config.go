package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Paths     PathsConfig     `mapstructure:"paths"`
	Downloads DownloadsConfig `mapstructure:"downloads"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// PathsConfig contains path-related configuration
type PathsConfig struct {
	RootDir      string `mapstructure:"root_dir"`
	RegistryFile string `mapstructure:"registry_file"`
	CacheDir     string `mapstructure:"cache_dir"`
	LogFile      string `mapstructure:"log_file"`
}

// DownloadsConfig contains download-related configuration
type DownloadsConfig struct {
	Platform    string `mapstructure:"platform"`
	KeepLatest  int    `mapstructure:"keep_latest"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
	Progress    bool   `mapstructure:"progress"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	Color string `mapstructure:"color"`
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("toml")

	homeDir, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(homeDir, ".config", "luaenv"))
	}
	viper.AddConfigPath(".")

	setDefaults()

	// Environment variable overrides
	viper.SetEnvPrefix("LUAENV")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found - use defaults
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Paths.RootDir = expandPath(cfg.Paths.RootDir)
	cfg.Paths.RegistryFile = expandPath(cfg.Paths.RegistryFile)
	cfg.Paths.CacheDir = expandPath(cfg.Paths.CacheDir)
	cfg.Paths.LogFile = expandPath(cfg.Paths.LogFile)

	// Derived defaults for paths left empty by a partial config file
	if cfg.Paths.RegistryFile == "" {
		cfg.Paths.RegistryFile = filepath.Join(cfg.Paths.RootDir, "registry.json")
	}
	if cfg.Paths.CacheDir == "" {
		cfg.Paths.CacheDir = filepath.Join(cfg.Paths.RootDir, "cache")
	}
	if cfg.Paths.LogFile == "" {
		cfg.Paths.LogFile = filepath.Join(cfg.Paths.RootDir, "luaenv.log")
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		homeDir = os.Getenv("USERPROFILE")
	}
	if homeDir == "" {
		homeDir = "."
	}

	root := filepath.Join(homeDir, ".luaenv")

	viper.SetDefault("paths.root_dir", root)
	viper.SetDefault("paths.registry_file", filepath.Join(root, "registry.json"))
	viper.SetDefault("paths.cache_dir", filepath.Join(root, "cache"))
	viper.SetDefault("paths.log_file", filepath.Join(root, "luaenv.log"))

	viper.SetDefault("downloads.platform", "windows-64")
	viper.SetDefault("downloads.keep_latest", 3)
	viper.SetDefault("downloads.timeout_secs", 600)
	viper.SetDefault("downloads.progress", true)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.color", "auto")
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) > 0 && path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[1:])
		}
	}

	path = os.ExpandEnv(path)

	return path
}
