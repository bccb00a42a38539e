/*
Package config manages TOML config for wordtree services.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bastiangx/wordtree/internal/utils"
	"github.com/bastiangx/wordtree/pkg/dictionary"
	"github.com/bastiangx/wordtree/pkg/suggest"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Server ServerConfig `toml:"server"`
	Engine EngineConfig `toml:"engine"`
	Dict   DictConfig   `toml:"dict"`
	CLI    CliConfig    `toml:"cli"`
}

// ServerConfig has HTTP adapter options.
type ServerConfig struct {
	Addr            string `toml:"addr"`
	MaxLimit        int    `toml:"max_limit"`
	MaxPrefix       int    `toml:"max_prefix"`
	AllowOrigin     string `toml:"allow_origin"`
	ShutdownTimeout int    `toml:"shutdown_timeout_sec"`
}

// EngineConfig selects and tunes the prefix engine.
type EngineConfig struct {
	Strategy      string `toml:"strategy"`
	Limit         int    `toml:"limit"`
	CaseSensitive bool   `toml:"case_sensitive"`
}

// DictConfig holds term source options.
type DictConfig struct {
	Path      string `toml:"path"`
	RedisAddr string `toml:"redis_addr"`
	RedisKey  string `toml:"redis_key"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit int `toml:"default_limit"`
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. Current executable dir
// 3. builtin defaults
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", "wordtree")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/wordtree/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":7000",
			MaxLimit:        64,
			MaxPrefix:       60,
			AllowOrigin:     "*",
			ShutdownTimeout: 5,
		},
		Engine: EngineConfig{
			Strategy:      string(suggest.StrategyTrie),
			Limit:         10,
			CaseSensitive: false,
		},
		Dict: DictConfig{
			Path:     "data/",
			RedisKey: dictionary.DefaultRedisKey,
		},
		CLI: CliConfig{
			DefaultLimit: 10,
		},
	}
}

// Validate rejects values the services cannot run with.
func (c *Config) Validate() error {
	if _, err := suggest.ParseStrategy(c.Engine.Strategy); err != nil {
		return fmt.Errorf("engine.strategy: %w", err)
	}
	if c.Engine.Limit <= 0 {
		return fmt.Errorf("engine.limit must be positive, got %d", c.Engine.Limit)
	}
	if c.CLI.DefaultLimit <= 0 {
		return fmt.Errorf("cli.default_limit must be positive, got %d", c.CLI.DefaultLimit)
	}
	if c.Server.MaxLimit < c.Engine.Limit {
		return fmt.Errorf("server.max_limit (%d) is below engine.limit (%d)", c.Server.MaxLimit, c.Engine.Limit)
	}
	if c.Server.MaxPrefix <= 0 {
		return fmt.Errorf("server.max_prefix must be positive, got %d", c.Server.MaxPrefix)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is empty")
	}
	return nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse keeps every section that decodes and defaults the rest
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if serverSection, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(serverSection, &config.Server)
	}
	if engineSection, ok := utils.ExtractSection(tempConfig, "engine"); ok {
		extractEngineConfig(engineSection, &config.Engine)
	}
	if dictSection, ok := utils.ExtractSection(tempConfig, "dict"); ok {
		extractDictConfig(dictSection, &config.Dict)
	}
	if cliSection, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(cliSection, &config.CLI)
	}
	return config, nil
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractString(data, "addr"); ok {
		server.Addr = val
	}
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		server.MaxLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "max_prefix"); ok {
		server.MaxPrefix = val
	}
	if val, ok := utils.ExtractString(data, "allow_origin"); ok {
		server.AllowOrigin = val
	}
	if val, ok := utils.ExtractInt64(data, "shutdown_timeout_sec"); ok {
		server.ShutdownTimeout = val
	}
}

func extractEngineConfig(data map[string]any, engine *EngineConfig) {
	if val, ok := utils.ExtractString(data, "strategy"); ok {
		engine.Strategy = val
	}
	if val, ok := utils.ExtractInt64(data, "limit"); ok {
		engine.Limit = val
	}
	if val, ok := utils.ExtractBool(data, "case_sensitive"); ok {
		engine.CaseSensitive = val
	}
}

func extractDictConfig(data map[string]any, dict *DictConfig) {
	if val, ok := utils.ExtractString(data, "path"); ok {
		dict.Path = val
	}
	if val, ok := utils.ExtractString(data, "redis_addr"); ok {
		dict.RedisAddr = val
	}
	if val, ok := utils.ExtractString(data, "redis_key"); ok {
		dict.RedisKey = val
	}
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		cli.DefaultLimit = val
	}
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
