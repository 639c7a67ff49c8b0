/*
Package config manages TOML config for NextServe services.
*/
package config

import (
	"os"
	"path/filepath"

	"github.com/bastiangx/nextserve/internal/utils"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Store   StoreConfig   `toml:"store"`
	Predict PredictConfig `toml:"predict"`
}

// ServerConfig has server related options.
type ServerConfig struct {
	MaxLimit     int  `toml:"max_limit"`
	MinPrefix    int  `toml:"min_prefix"`
	MaxPrefix    int  `toml:"max_prefix"`
	EnableFilter bool `toml:"enable_filter"`
	Capitalize   bool `toml:"capitalize"`
}

// StoreConfig locates the n-gram store and the user dictionary.
type StoreConfig struct {
	Path         string `toml:"path"`
	UserDictPath string `toml:"user_dict_path"`
	RecordNew    bool   `toml:"record_new"`
}

// PredictConfig holds prediction defaults.
type PredictConfig struct {
	DefaultLimit int `toml:"default_limit"`
	MaxContext   int `toml:"max_context"`
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
// 4. builtin defaults
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		execDir, execErr := utils.GetExecutableDir()
		if execErr != nil {
			return "", execErr
		}
		return execDir, nil
	}
	primaryPath := filepath.Join(homeDir, ".config", "nextserve")
	if utils.DirWritable(primaryPath) {
		return primaryPath, nil
	}
	// Not conventional, fallback from ~/.config if not writable
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "nextserve")
	if utils.DirWritable(macOSPath) {
		return macOSPath, nil
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
// 2. Default path: [UserConfigDir]/nextserve/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	var config *Config
	var err error

	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err = LoadConfig(customConfigPath)
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

	config, err = InitConfig(defaultPath)
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
			MaxLimit:     64,
			MinPrefix:    1,
			MaxPrefix:    60,
			EnableFilter: true,
			Capitalize:   true,
		},
		Store: StoreConfig{
			Path:         "ngrams.db",
			UserDictPath: "userdict.db",
			RecordNew:    true,
		},
		Predict: PredictConfig{
			DefaultLimit: 8,
			MaxContext:   2,
		},
	}
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
	config.clamp()
	return config, nil
}

// tryPartialParse salvages whatever valid sections a broken file still has
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
	if storeSection, ok := utils.ExtractSection(tempConfig, "store"); ok {
		extractStoreConfig(storeSection, &config.Store)
	}
	if predictSection, ok := utils.ExtractSection(tempConfig, "predict"); ok {
		extractPredictConfig(predictSection, &config.Predict)
	}
	config.clamp()
	return config, nil
}

// extractServerConfig extracts server configuration from a map
func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		server.MaxLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "min_prefix"); ok {
		server.MinPrefix = val
	}
	if val, ok := utils.ExtractInt64(data, "max_prefix"); ok {
		server.MaxPrefix = val
	}
	if val, ok := utils.ExtractBool(data, "enable_filter"); ok {
		server.EnableFilter = val
	}
	if val, ok := utils.ExtractBool(data, "capitalize"); ok {
		server.Capitalize = val
	}
}

// extractStoreConfig extracts store paths from a map
func extractStoreConfig(data map[string]any, store *StoreConfig) {
	if val, ok := utils.ExtractString(data, "path"); ok {
		store.Path = val
	}
	if val, ok := utils.ExtractString(data, "user_dict_path"); ok {
		store.UserDictPath = val
	}
	if val, ok := utils.ExtractBool(data, "record_new"); ok {
		store.RecordNew = val
	}
}

// extractPredictConfig extracts prediction defaults from a map
func extractPredictConfig(data map[string]any, predict *PredictConfig) {
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		predict.DefaultLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "max_context"); ok {
		predict.MaxContext = val
	}
}

// clamp keeps loaded values inside workable bounds instead of failing the
// whole file over one bad number.
func (c *Config) clamp() {
	def := DefaultConfig()
	if c.Server.MaxLimit < 1 || c.Server.MaxLimit > 256 {
		c.Server.MaxLimit = def.Server.MaxLimit
	}
	if c.Server.MinPrefix < 0 {
		c.Server.MinPrefix = def.Server.MinPrefix
	}
	if c.Server.MaxPrefix < c.Server.MinPrefix || c.Server.MaxPrefix > 256 {
		c.Server.MaxPrefix = def.Server.MaxPrefix
	}
	if c.Predict.DefaultLimit < 1 {
		c.Predict.DefaultLimit = def.Predict.DefaultLimit
	}
	if c.Predict.DefaultLimit > c.Server.MaxLimit {
		c.Predict.DefaultLimit = c.Server.MaxLimit
	}
	if c.Predict.MaxContext < 0 || c.Predict.MaxContext > 2 {
		c.Predict.MaxContext = def.Predict.MaxContext
	}
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	configDir := filepath.Dir(defaultPath)
	if err := utils.EnsureDir(configDir); err != nil {
		return err
	}
	config := DefaultConfig()
	return utils.SaveTOMLFile(config, defaultPath)
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

// ApplyRuntime changes server config values in place and re-clamps, without
// touching the file. Nil fields are left as they are.
func (c *Config) ApplyRuntime(maxLimit, minPrefix, maxPrefix *int, enableFilter *bool) {
	server := &c.Server
	if maxLimit != nil {
		server.MaxLimit = *maxLimit
	}
	if minPrefix != nil {
		server.MinPrefix = *minPrefix
	}
	if maxPrefix != nil {
		server.MaxPrefix = *maxPrefix
	}
	if enableFilter != nil {
		server.EnableFilter = *enableFilter
	}
	c.clamp()
}

// Update changes the server config values and saves to file
func (c *Config) Update(configPath string, maxLimit, minPrefix, maxPrefix *int, enableFilter *bool) error {
	c.ApplyRuntime(maxLimit, minPrefix, maxPrefix, enableFilter)
	return SaveConfig(c, configPath)
}
