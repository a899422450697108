// Package config loads and persists application settings.
//
// Precedence: defaults < config file < environment (RPS_ prefix). A
// local .env file is honored before the environment is read.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const fileName = "config"
const fileType = "yaml"

type Config struct {
	SessionPort   int    `mapstructure:"session_port"`
	DiscoveryPort int    `mapstructure:"discovery_port"`
	Rounds        int    `mapstructure:"rounds"`
	Bind          string `mapstructure:"bind"`
	DataDir       string `mapstructure:"data_dir"`
	LogLevel      string `mapstructure:"log_level"`
}

func DefaultDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "rps-lan")
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("session_port", 51515)
	v.SetDefault("discovery_port", 12121)
	v.SetDefault("rounds", 3)
	v.SetDefault("bind", "")
	v.SetDefault("data_dir", dir)
	v.SetDefault("log_level", "info")
}

// Load reads settings from dir (DefaultDir when empty). A missing
// config file is fine; defaults and environment fill in.
func Load(dir string) (*Config, error) {
	_ = godotenv.Load()

	if dir == "" {
		dir = DefaultDir()
	}

	v := viper.New()
	v.SetConfigName(fileName)
	v.SetConfigType(fileType)
	v.AddConfigPath(dir)
	v.SetEnvPrefix("RPS")
	v.AutomaticEnv()
	setDefaults(v, dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Rounds < 1 || c.Rounds > 5 {
		return fmt.Errorf("rounds must be between 1 and 5, got %d", c.Rounds)
	}
	if c.SessionPort < 0 || c.SessionPort > 65535 {
		return fmt.Errorf("session_port out of range: %d", c.SessionPort)
	}
	if c.DiscoveryPort < 0 || c.DiscoveryPort > 65535 {
		return fmt.Errorf("discovery_port out of range: %d", c.DiscoveryPort)
	}
	return nil
}

// Save writes the settings back to dir, creating it if needed.
func (c *Config) Save(dir string) error {
	if err := c.validate(); err != nil {
		return err
	}
	if dir == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	v := viper.New()
	v.Set("session_port", c.SessionPort)
	v.Set("discovery_port", c.DiscoveryPort)
	v.Set("rounds", c.Rounds)
	v.Set("bind", c.Bind)
	v.Set("data_dir", c.DataDir)
	v.Set("log_level", c.LogLevel)
	if err := v.WriteConfigAs(filepath.Join(dir, fileName+"."+fileType)); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
