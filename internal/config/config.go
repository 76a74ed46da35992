package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config is the full server configuration, sourced from JAM_* environment
// variables (optionally via a .env file loaded in main).
type Config struct {
	Server struct {
		Addr     string `mapstructure:"addr"`
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"server"`
	Database struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		Disabled bool   `mapstructure:"disabled"`
	} `mapstructure:"database"`
}

func Load() (*Config, error) {
	viper.SetEnvPrefix("JAM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.BindEnv("server.addr")
	viper.BindEnv("server.log_level")
	viper.BindEnv("database.host")
	viper.BindEnv("database.port")
	viper.BindEnv("database.user")
	viper.BindEnv("database.password")
	viper.BindEnv("database.name")
	viper.BindEnv("database.disabled")

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.user", "jamsync")
	viper.SetDefault("database.name", "jamsync")
	viper.SetDefault("database.disabled", false)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
