// Package config loads the application configuration from a YAML file or
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds application-wide configuration.
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	PG        PGConfig         `mapstructure:"pg"`
	Metrics   MetricsConfig    `mapstructure:"metrics"`
	Resources []ResourceConfig `mapstructure:"resources"`
}

type ServerConfig struct {
	ListenAddr string `mapstructure:"listenAddr"`
	BaseURL    string `mapstructure:"baseURL"`
	Schema     string `mapstructure:"schema"`
}

type PGConfig struct {
	ConnString string `mapstructure:"connString"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// KeysConfig selects the key column used by each keyed operation.
type KeysConfig struct {
	Retrieve string `mapstructure:"retrieve"`
	Update   string `mapstructure:"update"`
	Delete   string `mapstructure:"delete"`
}

// ResourceConfig declares one table or view to expose as a resource.
type ResourceConfig struct {
	Table      string   `mapstructure:"table"`
	Operations []string `mapstructure:"operations"` // empty means all

	Keys KeysConfig `mapstructure:"keys"`

	ListFields     []string `mapstructure:"listFields"`
	CreateFields   []string `mapstructure:"createFields"`
	RetrieveFields []string `mapstructure:"retrieveFields"`
	UpdateFields   []string `mapstructure:"updateFields"`

	Filterable []string `mapstructure:"filterable"`
	Orderable  []string `mapstructure:"orderable"`
	Searchable []string `mapstructure:"searchable"`

	DefaultOrder string `mapstructure:"defaultOrder"`
	PageMode     string `mapstructure:"pageMode"` // auto, forced or disabled
	PageSize     int    `mapstructure:"pageSize"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr: ":8080",
		Schema:     "public",
	}
}

// Load reads config from file or environment
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("restview")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config"))
		}
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("RESTVIEW")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		fmt.Println("Using config file:", v.ConfigFileUsed())
	}

	cfg := Config{Server: DefaultServerConfig()}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &cfg, nil
}
