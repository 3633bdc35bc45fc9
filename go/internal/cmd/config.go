package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/mcdev12/keeper/go/internal/sports/base"
	"gopkg.in/yaml.v3"
)

// Config is the optional config.yaml. Missing fields fall back to the
// defaults applied in loadConfig; env vars override at the point of use.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Draft struct {
		AutopickStrategy string `yaml:"autopick_strategy"`
	} `yaml:"draft"`
	Sports struct {
		EnabledPlugins []string                          `yaml:"enabled_plugins"`
		Plugins        map[string]map[string]interface{} `yaml:"plugins"`
	} `yaml:"sports"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// loadConfig reads the yaml config at path. A missing file is not an error;
// the defaults run a single-sport local setup.
func loadConfig(path string) (*Config, error) {
	var config Config
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		log.Printf("No config file at %s, using defaults", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if config.Draft.AutopickStrategy == "" {
		config.Draft.AutopickStrategy = "best_available"
	}
	if len(config.Sports.EnabledPlugins) == 0 {
		config.Sports.EnabledPlugins = []string{"nfl"}
	}
	return &config, nil
}

func setupSportsPlugins(config *Config) error {
	for _, key := range config.Sports.EnabledPlugins {
		// Initialize the plugin now that environment variables are loaded
		if err := base.InitializePlugin(key); err != nil {
			return fmt.Errorf("failed to initialize plugin %s: %w", key, err)
		}
		log.Printf("Successfully initialized plugin: %s", key)
	}
	return nil
}
