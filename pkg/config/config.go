package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v2"
)

// Config is shared by the CLI and the gateway.
type Config struct {
	API struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"api"`
	Session struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"session"`
	Gateway struct {
		Addr string `yaml:"addr"`
	} `yaml:"gateway"`
}

func Default() *Config {
	cfg := &Config{}
	cfg.API.BaseURL = "http://localhost:8080/api/v1"
	// an empty DSN lets database.Open pick the default for the driver
	cfg.Session.Driver = "sqlite"
	cfg.Gateway.Addr = ":8090"
	return cfg
}

// Load reads filename on top of the defaults, then applies environment
// overrides. A missing file is not an error.
func Load(filename string) (*Config, error) {
	cfg := Default()

	if filename != "" {
		data, err := os.ReadFile(filename)
		switch {
		case os.IsNotExist(err):
			log.Printf("Config file %s not found, using defaults", filename)
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.API.BaseURL = getEnv("LIBRARY_API_URL", cfg.API.BaseURL)
	cfg.Session.Driver = getEnv("LIBRARY_SESSION_DRIVER", cfg.Session.Driver)
	cfg.Session.DSN = getEnv("LIBRARY_SESSION_DSN", cfg.Session.DSN)
	cfg.Gateway.Addr = getEnv("GATEWAY_ADDR", cfg.Gateway.Addr)

	if cfg.Session.Driver != "sqlite" && cfg.Session.Driver != "postgres" {
		return nil, fmt.Errorf("unsupported session driver %q", cfg.Session.Driver)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
