package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/server.yaml"

type Config struct {
	Server ServerConfig `yaml:"server" json:"server"`
	Log    LogConfig    `yaml:"log" json:"log"`
}

type ServerConfig struct {
	Address         string        `yaml:"address" json:"address"`
	BasePath        string        `yaml:"base_path" json:"base_path"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	MetricsEnabled  bool          `yaml:"metrics_enabled" json:"metrics_enabled"`
}

type LogConfig struct {
	Debug bool   `yaml:"debug" json:"debug"`
	File  string `yaml:"file" json:"file"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         "0.0.0.0:3030",
			BasePath:        "/holodeck",
			MaxBodyBytes:    16 * 1024,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			MetricsEnabled:  true,
		},
		Log: LogConfig{
			File: "logs/holodeck.log",
		},
	}
}

func LoadConfig() (*Config, error) {
	return LoadConfigFromPath(DefaultPath)
}

// LoadConfigFromPath reads the YAML file at path on top of the defaults,
// applies environment overrides and validates the result. A missing file
// is not an error.
func LoadConfigFromPath(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("HOLODECK_ADDRESS"); v != "" {
		c.Server.Address = v
	}
	if v := os.Getenv("HOLODECK_BASE_PATH"); v != "" {
		c.Server.BasePath = v
	}
	if v := os.Getenv("HOLODECK_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("HOLODECK_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid HOLODECK_DEBUG %q: %w", v, err)
		}
		c.Log.Debug = debug
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return errors.New("server address cannot be empty")
	}
	_, port, err := net.SplitHostPort(c.Server.Address)
	if err != nil {
		return fmt.Errorf("invalid server address %q: %w", c.Server.Address, err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 1 || portNum > 65535 {
		return fmt.Errorf("invalid port %q: must be between 1 and 65535", port)
	}

	bp := c.Server.BasePath
	if !strings.HasPrefix(bp, "/") || len(bp) < 2 || strings.HasSuffix(bp, "/") || strings.ContainsAny(bp, "{} ") {
		return fmt.Errorf("invalid base path %q: must look like /name", bp)
	}

	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return errors.New("read and write timeouts cannot be negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown_timeout must be positive")
	}
	return nil
}
