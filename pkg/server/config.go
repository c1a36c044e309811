package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config is the gateway configuration, loaded from a TOML file.
type Config struct {
	Server   ServerSection   `toml:"server"`
	Database DatabaseSection `toml:"database"`
}

type ServerSection struct {
	ListenPort      int    `toml:"listen_port"`
	MetricsPort     int    `toml:"metrics_port"`
	SecondWaitLogin int    `toml:"second_wait_login"`
	Maintenance     bool   `toml:"maintenance"`
	CipherKey       string `toml:"cipher_key"`
}

type DatabaseSection struct {
	Path string `toml:"path"`
}

// DefaultConfig returns the default gateway configuration.
func DefaultConfig() Config {
	return Config{
		Server: ServerSection{
			ListenPort:      7777,
			MetricsPort:     9090,
			SecondWaitLogin: 10,
			Maintenance:     false,
			CipherKey:       "vmn",
		},
		Database: DatabaseSection{
			Path: "gateserver.db",
		},
	}
}

// LoadConfig loads configuration from a TOML file, writes the default file
// if none exists, and applies environment variable overrides.
func LoadConfig(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := writeDefaultConfig(path, config); err != nil {
			// Can't persist defaults (permissions, read-only fs) — still
			// run with them.
			return applyEnvOverrides(config), nil
		}
		return applyEnvOverrides(config), nil
	}

	var config Config
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	config = applyEnvOverrides(config)
	if err := config.validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) validate() error {
	if len(c.Server.CipherKey) == 0 {
		return fmt.Errorf("cipher_key must be at least one byte")
	}
	if c.Server.ListenPort <= 0 || c.Server.ListenPort > 65535 {
		return fmt.Errorf("listen_port %d out of range", c.Server.ListenPort)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Variables follow the pattern GATESERVER_SECTION_KEY, e.g.
// GATESERVER_SERVER_LISTEN_PORT=7777.
func applyEnvOverrides(config Config) Config {
	if val := os.Getenv("GATESERVER_SERVER_LISTEN_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			config.Server.ListenPort = port
		}
	}
	if val := os.Getenv("GATESERVER_SERVER_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			config.Server.MetricsPort = port
		}
	}
	if val := os.Getenv("GATESERVER_SERVER_SECOND_WAIT_LOGIN"); val != "" {
		if secs, err := strconv.Atoi(val); err == nil {
			config.Server.SecondWaitLogin = secs
		}
	}
	if val := os.Getenv("GATESERVER_SERVER_MAINTENANCE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			config.Server.Maintenance = b
		}
	}
	if val := os.Getenv("GATESERVER_SERVER_CIPHER_KEY"); val != "" {
		config.Server.CipherKey = val
	}
	if val := os.Getenv("GATESERVER_DATABASE_PATH"); val != "" {
		config.Database.Path = val
	}
	return config
}

// writeDefaultConfig writes a config file with all default values.
func writeDefaultConfig(path string, config Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(config)
}
