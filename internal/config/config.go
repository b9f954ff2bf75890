package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API    APIConfig    `yaml:"api"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Addr          string `yaml:"addr"`
	RPCSocket     string `yaml:"rpc_socket"`
	DBPath        string `yaml:"db_path"`
	SecureCookies bool   `yaml:"secure_cookies"`
	// SessionTTL bounds how long a browser session is remembered.
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:5000/api",
			Timeout: 20 * time.Second,
		},
		Server: ServerConfig{
			Addr:       ":8080",
			RPCSocket:  "/tmp/testdesk.sock",
			DBPath:     "testdesk.db",
			SessionTTL: 7 * 24 * time.Hour,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load applies defaults, then the YAML file at path (if non-empty), then the
// environment. A missing file named by TESTDESK_CONFIG is an error; an empty
// path is not.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("TESTDESK_CONFIG")
	}
	if path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.API.BaseURL = getenv("TESTDESK_API_URL", cfg.API.BaseURL)
	cfg.Server.Addr = getenv("TESTDESK_ADDR", cfg.Server.Addr)
	cfg.Server.RPCSocket = getenv("TESTDESK_RPC_SOCKET", cfg.Server.RPCSocket)
	cfg.Server.DBPath = getenv("TESTDESK_DB_PATH", cfg.Server.DBPath)
	cfg.Log.Level = getenv("TESTDESK_LOG_LEVEL", cfg.Log.Level)

	if raw := os.Getenv("TESTDESK_API_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("TESTDESK_API_TIMEOUT: %w", err)
		}
		cfg.API.Timeout = d
	}
	if raw := os.Getenv("TESTDESK_SECURE_COOKIES"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("TESTDESK_SECURE_COOKIES: %w", err)
		}
		cfg.Server.SecureCookies = v
	}
	if raw := os.Getenv("TESTDESK_LOG_JSON"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("TESTDESK_LOG_JSON: %w", err)
		}
		cfg.Log.JSON = v
	}
	return nil
}

func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api base url is required")
	}
	if c.Server.Addr == "" {
		return errors.New("server addr is required")
	}
	if c.Server.DBPath == "" {
		return errors.New("server db path is required")
	}
	return nil
}

func getenv(k, d string) string {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	return v
}
