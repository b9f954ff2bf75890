package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/atvirokodosprendimai/testdesk/internal/config"
	"github.com/atvirokodosprendimai/testdesk/internal/domain"
	"github.com/atvirokodosprendimai/testdesk/internal/logging"
)

const (
	transportHTTP = "http"
	transportUDS  = "uds"
)

// cliConfig is the per-user CLI state kept in ~/.testdesk/config.json.
type cliConfig struct {
	Transport string      `json:"transport"`
	APIURL    string      `json:"api_url"`
	Socket    string      `json:"socket"`
	Token     string      `json:"token,omitempty"`
	User      domain.User `json:"user"`

	timeout time.Duration
	logger  *slog.Logger
}

func (c cliConfig) signedIn() bool { return c.Token != "" }

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".testdesk", "config.json"), nil
}

func readConfigFile() (cliConfig, error) {
	path, err := configPath()
	if err != nil {
		return cliConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliConfig{}, nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// loadConfig merges the stored CLI state with the shared config (file and
// environment) and the global flags. Flags win.
func loadConfig(cmd *cli.Command) (cliConfig, error) {
	cfg, err := readConfigFile()
	if err != nil {
		return cliConfig{}, err
	}
	shared, err := config.Load(cmd.String("config"))
	if err != nil {
		return cliConfig{}, err
	}
	if cfg.Transport == "" {
		cfg.Transport = transportHTTP
	}
	if cfg.APIURL == "" || os.Getenv("TESTDESK_API_URL") != "" {
		cfg.APIURL = shared.API.BaseURL
	}
	if cfg.Socket == "" || os.Getenv("TESTDESK_RPC_SOCKET") != "" {
		cfg.Socket = shared.Server.RPCSocket
	}
	if v := cmd.String("transport"); v != "" {
		cfg.Transport = v
	}
	if v := cmd.String("api-url"); v != "" {
		cfg.APIURL = v
	}
	if v := cmd.String("socket"); v != "" {
		cfg.Socket = v
	}
	if cfg.Transport != transportHTTP && cfg.Transport != transportUDS {
		return cliConfig{}, fmt.Errorf("unknown transport %q (want http or uds)", cfg.Transport)
	}
	cfg.timeout = shared.API.Timeout
	if cfg.logger, err = cliLogger(cmd.String("log-level")); err != nil {
		return cliConfig{}, err
	}
	return cfg, nil
}

// cliLogger stays silent unless a level is asked for; failures already reach
// the user as notices and errors.
func cliLogger(level string) (*slog.Logger, error) {
	if level == "" {
		return logging.Discard(), nil
	}
	l, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Config{Level: l, Service: "testdesk-cli"}), nil
}

// requireLogin loads the config and fails unless a session is stored.
func requireLogin(cmd *cli.Command) (cliConfig, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return cliConfig{}, err
	}
	if !cfg.signedIn() {
		return cliConfig{}, errors.New("not logged in; run `testdesk auth login` first")
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
