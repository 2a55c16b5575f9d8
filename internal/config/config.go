package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config is the only persisted config file schema.
type Config struct {
	Model               string   `toml:"model"`
	Provider            string   `toml:"provider"`
	URL                 string   `toml:"url"`
	Token               string   `toml:"token"`
	ApprovalMode        string   `toml:"approval_mode"`
	WritableRoots       []string `toml:"writable_roots"`
	AskOnSandboxFailure bool     `toml:"ask_on_sandbox_failure"`
	TTY                 bool     `toml:"tty"`
	MaxOutputBytes      int      `toml:"max_output_bytes"`
	TimeoutSeconds      int      `toml:"timeout_seconds"`
	Instructions        string   `toml:"instructions"`
	RulesPath           string   `toml:"rules_path"`
	LogPath             string   `toml:"log_path"`
	Source              string   `toml:"-"`
}

func Default() Config {
	return Config{
		Model:               "claude-3-5-haiku-latest",
		Provider:            "anthropic",
		AskOnSandboxFailure: true,
	}
}

func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".codex", "config.toml")
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, errors.New("config path is empty and $HOME is not set")
	}
	cfg.Source = path

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return applyEnv(cfg), nil
		}
		return cfg, err
	}
	if err := toml.Unmarshal(content, &cfg); err != nil {
		return cfg, err
	}
	return applyEnv(cfg), nil
}

// Save writes cfg to path, defaulting to ~/.codex/config.toml and creating
// the directory on first use. The file may carry a token, hence 0600.
func Save(path string, cfg Config) error {
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return errors.New("config path is empty and $HOME is not set")
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyEnv 用环境变量覆盖文件值，按 provider 选取对应的一组。
func applyEnv(cfg Config) Config {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "openai":
		if env := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); env != "" {
			cfg.URL = env
		}
		if env := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); env != "" {
			cfg.Token = env
		}
	default:
		if env := strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL")); env != "" {
			cfg.URL = env
		}
		if env := strings.TrimSpace(os.Getenv("ANTHROPIC_AUTH_TOKEN")); env != "" {
			cfg.Token = env
		}
	}
	return cfg
}
