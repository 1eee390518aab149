package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/drover-dev/drover/pkg/llm"
	"github.com/drover-dev/drover/pkg/logger"
	"github.com/drover-dev/drover/pkg/shell"
)

// Config is the application configuration, loaded from JSON and overridable
// by environment variables.
type Config struct {
	Model ModelConfig  `json:"model"`
	Shell *ShellConfig `json:"shell,omitempty"`
	Agent *AgentConfig `json:"agent,omitempty"`
	Log   *LogConfig   `json:"log,omitempty"`
}

// ModelConfig selects the model endpoint.
type ModelConfig struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	BaseURL  string `json:"baseUrl"`
}

// ShellConfig tunes the persistent terminal sessions.
type ShellConfig struct {
	WorkDir         string `json:"workDir,omitempty"`  // empty = process cwd
	Username        string `json:"username,omitempty"` // run the shell as this user via su
	NoChangeTimeout int    `json:"noChangeTimeout,omitempty"` // seconds
	PollInterval    int    `json:"pollInterval,omitempty"`    // milliseconds
	HistoryLimit    int    `json:"historyLimit,omitempty"`    // scrollback lines
}

// AgentConfig tunes the agent loop.
type AgentConfig struct {
	MaxIterations int `json:"maxIterations,omitempty"`
	MaxRetries    int `json:"maxRetries,omitempty"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level  string `json:"level,omitempty"`  // debug, info, warn, error
	File   string `json:"file,omitempty"`   // log file path (empty = no file logging)
	Prefix string `json:"prefix,omitempty"` // log prefix
}

// DefaultShellConfig returns the default terminal settings.
func DefaultShellConfig() *ShellConfig {
	return &ShellConfig{
		NoChangeTimeout: 30,
		PollInterval:    500,
		HistoryLimit:    10000,
	}
}

// DefaultAgentConfig returns the default loop settings.
func DefaultAgentConfig() *AgentConfig {
	return &AgentConfig{
		MaxIterations: 40,
		MaxRetries:    3,
	}
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() *LogConfig {
	homeDir, _ := os.UserHomeDir()
	return &LogConfig{
		Level:  "info",
		File:   filepath.Join(homeDir, ".drover", "drover.log"),
		Prefix: "[drover] ",
	}
}

// CreateLogger creates a logger from the log configuration.
func (c *LogConfig) CreateLogger() (*logger.Logger, error) {
	if c == nil {
		c = DefaultLogConfig()
	}
	return logger.NewLogger(&logger.Config{
		Level:    logger.ParseLogLevel(c.Level),
		Prefix:   c.Prefix,
		Console:  true,
		File:     c.File != "",
		FilePath: c.File,
	})
}

// LoadConfig loads configuration from the file at configPath, layering file
// values over defaults and environment variables over both.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{
		Model: ModelConfig{
			ID:       "glm-4.5-air",
			Provider: "zai",
			BaseURL:  "https://api.z.ai/api/coding/paas/v4",
		},
		Shell: DefaultShellConfig(),
		Agent: DefaultAgentConfig(),
		Log:   DefaultLogConfig(),
	}

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if val := os.Getenv("DROVER_MODEL"); val != "" {
		cfg.Model.ID = val
	}
	if val := os.Getenv("DROVER_BASE_URL"); val != "" {
		cfg.Model.BaseURL = val
	}
	if val := os.Getenv("DROVER_PROVIDER"); val != "" {
		cfg.Model.Provider = val
	}

	return cfg, nil
}

// SaveConfig writes the configuration as indented JSON.
func SaveConfig(cfg *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// GetLLMModel converts the model section to an llm.Model.
func (c *Config) GetLLMModel() llm.Model {
	return llm.Model{
		ID:       c.Model.ID,
		Provider: c.Model.Provider,
		BaseURL:  c.Model.BaseURL,
	}
}

// GetShellConfig converts the shell section to a shell.Config.
func (c *Config) GetShellConfig(log *logger.Logger) shell.Config {
	sc := c.Shell
	if sc == nil {
		sc = DefaultShellConfig()
	}
	workDir := sc.WorkDir
	if workDir == "" {
		workDir, _ = os.Getwd()
	}
	return shell.Config{
		WorkDir:         workDir,
		Username:        sc.Username,
		NoChangeTimeout: time.Duration(sc.NoChangeTimeout) * time.Second,
		PollInterval:    time.Duration(sc.PollInterval) * time.Millisecond,
		HistoryLimit:    sc.HistoryLimit,
		Logger:          log,
	}
}

// GetDefaultConfigPath returns the default config file path.
func GetDefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".drover", "config.json"), nil
}
