// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger LoggerConfig `mapstructure:"logger" yaml:"logger"`
	Healer HealerConfig `mapstructure:"healer" yaml:"healer"`
	Runner RunnerConfig `mapstructure:"runner" yaml:"runner"`
	LLM    LLMConfig    `mapstructure:"llm" yaml:"llm"`
	GitHub GitHubConfig `mapstructure:"github" yaml:"github"`
}

// LoggerConfig controls the global zap logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // Megabytes, per lumberjack.
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // Days.
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// HealerConfig bounds the repair loop and gates patch application.
type HealerConfig struct {
	// MaxAttempts is the hard bound on test-runner invocations per session.
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
	// ConfidenceThreshold gates suggestions: confidence strictly below the
	// threshold is rejected without mutating the tree. Equal is accepted.
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	// AllowedPaths are the repo-relative prefixes a patch may touch. A patch
	// with any target outside these is rejected before mutation.
	AllowedPaths []string `mapstructure:"allowed_paths" yaml:"allowed_paths"`
	// CallTimeout bounds each external call (test runner, fix generator).
	CallTimeout time.Duration `mapstructure:"call_timeout" yaml:"call_timeout"`
}

// RunnerConfig describes the isolated test-execution environment.
type RunnerConfig struct {
	Image string `mapstructure:"image" yaml:"image"`
	// Command is the in-container test command, e.g. "./gradlew test".
	Command string `mapstructure:"command" yaml:"command"`
	// ArtifactsDir is where result XML lands, relative to the repo root.
	ArtifactsDir   string `mapstructure:"artifacts_dir" yaml:"artifacts_dir"`
	WorkDir        string `mapstructure:"work_dir" yaml:"work_dir"`
	SkipImageBuild bool   `mapstructure:"skip_image_build" yaml:"skip_image_build"`
}

// LLMConfig configures the fix-generation backend.
type LLMConfig struct {
	Model             string        `mapstructure:"model" yaml:"model"`
	APIKey            string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint          string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout        time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature       float64       `mapstructure:"temperature" yaml:"temperature"`
	RequestsPerMinute float64       `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// GitHubConfig controls the optional PR workflow for validated fixes.
type GitHubConfig struct {
	Enabled      bool     `mapstructure:"enabled" yaml:"enabled"`
	Owner        string   `mapstructure:"owner" yaml:"owner"`
	Repo         string   `mapstructure:"repo" yaml:"repo"`
	BaseBranch   string   `mapstructure:"base_branch" yaml:"base_branch"`
	BranchPrefix string   `mapstructure:"branch_prefix" yaml:"branch_prefix"`
	Token        string   `mapstructure:"token" yaml:"token"`
	Labels       []string `mapstructure:"pr_labels" yaml:"pr_labels"`
	AuthorName   string   `mapstructure:"author_name" yaml:"author_name"`
	AuthorEmail  string   `mapstructure:"author_email" yaml:"author_email"`
}

// SetDefaults initializes default values on the given viper instance.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "remedy-cli")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.log_file", "remedy.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Healer --
	v.SetDefault("healer.max_attempts", 3)
	v.SetDefault("healer.confidence_threshold", 0.6)
	v.SetDefault("healer.allowed_paths", []string{"src/test/"})
	v.SetDefault("healer.call_timeout", "5m")

	// -- Runner --
	v.SetDefault("runner.image", "remedy-agent-runner")
	v.SetDefault("runner.command", "./gradlew test")
	v.SetDefault("runner.artifacts_dir", "build/test-results/test")
	v.SetDefault("runner.work_dir", "/workspace")
	v.SetDefault("runner.skip_image_build", false)

	// -- LLM --
	v.SetDefault("llm.model", "gemini-2.0-flash-exp")
	v.SetDefault("llm.api_timeout", "60s")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.requests_per_minute", 10.0)

	// -- GitHub --
	v.SetDefault("github.enabled", false)
	v.SetDefault("github.base_branch", "master")
	v.SetDefault("github.branch_prefix", "fix/self-healing")
	v.SetDefault("github.pr_labels", []string{"self-healing", "automated-fix"})
	v.SetDefault("github.author_name", "remedy-bot")
	v.SetDefault("github.author_email", "remedy@users.noreply.github.com")
}

// NewDefaultConfig creates a configuration populated with defaults only.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper builds and validates a configuration from a viper
// instance that has already read its sources.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Sensitive values come from the environment, never the config file.
	_ = v.BindEnv("llm.api_key", "REMEDY_GEMINI_API_KEY")
	_ = v.BindEnv("github.token", "REMEDY_GITHUB_TOKEN")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.GitHub.Enabled && cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("REMEDY_GITHUB_TOKEN")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Healer.Validate(); err != nil {
		return fmt.Errorf("healer configuration invalid: %w", err)
	}
	if c.Runner.Command == "" {
		return fmt.Errorf("runner.command is required")
	}
	if err := c.GitHub.Validate(); err != nil {
		return fmt.Errorf("github configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the healer section.
func (h *HealerConfig) Validate() error {
	if h.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1")
	}
	if h.ConfidenceThreshold < 0.0 || h.ConfidenceThreshold > 1.0 {
		return fmt.Errorf("confidence_threshold must be between 0.0 and 1.0")
	}
	if len(h.AllowedPaths) == 0 {
		return fmt.Errorf("allowed_paths must list at least one mutable path prefix")
	}
	if h.CallTimeout <= 0 {
		return fmt.Errorf("call_timeout must be a positive duration")
	}
	return nil
}

// Validate checks the GitHub section. Disabled sections are not required to
// be complete.
func (g *GitHubConfig) Validate() error {
	if !g.Enabled {
		return nil
	}
	if g.Owner == "" || g.Repo == "" || g.BaseBranch == "" {
		return fmt.Errorf("owner, repo and base_branch are required when the PR workflow is enabled")
	}
	if g.Token == "" {
		return fmt.Errorf("GitHub token is required but not found. Ensure REMEDY_GITHUB_TOKEN is set")
	}
	return nil
}
