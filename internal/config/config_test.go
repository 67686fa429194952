// File: internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := NewDefaultConfig()

	assert.Equal(t, 3, cfg.Healer.MaxAttempts)
	assert.Equal(t, 0.6, cfg.Healer.ConfidenceThreshold)
	assert.Equal(t, []string{"src/test/"}, cfg.Healer.AllowedPaths)
	assert.Equal(t, 5*time.Minute, cfg.Healer.CallTimeout)

	assert.Equal(t, "./gradlew test", cfg.Runner.Command)
	assert.Equal(t, "build/test-results/test", cfg.Runner.ArtifactsDir)
	assert.Equal(t, "/workspace", cfg.Runner.WorkDir)

	assert.Equal(t, "gemini-2.0-flash-exp", cfg.LLM.Model)
	assert.False(t, cfg.GitHub.Enabled)
	assert.Equal(t, "info", cfg.Logger.Level)

	require.NoError(t, cfg.Validate())
}

func TestNewConfigFromViper(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("healer.max_attempts", 5)
	v.Set("healer.confidence_threshold", 0.8)
	t.Setenv("REMEDY_GEMINI_API_KEY", "from-env-key")

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Healer.MaxAttempts)
	assert.Equal(t, 0.8, cfg.Healer.ConfidenceThreshold)
	assert.Equal(t, "from-env-key", cfg.LLM.APIKey)
}

func TestHealerConfigValidate(t *testing.T) {
	t.Parallel()

	valid := HealerConfig{
		MaxAttempts:         3,
		ConfidenceThreshold: 0.6,
		AllowedPaths:        []string{"src/test/"},
		CallTimeout:         time.Minute,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*HealerConfig)
	}{
		{name: "Zero attempts", mutate: func(h *HealerConfig) { h.MaxAttempts = 0 }},
		{name: "Negative attempts", mutate: func(h *HealerConfig) { h.MaxAttempts = -1 }},
		{name: "Threshold above one", mutate: func(h *HealerConfig) { h.ConfidenceThreshold = 1.5 }},
		{name: "Negative threshold", mutate: func(h *HealerConfig) { h.ConfidenceThreshold = -0.1 }},
		{name: "No allowed paths", mutate: func(h *HealerConfig) { h.AllowedPaths = nil }},
		{name: "Zero timeout", mutate: func(h *HealerConfig) { h.CallTimeout = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := valid
			tc.mutate(&h)
			assert.Error(t, h.Validate())
		})
	}
}

func TestGitHubConfigValidate(t *testing.T) {
	t.Parallel()

	t.Run("Disabled section is not checked", func(t *testing.T) {
		t.Parallel()
		g := GitHubConfig{Enabled: false}
		assert.NoError(t, g.Validate())
	})

	t.Run("Enabled requires coordinates and token", func(t *testing.T) {
		t.Parallel()
		g := GitHubConfig{Enabled: true, Owner: "acme", Repo: "shop-tests", BaseBranch: "master"}
		assert.ErrorContains(t, g.Validate(), "token")

		g.Token = "ghp_test"
		assert.NoError(t, g.Validate())

		g.Repo = ""
		assert.Error(t, g.Validate())
	})
}

func TestConfigValidateRequiresRunnerCommand(t *testing.T) {
	t.Parallel()
	cfg := NewDefaultConfig()
	cfg.Runner.Command = ""
	assert.ErrorContains(t, cfg.Validate(), "runner.command")
}
