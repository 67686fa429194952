// File: cmd/heal.go
package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
	"github.com/xkilldash9x/remedy-cli/internal/analyzer"
	"github.com/xkilldash9x/remedy-cli/internal/fixgen"
	"github.com/xkilldash9x/remedy-cli/internal/gitops"
	"github.com/xkilldash9x/remedy-cli/internal/healer"
	"github.com/xkilldash9x/remedy-cli/internal/llmclient"
	"github.com/xkilldash9x/remedy-cli/internal/observability"
	"github.com/xkilldash9x/remedy-cli/internal/patcher"
	"github.com/xkilldash9x/remedy-cli/internal/runner"
)

// SessionError carries a finished session's outcome across the CLI boundary
// so main can surface the documented exit code.
type SessionError struct {
	Outcome schemas.Outcome
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("repair session finished: %s", e.Outcome)
}

// ExitCode returns the process exit code for the outcome.
func (e *SessionError) ExitCode() int {
	return e.Outcome.ExitCode()
}

// newHealCmd creates the heal command, the tool's main entry point.
func newHealCmd() *cobra.Command {
	var (
		repoPath       string
		testFilter     string
		maxAttempts    int
		skipImageBuild bool
		enableGitHub   bool
	)

	cmd := &cobra.Command{
		Use:   "heal",
		Short: "Run the test suite and repair scripting failures until it is green.",
		Long: `Heal runs the repository's test suite in an isolated container,
classifies any failures, and for test-side defects requests an AI-generated
patch, applies it under snapshot protection, and re-runs the suite to verify.
The loop repeats up to the configured attempt bound.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := appCfg
			logger := observability.GetLogger()

			// Flag overrides beat file and environment values.
			if cmd.Flags().Changed("max-attempts") {
				cfg.Healer.MaxAttempts = maxAttempts
			}
			if skipImageBuild {
				cfg.Runner.SkipImageBuild = true
			}
			if enableGitHub {
				cfg.GitHub.Enabled = true
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			absRepo, err := filepath.Abs(repoPath)
			if err != nil {
				return fmt.Errorf("failed to resolve repository path %q: %w", repoPath, err)
			}

			ctx := cmd.Context()

			testRunner := runner.New(logger, cfg.Runner)
			if err := testRunner.CheckDocker(ctx); err != nil {
				return err
			}
			if err := testRunner.BuildImage(ctx); err != nil {
				return err
			}

			llm, err := llmclient.NewClient(cfg.LLM, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize LLM client: %w", err)
			}

			var publisher healer.FixPublisher
			if cfg.GitHub.Enabled {
				publisher = gitops.NewPublisher(logger, cfg.GitHub, absRepo)
			}

			h := healer.New(logger, cfg.Healer, absRepo, testFilter,
				testRunner,
				analyzer.New(logger, absRepo),
				fixgen.New(logger, llm, cfg.LLM.Temperature),
				patcher.New(logger, absRepo, cfg.Healer.AllowedPaths),
				publisher)

			outcome, err := h.Run(ctx)
			if err != nil {
				if outcome.Terminal() {
					logger.Error("Repair session failed.",
						zap.String("outcome", string(outcome)), zap.Error(err))
					return &SessionError{Outcome: outcome}
				}
				return err
			}
			if outcome != schemas.OutcomeHealed {
				return &SessionError{Outcome: outcome}
			}
			logger.Info("Suite healed.", zap.Int("attempts", h.Session().AttemptCount()))
			return nil
		},
	}

	cmd.Flags().StringVar(&repoPath, "repo", ".", "Path to the repository under repair.")
	cmd.Flags().StringVar(&testFilter, "test-filter", "", "Restrict the run to matching tests (runner-native pattern).")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "Override the configured attempt bound.")
	cmd.Flags().BoolVar(&skipImageBuild, "skip-image-build", false, "Reuse the existing runner image instead of rebuilding it.")
	cmd.Flags().BoolVar(&enableGitHub, "github", false, "Open a pull request for the verified fix.")

	return cmd
}
