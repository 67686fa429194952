// File: internal/runner/docker.go
package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
	"github.com/xkilldash9x/remedy-cli/internal/config"
	"github.com/xkilldash9x/remedy-cli/internal/observability"
)

// ErrDockerUnavailable means the docker daemon did not answer a ping.
var ErrDockerUnavailable = errors.New("docker is not running or not reachable")

// execCombinedFunc runs a command and returns its combined output and exit
// code. Injected so tests can drive the runner without a docker daemon.
type execCombinedFunc func(ctx context.Context, dir, name string, args ...string) (output []byte, exitCode int, err error)

// DockerRunner executes the test suite inside an isolated container with the
// repository bind-mounted at the configured workdir. It implements
// schemas.TestRunner.
type DockerRunner struct {
	logger *zap.Logger
	cfg    config.RunnerConfig
	exec   execCombinedFunc
}

// New creates a Docker-backed test runner.
func New(logger *zap.Logger, cfg config.RunnerConfig) *DockerRunner {
	return &DockerRunner{
		logger: logger.Named("runner"),
		cfg:    cfg,
		exec:   runCombined,
	}
}

// CheckDocker verifies the daemon is reachable.
func (r *DockerRunner) CheckDocker(ctx context.Context) error {
	if _, code, err := r.exec(ctx, "", "docker", "info"); err != nil || code != 0 {
		return ErrDockerUnavailable
	}
	return nil
}

// BuildImage builds the agent runner image from Dockerfile.agent in the
// current directory. Skipped entirely when the config says so.
func (r *DockerRunner) BuildImage(ctx context.Context) error {
	if r.cfg.SkipImageBuild {
		r.logger.Info("Skipping runner image build.")
		return nil
	}
	r.logger.Info("Building runner image.", zap.String("image", r.cfg.Image))
	output, code, err := r.exec(ctx, "", "docker", "build", "-f", "Dockerfile.agent", "-t", r.cfg.Image, ".")
	if err != nil {
		return fmt.Errorf("docker build failed: %w", err)
	}
	if code != 0 {
		return fmt.Errorf("docker build exited with code %d: %s", code, observability.Redact(string(output)))
	}
	return nil
}

// Run executes the configured test command in a fresh container and returns
// the exit code, redacted logs, and the artifacts location. A non-zero test
// exit code is a normal result, not an error; errors mean the run itself
// could not be carried out.
func (r *DockerRunner) Run(ctx context.Context, repoPath, testFilter string) (*schemas.RunResult, error) {
	absRepo, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("could not resolve repo path: %w", err)
	}

	command := r.cfg.Command
	if testFilter != "" {
		command += " --tests " + testFilter
	}

	args := []string{
		"run", "--rm",
		"-v", absRepo + ":" + r.cfg.WorkDir,
		"-w", r.cfg.WorkDir,
		r.cfg.Image,
		"sh", "-c", command,
	}

	r.logger.Info("Running tests in container.",
		zap.String("image", r.cfg.Image),
		zap.String("command", command))

	start := time.Now()
	output, exitCode, err := r.exec(ctx, "", "docker", args...)
	duration := time.Since(start)

	if err != nil {
		return nil, fmt.Errorf("container run failed: %w", err)
	}

	logs := observability.Redact(string(output))
	r.logger.Info("Test run finished.",
		zap.Int("exit_code", exitCode),
		zap.Duration("duration", duration))

	return &schemas.RunResult{
		ExitCode:      exitCode,
		Logs:          logs,
		ArtifactsPath: filepath.Join(absRepo, filepath.FromSlash(r.cfg.ArtifactsDir)),
		StartedAt:     start,
		Duration:      duration,
	}, nil
}

// runCombined is the production exec implementation. Test failures exit
// non-zero; that is reported through the exit code, not the error.
func runCombined(ctx context.Context, dir, name string, args ...string) ([]byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	output, err := cmd.CombinedOutput()
	if err == nil {
		return output, 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return output, exitErr.ExitCode(), nil
	}
	if ctx.Err() != nil {
		return output, -1, ctx.Err()
	}
	return output, -1, fmt.Errorf("%s: %w. Output: %s", name, err, strings.TrimSpace(string(output)))
}
