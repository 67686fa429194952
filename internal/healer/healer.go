// File: internal/healer/healer.go

// Package healer drives the repair loop: run the suite, classify what broke,
// ask for a fix, apply it, and verify, until the suite is green or a terminal
// condition stops the session.
package healer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
	"github.com/xkilldash9x/remedy-cli/internal/config"
)

// state is a node of the repair loop's control FSM. Transitions are total:
// every state either advances or finishes the session.
type state int

const (
	stateRun state = iota
	stateClassify
	stateGenerate
	statePatch
	stateDone
)

// sourceReader extends artifact analysis with test-source retrieval so the
// generator can see the code it is fixing.
type sourceReader interface {
	schemas.FailureAnalyzer
	ReadSource(record schemas.FailureRecord) string
}

// FixPublisher turns a verified fix into a reviewable change, e.g. a pull
// request. Publishing is best effort; a publish failure never changes the
// session outcome.
type FixPublisher interface {
	Publish(ctx context.Context, session *Session, record schemas.FailureRecord, suggestion schemas.FixSuggestion, files []string) (string, error)
}

// Healer owns one repair session end to end. It is not safe for concurrent
// use; each invocation gets its own Healer.
type Healer struct {
	logger     *zap.Logger
	cfg        config.HealerConfig
	runner     schemas.TestRunner
	analyzer   sourceReader
	generator  schemas.FixGenerator
	applier    schemas.PatchApplier
	publisher  FixPublisher
	repoPath   string
	testFilter string

	session *Session
}

// New wires a Healer over its collaborators. publisher may be nil when no
// review surface is configured.
func New(logger *zap.Logger, cfg config.HealerConfig, repoPath, testFilter string,
	runner schemas.TestRunner, analyzer sourceReader, generator schemas.FixGenerator,
	applier schemas.PatchApplier, publisher FixPublisher) *Healer {
	return &Healer{
		logger:     logger.Named("healer"),
		cfg:        cfg,
		runner:     runner,
		analyzer:   analyzer,
		generator:  generator,
		applier:    applier,
		publisher:  publisher,
		repoPath:   repoPath,
		testFilter: testFilter,
		session:    NewSession(cfg.MaxAttempts),
	}
}

// Session exposes the attempt history for reporting.
func (h *Healer) Session() *Session {
	return h.session
}

// Run executes the repair loop to a terminal outcome. On context
// cancellation any in-flight snapshot is restored before returning, so an
// interrupted session never leaves a half-applied patch behind.
func (h *Healer) Run(ctx context.Context) (schemas.Outcome, error) {
	defer func() {
		// No-op unless a snapshot is still active, i.e. we were cancelled
		// mid-apply.
		if err := h.applier.Revert(); err != nil {
			h.logger.Error("Failed to revert working tree on shutdown.", zap.Error(err))
		}
	}()

	h.logger.Info("Repair session starting.",
		zap.String("session_id", h.session.ID),
		zap.Int("max_attempts", h.session.MaxAttempts),
		zap.String("repo", h.repoPath))

	var (
		st         = stateRun
		result     *schemas.RunResult
		attempt    *schemas.Attempt
		target     schemas.FailureRecord
		suggestion *schemas.FixSuggestion
		runErr     error
	)

	for st != stateDone {
		if err := ctx.Err(); err != nil {
			return h.session.Outcome(), fmt.Errorf("repair session interrupted: %w", err)
		}

		switch st {
		case stateRun:
			if !h.session.Budget() {
				st = h.finish(schemas.OutcomeExhausted)
				continue
			}
			attempt, runErr = h.session.BeginAttempt()
			if runErr != nil {
				return h.session.Outcome(), runErr
			}
			h.logger.Info("Running test suite.",
				zap.Int("attempt", attempt.Number),
				zap.Int("max_attempts", h.session.MaxAttempts))

			result, runErr = h.runInvocation(ctx)
			if runErr != nil {
				if errors.Is(runErr, context.DeadlineExceeded) {
					h.logger.Error("Test run exceeded the per-call deadline.", zap.Error(runErr))
					return h.finishOutcome(schemas.OutcomeTimeout), runErr
				}
				return h.session.Outcome(), fmt.Errorf("test runner invocation failed: %w", runErr)
			}
			if result.ExitCode == 0 {
				h.markPreviousVerified()
				h.logger.Info("Test suite is green.", zap.Int("attempt", attempt.Number))
				h.publishFix(ctx, target, suggestion)
				st = h.finish(schemas.OutcomeHealed)
				continue
			}
			st = stateClassify

		case stateClassify:
			failures, err := h.analyzer.Analyze(result.ArtifactsPath)
			if err != nil {
				return h.session.Outcome(), fmt.Errorf("failure analysis failed: %w", err)
			}
			attempt.Failures = failures
			if len(failures) == 0 {
				// Non-zero exit with no parsed failures means the run broke
				// before producing results, e.g. a build or harness crash.
				h.logger.Warn("Run failed but produced no failure records; treating as a system issue.",
					zap.Int("exit_code", result.ExitCode))
				st = h.finish(schemas.OutcomeFailedSystemIssue)
				continue
			}
			if rec, ok := firstNonScripting(failures); ok {
				h.logger.Warn("Failure is not a test-side defect; the system under test needs attention.",
					zap.String("test", rec.TestClass+"."+rec.TestName),
					zap.String("category", string(rec.Category)))
				st = h.finish(schemas.OutcomeFailedSystemIssue)
				continue
			}
			target = failures[0]
			h.logger.Info("Targeting failure for repair.",
				zap.String("test", target.TestClass+"."+target.TestName),
				zap.String("category", string(target.Category)),
				zap.Int("total_failures", len(failures)))
			st = stateGenerate

		case stateGenerate:
			var err error
			suggestion, err = h.generateFix(ctx, target)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					h.logger.Error("Fix generation exceeded the per-call deadline.", zap.Error(err))
					return h.finishOutcome(schemas.OutcomeTimeout), err
				}
				return h.session.Outcome(), fmt.Errorf("fix generation failed: %w", err)
			}
			attempt.Suggestion = suggestion
			if suggestion.Confidence < h.cfg.ConfidenceThreshold {
				h.logger.Warn("Suggestion rejected: confidence below threshold.",
					zap.Float64("confidence", suggestion.Confidence),
					zap.Float64("threshold", h.cfg.ConfidenceThreshold))
				st = h.finish(schemas.OutcomeFailedLowConfidence)
				continue
			}
			h.logger.Info("Suggestion accepted.",
				zap.Float64("confidence", suggestion.Confidence),
				zap.String("explanation", suggestion.Explanation))
			st = statePatch

		case statePatch:
			report, err := h.applier.Apply(ctx, suggestion.Patch)
			if err != nil {
				h.logger.Error("Patch could not be applied.", zap.Error(err))
				st = h.finish(schemas.OutcomeFailedUnapplicable)
				continue
			}
			attempt.Strategy = report.Strategy
			attempt.Files = report.Files
			h.logger.Info("Patch applied.",
				zap.String("strategy", string(report.Strategy)),
				zap.Strings("files", report.Files))
			st = stateRun
		}
	}

	outcome := h.session.Outcome()
	h.logger.Info("Repair session finished.",
		zap.String("session_id", h.session.ID),
		zap.String("outcome", string(outcome)),
		zap.Int("attempts", h.session.AttemptCount()))
	return outcome, nil
}

// runInvocation executes one suite run under the per-call deadline.
func (h *Healer) runInvocation(ctx context.Context) (*schemas.RunResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, h.cfg.CallTimeout)
	defer cancel()
	return h.runner.Run(runCtx, h.repoPath, h.testFilter)
}

// generateFix asks the generator for a suggestion, feeding it the failing
// test's source when the analyzer managed to locate it.
func (h *Healer) generateFix(ctx context.Context, record schemas.FailureRecord) (*schemas.FixSuggestion, error) {
	genCtx, cancel := context.WithTimeout(ctx, h.cfg.CallTimeout)
	defer cancel()
	source := h.analyzer.ReadSource(record)
	if source == "" {
		h.logger.Warn("Test source not located; generating from the failure record alone.",
			zap.String("source_file", record.SourceFile))
	}
	return h.generator.Suggest(genCtx, record, source)
}

// markPreviousVerified flags the attempt whose patch the just-passed run
// verified.
func (h *Healer) markPreviousVerified() {
	attempts := h.session.Attempts()
	for i := len(attempts) - 2; i >= 0; i-- {
		if attempts[i].Suggestion != nil {
			h.session.attempts[i].Verified = true
			return
		}
	}
}

// publishFix hands the verified fix to the publisher, if any. Failures are
// logged and swallowed; the local fix stands on its own.
func (h *Healer) publishFix(ctx context.Context, record schemas.FailureRecord, suggestion *schemas.FixSuggestion) {
	if h.publisher == nil || suggestion == nil {
		return
	}
	files := verifiedFiles(h.session.Attempts())
	url, err := h.publisher.Publish(ctx, h.session, record, *suggestion, files)
	if err != nil {
		h.logger.Warn("Failed to publish fix for review; the fix remains applied locally.", zap.Error(err))
		return
	}
	h.logger.Info("Fix published for review.", zap.String("url", url))
}

// finish moves the session to a terminal outcome and parks the FSM.
func (h *Healer) finish(outcome schemas.Outcome) state {
	h.finishOutcome(outcome)
	return stateDone
}

// finishOutcome records the terminal outcome, tolerating nothing but a clean
// first transition.
func (h *Healer) finishOutcome(outcome schemas.Outcome) schemas.Outcome {
	if err := h.session.Finish(outcome); err != nil {
		h.logger.Error("Session outcome transition rejected.", zap.Error(err))
	}
	return h.session.Outcome()
}

// firstNonScripting returns the first failure the agent must not try to fix.
func firstNonScripting(failures []schemas.FailureRecord) (schemas.FailureRecord, bool) {
	for _, f := range failures {
		if !f.IsScriptingIssue() {
			return f, true
		}
	}
	return schemas.FailureRecord{}, false
}

// verifiedFiles collects the mutated file paths across all applied attempts,
// deduplicated in first-seen order.
func verifiedFiles(attempts []schemas.Attempt) []string {
	seen := make(map[string]struct{})
	var files []string
	for _, a := range attempts {
		if a.Suggestion == nil || a.Strategy == schemas.StrategyNone {
			continue
		}
		for _, f := range a.Files {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			files = append(files, f)
		}
	}
	return files
}
