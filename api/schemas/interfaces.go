// File: api/schemas/interfaces.go
package schemas

import "context"

// TestRunner executes the suite in an isolated environment and produces
// result artifacts. It is an external collaborator from the repair core's
// perspective; the call is blocking and must honor ctx cancellation and
// deadline.
type TestRunner interface {
	Run(ctx context.Context, repoPath string, testFilter string) (*RunResult, error)
}

// FixGenerator produces a corrective patch for a single failure record. The
// sourceContext argument carries the content of the failing test source (may
// be empty when the analyzer could not locate it).
type FixGenerator interface {
	Suggest(ctx context.Context, record FailureRecord, sourceContext string) (*FixSuggestion, error)
}

// LLMClient is the transport-level contract used by the fix generator.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// FailureAnalyzer parses result artifacts into typed, classified failure
// records. It has no side effects on the working tree.
type FailureAnalyzer interface {
	Analyze(artifactsPath string) ([]FailureRecord, error)
}

// PatchApplier mutates the working tree under snapshot protection. Apply
// either leaves the tree at old-state-plus-patch or, on any failure, byte
// identical to its pre-call state. Revert restores and discards any active
// snapshot and is a no-op when none is active.
type PatchApplier interface {
	Apply(ctx context.Context, patch string) (*ApplyReport, error)
	Revert() error
}

// ApplyReport describes a successful patch application.
type ApplyReport struct {
	Strategy ApplyStrategy
	// Files lists the repository-relative paths that were mutated.
	Files []string
}
