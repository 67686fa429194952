// File: api/schemas/schemas.go
package schemas

import "time"

// TestStatus is the outcome of a single executed test case as reported by the
// test runner's artifacts.
type TestStatus string

const (
	StatusPassed  TestStatus = "passed"
	StatusFailed  TestStatus = "failed"
	StatusError   TestStatus = "error"
	StatusSkipped TestStatus = "skipped"
)

// TestResult is one entry of a structured test-result artifact (one per
// executed test case).
type TestResult struct {
	ClassName  string     `json:"class_name"`
	Name       string     `json:"name"`
	Status     TestStatus `json:"status"`
	// ExceptionType is the exception class reported by the failure/error
	// element, e.g. "java.lang.AssertionError". Empty for passing tests.
	ExceptionType string `json:"exception_type,omitempty"`
	Message       string `json:"message,omitempty"`
	StackTrace    string `json:"stack_trace,omitempty"`
}

// RunResult is what the test runner hands back after one suite execution in
// the isolated environment.
type RunResult struct {
	ExitCode      int       `json:"exit_code"`
	Logs          string    `json:"logs"`
	ArtifactsPath string    `json:"artifacts_path"`
	StartedAt     time.Time `json:"started_at"`
	Duration      time.Duration `json:"duration"`
}

// FailureCategory is the closed taxonomy used to classify a test failure.
// New categories are additions to this list and to the analyzer's rule
// table; CategoryUnclassified is the explicit fallback and is never treated
// as fixable.
type FailureCategory string

const (
	CategoryAssertion        FailureCategory = "assertion_mismatch"
	CategoryNilReference     FailureCategory = "nil_reference"
	CategoryElementNotFound  FailureCategory = "element_not_found"
	CategoryTimeout          FailureCategory = "timeout"
	CategoryParseMismatch    FailureCategory = "parse_mismatch"
	CategoryIndexOutOfBounds FailureCategory = "index_out_of_bounds"
	// CategorySystem covers failures that positively indicate the system
	// under test (or its environment) is broken, e.g. connection refused.
	CategorySystem FailureCategory = "system"
	// CategoryUnclassified is everything the taxonomy does not recognize.
	CategoryUnclassified FailureCategory = "unclassified"
)

// ScriptingIssue reports whether this category describes a defect in the test
// code itself, i.e. one the agent is allowed to attempt a fix for.
func (c FailureCategory) ScriptingIssue() bool {
	switch c {
	case CategoryAssertion, CategoryNilReference, CategoryElementNotFound,
		CategoryTimeout, CategoryParseMismatch, CategoryIndexOutOfBounds:
		return true
	}
	return false
}

// FailureRecord identifies one failing test together with its classification.
// Records are immutable once produced; the analyzer emits one per failing
// test per attempt.
type FailureRecord struct {
	TestClass  string          `json:"test_class"`
	TestName   string          `json:"test_name"`
	Category   FailureCategory `json:"category"`
	Message    string          `json:"message"`
	StackTrace string          `json:"stack_trace"`
	// SourceFile is the repository-relative path of the originating test
	// source, resolved from the stack trace. Empty when discovery failed;
	// such records are still usable for classification and reporting.
	SourceFile string `json:"source_file,omitempty"`
}

// IsScriptingIssue reports whether the failure is fixable test-side.
func (r FailureRecord) IsScriptingIssue() bool {
	return r.Category.ScriptingIssue()
}

// FixSuggestion is the fix generator's response for one failure record.
type FixSuggestion struct {
	Explanation string  `json:"explanation"`
	Patch       string  `json:"patch"`      // Unified diff, repo-root-relative paths.
	Confidence  float64 `json:"confidence"` // A score in [0.0, 1.0].
}

// ApplyStrategy records which patch-application strategy succeeded.
type ApplyStrategy string

const (
	StrategyNone        ApplyStrategy = ""
	StrategyThreeWay    ApplyStrategy = "three_way"
	StrategyReplacement ApplyStrategy = "direct_replacement"
)

// Attempt is one iteration's record inside a repair session: the failures
// observed, the suggestion acted on (if any), and the apply result. The
// session owns these as an append-only list.
type Attempt struct {
	Number     int             `json:"number"`
	Failures   []FailureRecord `json:"failures"`
	Suggestion *FixSuggestion  `json:"suggestion,omitempty"`
	Strategy   ApplyStrategy   `json:"strategy,omitempty"`
	// Files lists the repository-relative paths the applied patch mutated.
	Files    []string `json:"files,omitempty"`
	Verified bool     `json:"verified"`
}

// Outcome is the running (and eventually terminal) result of a repair
// session. Healed and every Failed*/Exhausted/Timeout value are final.
type Outcome string

const (
	OutcomeInProgress          Outcome = "in_progress"
	OutcomeHealed              Outcome = "healed"
	OutcomeFailedLowConfidence Outcome = "failed_low_confidence"
	OutcomeFailedSystemIssue   Outcome = "failed_system_issue"
	OutcomeFailedUnapplicable  Outcome = "failed_patch_unapplicable"
	OutcomeExhausted           Outcome = "exhausted"
	OutcomeTimeout             Outcome = "timeout"
)

// Terminal reports whether the session is finished.
func (o Outcome) Terminal() bool {
	return o != OutcomeInProgress
}

// ExitCode maps an outcome to the distinct process exit code surfaced at the
// CLI boundary. In-progress never reaches the CLI; it maps to a generic
// failure code.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeHealed:
		return 0
	case OutcomeFailedLowConfidence:
		return 2
	case OutcomeFailedSystemIssue:
		return 3
	case OutcomeFailedUnapplicable:
		return 4
	case OutcomeExhausted:
		return 5
	case OutcomeTimeout:
		return 6
	}
	return 1
}

// GenerationOptions tunes a single LLM generation call.
type GenerationOptions struct {
	ForceJSONFormat bool
	Temperature     float64
}

// GenerationRequest is the opaque request contract between the fix generator
// and the underlying LLM transport.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	Options      GenerationOptions
}
