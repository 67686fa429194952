// File: internal/fixgen/fixgen.go
package fixgen

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
	"github.com/xkilldash9x/remedy-cli/internal/llmutil"
)

// Generator turns a classified failure record into a corrective patch
// suggestion via the configured LLM backend.
type Generator struct {
	logger      *zap.Logger
	llmClient   schemas.LLMClient
	temperature float64
}

// New creates a fix generator.
func New(logger *zap.Logger, llmClient schemas.LLMClient, temperature float64) *Generator {
	return &Generator{
		logger:      logger.Named("fixgen"),
		llmClient:   llmClient,
		temperature: temperature,
	}
}

// wireSuggestion is the strict JSON shape the model is instructed to return.
type wireSuggestion struct {
	Explanation string  `json:"explanation"`
	Diff        string  `json:"diff"`
	Confidence  float64 `json:"confidence"`
}

// Suggest requests a patch for one failure record. sourceContext is the
// content of the failing test source, possibly empty when the analyzer could
// not locate it.
func (g *Generator) Suggest(ctx context.Context, record schemas.FailureRecord, sourceContext string) (*schemas.FixSuggestion, error) {
	g.logger.Info("Requesting fix suggestion.",
		zap.String("test", record.TestClass+"."+record.TestName),
		zap.String("category", string(record.Category)))

	req := schemas.GenerationRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildPrompt(record, sourceContext),
		Options: schemas.GenerationOptions{
			ForceJSONFormat: true,
			Temperature:     g.temperature, // High precision required for fixes.
		},
	}

	response, err := g.llmClient.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fix generation failed: %w", err)
	}

	wire, err := llmutil.ParseJSONResponse[wireSuggestion](response)
	if err != nil {
		g.logger.Error("Failed to parse fix generator response.", zap.Error(err))
		return nil, err
	}

	suggestion := &schemas.FixSuggestion{
		Explanation: wire.Explanation,
		Patch:       llmutil.CleanPatchOutput(wire.Diff),
		Confidence:  wire.Confidence,
	}

	if suggestion.Patch == "" {
		return nil, fmt.Errorf("fix generator response is missing the diff")
	}
	if !strings.Contains(suggestion.Patch, "--- ") || !strings.Contains(suggestion.Patch, "+++ ") {
		return nil, fmt.Errorf("fix generator 'diff' field is not in unified diff format")
	}

	// Clamp out-of-range confidence rather than failing: the gate downstream
	// still decides what to do with it.
	if suggestion.Confidence < 0.0 || suggestion.Confidence > 1.0 {
		g.logger.Warn("Invalid confidence score received, clamping to range.",
			zap.Float64("received_confidence", suggestion.Confidence))
		if suggestion.Confidence < 0.0 {
			suggestion.Confidence = 0.0
		} else {
			suggestion.Confidence = 1.0
		}
	}

	g.logger.Info("Fix suggestion generated.", zap.Float64("confidence", suggestion.Confidence))
	return suggestion, nil
}

const systemPrompt = `You are an expert test automation engineer specializing in Java, RestAssured, and TestNG frameworks.
Your task is to analyze test failures and propose precise, minimal code fixes.
You only fix defects in test code, never in the system under test.
Your response must be in the required strict JSON format, and the diff must be a valid unified diff with repository-root-relative paths.`

// buildPrompt assembles the failure context, the source snippet, and the
// known failure-pattern guidance into a single user prompt.
func buildPrompt(record schemas.FailureRecord, sourceContext string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `Analyze the following test failure and propose a fix.

## Failure Context
- **Test Class**: %s
- **Test Method**: %s
- **Failure Category**: %s
- **Error Message**: %s
- **File Path**: %s

## Stack Trace
`+"```"+`
%s
`+"```"+`
`, record.TestClass, record.TestName, record.Category, record.Message, record.SourceFile, record.StackTrace)

	if sourceContext != "" {
		fmt.Fprintf(&b, `
## Code Context
`+"```java"+`
%s
`+"```"+`
`, sourceContext)
	}

	b.WriteString(`
## Common Failure Patterns & Solutions

### 1. Assertion mismatch (status code / expected value)
- **Pattern**: expected [X] but found [Y]
- **Fix**: Update the assertion to match actual API behavior

### 2. Element not found
- **Pattern**: no such element: Unable to locate element
- **Fix**: Update the locator strategy or wait for the element

### 3. Null reference
- **Pattern**: java.lang.NullPointerException
- **Fix**: Add a null check or initialize the object before use

### 4. Timeout
- **Pattern**: timeout: Timed out after X seconds
- **Fix**: Increase the wait budget or fix the flaky locator

### 5. Parsing / deserialization mismatch
- **Pattern**: JsonParseException or unrecognized field
- **Fix**: Update the DTO field or JSON path to match the response

### 6. Index out of bounds
- **Pattern**: IndexOutOfBoundsException
- **Fix**: Add an emptiness or size check before indexing

## Instructions
1. Identify the root cause of the failure in the provided code.
2. Propose a minimal, surgical fix (change only what is necessary).
3. Generate a valid unified diff patch with paths relative to the repo root.

## Output Format
Return ONLY valid JSON (no markdown wrapping):
{
  "explanation": "Brief explanation of the issue and fix",
  "diff": "Valid git diff in unified format",
  "confidence": 0.9
}
`)

	return b.String()
}
