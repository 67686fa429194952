// File: internal/analyzer/taxonomy.go
package analyzer

import (
	"strings"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
)

// classificationRule maps a set of textual indicators (exception type names
// and message fragments) to one failure category. Rules are evaluated in
// order; the first match wins.
type classificationRule struct {
	category   schemas.FailureCategory
	indicators []string
}

// systemIndicators positively identify the system under test (or its
// environment) as broken. They are checked before any scripting rule so a
// combined signature like SocketTimeoutException never classifies as a
// fixable timeout.
var systemIndicators = []string{
	"ConnectException",
	"SocketTimeoutException",
	"UnknownHostException",
	"OutOfMemoryError",
	"StackOverflowError",
	"SQLException",
}

// scriptingRules is the closed taxonomy of test-side defects the agent is
// allowed to attempt fixes for. Adding a category means appending a rule
// here, not editing existing logic.
var scriptingRules = []classificationRule{
	{
		category: schemas.CategoryAssertion,
		indicators: []string{
			"AssertionError",
			"ComparisonFailure",
			"junit.framework.AssertionFailedError",
			"expected [",
			"expected:<",
		},
	},
	{
		category:   schemas.CategoryNilReference,
		indicators: []string{"NullPointerException"},
	},
	{
		category: schemas.CategoryElementNotFound,
		indicators: []string{
			"NoSuchElementException",
			"ElementNotFoundException",
			"StaleElementReferenceException",
		},
	},
	{
		category: schemas.CategoryTimeout,
		indicators: []string{
			"TimeoutException",
			"ConditionTimeoutException",
			"Timed out after",
		},
	},
	{
		category: schemas.CategoryParseMismatch,
		indicators: []string{
			"JsonParseException",
			"JsonMappingException",
			"UnrecognizedPropertyException",
			"Unrecognized field",
			"JsonPathException",
		},
	},
	{
		category: schemas.CategoryIndexOutOfBounds,
		indicators: []string{
			"IndexOutOfBoundsException",
			"ArrayIndexOutOfBoundsException",
		},
	},
}

// Classify resolves an exception type, message and stack trace against the
// taxonomy. Anything that matches no rule is CategoryUnclassified: the agent
// prefers a false negative (no fix attempted) over a false positive (wrong
// fix silently applied).
func Classify(exceptionType, message, stackTrace string) schemas.FailureCategory {
	fullText := exceptionType + " " + message + " " + stackTrace

	for _, indicator := range systemIndicators {
		if strings.Contains(fullText, indicator) {
			return schemas.CategorySystem
		}
	}

	for _, rule := range scriptingRules {
		for _, indicator := range rule.indicators {
			if strings.Contains(fullText, indicator) {
				return rule.category
			}
		}
	}

	return schemas.CategoryUnclassified
}
