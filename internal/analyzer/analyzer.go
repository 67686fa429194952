// File: internal/analyzer/analyzer.go
package analyzer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
)

// Analyzer parses structured test-result artifacts into typed, classified
// failure records. It reads the artifact tree and the repository but never
// mutates either.
type Analyzer struct {
	logger   *zap.Logger
	repoRoot string
}

// New creates a failure analyzer rooted at the repository under repair.
func New(logger *zap.Logger, repoRoot string) *Analyzer {
	return &Analyzer{
		logger:   logger.Named("analyzer"),
		repoRoot: repoRoot,
	}
}

// Analyze walks the artifacts directory for JUnit-style report files
// (TEST-*.xml) and returns one FailureRecord per non-passing test case.
// Ordering is deterministic: records follow the sorted report-file order.
func (a *Analyzer) Analyze(artifactsPath string) ([]schemas.FailureRecord, error) {
	if _, err := os.Stat(artifactsPath); err != nil {
		return nil, fmt.Errorf("artifacts path not found: %w", err)
	}

	var reportFiles []string
	err := filepath.WalkDir(artifactsPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, "TEST-") && strings.HasSuffix(name, ".xml") {
			reportFiles = append(reportFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan artifacts directory: %w", err)
	}
	sort.Strings(reportFiles)

	// Reports are independent; parse them concurrently but keep the
	// per-file record order stable.
	perFile := make([][]schemas.FailureRecord, len(reportFiles))
	var g errgroup.Group
	for i, path := range reportFiles {
		g.Go(func() error {
			records, err := a.parseReportFile(path)
			if err != nil {
				// A malformed report file is logged and skipped; the rest of
				// the batch still classifies.
				a.logger.Warn("Failed to parse report file, skipping.",
					zap.String("file", path), zap.Error(err))
				return nil
			}
			perFile[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var records []schemas.FailureRecord
	for _, batch := range perFile {
		records = append(records, batch...)
	}

	a.logger.Info("Artifact analysis complete.",
		zap.Int("report_files", len(reportFiles)),
		zap.Int("failures", len(records)))
	return records, nil
}

// parseReportFile extracts failure records from one JUnit/TestNG XML report.
// The root element is either <testsuite> or a <testsuites> wrapper.
func (a *Analyzer) parseReportFile(path string) ([]schemas.FailureRecord, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("report has no root element")
	}

	var suites []*etree.Element
	switch root.Tag {
	case "testsuite":
		suites = []*etree.Element{root}
	case "testsuites":
		suites = root.SelectElements("testsuite")
	default:
		return nil, fmt.Errorf("unexpected root element <%s>", root.Tag)
	}

	var records []schemas.FailureRecord
	for _, suite := range suites {
		suiteName := suite.SelectAttrValue("name", "Unknown")

		for _, testcase := range suite.SelectElements("testcase") {
			issue := testcase.SelectElement("failure")
			if issue == nil {
				issue = testcase.SelectElement("error")
			}
			if issue == nil {
				continue
			}

			testName := testcase.SelectAttrValue("name", "Unknown")
			testClass := testcase.SelectAttrValue("classname", suiteName)
			exceptionType := issue.SelectAttrValue("type", "Unknown")
			message := issue.SelectAttrValue("message", "")
			stackTrace := strings.TrimSpace(issue.Text())

			record := schemas.FailureRecord{
				TestClass:  testClass,
				TestName:   testName,
				Category:   Classify(exceptionType, message, stackTrace),
				Message:    message,
				StackTrace: stackTrace,
			}
			record.SourceFile = locateSource(a.repoRoot, sourceFileName(testClass, stackTrace))
			records = append(records, record)
		}
	}

	return records, nil
}

// ReadSource returns the content of a record's source file, resolved against
// the repository root. An empty SourceFile yields empty content; the fix
// generator still gets the failure context.
func (a *Analyzer) ReadSource(record schemas.FailureRecord) string {
	if record.SourceFile == "" {
		return ""
	}
	content, err := os.ReadFile(filepath.Join(a.repoRoot, filepath.FromSlash(record.SourceFile)))
	if err != nil {
		a.logger.Warn("Could not read located source file.",
			zap.String("file", record.SourceFile), zap.Error(err))
		return ""
	}
	return string(content)
}
