// File: internal/analyzer/analyzer_test.go
package analyzer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
)

const failingReport = `<?xml version="1.0" encoding="UTF-8"?>
<testsuite name="com.example.tests.GetUserTest" tests="2" failures="1" errors="0">
  <testcase name="testGetUserOk" classname="com.example.tests.GetUserTest" time="0.42"/>
  <testcase name="testGetUserStatus" classname="com.example.tests.GetUserTest" time="0.13">
    <failure message="expected [200] but found [404]" type="java.lang.AssertionError">java.lang.AssertionError: expected [200] but found [404]
	at com.example.tests.GetUserTest.testGetUserStatus(GetUserTest.java:42)</failure>
  </testcase>
</testsuite>`

const erroringReport = `<?xml version="1.0" encoding="UTF-8"?>
<testsuites>
  <testsuite name="com.example.tests.LoginTest" tests="1" failures="0" errors="1">
    <testcase name="testLogin" classname="com.example.tests.LoginTest">
      <error message="Connection refused" type="java.net.ConnectException">java.net.ConnectException: Connection refused
	at com.example.tests.LoginTest.testLogin(LoginTest.java:17)</error>
    </testcase>
  </testsuite>
</testsuites>`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestRepo(t *testing.T) (repoRoot, artifacts string) {
	t.Helper()
	repoRoot = t.TempDir()
	artifacts = filepath.Join(repoRoot, "build", "test-results", "test")
	require.NoError(t, os.MkdirAll(artifacts, 0o755))
	writeFile(t, filepath.Join(repoRoot, "src", "test", "java", "com", "example", "tests", "GetUserTest.java"),
		"public class GetUserTest {}\n")
	writeFile(t, filepath.Join(repoRoot, "src", "test", "java", "com", "example", "tests", "LoginTest.java"),
		"public class LoginTest {}\n")
	return repoRoot, artifacts
}

func TestAnalyze(t *testing.T) {
	t.Parallel()
	repoRoot, artifacts := newTestRepo(t)

	writeFile(t, filepath.Join(artifacts, "TEST-com.example.tests.GetUserTest.xml"), failingReport)
	writeFile(t, filepath.Join(artifacts, "TEST-com.example.tests.LoginTest.xml"), erroringReport)
	// Not a report; must be ignored.
	writeFile(t, filepath.Join(artifacts, "index.html"), "<html></html>")

	a := New(zaptest.NewLogger(t), repoRoot)
	records, err := a.Analyze(artifacts)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Report files are processed in sorted order.
	first := records[0]
	assert.Equal(t, "com.example.tests.GetUserTest", first.TestClass)
	assert.Equal(t, "testGetUserStatus", first.TestName)
	assert.Equal(t, schemas.CategoryAssertion, first.Category)
	assert.Equal(t, "expected [200] but found [404]", first.Message)
	assert.Equal(t, "src/test/java/com/example/tests/GetUserTest.java", first.SourceFile)
	assert.True(t, first.IsScriptingIssue())

	second := records[1]
	assert.Equal(t, "com.example.tests.LoginTest", second.TestClass)
	assert.Equal(t, schemas.CategorySystem, second.Category)
	assert.False(t, second.IsScriptingIssue())
}

func TestAnalyzeSkipsMalformedReports(t *testing.T) {
	t.Parallel()
	repoRoot, artifacts := newTestRepo(t)

	writeFile(t, filepath.Join(artifacts, "TEST-broken.xml"), "<testsuite><unclosed")
	writeFile(t, filepath.Join(artifacts, "TEST-com.example.tests.GetUserTest.xml"), failingReport)

	a := New(zaptest.NewLogger(t), repoRoot)
	records, err := a.Analyze(artifacts)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestAnalyzeNoFailures(t *testing.T) {
	t.Parallel()
	repoRoot, artifacts := newTestRepo(t)

	writeFile(t, filepath.Join(artifacts, "TEST-green.xml"),
		`<testsuite name="Green" tests="1"><testcase name="ok" classname="Green"/></testsuite>`)

	a := New(zaptest.NewLogger(t), repoRoot)
	records, err := a.Analyze(artifacts)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAnalyzeMissingArtifactsDir(t *testing.T) {
	t.Parallel()
	a := New(zaptest.NewLogger(t), t.TempDir())
	_, err := a.Analyze(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

func TestReadSource(t *testing.T) {
	t.Parallel()
	repoRoot, _ := newTestRepo(t)
	a := New(zaptest.NewLogger(t), repoRoot)

	content := a.ReadSource(schemas.FailureRecord{
		SourceFile: "src/test/java/com/example/tests/GetUserTest.java",
	})
	assert.Contains(t, content, "public class GetUserTest")

	assert.Empty(t, a.ReadSource(schemas.FailureRecord{}))
	assert.Empty(t, a.ReadSource(schemas.FailureRecord{SourceFile: "nope/Missing.java"}))
}

func TestSourceFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		testClass  string
		stackTrace string
		expected   string
	}{
		{
			name:       "From stack frame",
			testClass:  "com.example.tests.GetUserTest",
			stackTrace: "java.lang.AssertionError\n\tat com.example.tests.GetUserTest.testGetUser(GetUserTest.java:42)",
			expected:   "GetUserTest.java",
		},
		{
			name:      "Fallback to simple class name",
			testClass: "com.example.tests.LoginTest",
			expected:  "LoginTest.java",
		},
		{
			name:      "Unqualified class",
			testClass: "SmokeTest",
			expected:  "SmokeTest.java",
		},
		{
			name:     "Nothing to go on",
			expected: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, sourceFileName(tc.testClass, tc.stackTrace))
		})
	}
}

func TestLocateSource(t *testing.T) {
	t.Parallel()
	repoRoot := t.TempDir()

	writeFile(t, filepath.Join(repoRoot, "src", "test", "java", "com", "example", "AlphaTest.java"), "a")
	writeFile(t, filepath.Join(repoRoot, "custom", "layout", "BetaTest.java"), "b")
	writeFile(t, filepath.Join(repoRoot, "build", "generated", "GammaTest.java"), "c")
	writeFile(t, filepath.Join(repoRoot, "README.md"), "readme")

	t.Run("Relative path that already exists", func(t *testing.T) {
		t.Parallel()
		got := locateSource(repoRoot, "README.md")
		assert.Equal(t, "README.md", got)
	})

	t.Run("Conventional source root", func(t *testing.T) {
		t.Parallel()
		got := locateSource(repoRoot, "AlphaTest.java")
		assert.Equal(t, "src/test/java/com/example/AlphaTest.java", got)
	})

	t.Run("Full walk for unconventional layout", func(t *testing.T) {
		t.Parallel()
		got := locateSource(repoRoot, "BetaTest.java")
		assert.Equal(t, "custom/layout/BetaTest.java", got)
	})

	t.Run("Build output is never a source hit", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, locateSource(repoRoot, "GammaTest.java"))
	})

	t.Run("Miss everywhere", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, locateSource(repoRoot, "NoSuchTest.java"))
	})

	t.Run("Empty name", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, locateSource(repoRoot, ""))
	})
}
