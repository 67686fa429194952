// File: internal/patcher/direct.go
package patcher

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
	"go.uber.org/zap"
)

// lineChange is one removed/added line pair extracted from a hunk.
type lineChange struct {
	old string
	new string
}

// applyDirect is the fallback strategy: instead of replaying the diff
// against possibly-drifted context, it derives each file's intended edits
// from the hunk bodies and writes them with fuzzy line matching. This
// accommodates patches that are valid edits but fail a textual three-way
// merge because the generator saw stale line numbers or whitespace.
func (a *Applier) applyDirect(fileDiffs []*diff.FileDiff) error {
	for _, fd := range fileDiffs {
		if err := a.applyDirectFile(fd); err != nil {
			return err
		}
	}
	return nil
}

func (a *Applier) applyDirectFile(fd *diff.FileDiff) error {
	rel := stripDiffPrefix(fd.NewName)
	if rel == "" || rel == "/dev/null" {
		rel = stripDiffPrefix(fd.OrigName)
	}
	rel = a.resolveOne(rel)
	abs := filepath.Join(a.repoRoot, filepath.FromSlash(rel))

	// A diff that introduces a file reduces to whole-file replacement: the
	// added lines are the file.
	if stripDiffPrefix(fd.OrigName) == "/dev/null" {
		content := newFileContent(fd)
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", rel, err)
		}
		return os.WriteFile(abs, []byte(content), 0o644)
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("target file not readable: %w", err)
	}
	lines := strings.Split(string(raw), "\n")

	changesMade := false
	for _, hunk := range fd.Hunks {
		for _, change := range extractChanges(string(hunk.Body)) {
			replaced := false
			for i, line := range lines {
				if linesMatch(line, change.old) {
					lines[i] = change.new
					replaced = true
					changesMade = true
					break
				}
			}
			if !replaced {
				a.logger.Warn("Could not find line to replace.",
					zap.String("line", strings.TrimSpace(change.old)))
			}
		}
	}

	if !changesMade {
		return fmt.Errorf("no changes could be applied to %s", rel)
	}

	return os.WriteFile(abs, []byte(strings.Join(lines, "\n")), 0o644)
}

// newFileContent assembles the full content of a file a diff creates.
func newFileContent(fd *diff.FileDiff) string {
	var lines []string
	for _, hunk := range fd.Hunks {
		for _, line := range strings.Split(string(hunk.Body), "\n") {
			if strings.HasPrefix(line, "+") {
				lines = append(lines, strings.TrimPrefix(line, "+"))
			}
		}
	}
	return strings.Join(lines, "\n")
}

// extractChanges pairs each removed line with the added line that directly
// follows it. Unpaired additions and deletions are ignored by this strategy;
// the structured apply is the path for those.
func extractChanges(body string) []lineChange {
	lines := strings.Split(body, "\n")
	var changes []lineChange

	for i := 0; i < len(lines); i++ {
		if !strings.HasPrefix(lines[i], "-") {
			continue
		}
		if i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+") {
			changes = append(changes, lineChange{
				old: strings.TrimPrefix(lines[i], "-"),
				new: strings.TrimPrefix(lines[i+1], "+"),
			})
			i++
		}
	}
	return changes
}

// leadingZerosRegex collapses zero-padded integers (01 vs 1), a common
// hallucination in generated Java edits.
var leadingZerosRegex = regexp.MustCompile(`\b0+(\d+)`)

// linesMatch fuzzily compares a tree line against a diff line: exact after
// trimming, then whitespace-insensitive, then with numeric zero padding
// normalized.
func linesMatch(line1, line2 string) bool {
	if strings.TrimSpace(line1) == strings.TrimSpace(line2) {
		return true
	}

	squash := func(s string) string {
		return strings.Join(strings.Fields(s), "")
	}
	if squash(line1) == squash(line2) {
		return true
	}

	n1 := leadingZerosRegex.ReplaceAllString(strings.TrimSpace(line1), "$1")
	n2 := leadingZerosRegex.ReplaceAllString(strings.TrimSpace(line2), "$1")
	return squash(n1) == squash(n2)
}
