// File: internal/analyzer/locate.go
package analyzer

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// frameRegex matches the file reference of a JVM stack frame, e.g.
// "at com.example.tests.GetUserTest.testGetUser(GetUserTest.java:42)".
var frameRegex = regexp.MustCompile(`\(([A-Za-z0-9_$]+\.java):(\d+)\)`)

// conventionalSourceRoots are checked before falling back to a full
// repository walk.
var conventionalSourceRoots = []string{
	"src/test/java",
	"src/main/java",
	"test",
	"tests",
}

// skippedDirs are pruned from every repository walk; they hold either
// version-control metadata, dependencies, or build output.
var skippedDirs = map[string]bool{
	".git":         true,
	".gradle":      true,
	"node_modules": true,
	"build":        true,
	"target":       true,
	"vendor":       true,
}

// sourceFileName derives the file to search for. The stack trace is
// preferred; the test class name is the fallback.
func sourceFileName(testClass, stackTrace string) string {
	if matches := frameRegex.FindStringSubmatch(stackTrace); len(matches) > 2 {
		return matches[1]
	}
	if testClass == "" {
		return ""
	}
	// Strip the package qualifier, keep the simple class name.
	simple := testClass
	if i := strings.LastIndex(simple, "."); i >= 0 {
		simple = simple[i+1:]
	}
	return simple + ".java"
}

// locateSource resolves a source file name to a repo-relative path using a
// 4-tier strategy, each tier short-circuiting on first match:
//  1. the name taken as an existing absolute or relative path;
//  2. the name joined to the repository root;
//  3. a search under the conventional source roots;
//  4. a full repository walk excluding VCS, dependency and build dirs.
//
// An empty return means all tiers missed; the caller keeps the record
// without a source reference.
func locateSource(repoRoot, name string) string {
	if name == "" {
		return ""
	}

	// Tier 1: the record already encodes a usable path.
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err == nil {
			if rel, err := filepath.Rel(repoRoot, name); err == nil && !strings.HasPrefix(rel, "..") {
				return filepath.ToSlash(rel)
			}
			return name
		}
	}

	// Tier 2: relative to the repository root.
	if _, err := os.Stat(filepath.Join(repoRoot, name)); err == nil {
		return filepath.ToSlash(name)
	}

	base := filepath.Base(name)

	// Tier 3: conventional source roots.
	for _, root := range conventionalSourceRoots {
		searchRoot := filepath.Join(repoRoot, root)
		if _, err := os.Stat(searchRoot); err != nil {
			continue
		}
		if found := findInTree(searchRoot, base); found != "" {
			if rel, err := filepath.Rel(repoRoot, found); err == nil {
				return filepath.ToSlash(rel)
			}
		}
	}

	// Tier 4: full repository walk.
	if found := findInTree(repoRoot, base); found != "" {
		if rel, err := filepath.Rel(repoRoot, found); err == nil {
			return filepath.ToSlash(rel)
		}
	}

	return ""
}

// findInTree walks root looking for a file with the given base name,
// pruning the well-known non-source directories.
func findInTree(root, base string) string {
	var found string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Unreadable entries are skipped, not fatal.
		}
		if d.IsDir() {
			if skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == base {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	return found
}
