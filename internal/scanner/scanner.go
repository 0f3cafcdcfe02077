// Package scanner discovers the Java sources under a scan root.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/panbanda/javaperf/pkg/config"
	"github.com/panbanda/javaperf/pkg/parser"
)

// ErrNotDirectory is returned when the scan root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Scanner finds Java source files in a directory tree.
type Scanner struct {
	config  *config.Config
	ignores gitignore.Matcher
	// base is the directory gitignore paths are relative to.
	base string
}

// NewScanner creates a scanner. A nil config uses the defaults.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// findGitRoot walks up from start looking for a .git directory.
func findGitRoot(start string) string {
	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadGitignore reads every .gitignore from the repository containing root.
// Outside a repository, .gitignore files under root itself still apply.
func (s *Scanner) loadGitignore(root string) {
	s.ignores, s.base = nil, ""
	if !s.config.Exclude.Gitignore {
		return
	}
	base := findGitRoot(root)
	if base == "" {
		base = root
	}
	patterns, err := gitignore.ReadPatterns(osfs.New(base), nil)
	if err != nil || len(patterns) == 0 {
		return
	}
	s.ignores = gitignore.NewMatcher(patterns)
	s.base = base
}

func (s *Scanner) gitignored(abs string, isDir bool) bool {
	if s.ignores == nil {
		return false
	}
	rel, err := filepath.Rel(s.base, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	return s.ignores.Match(strings.Split(rel, string(filepath.Separator)), isDir)
}

// ScanDir returns the absolute paths of the Java files under root, sorted.
// Unreadable entries are skipped; only an unreadable root is an error.
// Symlinks that resolve outside root are not followed.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", root, ErrNotDirectory)
	}

	s.loadGitignore(absRoot)

	files := make([]string, 0, 256)
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			return nil
		}
		if path == absRoot {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				return nil
			}
		}

		rel, _ := filepath.Rel(absRoot, path)
		if d.IsDir() {
			if s.config.ExcludesDir(d.Name()) || s.gitignored(path, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if parser.DetectLanguage(path) != parser.LangJava {
			return nil
		}
		if s.config.ShouldExclude(rel) || s.gitignored(path, false) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Strings(files)
	return files, nil
}

// isWithinRoot reports whether path lies inside root.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

// ScanFile reports whether a single file would be analyzed when scanning
// root.
func (s *Scanner) ScanFile(root, path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if info.IsDir() || parser.DetectLanguage(path) != parser.LangJava {
		return false, nil
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false, err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false, nil
	}

	for _, part := range strings.Split(filepath.Dir(rel), string(filepath.Separator)) {
		if s.config.ExcludesDir(part) {
			return false, nil
		}
	}
	if s.config.ShouldExclude(rel) {
		return false, nil
	}
	if s.ignores == nil {
		s.loadGitignore(absRoot)
	}
	return !s.gitignored(absPath, false), nil
}

// FilterBySize drops files larger than maxSize bytes and returns how many
// were dropped. A maxSize of 0 keeps everything.
func FilterBySize(files []string, maxSize int64) ([]string, int) {
	if maxSize <= 0 {
		return files, 0
	}

	filtered := make([]string, 0, len(files))
	skipped := 0
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil || info.Size() > maxSize {
			skipped++
			continue
		}
		filtered = append(filtered, f)
	}
	return filtered, skipped
}
