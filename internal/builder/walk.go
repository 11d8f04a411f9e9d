package builder

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-git/v6/plumbing/format/gitignore"
	"github.com/qobs-build/mkgen/internal/builder/gen"
	"go.uber.org/zap"
)

const gitignoreFile = ".gitignore"

// dirState is what the walker remembers about a traversed directory so that
// its files can be filtered later
type dirState struct {
	segments []string            // path below Base, or below the root when that lies outside Base
	patterns []gitignore.Pattern // .gitignore patterns from Base down to here
}

// Walker enumerates directories and files below a set of roots.
//
// Paths are produced in the form the caller wrote them: a child is its parent
// plus "/" plus its name (no "/" is added when the parent already ends in one),
// and nothing is cleaned. The ignore set is matched against exactly that form.
type Walker struct {
	// Base is where relative paths are resolved for filesystem access. It never
	// shows up in produced paths.
	Base string

	ignore           map[string]struct{}
	patterns         []string
	respectGitignore bool
	logger           *zap.Logger

	mu     sync.RWMutex
	states map[string]dirState
}

func NewWalker(base string, cfg Config, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.L()
	}
	ignore := make(map[string]struct{}, len(cfg.IgnoreDirs))
	for _, dir := range cfg.IgnoreDirs {
		ignore[dir] = struct{}{}
	}
	return &Walker{
		Base:             base,
		ignore:           ignore,
		patterns:         slices.Clone(cfg.IgnorePatterns),
		respectGitignore: cfg.RespectGitignore,
		logger:           logger,
		states:           make(map[string]dirState),
	}
}

func joinPath(parent, name string) string {
	if strings.HasSuffix(parent, "/") {
		return parent + name
	}
	return parent + "/" + name
}

// fsPath maps a produced path to the path used for filesystem calls
func (w *Walker) fsPath(p string) string {
	if w.Base == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(w.Base, p)
}

func (w *Walker) state(dir string) dirState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.states[dir]
}

func (w *Walker) setState(dir string, st dirState) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.states[dir] = st
}

// readGitignore parses the .gitignore in the filesystem directory dir the way
// go-git's ReadPatterns does
func (w *Walker) readGitignore(dir string, domain []string) []gitignore.Pattern {
	if !w.respectGitignore {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(dir, gitignoreFile))
	if err != nil {
		return nil
	}

	var ps []gitignore.Pattern
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(line, domain))
	}
	return ps
}

// rootState returns the state of root: its segments below Base, and the
// .gitignore patterns of Base and every directory from there down to root. A
// root outside Base only sees its own .gitignore.
func (w *Walker) rootState(root string) dirState {
	if !w.respectGitignore {
		return dirState{}
	}

	dir, err := filepath.Abs(w.fsPath(root))
	if err != nil {
		return dirState{}
	}
	base, err := filepath.Abs(w.Base)
	if err != nil {
		return dirState{}
	}
	rel, err := filepath.Rel(base, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return dirState{patterns: w.readGitignore(dir, nil)}
	}

	st := dirState{patterns: w.readGitignore(base, nil)}
	if rel == "." {
		return st
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		st.segments = append(st.segments, seg)
		base = filepath.Join(base, seg)
		st.patterns = append(st.patterns, w.readGitignore(base, slices.Clone(st.segments))...)
	}
	return st
}

// enter records the state of child directory `name` of a directory in state st
func (w *Walker) enter(p, name string, st dirState) dirState {
	segments := append(slices.Clip(st.segments), name)
	child := dirState{
		segments: segments,
		patterns: append(slices.Clip(st.patterns), w.readGitignore(w.fsPath(p), segments)...),
	}
	w.setState(p, child)
	return child
}

// isIgnored reports whether the entry `name` of a directory in state st, with
// produced path p, is excluded. The exact ignore set applies to directories only.
func (w *Walker) isIgnored(p, name string, isDir bool, st dirState) bool {
	if isDir {
		if _, ok := w.ignore[p]; ok {
			return true
		}
	}

	slashed := filepath.ToSlash(p)
	trimmed := strings.TrimPrefix(slashed, "./")
	for _, pat := range w.patterns {
		if ok, _ := doublestar.Match(pat, slashed); ok {
			return true
		}
		if ok, _ := doublestar.Match(pat, trimmed); ok {
			return true
		}
	}

	if len(st.patterns) > 0 {
		m := gitignore.NewMatcher(st.patterns)
		if m.Match(append(slices.Clip(st.segments), name), isDir) {
			return true
		}
	}
	return false
}

// Subdirectories returns every directory below root, depth first and
// post-order: a directory appears after everything beneath it. Siblings are
// visited in name order. Ignored directories are skipped with their subtrees.
// A missing root yields nothing.
func (w *Walker) Subdirectories(root string) []string {
	info, err := os.Stat(w.fsPath(root))
	if err != nil || !info.IsDir() {
		w.logger.Debug("root directory missing, skipping", zap.String("root", root))
		return nil
	}

	st := w.rootState(root)
	w.setState(root, st)
	return w.walk(root, st, []os.FileInfo{info})
}

func (w *Walker) walk(dir string, st dirState, ancestors []os.FileInfo) []string {
	entries, err := os.ReadDir(w.fsPath(dir))
	if err != nil {
		w.logger.Warn("cannot read directory", zap.String("dir", dir), zap.Error(err))
		return nil
	}

	var dirs []string
	for _, e := range entries {
		p := joinPath(dir, e.Name())

		// Stat follows symlinks, so linked directories are walked too
		info, err := os.Stat(w.fsPath(p))
		if err != nil || !info.IsDir() {
			continue
		}
		if w.isIgnored(p, e.Name(), true, st) {
			w.logger.Debug("ignoring directory", zap.String("dir", p))
			continue
		}
		if slices.ContainsFunc(ancestors, func(a os.FileInfo) bool { return os.SameFile(a, info) }) {
			w.logger.Debug("directory links back to an ancestor, skipping", zap.String("dir", p))
			continue
		}

		child := w.enter(p, e.Name(), st)
		dirs = append(dirs, w.walk(p, child, append(slices.Clip(ancestors), info))...)
		dirs = append(dirs, p)
	}
	return dirs
}

// FilesWithExtension lists the regular files directly inside dir whose
// extension is exactly ext, in name order
func (w *Walker) FilesWithExtension(dir, ext string) []string {
	entries, err := os.ReadDir(w.fsPath(dir))
	if err != nil {
		w.logger.Debug("cannot list directory", zap.String("dir", dir), zap.Error(err))
		return nil
	}

	st := w.state(dir)
	var files []string
	for _, e := range entries {
		if gen.FileExtension(e.Name()) != ext {
			continue
		}
		p := joinPath(dir, e.Name())
		info, err := os.Stat(w.fsPath(p))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if w.isIgnored(p, e.Name(), false, st) {
			w.logger.Debug("ignoring file", zap.String("file", p))
			continue
		}
		files = append(files, p)
	}
	return files
}

// AllDirectories returns the roots as given, followed by the expansion of
// each root in turn. Duplicates are kept.
func (w *Walker) AllDirectories(roots []string) []string {
	dirs := slices.Clone(roots)
	for _, root := range roots {
		dirs = append(dirs, w.Subdirectories(root)...)
	}
	return dirs
}
