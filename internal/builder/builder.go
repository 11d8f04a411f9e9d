package builder

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/qobs-build/mkgen/internal/builder/gen"
	"go.uber.org/zap"
)

// BuildSpec is the input of synthesis: the configuration and the sources it
// resolved to
type BuildSpec struct {
	Config  Config
	Sources []string
	Headers []string
}

// Result is one generation run
type Result struct {
	Document string
	Spec     BuildSpec
	// object name -> sources that share it
	Collisions map[string][]string
}

// Synthesize renders spec as a Makefile. It does no I/O and cannot fail.
func Synthesize(spec BuildSpec) string {
	g := gen.NewMakefileGen(spec.Config.toolchain())
	for _, src := range spec.Sources {
		g.AddSource(src)
	}
	return g.Generate()
}

// ObjectCollisions groups sources by their object name under naming and
// returns the groups with more than one member
func ObjectCollisions(sources []string, naming gen.ObjectNaming) map[string][]string {
	byObject := make(map[string][]string)
	for _, src := range sources {
		obj := gen.ObjectName(src, naming)
		byObject[obj] = append(byObject[obj], src)
	}
	maps.DeleteFunc(byObject, func(_ string, srcs []string) bool { return len(srcs) < 2 })
	return byObject
}

// GenerateBuildFile resolves the sources cfg describes, relative to the
// current directory, and returns the Makefile for them
func GenerateBuildFile(cfg Config) (string, error) {
	res, err := NewBuilder(cfg, "").Generate()
	if err != nil {
		return "", err
	}
	return res.Document, nil
}

type Builder struct {
	cfg        Config
	basedir    string
	configPath string
	logger     *zap.Logger
	jobs       int
	debounce   time.Duration
	progress   ProgressFunc
}

// NewBuilder returns a builder for an already resolved configuration. Relative
// paths in cfg are taken relative to basedir ("" is the current directory).
func NewBuilder(cfg Config, basedir string) *Builder {
	return &Builder{
		cfg:      cfg,
		basedir:  basedir,
		logger:   zap.L(),
		jobs:     1,
		debounce: 200 * time.Millisecond,
	}
}

// NewBuilderInDirectory loads the configuration for path, which is either a
// directory (searched for a config file, defaults if there is none) or a config
// file. A config file path that does not exist gives the defaults in its
// directory. configPath, when set, names the config file explicitly and must
// exist. extra is applied on top of the file's keys.
func NewBuilderInDirectory(path, configPath string, extra Overrides) (*Builder, error) {
	if path == "" {
		path = "."
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	basedir := path
	stat, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && configPath == "" && isConfigName(filepath.Base(path)):
		// a config file that does not exist yet means defaults in its directory
		basedir = filepath.Dir(path)
		if stat, err = os.Stat(basedir); err != nil {
			return nil, err
		}
		if !stat.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", basedir)
		}
	case err != nil:
		return nil, err
	case !stat.IsDir():
		if configPath == "" {
			configPath = path
		}
		basedir = filepath.Dir(path)
	case configPath == "":
		if configPath, err = FindConfigFile(path); err != nil {
			return nil, fmt.Errorf("while looking for a config file: %w", err)
		}
	}

	overrides := make(Overrides)
	if configPath != "" {
		o, err := ParseOverridesFromFile(configPath, NewConfigEnv())
		if err != nil {
			return nil, err
		}
		overrides = o
	} else {
		zap.L().Info("no config file found, using defaults", zap.String("dir", basedir))
	}
	maps.Copy(overrides, extra)

	cfg, err := Merge(Defaults(), overrides)
	if err != nil {
		if configPath != "" {
			return nil, fmt.Errorf("%s: %w", configPath, err)
		}
		return nil, err
	}

	b := NewBuilder(cfg, basedir)
	b.configPath = configPath
	return b, nil
}

func (b *Builder) Config() Config              { return b.cfg.clone() }
func (b *Builder) BaseDir() string             { return b.basedir }
func (b *Builder) ConfigPath() string          { return b.configPath }
func (b *Builder) SetJobs(n int)               { b.jobs = n }
func (b *Builder) SetLogger(l *zap.Logger)     { b.logger = l }
func (b *Builder) SetDebounce(d time.Duration) { b.debounce = d }
func (b *Builder) SetProgress(fn ProgressFunc) { b.progress = fn }

// OutputPath is where Write puts the Makefile
func (b *Builder) OutputPath() string {
	if filepath.IsAbs(b.cfg.OutputName) {
		return b.cfg.OutputName
	}
	return filepath.Join(b.basedir, b.cfg.OutputName)
}

// Generate resolves sources and headers and synthesizes the Makefile
func (b *Builder) Generate() (*Result, error) {
	walker := NewWalker(b.basedir, b.cfg, b.logger)
	resolver := NewResolver(walker, b.jobs)
	resolver.SetProgress(b.progress)

	sources, err := resolver.ResolveSources(b.cfg.SourceRoots, b.cfg.SourceExtensions)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sources: %w", err)
	}
	headers, err := resolver.ResolveHeaders(b.cfg.SourceRoots, b.cfg.HeaderExtensions)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve headers: %w", err)
	}
	b.logger.Debug("resolved files", zap.Int("sources", len(sources)), zap.Int("headers", len(headers)))

	spec := BuildSpec{Config: b.cfg.clone(), Sources: sources, Headers: headers}
	return &Result{
		Document:   Synthesize(spec),
		Spec:       spec,
		Collisions: ObjectCollisions(sources, b.cfg.ObjectNaming),
	}, nil
}

// Write stores res at OutputPath. The file is left alone, and false returned,
// when it already has this content.
func (b *Builder) Write(res *Result) (bool, error) {
	path := b.OutputPath()
	old, err := os.ReadFile(path)
	if err == nil && bytes.Equal(old, []byte(res.Document)) {
		return false, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if err := os.WriteFile(path, []byte(res.Document), 0644); err != nil {
		return false, err
	}
	return true, nil
}

// Diff compares the Makefile on disk with the one Generate would produce. A
// missing file compares as empty.
func (b *Builder) Diff() (string, error) {
	res, err := b.Generate()
	if err != nil {
		return "", err
	}
	old, err := os.ReadFile(b.OutputPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	return Diff(string(old), res.Document), nil
}

// SortedCollisions returns the colliding object names of res in order
func (res *Result) SortedCollisions() []string {
	return slices.Sorted(maps.Keys(res.Collisions))
}
