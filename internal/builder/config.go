package builder

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
	"github.com/qobs-build/mkgen/internal/builder/gen"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	ErrConfigMalformed = errors.New("malformed configuration")
	ErrConfigNotFound  = errors.New("configuration file not found")
)

// Config is the resolved set of options. Treat it as a value: functions taking
// a Config never modify the caller's slices.
type Config struct {
	SourceRoots      []string `json:"search_sources_dir_root_list" toml:"search_sources_dir_root_list" yaml:"search_sources_dir_root_list"`
	IgnoreDirs       []string `json:"search_sources_ignore_dir_list" toml:"search_sources_ignore_dir_list" yaml:"search_sources_ignore_dir_list"`
	IgnorePatterns   []string `json:"search_sources_ignore_pattern_list" toml:"search_sources_ignore_pattern_list" yaml:"search_sources_ignore_pattern_list"`
	RespectGitignore bool     `json:"search_sources_respect_gitignore" toml:"search_sources_respect_gitignore" yaml:"search_sources_respect_gitignore"`
	SourceExtensions []string `json:"search_sources_extension_list" toml:"search_sources_extension_list" yaml:"search_sources_extension_list"`
	HeaderExtensions []string `json:"search_headers_extension_list" toml:"search_headers_extension_list" yaml:"search_headers_extension_list"`

	TargetName   string           `json:"build_target_name" toml:"build_target_name" yaml:"build_target_name"`
	ObjectDir    string           `json:"build_object_dir" toml:"build_object_dir" yaml:"build_object_dir"`
	ObjectNaming gen.ObjectNaming `json:"build_object_naming" toml:"build_object_naming" yaml:"build_object_naming"`
	CleanTarget  bool             `json:"build_clean_target" toml:"build_clean_target" yaml:"build_clean_target"`
	OutputName   string           `json:"build_output_name" toml:"build_output_name" yaml:"build_output_name"`

	CC        string `json:"build_compiler_cc" toml:"build_compiler_cc" yaml:"build_compiler_cc"`
	CCFlags   string `json:"build_compiler_ccflags" toml:"build_compiler_ccflags" yaml:"build_compiler_ccflags"`
	CXX       string `json:"build_compiler_cxx" toml:"build_compiler_cxx" yaml:"build_compiler_cxx"`
	CXXFlags  string `json:"build_compiler_cxxflags" toml:"build_compiler_cxxflags" yaml:"build_compiler_cxxflags"`
	Link      string `json:"build_compiler_link" toml:"build_compiler_link" yaml:"build_compiler_link"`
	LinkFlags string `json:"build_compiler_linkflags" toml:"build_compiler_linkflags" yaml:"build_compiler_linkflags"`
}

// Defaults returns a fresh copy of the built-in configuration
func Defaults() Config {
	return Config{
		SourceRoots:      []string{"./"},
		IgnoreDirs:       []string{},
		IgnorePatterns:   []string{},
		SourceExtensions: []string{"c", "cpp", "cc", "cxx", "C"},
		HeaderExtensions: []string{"h", "hpp"},
		TargetName:       "bin/app",
		ObjectDir:        "obj/",
		ObjectNaming:     gen.NamingBasename,
		OutputName:       "Makefile",
		CC:               "gcc",
		CCFlags:          "-g -Wall",
		CXX:              "g++",
		CXXFlags:         "-g -Wall -std=c++11",
		Link:             "g++",
		LinkFlags:        "-g -Wall -std=c++11",
	}
}

func (c Config) clone() Config {
	c.SourceRoots = slices.Clone(c.SourceRoots)
	c.IgnoreDirs = slices.Clone(c.IgnoreDirs)
	c.IgnorePatterns = slices.Clone(c.IgnorePatterns)
	c.SourceExtensions = slices.Clone(c.SourceExtensions)
	c.HeaderExtensions = slices.Clone(c.HeaderExtensions)
	return c
}

// Validate checks the values the generator cannot interpret on its own
func (c Config) Validate() error {
	switch c.ObjectNaming {
	case gen.NamingBasename, gen.NamingRelative:
	default:
		return fmt.Errorf("%w: build_object_naming must be %q or %q, got %q",
			ErrConfigMalformed, gen.NamingBasename, gen.NamingRelative, c.ObjectNaming)
	}
	for _, pat := range c.IgnorePatterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("%w: invalid pattern %q in search_sources_ignore_pattern_list", ErrConfigMalformed, pat)
		}
	}
	if c.OutputName == "" {
		return fmt.Errorf("%w: build_output_name is empty", ErrConfigMalformed)
	}
	return nil
}

// toolchain maps the build_* keys onto what the Makefile generator consumes
func (c Config) toolchain() gen.Toolchain {
	return gen.Toolchain{
		Target:      c.TargetName,
		ObjectDir:   gen.NormalizeObjectDir(c.ObjectDir),
		Link:        c.Link,
		CXX:         c.CXX,
		CC:          c.CC,
		CCFlags:     c.CCFlags,
		CXXFlags:    c.CXXFlags,
		LinkFlags:   c.LinkFlags,
		Naming:      c.ObjectNaming,
		CleanTarget: c.CleanTarget,
	}
}

var recognizedKeys = func() []string {
	t := reflect.TypeFor[Config]()
	keys := make([]string, 0, t.NumField())
	for i := range t.NumField() {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		keys = append(keys, name)
	}
	return keys
}()

// RecognizedKeys lists every configuration key that Merge applies
func RecognizedKeys() []string {
	return slices.Clone(recognizedKeys)
}

func isRecognizedKey(key string) bool {
	return slices.Contains(recognizedKeys, key)
}

// Overrides are user supplied key/value pairs, as decoded from a config source
type Overrides map[string]any

// Merge overlays o onto defaults and returns the result. Only recognized keys
// are applied and each replaces the default wholesale, lists included.
// Unrecognized keys are ignored. defaults is not modified.
func Merge(defaults Config, o Overrides) (Config, error) {
	cfg := defaults.clone()

	known := make(map[string]any, len(o))
	for key, val := range o {
		if !isRecognizedKey(key) {
			zap.L().Debug("ignoring unrecognized configuration key", zap.String("key", key))
			continue
		}
		if val == nil {
			return Config{}, fmt.Errorf("%w: %s has no value", ErrConfigMalformed, key)
		}
		known[key] = val
	}

	if len(known) > 0 {
		data, err := json.Marshal(known)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %v", ErrConfigMalformed, err)
		}
		// decoding a JSON array into a slice resets it, which gives the
		// replace-not-append semantics for list keys
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %v", ErrConfigMalformed, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Format is the syntax of a config file
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// ConfigSuffix is the suffix that marks a file as a configuration file
const ConfigSuffix = ".automake"

var configSuffixes = map[string]Format{
	ConfigSuffix:           FormatJSON,
	ConfigSuffix + ".json": FormatJSON,
	ConfigSuffix + ".toml": FormatTOML,
	ConfigSuffix + ".yaml": FormatYAML,
	ConfigSuffix + ".yml":  FormatYAML,
}

// FormatFromPath picks the decoder for a config file by its suffix. Anything
// unknown is read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

func isConfigName(name string) bool {
	for suffix := range configSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// FindConfigFile returns the first config file in dir (in name order), or ""
// if there is none
func FindConfigFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.IsDir() || !isConfigName(e.Name()) {
			continue
		}
		return filepath.Join(dir, e.Name()), nil
	}
	return "", nil
}

// ParseOverrides decodes a config source and evaluates the {{...}} expressions
// in its strings
func ParseOverrides(rdr io.Reader, format Format, env ConfigEnv) (Overrides, error) {
	raw := make(map[string]any)

	var err error
	switch format {
	case FormatTOML:
		err = toml.NewDecoder(rdr).Decode(&raw)
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			err = errors.New(derr.String())
		}
	case FormatYAML:
		err = yaml.NewDecoder(rdr).Decode(&raw)
		if errors.Is(err, io.EOF) {
			err = nil // empty document
		}
	default:
		dec := json.NewDecoder(bufio.NewReader(rdr))
		if err = dec.Decode(&raw); err == nil {
			// the file holds exactly one object
			if extra := dec.Decode(&struct{}{}); !errors.Is(extra, io.EOF) {
				err = fmt.Errorf("unexpected content after the top-level object (offset %d)", dec.InputOffset())
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigMalformed, err)
	}

	processed, err := processExpressions(raw, env)
	if err != nil {
		return nil, fmt.Errorf("%w: error processing expressions in config: %w", ErrConfigMalformed, err)
	}
	return processed.(map[string]any), nil
}

// ParseOverridesFromFile parses the config file at path
func ParseOverridesFromFile(path string, env ConfigEnv) (Overrides, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	o, err := ParseOverrides(f, FormatFromPath(path), env)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return o, nil
}

// LoadConfig merges the config file at path onto the defaults. An empty path
// yields the defaults.
func LoadConfig(path string, env ConfigEnv) (Config, error) {
	if path == "" {
		return Defaults(), nil
	}
	o, err := ParseOverridesFromFile(path, env)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Merge(Defaults(), o)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// MarshalConfig encodes cfg in the given format, for writing config files
func MarshalConfig(cfg Config, format Format) ([]byte, error) {
	switch format {
	case FormatTOML:
		return toml.Marshal(cfg)
	case FormatYAML:
		return yaml.Marshal(cfg)
	default:
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
}
