package builder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qobs-build/mkgen/internal/builder/gen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, []string{"./"}, cfg.SourceRoots)
	assert.Empty(t, cfg.IgnoreDirs)
	assert.Equal(t, []string{"c", "cpp", "cc", "cxx", "C"}, cfg.SourceExtensions)
	assert.Equal(t, []string{"h", "hpp"}, cfg.HeaderExtensions)
	assert.Equal(t, "bin/app", cfg.TargetName)
	assert.Equal(t, "obj/", cfg.ObjectDir)
	assert.Equal(t, "gcc", cfg.CC)
	assert.Equal(t, "-g -Wall", cfg.CCFlags)
	assert.Equal(t, "g++", cfg.CXX)
	assert.Equal(t, "-g -Wall -std=c++11", cfg.CXXFlags)
	assert.Equal(t, "g++", cfg.Link)
	assert.Equal(t, "-g -Wall -std=c++11", cfg.LinkFlags)
	assert.Equal(t, gen.NamingBasename, cfg.ObjectNaming)
	assert.False(t, cfg.CleanTarget)
	assert.False(t, cfg.RespectGitignore)
	assert.Equal(t, "Makefile", cfg.OutputName)
	require.NoError(t, cfg.Validate())
}

func TestDefaultsAreFresh(t *testing.T) {
	cfg := Defaults()
	cfg.SourceRoots[0] = "changed"
	cfg.SourceExtensions = append(cfg.SourceExtensions, "m")

	assert.Equal(t, []string{"./"}, Defaults().SourceRoots)
	assert.Len(t, Defaults().SourceExtensions, 5)
}

func TestRecognizedKeys(t *testing.T) {
	keys := RecognizedKeys()
	for _, key := range []string{
		"search_sources_dir_root_list",
		"search_sources_ignore_dir_list",
		"search_sources_extension_list",
		"search_headers_extension_list",
		"build_target_name",
		"build_object_dir",
		"build_compiler_cc",
		"build_compiler_ccflags",
		"build_compiler_cxx",
		"build_compiler_cxxflags",
		"build_compiler_link",
		"build_compiler_linkflags",
		"search_sources_ignore_pattern_list",
		"search_sources_respect_gitignore",
		"build_object_naming",
		"build_clean_target",
		"build_output_name",
	} {
		assert.Contains(t, keys, key)
	}
	assert.Len(t, keys, 17)
}

func TestMergeReplacesValues(t *testing.T) {
	defaults := Defaults()
	cfg, err := Merge(defaults, Overrides{
		"search_sources_extension_list": []any{"c"},
		"search_sources_dir_root_list":  []any{"src", "lib"},
		"build_compiler_cc":             "clang",
		"build_clean_target":            true,
	})
	require.NoError(t, err)

	// lists are replaced, never appended to
	assert.Equal(t, []string{"c"}, cfg.SourceExtensions)
	assert.Equal(t, []string{"src", "lib"}, cfg.SourceRoots)
	assert.Equal(t, "clang", cfg.CC)
	assert.True(t, cfg.CleanTarget)

	// untouched keys keep their defaults
	assert.Equal(t, "g++", cfg.CXX)
	assert.Equal(t, []string{"h", "hpp"}, cfg.HeaderExtensions)

	// and the defaults value itself is not modified
	assert.Equal(t, Defaults(), defaults)
}

func TestMergeIgnoresUnknownKeys(t *testing.T) {
	cfg, err := Merge(Defaults(), Overrides{
		"build_compiler_fortran": "gfortran",
		"comment":                []any{1, 2, 3},
	})
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestMergeMalformed(t *testing.T) {
	tests := []struct {
		name string
		o    Overrides
	}{
		{"string for list", Overrides{"search_sources_dir_root_list": "src"}},
		{"number for string", Overrides{"build_compiler_cc": 42}},
		{"list of numbers", Overrides{"search_sources_extension_list": []any{1, 2}}},
		{"string for bool", Overrides{"build_clean_target": "yes"}},
		{"unknown naming", Overrides{"build_object_naming": "hashed"}},
		{"bad pattern", Overrides{"search_sources_ignore_pattern_list": []any{"[abc"}}},
		{"empty output", Overrides{"build_output_name": ""}},
		{"null string", Overrides{"build_target_name": nil}},
		{"null list", Overrides{"search_sources_dir_root_list": nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Merge(Defaults(), tt.o)
			require.ErrorIs(t, err, ErrConfigMalformed)
		})
	}
}

func TestParseOverridesFormats(t *testing.T) {
	inputs := map[Format]string{
		FormatJSON: `{
			"search_sources_dir_root_list": ["src"],
			"build_compiler_cc": "clang",
			"build_clean_target": true
		}`,
		FormatTOML: `
search_sources_dir_root_list = ["src"]
build_compiler_cc = "clang"
build_clean_target = true
`,
		FormatYAML: `
search_sources_dir_root_list:
  - src
build_compiler_cc: clang
build_clean_target: true
`,
	}

	want := Defaults()
	want.SourceRoots = []string{"src"}
	want.CC = "clang"
	want.CleanTarget = true

	for format, input := range inputs {
		t.Run(string(format), func(t *testing.T) {
			o, err := ParseOverrides(strings.NewReader(input), format, ConfigEnv{})
			require.NoError(t, err)
			cfg, err := Merge(Defaults(), o)
			require.NoError(t, err)
			assert.Equal(t, want, cfg)
		})
	}
}

func TestParseOverridesExpressions(t *testing.T) {
	env := ConfigEnv{
		TargetOS:   "linux",
		TargetArch: "amd64",
		Environ:    map[string]string{"EXTRA": "-DNDEBUG"},
	}
	input := `{
		"build_target_name": "bin/app-{{ target_os }}-{{ target_arch }}",
		"build_compiler_ccflags": "-O2 {{ environ[\"EXTRA\"] }}",
		"search_sources_dir_root_list": ["src", "platform/{{ target_os }}"]
	}`

	o, err := ParseOverrides(strings.NewReader(input), FormatJSON, env)
	require.NoError(t, err)
	cfg, err := Merge(Defaults(), o)
	require.NoError(t, err)

	assert.Equal(t, "bin/app-linux-amd64", cfg.TargetName)
	assert.Equal(t, "-O2 -DNDEBUG", cfg.CCFlags)
	assert.Equal(t, []string{"src", "platform/linux"}, cfg.SourceRoots)
	// make variables pass through untouched
	assert.Equal(t, "x $(CC)", mustEvaluate(t, "x $(CC)", env))
}

func mustEvaluate(t *testing.T, s string, env ConfigEnv) string {
	t.Helper()
	out, err := evaluateString(s, env)
	require.NoError(t, err)
	return out
}

func TestParseOverridesMalformed(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		input  string
	}{
		{"truncated json", FormatJSON, `{"build_compiler_cc": `},
		{"empty json", FormatJSON, ``},
		{"json list", FormatJSON, `["a"]`},
		{"trailing garbage", FormatJSON, `{"build_compiler_cc": "clang"} this is not json`},
		{"two objects", FormatJSON, `{"build_compiler_cc": "clang"} {}`},
		{"stray brace", FormatJSON, `{"build_compiler_cc": "clang"}}`},
		{"bad toml", FormatTOML, `build_compiler_cc = `},
		{"bad yaml", FormatYAML, "build_compiler_cc: [unclosed"},
		{"bad expression", FormatJSON, `{"build_target_name": "{{ 1 + }}"}`},
		{"unknown variable", FormatJSON, `{"build_target_name": "{{ nope }}"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOverrides(strings.NewReader(tt.input), tt.format, ConfigEnv{})
			require.ErrorIs(t, err, ErrConfigMalformed)
		})
	}
}

func TestParseOverridesEmptyYAML(t *testing.T) {
	o, err := ParseOverrides(strings.NewReader(""), FormatYAML, ConfigEnv{})
	require.NoError(t, err)
	assert.Empty(t, o)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFromPath("project.automake"))
	assert.Equal(t, FormatJSON, FormatFromPath("project.automake.json"))
	assert.Equal(t, FormatTOML, FormatFromPath("project.automake.toml"))
	assert.Equal(t, FormatYAML, FormatFromPath("project.automake.yaml"))
	assert.Equal(t, FormatYAML, FormatFromPath("dir/project.automake.YML"))
}

func TestFindConfigFile(t *testing.T) {
	dir := makeTree(t, "readme.txt", "b.automake", "a.automake.toml", "c.automake.yaml", "z.automake/")

	path, err := FindConfigFile(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.automake.toml"), path)

	empty := makeTree(t, "src/main.c", "notes.automake.bak")
	path, err = FindConfigFile(empty)
	require.NoError(t, err)
	assert.Empty(t, path)

	_, err = FindConfigFile(filepath.Join(empty, "missing"))
	require.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("", NewConfigEnv())
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.automake"), NewConfigEnv())
	require.ErrorIs(t, err, ErrConfigNotFound)

	dir := t.TempDir()
	path := filepath.Join(dir, "p.automake")
	require.NoError(t, os.WriteFile(path, []byte(`{"build_object_dir": "build"}`), 0644))
	cfg, err = LoadConfig(path, NewConfigEnv())
	require.NoError(t, err)
	assert.Equal(t, "build", cfg.ObjectDir)
	assert.Equal(t, "build/", cfg.toolchain().ObjectDir)

	require.NoError(t, os.WriteFile(path, []byte(`{"build_object_dir": ["build"]}`), 0644))
	_, err = LoadConfig(path, NewConfigEnv())
	require.ErrorIs(t, err, ErrConfigMalformed)
	assert.Contains(t, err.Error(), path)
}

func TestMarshalConfigIsReadBack(t *testing.T) {
	cfg := Defaults()
	cfg.CC = "clang"
	cfg.IgnoreDirs = []string{"./third_party"}
	cfg.ObjectNaming = gen.NamingRelative

	for _, format := range []Format{FormatJSON, FormatTOML, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			data, err := MarshalConfig(cfg, format)
			require.NoError(t, err)

			o, err := ParseOverrides(strings.NewReader(string(data)), format, ConfigEnv{})
			require.NoError(t, err)
			got, err := Merge(Defaults(), o)
			require.NoError(t, err)
			assert.Equal(t, cfg, got)
		})
	}
}

func TestParseOverridesTrailingWhitespace(t *testing.T) {
	o, err := ParseOverrides(strings.NewReader("{\"build_compiler_cc\": \"clang\"}\n\n  "), FormatJSON, ConfigEnv{})
	require.NoError(t, err)
	assert.Equal(t, Overrides{"build_compiler_cc": "clang"}, o)
}

func TestLoadConfigNullValues(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"json.automake":      `{"build_target_name": null}`,
		"yaml.automake.yaml": "build_object_dir:\n",
		"list.automake":      `{"search_sources_dir_root_list": null}`,
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		_, err := LoadConfig(path, ConfigEnv{})
		require.ErrorIs(t, err, ErrConfigMalformed, name)
	}
}
