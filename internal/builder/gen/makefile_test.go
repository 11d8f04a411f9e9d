package gen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testToolchain() Toolchain {
	return Toolchain{
		Target:    "bin/app",
		ObjectDir: "obj/",
		Link:      "g++",
		CXX:       "g++",
		CC:        "gcc",
		CCFlags:   "-g -Wall",
		CXXFlags:  "-g -Wall -std=c++11",
		LinkFlags: "-g -Wall -std=c++11",
		Naming:    NamingBasename,
	}
}

func generate(tc Toolchain, sources ...string) string {
	g := NewMakefileGen(tc)
	for _, src := range sources {
		g.AddSource(src)
	}
	return g.Generate()
}

const header = "TARGET     = bin/app\n" +
	"TARGET_DIR = $(dir $(TARGET))\n" +
	"OBJECT_DIR = obj/\n" +
	"LINK       = g++\n" +
	"CXX        = g++\n" +
	"CC         = gcc\n" +
	"CCFLAGS    = -g -Wall\n" +
	"CXXFLAGS   = -g -Wall -std=c++11\n" +
	"LINKFLAGS  = -g -Wall -std=c++11\n"

const bootstrapAndLink = "$(shell test -d $(OBJECT_DIR) || mkdir -p $(OBJECT_DIR))\n" +
	"\n" +
	"$(TARGET):$(OBJECT)\n" +
	"\ttest -d $(TARGET_DIR) || mkdir -p $(TARGET_DIR)\n" +
	"\t$(LINK) $(LINKFLAGS) -o $(TARGET) $(OBJECT)\n" +
	"\n"

func TestMakefileGenerate(t *testing.T) {
	got := generate(testToolchain(), "a/x.c", "b/y.cpp")

	want := header +
		"OBJECT     = \\\n" +
		"\t$(OBJECT_DIR)x.o\\\n" +
		"\t$(OBJECT_DIR)y.o\n" +
		"\n" +
		bootstrapAndLink +
		"$(OBJECT_DIR)x.o:a/x.c\n" +
		"\t$(CC) $(CCFLAGS) -c -o $(OBJECT_DIR)x.o a/x.c\n" +
		"$(OBJECT_DIR)y.o:b/y.cpp\n" +
		"\t$(CXX) $(CXXFLAGS) -c -o $(OBJECT_DIR)y.o b/y.cpp\n" +
		"\n" +
		"clean:\n" +
		"\trm $(OBJECT)\n"

	require.Equal(t, want, got)
}

func TestMakefileGenerateEmpty(t *testing.T) {
	got := generate(testToolchain())

	want := header +
		"OBJECT     = \n" +
		"\n" +
		bootstrapAndLink +
		"\n" +
		"clean:\n" +
		"\trm $(OBJECT)\n"

	require.Equal(t, want, got)
}

func TestMakefileRecipesUseTabs(t *testing.T) {
	got := generate(testToolchain(), "a.c", "b.cc", "c.cxx")

	recipes := 0
	for _, line := range strings.Split(got, "\n") {
		if strings.HasPrefix(line, " ") {
			t.Fatalf("line indented with spaces: %q", line)
		}
		if strings.HasPrefix(line, "\t") {
			require.False(t, strings.HasPrefix(line, "\t\t"), "double tab: %q", line)
			recipes++
		}
	}
	// 3 OBJECT entries, 2 link recipe lines, 3 compile recipes, 1 clean
	assert.Equal(t, 9, recipes)
}

func TestMakefileObjectDirNormalized(t *testing.T) {
	tc := testToolchain()
	tc.ObjectDir = "build/obj"
	assert.Contains(t, generate(tc), "OBJECT_DIR = build/obj/\n")

	tc.ObjectDir = ""
	assert.Contains(t, generate(tc), "OBJECT_DIR = ./\n")
}

func TestMakefileCCOnlyAffectsCRules(t *testing.T) {
	tc := testToolchain()
	before := generate(tc, "x.c", "y.cpp")
	tc.CC = "clang"
	after := generate(tc, "x.c", "y.cpp")

	assert.Contains(t, after, "CC         = clang\n")
	assert.Equal(t,
		strings.Replace(before, "CC         = gcc\n", "CC         = clang\n", 1),
		after)
	// recipes refer to the variables, so only the C rule picks up clang
	assert.Contains(t, after, "\t$(CC) $(CCFLAGS) -c -o $(OBJECT_DIR)x.o x.c\n")
	assert.Contains(t, after, "\t$(CXX) $(CXXFLAGS) -c -o $(OBJECT_DIR)y.o y.cpp\n")
}

func TestMakefileCleanTarget(t *testing.T) {
	tc := testToolchain()
	assert.True(t, strings.HasSuffix(generate(tc, "x.c"), "clean:\n\trm $(OBJECT)\n"))

	tc.CleanTarget = true
	assert.True(t, strings.HasSuffix(generate(tc, "x.c"), "clean:\n\trm -f $(OBJECT) $(TARGET)\n"))
}

func TestMakefileRelativeNaming(t *testing.T) {
	tc := testToolchain()
	tc.Naming = NamingRelative
	got := generate(tc, "a/x.cpp", "b/x.cpp")

	assert.Contains(t, got, "\t$(OBJECT_DIR)a/x.o\\\n\t$(OBJECT_DIR)b/x.o\n")
	assert.Contains(t, got, "$(OBJECT_DIR)a/x.o:a/x.cpp\n\t@mkdir -p $(dir $@)\n\t$(CXX) $(CXXFLAGS) -c -o $(OBJECT_DIR)a/x.o a/x.cpp\n")
	assert.Contains(t, got, "$(OBJECT_DIR)b/x.o:b/x.cpp\n")
}

func TestMakefileBasenameCollision(t *testing.T) {
	got := generate(testToolchain(), "a/x.cpp", "b/x.cpp")

	// both sources produce a rule for the same object
	assert.Equal(t, 2, strings.Count(got, "$(OBJECT_DIR)x.o:"))
}

func TestMakefileRuleOrder(t *testing.T) {
	got := generate(testToolchain(), "z.c", "a.c", "m.c")

	z := strings.Index(got, "$(OBJECT_DIR)z.o:z.c")
	a := strings.Index(got, "$(OBJECT_DIR)a.o:a.c")
	m := strings.Index(got, "$(OBJECT_DIR)m.o:m.c")
	require.True(t, z >= 0 && a >= 0 && m >= 0)
	assert.Less(t, z, a)
	assert.Less(t, a, m)
}

func TestMakefileSetToolchain(t *testing.T) {
	g := NewMakefileGen(Toolchain{})
	g.SetToolchain(testToolchain())
	g.AddSource("x.c")

	assert.Equal(t, "Makefile", g.BuildFile())
	assert.True(t, strings.HasPrefix(g.Generate(), header))
}
