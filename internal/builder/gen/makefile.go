package gen

import "strings"

const objectDirVar = "$(OBJECT_DIR)"

var _ Generator = (*MakefileGen)(nil)

// MakefileGen synthesizes a flat Makefile: variables, object directory
// bootstrap, link rule, one compile rule per source and a clean rule
type MakefileGen struct {
	tc      Toolchain
	sources []SourceFile
}

func NewMakefileGen(tc Toolchain) *MakefileGen {
	return &MakefileGen{tc: tc}
}

func (g *MakefileGen) SetToolchain(tc Toolchain) { g.tc = tc }

func (g *MakefileGen) BuildFile() string { return "Makefile" }

// AddSource appends a source file. Rules are emitted in insertion order.
func (g *MakefileGen) AddSource(path string) {
	g.sources = append(g.sources, NewSourceFile(path))
}

// objectPath returns the object path of src as it appears in the Makefile
func (g *MakefileGen) objectPath(src SourceFile) string {
	return objectDirVar + ObjectName(src.Path, g.tc.Naming)
}

func (g *MakefileGen) Generate() string {
	var sb strings.Builder

	// variables
	writeVar(&sb, "TARGET", g.tc.Target)
	writeVar(&sb, "TARGET_DIR", "$(dir $(TARGET))")
	writeVar(&sb, "OBJECT_DIR", NormalizeObjectDir(g.tc.ObjectDir))
	writeVar(&sb, "LINK", g.tc.Link)
	writeVar(&sb, "CXX", g.tc.CXX)
	writeVar(&sb, "CC", g.tc.CC)
	writeVar(&sb, "CCFLAGS", g.tc.CCFlags)
	writeVar(&sb, "CXXFLAGS", g.tc.CXXFlags)
	writeVar(&sb, "LINKFLAGS", g.tc.LinkFlags)
	write(&sb, assign("OBJECT"))
	for _, src := range g.sources {
		write(&sb, "\\\n\t", g.objectPath(src))
	}
	writeln(&sb)
	writeln(&sb)

	// object dir bootstrap, evaluated when make parses the file
	writeln(&sb, "$(shell test -d $(OBJECT_DIR) || mkdir -p $(OBJECT_DIR))")
	writeln(&sb)

	// link
	writeln(&sb, "$(TARGET):$(OBJECT)")
	writeln(&sb, "\ttest -d $(TARGET_DIR) || mkdir -p $(TARGET_DIR)")
	writeln(&sb, "\t$(LINK) $(LINKFLAGS) -o $(TARGET) $(OBJECT)")
	writeln(&sb)

	// compile
	for _, src := range g.sources {
		compiler, flags := "$(CXX)", "$(CXXFLAGS)"
		if src.IsC {
			compiler, flags = "$(CC)", "$(CCFLAGS)"
		}
		obj := g.objectPath(src)
		writeln(&sb, obj, ":", src.Path)
		if g.tc.Naming == NamingRelative {
			writeln(&sb, "\t@mkdir -p $(dir $@)")
		}
		writeln(&sb, "\t", compiler, " ", flags, " -c -o ", obj, " ", src.Path)
	}

	// clean
	writeln(&sb)
	writeln(&sb, "clean:")
	if g.tc.CleanTarget {
		writeln(&sb, "\trm -f $(OBJECT) $(TARGET)")
	} else {
		writeln(&sb, "\trm $(OBJECT)")
	}

	return sb.String()
}
