package gen

// ObjectNaming selects how object file names are derived from source paths
type ObjectNaming string

const (
	// NamingBasename uses ObjectFileName. Same-named sources collide.
	NamingBasename ObjectNaming = "basename"
	// NamingRelative uses RelativeObjectPath.
	NamingRelative ObjectNaming = "relative"
)

// Toolchain holds everything a generator needs besides the source list
type Toolchain struct {
	Target      string
	ObjectDir   string
	Link        string
	CXX         string
	CC          string
	CCFlags     string
	CXXFlags    string
	LinkFlags   string
	Naming      ObjectNaming
	CleanTarget bool // also remove $(TARGET) in `clean`
}

type Generator interface {
	SetToolchain(tc Toolchain)
	AddSource(path string)
	Generate() string
	BuildFile() string
}

// NormalizeObjectDir makes sure dir ends in a slash. An empty dir becomes "./".
func NormalizeObjectDir(dir string) string {
	if dir == "" {
		return "./"
	}
	if dir[len(dir)-1] != '/' {
		return dir + "/"
	}
	return dir
}
