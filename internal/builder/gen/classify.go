package gen

import (
	"path"
	"path/filepath"
	"strings"
)

// SourceFile is a discovered source path and the attributes derived from it
type SourceFile struct {
	Path   string
	Ext    string
	IsC    bool
	Object string // object file base name, see ObjectFileName
}

func NewSourceFile(p string) SourceFile {
	return SourceFile{
		Path:   p,
		Ext:    FileExtension(p),
		IsC:    IsCLanguage(p),
		Object: ObjectFileName(p),
	}
}

// lastSegment returns the final element of p. "/" always separates, and so
// does the OS separator.
func lastSegment(p string) string {
	if i := strings.LastIndexAny(p, "/"+string(filepath.Separator)); i >= 0 {
		return p[i+1:]
	}
	return p
}

// FileExtension returns everything after the last dot of the final path segment.
// A segment without a dot is returned whole.
func FileExtension(p string) string {
	name := lastSegment(p)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// IsCLanguage reports whether p is compiled with the C toolchain. Only `c` and
// `C` count; everything else (cpp, cc, cxx, ...) is C++.
func IsCLanguage(p string) bool {
	ext := FileExtension(p)
	return ext == "c" || ext == "C"
}

// ObjectFileName maps a source path to its object file name: the last segment
// cut at its FIRST dot, plus ".o". `src/foo.bar.cpp` becomes `foo.o`, and
// `a/x.cpp` and `b/x.cpp` both become `x.o`.
func ObjectFileName(p string) string {
	name, _, _ := strings.Cut(lastSegment(p), ".")
	return name + ".o"
}

// RelativeObjectPath is ObjectFileName that keeps the directory part, so sources
// with the same name in different directories get distinct objects.
func RelativeObjectPath(p string) string {
	clean := path.Clean(filepath.ToSlash(p))
	segments := strings.Split(strings.TrimLeft(clean, "/"), "/")
	for i, s := range segments {
		if s == ".." {
			segments[i] = "__"
		}
	}
	last := len(segments) - 1
	segments[last] = ObjectFileName(segments[last])
	return strings.Join(segments, "/")
}

// ObjectName is the object path of p below the object directory under the
// given naming mode
func ObjectName(p string, naming ObjectNaming) string {
	if naming == NamingRelative {
		return RelativeObjectPath(p)
	}
	return ObjectFileName(p)
}
