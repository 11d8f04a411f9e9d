package builder

import (
	"os"
	"os/exec"
	"path/filepath"
)

var (
	commonCCompilers   = []string{"clang", "gcc", "icx", "icc", "tcc"}
	commonCxxCompilers = []string{"clang++", "g++", "icpx", "icpc"}
)

// findCompiler returns the first C (or C++) compiler named by $CC/$CXX or found
// on PATH, or "" when there is none
func findCompiler(needCxx bool) string {
	if needCxx {
		if cxx := os.Getenv("CXX"); cxx != "" {
			return cxx
		}
	} else if cc := os.Getenv("CC"); cc != "" {
		return cc
	}

	compilersToTry := commonCCompilers
	if needCxx {
		compilersToTry = commonCxxCompilers
	}

	for _, compiler := range compilersToTry {
		if _, err := exec.LookPath(compiler); err == nil {
			// the Makefile should name the tool, not this machine's path to it
			return filepath.Base(compiler)
		}
	}

	return ""
}

// DetectCompilers returns the C compiler, C++ compiler and linker to write into
// a new config, falling back to the defaults when nothing is found
func DetectCompilers() (cc, cxx, link string) {
	d := Defaults()
	cc, cxx = findCompiler(false), findCompiler(true)
	if cc == "" {
		cc = d.CC
	}
	if cxx == "" {
		cxx = d.CXX
	}
	return cc, cxx, cxx
}
