// mkgen init [dir]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/qobs-build/mkgen/internal/builder"
	"github.com/qobs-build/mkgen/internal/msg"
	"github.com/spf13/cobra"
)

var (
	flagScaffold bool
	flagFormat   EnumValue = NewEnumValue("json", map[string]string{
		"json": "JSON config, NAME.automake (default)",
		"toml": "TOML config, NAME.automake.toml",
		"yaml": "YAML config, NAME.automake.yaml",
	})
)

func writefile(content []byte, elem ...string) {
	path := filepath.Join(elem...)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err = os.WriteFile(path, content, 0o644); err != nil {
			msg.Fatal("create file %s: %v", path, err)
		}
		fmt.Fprintf(msg.Output, "%s file: %s\n", color.HiGreenString("Created"), filepath.ToSlash(path))
	}
}

func mkdir(elem ...string) {
	path := filepath.Join(elem...)
	if err := os.MkdirAll(path, 0o755); err != nil {
		msg.Fatal("mkdir %s: %v", path, err)
	}
}

func getProgramName() string {
	if len(os.Args) == 0 {
		return "mkgen"
	}
	basename := filepath.Base(os.Args[0])
	return strings.TrimSuffix(basename, filepath.Ext(basename))
}

// configFileName returns the config file name for a project called name
func configFileName(name string, format builder.Format) string {
	switch format {
	case builder.FormatTOML:
		return name + builder.ConfigSuffix + ".toml"
	case builder.FormatYAML:
		return name + builder.ConfigSuffix + ".yaml"
	default:
		return name + builder.ConfigSuffix
	}
}

// initIn writes a config file with the defaults and the compilers found on this
// machine into dir
func initIn(dir string, format builder.Format, scaffold bool) {
	mkdir(dir)

	if existing, err := builder.FindConfigFile(dir); err != nil {
		msg.Fatal("%v", err)
	} else if existing != "" {
		msg.Warn("%s already exists, not writing a new config", filepath.ToSlash(existing))
		return
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		msg.Fatal("%v", err)
	}
	name := filepath.Base(abs)

	cfg := builder.Defaults()
	cfg.CC, cfg.CXX, cfg.Link = builder.DetectCompilers()
	cfg.TargetName = "bin/" + name

	content, err := builder.MarshalConfig(cfg, format)
	if err != nil {
		msg.Fatal("encode config: %v", err)
	}
	writefile(content, dir, configFileName(name, format))

	if scaffold {
		mkdir(dir, "src")

		// src/main.c
		writefile([]byte(`// You may change this to a .cpp (.cc) file if you'd like
#include <stdio.h>

int main(void) {
    puts("Hello, World!");
    return 0;
}
`), dir, "src", "main.c")

		// .gitignore
		writefile([]byte("bin/\nobj/\n"), dir, ".gitignore")
	}

	programName := getProgramName()
	fmt.Fprintf(msg.Output, "You can now do %s to generate the Makefile, then %s to build.\n",
		color.HiCyanString(programName+" "+dir), color.HiCyanString("make -C "+dir))
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a config file with the default options",
	Long:  `Write a config file with the default options and the compilers found on this machine. If no directory is given, uses "."`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		initIn(dir, builder.Format(flagFormat.Value()), flagScaffold)
	},
}

func init() {
	// mkgen init subcommand
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().VarP(&flagFormat, "format", "f", "Config format, one of "+flagFormat.HelpString())
	initCmd.RegisterFlagCompletionFunc("format", flagFormat.CompletionFunc())
	initCmd.Flags().BoolVarP(&flagScaffold, "scaffold", "s", false, "Also create src/main.c and a .gitignore")
}
