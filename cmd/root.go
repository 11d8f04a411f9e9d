// mkgen [path], mkgen generate [path]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/qobs-build/mkgen/internal/builder"
	"github.com/qobs-build/mkgen/internal/msg"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	flagConfig      string
	flagOutput      string
	flagStdout      bool
	flagVerbose     bool
	flagJobs        int
	flagCleanTarget bool
	flagNaming      EnumValue = NewEnumValue("config", map[string]string{
		"config":   "Use build_object_naming from the config (default)",
		"basename": "Name objects after the source file name only",
		"relative": "Keep the source directory in object paths",
	})

	logLevel  string
	logFormat EnumValue = NewEnumValue("text", map[string]string{
		"text": "Human readable log lines (default)",
		"json": "JSON log lines",
	})
)

// overrides collects the config keys set on the command line
func overrides(cmd *cobra.Command) builder.Overrides {
	o := make(builder.Overrides)
	if flagOutput != "" {
		o["build_output_name"] = flagOutput
	}
	if flagNaming.Value() != "config" {
		o["build_object_naming"] = flagNaming.Value()
	}
	if cmd.Flags().Changed("clean-target") {
		o["build_clean_target"] = flagCleanTarget
	}
	return o
}

func newBuilder(cmd *cobra.Command, args []string) *builder.Builder {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	b, err := builder.NewBuilderInDirectory(target, flagConfig, overrides(cmd))
	if err != nil {
		msg.Fatal("%v", err)
	}
	b.SetJobs(flagJobs)
	b.SetLogger(zap.L())
	return b
}

// relPath shortens path for display when it lies below the working directory
func relPath(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(cwd, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

func warnCollisions(res *builder.Result) {
	for _, obj := range res.SortedCollisions() {
		msg.Warn("%s is built from several sources, only one will be linked: %s",
			obj, strings.Join(res.Collisions[obj], ", "))
	}
}

func doGenerate(cmd *cobra.Command, args []string) {
	b := newBuilder(cmd, args)
	cfg := b.Config()

	// the bar shares stdout with the Makefile under --stdout
	var bar *msg.ProgressBar
	if !flagStdout && isatty.IsTerminal(os.Stdout.Fd()) {
		bar = msg.NewProgressBar("listing", msg.Output)
		b.SetProgress(bar.Set)
	}

	res, err := b.Generate()
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		msg.Fatal("%v", err)
	}

	if flagStdout {
		fmt.Print(res.Document)
		return
	}

	configPath := b.ConfigPath()
	if configPath == "" {
		configPath = "(defaults)"
	}
	msg.Field("curdir", relPath(b.BaseDir()))
	msg.Field("config", relPath(configPath))
	msg.Field("source", cfg.SourceRoots)
	msg.Field("ignore", cfg.IgnoreDirs)
	if flagVerbose {
		for _, src := range res.Spec.Sources {
			msg.Item("%s", src)
		}
	}
	warnCollisions(res)

	changed, err := b.Write(res)
	if err != nil {
		msg.Fatal("write %s: %v", b.OutputPath(), err)
	}
	if changed {
		msg.Info("wrote %s (%d sources)", relPath(b.OutputPath()), len(res.Spec.Sources))
	} else {
		msg.Info("%s is up to date", relPath(b.OutputPath()))
	}
}

var rootCmd = &cobra.Command{
	Use:   "mkgen [target path]",
	Short: "Generate a Makefile for a C/C++ source tree",
	Long: `mkgen searches one or more root directories for C and C++ sources and writes
a Makefile that compiles each of them and links the result. Options are read
from a *.automake file in the target directory, or the target path itself
when it is a file.`,
	Args: cobra.MaximumNArgs(1),
	Run:  doGenerate,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var level zapcore.Level
		if err := level.Set(logLevel); err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}

		var cfg zap.Config
		if logFormat.Value() == "json" {
			cfg = zap.NewProductionConfig()
		} else {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		}

		cfg.Level = zap.NewAtomicLevelAt(level)
		logger, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}

		zap.ReplaceGlobals(logger)
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate [target path]",
	Short: "Generate the Makefile",
	Long:  `Generate the Makefile. If no target path is given, uses "."`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doGenerate,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Var(&logFormat, "log-format", "Log format, one of "+logFormat.HelpString())
	rootCmd.RegisterFlagCompletionFunc("log-format", logFormat.CompletionFunc())

	addGenerateFlags(rootCmd)

	// mkgen generate subcommand
	rootCmd.AddCommand(generateCmd)
	addGenerateFlags(generateCmd)
	generateCmd.Flags().BoolVar(&flagStdout, "stdout", false, "Print the Makefile instead of writing it")
	rootCmd.Flags().BoolVar(&flagStdout, "stdout", false, "Print the Makefile instead of writing it")
	generateCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "List every source file")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "List every source file")
}

// addGenerateFlags adds the flags shared by every command that generates
func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Config file (default: first *.automake file in the target directory)")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Output file, relative to the target directory (default: Makefile)")
	cmd.Flags().IntVarP(&flagJobs, "jobs", "j", 0, "Directories listed in parallel (default: one per CPU)")
	cmd.Flags().BoolVar(&flagCleanTarget, "clean-target", false, "Make `clean` remove the target too")
	cmd.Flags().VarP(&flagNaming, "naming", "n", "Object naming, one of "+flagNaming.HelpString())
	cmd.RegisterFlagCompletionFunc("naming", flagNaming.CompletionFunc())
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
