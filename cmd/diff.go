// mkgen diff [path]
package cmd

import (
	"os"

	"github.com/qobs-build/mkgen/internal/msg"
	"github.com/spf13/cobra"
)

var flagExitCode bool

func doDiff(cmd *cobra.Command, args []string) {
	b := newBuilder(cmd, args)
	d, err := b.Diff()
	if err != nil {
		msg.Fatal("%v", err)
	}
	if d == "" {
		msg.Info("%s is up to date", relPath(b.OutputPath()))
		return
	}

	msg.Info("changes to %s:", relPath(b.OutputPath()))
	msg.Diff(&msg.IndentWriter{Indent: "    ", W: msg.Output}, d)
	if flagExitCode {
		os.Exit(1)
	}
}

var diffCmd = &cobra.Command{
	Use:   "diff [target path]",
	Short: "Show how the Makefile would change",
	Long:  `Show the difference between the existing Makefile and the one that would be generated, without writing anything. If no target path is given, uses "."`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doDiff,
}

func init() {
	// mkgen diff subcommand
	rootCmd.AddCommand(diffCmd)
	addGenerateFlags(diffCmd)
	diffCmd.Flags().BoolVar(&flagExitCode, "exit-code", false, "Exit with status 1 when the Makefile is out of date")
}
