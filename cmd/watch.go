// mkgen watch [path]
package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/qobs-build/mkgen/internal/builder"
	"github.com/qobs-build/mkgen/internal/msg"
	"github.com/spf13/cobra"
)

func doWatch(cmd *cobra.Command, args []string) {
	b := newBuilder(cmd, args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	msg.Info("watching %s, press Ctrl+C to stop", relPath(b.BaseDir()))
	err := b.Watch(ctx, func(res *builder.Result, changed bool, err error) {
		if err != nil {
			msg.Error("%v", err)
			return
		}
		if changed {
			warnCollisions(res)
			msg.Info("wrote %s (%d sources)", relPath(b.OutputPath()), len(res.Spec.Sources))
		}
	})
	if err != nil {
		msg.Fatal("%v", err)
	}
}

var watchCmd = &cobra.Command{
	Use:   "watch [target path]",
	Short: "Regenerate the Makefile when sources are added or removed",
	Long:  `Generate the Makefile, then regenerate it whenever a source file, header or directory is added or removed below the search roots. If no target path is given, uses "."`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doWatch,
}

func init() {
	// mkgen watch subcommand
	rootCmd.AddCommand(watchCmd)
	addGenerateFlags(watchCmd)
}
