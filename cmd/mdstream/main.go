package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/psi"
	"pkt.systems/pslog"
	"pkt.systems/version"
)

func init() {
	version.SetDefaultModule("pkt.systems/mdstream")
}

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := newRootCmd()
	root.SetArgs(os.Args[1:])
	if err := root.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("mdstream command failed")
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := newRenderCmd()
	root.Use = "mdstream [flags] [inputs...]"
	root.Short = "Stream Markdown to the terminal at a typing pace"
	root.Long = "Stream Markdown from files, URLs or stdin, revealing each block once it is complete.\n\nIf no input is provided, Markdown is read from stdin."
	root.SilenceErrors = true
	root.SilenceUsage = true

	root.AddCommand(newRenderCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())
	return root
}
