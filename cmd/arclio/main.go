package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	arcliocmd "github.com/arclio/arclio-login/pkg/arclio/cmd"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	return runWith(args, os.Stdout, os.Stderr)
}

func runWith(args []string, stdout, stderr io.Writer) int {
	cfg := arcliocmd.DefaultConfig()
	cfg.OutputWriter = stdout
	cfg.ErrorWriter = stderr

	root := arcliocmd.NewRootCommand(cfg)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	ctx, stop := signal.NotifyContext(root.Context(), os.Interrupt)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		if !arcliocmd.IsSilent(err) {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}
