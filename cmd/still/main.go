// Package main is the entry point for the still tool installer.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZebulonRouseFrantzich/still/cmd/still/commands"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli := commands.New()
	cli.SetArgs(args)
	if err := cli.Execute(ctx); err != nil {
		cli.PrintError(err)
		return commands.ExitCode(err)
	}
	return 0
}
