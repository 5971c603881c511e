package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	unique_stacks "github.com/sthembisoo/unique-stacks/cmd/crashstats/unique-stacks"
)

var version = "0.0.1"

func main() {
	rootCmd := unique_stacks.NewCmdUniqueStacks()
	rootCmd.Version = version
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "unique-stacks: %v\n", err)
		os.Exit(1)
	}
}
