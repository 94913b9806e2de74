// Command gridcalc loads, recomputes, edits and checks spreadsheet
// workbooks from the command line.
//
// Usage:
//
//	gridcalc recalc ./budget.yaml
//	gridcalc apply ./budget.yaml ./edits.yaml --journal ./gridcalc.db
//	gridcalc test ./scenarios
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/gridcalc/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gridcalc: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
