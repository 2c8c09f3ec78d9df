// Command geniectl runs the Genie adapter outside Lambda: ask questions from
// the terminal, clear a user's conversation, or serve the HTTP API locally.
//
// Configuration comes from the same environment variables as the Lambda.
// SESSION_BACKEND defaults to sqlite here, so follow-up questions keep their
// conversation across invocations.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
