package main

import (
	"context"
	"os"
	"os/signal"
	"sedar-crawler/cmd/sedar-crawler/commands"
	"syscall"
)

// signalContext lives until Ctrl+C is pressed or the process is told to stop.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	return ctx
}

func main() {
	commands.ExecuteContext(signalContext())
}
