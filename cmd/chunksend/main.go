// Package main provides the chunksend command: send one file over TCP with
// "serve" and receive it on the other side with "fetch".
//
// Both roles read a configuration file (server.toml and client.toml by
// default) and write a default one if it is missing. The two sides must be
// configured with the same protocol.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
