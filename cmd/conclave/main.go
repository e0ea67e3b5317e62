// Package main starts the conclave bot and handles termination.
//
// The process is a thin adapter around the gateway session and command
// router so channel lifecycle state remains owned by the app domain.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	conclavecmd "github.com/aurelwyn/conclave/internal/cmd/conclave"
)

func main() {
	cfg, err := conclavecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[CONCLAVE] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := conclavecmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
