// Command headshotd runs the StudioShot headshot generation service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/studioshot/platform/internal/app/runtime"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	// Missing .env files are fine; the environment may be set elsewhere.
	_ = godotenv.Load()

	app, err := runtime.NewApplication(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "headshotd: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "headshotd: %v\n", err)
		os.Exit(1)
	}

	if err := app.Shutdown(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "headshotd: shutdown: %v\n", err)
		os.Exit(1)
	}
}
