package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	_ "go.uber.org/automaxprocs"

	"gitlab.com/fletera/api/facturify-gateway/internal/bootstrap"
	"gitlab.com/fletera/api/facturify-gateway/pkg/contextkeys"
)

func main() {
	// Local development convenience; in containers configuration comes from
	// real environment variables.
	_ = godotenv.Load()

	ctx := context.Background()
	ctx = context.WithValue(ctx, contextkeys.RequestIDKey, "app-main")

	// Initialize the application using the Wire-generated injector. The
	// returned cleanup releases every provider-owned resource on exit.
	app, cleanup, err := bootstrap.InitializeApp(ctx)
	if err != nil {
		// A very basic log if bootstrap fails, as the main logger isn't available.
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	// Run handles server start, the background refresh loop, and graceful
	// shutdown on SIGINT/SIGTERM.
	if err := app.Run(ctx); err != nil {
		fmt.Printf("Application run failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Application exited gracefully.")
}
