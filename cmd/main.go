package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/ovrelid/rpchat-backend/internal/app"
)

func main() {
	// Optional .env for local development; the container sets real env vars.
	_ = godotenv.Load()

	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Log.Info("Starting server", "port", a.Cfg.Port)
	if err := a.Run(); err != nil {
		a.Log.Error("Server exited", "error", err)
		a.Close()
		os.Exit(1)
	}
}
