// Command gdprqa answers questions about the GDPR from an indexed copy of
// the regulation.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/gdprqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/gdprqa/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	configDir, err := defaultConfigDir()
	if err != nil {
		logger.Error(err, "resolving config directory")
		return 1
	}

	app, err := build(ctx, configDir)
	if err != nil {
		logger.Error(err, "starting gdprqa")
		return 1
	}
	defer app.Close()

	cli.SetVersion(version)
	cli.SetServices(app.services)
	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}

// defaultConfigDir is $GDPRQA_HOME or ~/.gdprqa.
func defaultConfigDir() (string, error) {
	if dir := os.Getenv("GDPRQA_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".gdprqa"), nil
}
