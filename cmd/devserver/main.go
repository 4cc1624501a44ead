// Command devserver runs an in-memory UDIN backend for local development
// and demos. State is lost on exit.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/udinflow/internal/buildinfo"
	"github.com/dmitrijs2005/udinflow/internal/devserver"
	"github.com/dmitrijs2005/udinflow/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	buildinfo.PrintBuildData(os.Stdout)

	cfg, addr, err := devserver.ConfigFromEnv(os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	log := logging.New(os.Getenv("DEVSERVER_LOG_LEVEL"), os.Getenv("DEVSERVER_LOG_FORMAT"), os.Stderr)

	srv, err := devserver.New(cfg, log)
	if err != nil {
		log.Error(context.Background(), "error starting devserver", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, addr); err != nil {
		log.Error(ctx, "devserver stopped", "error", err)
		stop()
		os.Exit(1)
	}
}
