package main

import (
	"context"

	"github.com/joho/godotenv"

	"courier/internal/app"
	"courier/pkg/config"
	"courier/pkg/logger"
	"courier/pkg/shutdown"
)

// build metadata - set via ldflags during build/release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")

	addr, db, cfgPath, setFlags := config.ParseCommandFlags()
	eff, err := config.ResolveEffective(addr, db, cfgPath, setFlags)
	if err != nil {
		// logger not configured yet; use defaults so the abort is visible
		logger.Init("info")
		shutdown.Abort("failed to load config", err, "", 0)
	}

	logger.Init(eff.Config.Logging.Level)

	a, err := app.New(eff, version, commit, buildDate)
	if err != nil {
		shutdown.Abort("startup failed", err, eff.DBPath, 0)
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	if err := a.Run(ctx); err != nil {
		shutdown.Abort("server exited", err, eff.DBPath, 0)
	}
	logger.Info("server_stopped")
}
