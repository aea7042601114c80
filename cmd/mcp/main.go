package main

import (
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/dataset-recommender/internal/bootstrap"
	"github.com/kirillkom/dataset-recommender/internal/config"
	"github.com/kirillkom/dataset-recommender/internal/observability/logging"
)

const serverVersion = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	// stdout carries the MCP protocol.
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	recommender := bootstrap.NewRecommender(cfg, logger, nil, nil)

	s := server.NewMCPServer("dataset-recommender", serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	newToolset(recommender).register(s)

	if err := server.ServeStdio(s); err != nil {
		logger.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
