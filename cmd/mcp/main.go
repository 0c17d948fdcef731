package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/dkomnin/handbook-assistant/internal/adapters/mcp"
	"github.com/dkomnin/handbook-assistant/internal/bootstrap"
	"github.com/dkomnin/handbook-assistant/internal/config"
	"github.com/dkomnin/handbook-assistant/internal/observability/logging"
)

// Exposes the handbook corpus to MCP hosts over stdio. Logs go to stderr so
// stdout stays clean for the protocol stream.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, "handbook-mcp", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	mcpSrv := mcpadapter.NewServer(mcpadapter.Deps{
		Chat:      app.ChatUC,
		Retriever: app.Retriever,
		Repo:      app.Repo,
	})

	stdioSrv := server.NewStdioServer(mcpSrv)
	slog.Info("mcp_listening", "transport", "stdio")
	if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("mcp server error: %v", err)
	}
}
