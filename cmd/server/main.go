package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/seanmck/roomcast/internal/chat"
	"github.com/seanmck/roomcast/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := server.LoadConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg)

	hub := server.NewHub()
	core := chat.NewCore(cfg.Namespaces, hub)
	hub.Bind(core)
	go hub.Run()
	slog.Info("hub started", "namespaces", cfg.Namespaces)

	mux := server.SetupRoutes(hub, cfg)
	httpServer := server.CreateServer(cfg.Port, mux)

	go func() {
		if err := server.StartServer(httpServer); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("server shutting down")
	if err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout); err != nil {
		slog.Error("HTTP shutdown error", "error", err)
	}
	if err := hub.Shutdown(cfg.ShutdownTimeout); err != nil {
		slog.Error("hub shutdown error", "error", err)
	}
}

func setupLogger(cfg *server.Config) {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	slog.SetDefault(slog.New(handler))
}
