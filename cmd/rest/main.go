package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"doqulio-chat/internal/bootstrap"
	"doqulio-chat/internal/config"
	"doqulio-chat/internal/server"
	"doqulio-chat/internal/tracer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg := config.Load()
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// 2. Tracing
	shutdownTracer := tracer.InitTracer(ctx, cfg.Otel)
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Tracer shutdown error: %v", err)
		}
	}()

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)
	defer container.Close()

	// 4. Start Background Services
	go container.WebSocketHub.Run(ctx)

	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Printf("Background Consumer Error: %v", err)
	}

	// 5. Run Server until a signal arrives
	srv := server.New(cfg, container)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	select {
	case err := <-errCh:
		log.Printf("Server stopped: %v", err)
	case <-ctx.Done():
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}
}
