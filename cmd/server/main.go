package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/config"
	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/logging"
	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/server"
	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/signaling"
)

func main() {
	log := logging.New()

	hub := signaling.NewHub(log)
	addr := config.ListenAddr()

	srv := &http.Server{
		Addr:    addr,
		Handler: server.NewRouter(hub, log),
	}

	go func() {
		log.Info().Str("addr", addr).Msg("starting signaling server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	hub.Shutdown()
}
