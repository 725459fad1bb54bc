package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"video-qa-go/internal/app"
	"video-qa-go/internal/config"
	"video-qa-go/internal/logger"
	"video-qa-go/internal/server"
)

// uploadWriteTimeout covers one upload end to end: the transcribe and
// register calls may each take up to the client timeout, plus probing and
// extracting with ffmpeg.
func uploadWriteTimeout(clientTimeout time.Duration) time.Duration {
	return 2*clientTimeout + 5*time.Minute
}

func main() {
	log := logger.New()
	log.Info("starting service")

	cfg, err := config.Load() // loads .env
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	a, err := app.Build(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to assemble pipeline")
	}

	handler := server.New(a.Pipeline, a.Store, a.Querier, log.Component("http"), server.Options{
		AccountID:      cfg.AccountID,
		Collection:     cfg.Collection,
		PublicPrefix:   cfg.PublicPrefix,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Gatherer:       a.Registry,
	})

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout: uploadWriteTimeout(cfg.HTTPTimeout),
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("shutdown incomplete")
		}
	}()

	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server terminated")
	}
	<-drained
	log.Info("server stopped")
}
