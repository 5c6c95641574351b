package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gethired/jobagents/internal/app"
	"github.com/gethired/jobagents/internal/config"
)

func main() {
	// Load configuration
	cfg := config.Load()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	logrus.WithFields(logrus.Fields{
		"port":        cfg.Port,
		"health_port": cfg.HealthPort,
		"engine_url":  cfg.EngineURL,
	}).Info("starting job search service")

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to build application")
	}
	defer a.Close()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		if err := a.Server.Start(addr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("failed to start server")
		}
	}()
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.HealthPort)
		if err := a.HealthServer.Start(addr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("failed to start health server")
		}
	}()

	// Serve while tool providers come up; readiness flips when they do.
	go func() {
		if err := a.WaitForDependencies(ctx); err != nil {
			logrus.WithError(err).Error("dependencies did not become ready")
			return
		}
		logrus.Info("service ready")
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("failed to shutdown server gracefully")
	}
	if err := a.HealthServer.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("failed to shutdown health server gracefully")
	}
	if err := a.Close(); err != nil {
		logrus.WithError(err).Error("failed to release resources")
	}

	logrus.Info("stopped")
}
