package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/testkube/flakechart/internal/charts"
	"github.com/testkube/flakechart/internal/feed"
	"github.com/testkube/flakechart/internal/server"
)

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func configureLogging() {
	level, err := logrus.ParseLevel(getEnvOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		logrus.WithError(err).Warn("Invalid LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if os.Getenv("LOG_FORMAT") == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func main() {
	configureLogging()

	// Determine which feed to use
	var source feed.Source

	if os.Getenv("USE_MOCK") == "true" {
		logrus.Info("Using MOCK data feed (USE_MOCK=true)")
		source = feed.NewMockClient()
	} else {
		client, err := feed.NewRealClient()
		if err != nil {
			logrus.WithError(err).Fatal("Failed to create data feed client")
		}
		logrus.Infof("Reading test results from %s", client.URL())
		source = client
	}

	rootDir, err := os.Getwd()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to get current working directory")
	}

	srv := server.NewServer(source, charts.NewGenerator(os.Getenv("CHART_ASSETS_HOST")), rootDir)

	addr := ":" + getEnvOrDefault("PORT", "8080")
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logrus.Infof("Received signal %v, shutting down...", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logrus.WithError(err).Error("Graceful shutdown failed")
		}
	}()

	logrus.Infof("Starting Flake Chart on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logrus.WithError(err).Fatal("Server failed")
	}
	logrus.Info("Server stopped.")
}
