package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/restview/restview/pkg/metrics"
	"github.com/restview/restview/pkg/rest"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Starts a REST API server that exposes the configured PostgreSQL tables as resources`,
	Run:   runServer,
}

func init() {
	f := serveCmd.Flags()
	f.StringP("pg.connString", "c", "", "PostgreSQL connection string")
	f.StringP("server.listenAddr", "l", "", "REST server listen address")
	f.String("server.baseURL", "", "Base URL for API endpoints")
	f.Bool("metrics.enabled", false, "Enable Prometheus metrics server")
	f.String("metrics.addr", ":9100", "Prometheus metrics server address")

	viper.BindPFlags(f)
	rootCmd.AddCommand(serveCmd)
}

func runServer(cmd *cobra.Command, args []string) {
	if cfg == nil {
		log.Fatal("Configuration not loaded")
	}

	if cfg.PG.ConnString == "" {
		cfg.PG.ConnString = os.Getenv("RESTVIEW_PG_CONN_STRING")
		if cfg.PG.ConnString == "" {
			log.Fatal("PostgreSQL connection string required")
		}
	}

	// flag overrides
	if listenAddr := viper.GetString("server.listenAddr"); listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}
	if baseURL := viper.GetString("server.baseURL"); baseURL != "" {
		cfg.Server.BaseURL = baseURL
	}

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	if cfg.Metrics.Enabled || viper.GetBool("metrics.enabled") {
		go metrics.StartPrometheusServer(ctx, &wg, &metrics.PromServerOpts{Addr: cfg.Metrics.Addr})
	}

	server, err := rest.NewServer(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	wg.Wait()
	logger.Info("server stopped")
}
