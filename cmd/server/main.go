package main

import (
	"context"
	"dropoff-route-service/internal/adapters/repositories"
	"dropoff-route-service/internal/api"
	"dropoff-route-service/internal/config"
	"dropoff-route-service/internal/services"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// main is the application composition root.
// It wires the configured bound store and solver behind ports and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found (using environment variables)")
	}

	configPath := flag.String("config", config.Get("CONFIG_FILE", ""), "YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repositories.OpenBoundStore(ctx, cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	kind, err := services.ParseSolverKind(cfg.Solver)
	if err != nil {
		log.Fatal(err)
	}
	solver, err := services.NewSolver(kind)
	if err != nil {
		log.Fatal(err)
	}

	router := api.NewRouter(api.Deps{
		Store:       store,
		StoreDriver: cfg.StoreDriver,
		Solver:      solver,
		Defaults: services.SolveOptions{
			Seeds:    cfg.Seeds,
			MaxNodes: cfg.MaxNodes,
			Verbose:  cfg.Verbose,
		},
		MaxTimeLimit: 60 * time.Second,
	})

	// WriteTimeout leaves room for a full MaxTimeLimit search.
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("server shutdown")
		}
	}()

	log.WithFields(log.Fields{
		"addr":   cfg.HTTPAddr,
		"solver": kind,
		"store":  cfg.StoreDriver,
	}).Info("Server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
