package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Gnanaprakash-Dev/flipbook-studio/internal/config"
	"github.com/Gnanaprakash-Dev/flipbook-studio/internal/infrastructure/cloudinary"
	"github.com/Gnanaprakash-Dev/flipbook-studio/internal/infrastructure/pdfmeta"
	"github.com/Gnanaprakash-Dev/flipbook-studio/internal/infrastructure/repo"
	"github.com/Gnanaprakash-Dev/flipbook-studio/internal/server"
	"github.com/Gnanaprakash-Dev/flipbook-studio/internal/usecase"
)

func main() {
	_ = godotenv.Load()
	envDefaults := config.EnvDefaults()

	env := flag.String("env", envDefaults.Env, "")
	port := flag.Int("port", envDefaults.Port, "")
	databaseURL := flag.String("database-url", envDefaults.DatabaseURL, "")
	publicURL := flag.String("public-url", envDefaults.PublicBaseURL, "")
	allowedOrigin := flag.String("allowed-origin", envDefaults.AllowedOrigin, "")
	uploads := flag.String("uploads", envDefaults.UploadsDir, "")
	maxUploadMB := flag.Int("max-upload-mb", envDefaults.MaxUploadMB, "")
	logJSON := flag.Bool("log-json", envDefaults.LogJSON, "")

	flag.Parse()

	cfg := envDefaults
	cfg.Env = *env
	cfg.Port = *port
	cfg.DatabaseURL = *databaseURL
	cfg.PublicBaseURL = *publicURL
	cfg.AllowedOrigin = *allowedOrigin
	cfg.UploadsDir = *uploads
	cfg.MaxUploadMB = *maxUploadMB
	cfg.LogJSON = *logJSON

	log := newLogger(cfg.LogJSON)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ensureDir(cfg.UploadsDir)

	var store usecase.MagazineRepo
	if cfg.DatabaseURL != "" {
		pg, err := repo.NewPostgresMagazineRepo(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pg.Close()
		store = pg
		log.Info("using postgres store")
	} else {
		store = repo.NewMemoryMagazineRepo()
		log.Info("using in-memory store, records are lost on restart")
	}

	hosting := &cloudinary.Client{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := hosting.Ping(pingCtx); err != nil {
		log.Warn("cloudinary not reachable, uploads will fail", "error", err)
	}
	cancel()

	magazines := &usecase.MagazineService{
		Repo:          store,
		Hosting:       hosting,
		PDF:           pdfmeta.Reader{},
		PublicBaseURL: cfg.PublicBaseURL,
		Log:           log,
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server.New(cfg, magazines, log).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "env", cfg.Env, "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(json bool) *slog.Logger {
	if json {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func ensureDir(p string) {
	if p == "" {
		return
	}
	if _, err := os.Stat(p); os.IsNotExist(err) {
		_ = os.MkdirAll(p, 0o755)
	}
}
