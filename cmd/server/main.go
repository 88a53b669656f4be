package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nickyhof/KivDB"
	"github.com/nickyhof/KivDB/config"
	"github.com/nickyhof/KivDB/core"
	"github.com/nickyhof/KivDB/db"
	"github.com/nickyhof/KivDB/ps"
	"golang.org/x/sync/errgroup"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	configPath := flag.String("config", "kivdb.yaml", "Path to the YAML configuration file")
	dbPath := flag.String("db", "", "Data file path, overrides storage.path (\":memory:\" for an ephemeral store)")
	tcpAddr := flag.String("tcp", "", "TCP listen address, overrides server.tcp_address")
	httpAddr := flag.String("http", "", "HTTP listen address, overrides server.http_address")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("KivDB Server v%s\n", Version)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Storage.Path = *dbPath
	}
	if *tcpAddr != "" {
		cfg.Server.TCPAddress = *tcpAddr
	}
	if *httpAddr != "" {
		cfg.Server.HTTPAddress = *httpAddr
	}

	logger, closer, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func openInstance(cfg config.StorageConfig) (*KivDB.Instance, error) {
	if cfg.Path == "" || cfg.Path == ":memory:" {
		return KivDB.OpenMemory()
	}
	return KivDB.OpenFile(cfg.Path, cfg.History)
}

// run serves until ctx is cancelled or a listener fails.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	instance, err := openInstance(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer instance.Close()

	logger.Info("store opened", "path", cfg.Storage.Path, "history", instance.Persistence.HistoryEnabled())

	identity := core.Identity{Name: cfg.Identity.Name, Email: cfg.Identity.Email}
	engine := instance.Engine(identity,
		db.WithLogger(logger),
		db.WithS3Config(db.S3Config{
			Region:    cfg.Backup.S3.Region,
			Endpoint:  cfg.Backup.S3.Endpoint,
			AccessKey: cfg.Backup.S3.AccessKey,
			SecretKey: cfg.Backup.S3.SecretKey,
		}),
	)
	auth := NewAuthenticator(cfg.Auth)
	shutdownTimeout := config.ParseDuration(cfg.Server.ShutdownTimeout, 10*time.Second, logger)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Server.TCPAddress != "" {
		server := NewServer(engine, auth, logger)
		if cfg.Server.TLS.Enabled {
			err = server.StartTLS(cfg.Server.TCPAddress, cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = server.Start(cfg.Server.TCPAddress)
		}
		if err != nil {
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			return server.Stop()
		})
	}

	if cfg.Server.HTTPAddress != "" {
		httpServer := NewHTTPServer(cfg.Server.HTTPAddress, engine, auth, logger)
		g.Go(func() error {
			if cfg.Server.TLS.Enabled {
				return httpServer.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
			}
			return httpServer.ListenAndServe()
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	interval := config.ParseDuration(cfg.Storage.CheckpointInterval, 0, logger)
	if interval > 0 && instance.Persistence.HistoryEnabled() {
		g.Go(func() error {
			checkpointLoop(gctx, engine, interval, logger)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return nil
	})

	return g.Wait()
}

// checkpointLoop records a checkpoint every interval until ctx is done.
func checkpointLoop(ctx context.Context, engine *db.Engine, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := engine.Checkpoint("Automatic checkpoint"); err != nil && !errors.Is(err, ps.ErrHistoryDisabled) {
				logger.Warn("automatic checkpoint failed", "error", err)
			}
		}
	}
}
