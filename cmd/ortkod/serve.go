package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/zap"

	"ortkod/internal/filestore"
	"ortkod/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := a.database()
	if err != nil {
		return err
	}
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	_, importer := a.sheets(ctx)

	files, err := a.fileStore(ctx)
	if err != nil {
		return err
	}

	gin.SetMode(a.cfg.GinMode)
	router := server.NewRouter(server.Deps{
		DB:             db,
		Processor:      svc,
		Checker:        a.validator(ctx),
		Importer:       importer,
		Files:          files,
		Logger:         a.logger,
		MaxUploadBytes: a.cfg.MaxUploadBytes(),
		LogRequests:    a.cfg.LogRequests,
	})

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", zap.String("addr", a.cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- errors.WithStack(err)
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server forced to shutdown", zap.Error(err))
		return errors.WithStack(err)
	}
	return nil
}

// fileStore picks the processed-output store from FILE_STORE. The memory store
// gets a sweeper that lives as long as ctx.
func (a *app) fileStore(ctx context.Context) (filestore.Store, error) {
	if a.cfg.FileStore == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.RedisAddress,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, errors.Errorf("redis ping %s: %w", a.cfg.RedisAddress, err)
		}
		a.logger.Info("file store: redis", zap.String("addr", a.cfg.RedisAddress))
		return filestore.NewRedis(client, a.cfg.FileTTL), nil
	}

	mem := filestore.NewMemory(a.cfg.FileTTL, a.cfg.FileStoreMaxEntries)
	go filestore.RunSweeper(ctx, mem, a.cfg.FileSweepInterval, a.logger)
	a.logger.Info("file store: memory",
		zap.Duration("ttl", a.cfg.FileTTL),
		zap.Int("max_entries", a.cfg.FileStoreMaxEntries),
	)
	return mem, nil
}
