// Package app builds the board's object graph from configuration. The API
// and gRPC servers share it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"classreviews/internal/blob"
	"classreviews/internal/board"
	"classreviews/internal/metrics"
	"classreviews/internal/reviews"
	"classreviews/internal/store"
	synchub "classreviews/internal/sync"
	"classreviews/pkg/database"
	"classreviews/pkg/utils"
)

type App struct {
	Config  utils.Config
	Log     *zap.Logger
	Store   *store.Store
	Bus     *synchub.Bus
	Metrics *metrics.Metrics
	Service *reviews.Service

	// ready is cleared by Close
	ready   bool
	closers []func() error
}

func Build(ctx context.Context, cfg utils.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Log: logger, Store: store.New(), Metrics: metrics.New()}

	repo, err := a.openRepo(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	blobs, err := a.openBlobs(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Bus, err = synchub.NewBus(logger, a.Metrics.Registry)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.Bus.Close)

	a.Service = reviews.NewService(reviews.Options{
		Repo:          repo,
		Blobs:         blobs,
		Store:         a.Store,
		Events:        a.Bus,
		Metrics:       a.Metrics,
		Policy:        board.ReactionPolicy{Cap: cfg.ReactionCap},
		Normalizer:    board.NewNormalizer(),
		MaxImageBytes: cfg.UploadMaxBytes,
		Logger:        logger.With(zap.String("component", "reviews")),
	})

	unsubscribe := a.Store.Subscribe(func(s store.Snapshot) {
		a.Metrics.SetReviews(len(s.Reviews))
	})
	a.closers = append(a.closers, func() error { unsubscribe(); return nil })

	a.ready = true
	return a, nil
}

func (a *App) openRepo(ctx context.Context) (reviews.Persistence, error) {
	repo, closer, err := OpenRepo(ctx, a.Config, a.Log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closer)
	return repo, nil
}

// OpenRepo connects the persistence backend named by cfg.StoreBackend. The
// returned closer releases the connection.
func OpenRepo(ctx context.Context, cfg utils.Config, logger *zap.Logger) (reviews.Persistence, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.StoreBackend {
	case utils.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		logger.Info("store ready", zap.String("backend", "redis"), zap.String("addr", cfg.RedisAddr))
		return reviews.NewRedisRepo(client), client.Close, nil

	default:
		db, err := database.Open(database.Config{Path: cfg.DBPath})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("store ready", zap.String("backend", "sqlite"), zap.String("path", cfg.DBPath))
		return reviews.NewSQLiteRepo(db), db.Close, nil
	}
}

func (a *App) openBlobs(ctx context.Context) (blob.Storage, error) {
	switch a.Config.BlobBackend {
	case utils.BackendMinio:
		s, err := blob.NewMinioStorage(ctx, blob.MinioConfig{
			Endpoint:  a.Config.MinioEndpoint,
			AccessKey: a.Config.MinioAccessKey,
			SecretKey: a.Config.MinioSecretKey,
			Bucket:    a.Config.MinioBucket,
			UseSSL:    a.Config.MinioUseSSL,
			PublicURL: a.Config.MinioPublicURL,
		})
		if err != nil {
			return nil, err
		}
		a.Log.Info("blob storage ready", zap.String("backend", "minio"), zap.String("bucket", a.Config.MinioBucket))
		return s, nil

	default:
		s, err := blob.NewLocalStorage(a.Config.UploadDir, a.Config.UploadBaseURL)
		if err != nil {
			return nil, err
		}
		a.Log.Info("blob storage ready", zap.String("backend", "local"), zap.String("dir", a.Config.UploadDir))
		return s, nil
	}
}

func (a *App) Ready() bool { return a.ready }

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	a.ready = false
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
