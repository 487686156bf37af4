// Package cleanup implements the periodic media-retention sweep:
// delete expired media objects from the expiring bucket and clear the
// corresponding pointer columns, while never touching permanent-bucket
// rows.
package cleanup

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"insightfeed/internal/domain/entity"
	"insightfeed/internal/repository"
)

// ObjectDeleter deletes a single object, tolerating an
// already-deleted object.
type ObjectDeleter interface {
	Delete(ctx context.Context, key string) error
}

// Config tunes the sweep; Retention comes from MEDIA_RETENTION_DAYS.
type Config struct {
	ExpiringBucket string
	Retention      time.Duration
	// BatchSize caps how many expired rows are processed per Run call
	// per table, so one sweep cannot run unbounded against a large
	// backlog.
	BatchSize int
}

// DefaultConfig applies the default retention of 30 days.
func DefaultConfig(expiringBucket string) Config {
	return Config{ExpiringBucket: expiringBucket, Retention: 30 * 24 * time.Hour, BatchSize: 200}
}

// Worker sweeps both content_items and private_content_items.
type Worker struct {
	contentItems        repository.ContentItemRepository
	privateContentItems repository.PrivateContentItemRepository
	store               ObjectDeleter
	cfg                 Config
	logger              *slog.Logger
	now                 func() time.Time
}

// New builds a cleanup Worker.
func New(contentItems repository.ContentItemRepository, privateContentItems repository.PrivateContentItemRepository, store ObjectDeleter, cfg Config, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		contentItems:        contentItems,
		privateContentItems: privateContentItems,
		store:               store,
		cfg:                 cfg,
		logger:              logger,
		now:                 time.Now,
	}
}

// Run performs one sweep. A failure deleting one row's storage object
// is logged and does not block clearing that row's database pointer
// (the two states converge on the next run), nor does it abort the
// rest of the sweep.
func (w *Worker) Run(ctx context.Context) error {
	cutoff := w.now().Add(-w.cfg.Retention)

	publicItems, err := w.contentItems.ListExpiredMedia(ctx, w.cfg.ExpiringBucket, cutoff, w.cfg.BatchSize)
	if err != nil {
		return err
	}
	for _, item := range publicItems {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.sweepOne(ctx, item.ID, item.MediaStoragePath, func(id int64) error {
			return w.contentItems.ClearMediaPointer(ctx, id)
		})
	}

	privateItems, err := w.privateContentItems.ListExpiredMedia(ctx, w.cfg.ExpiringBucket, cutoff, w.cfg.BatchSize)
	if err != nil {
		return err
	}
	for _, item := range privateItems {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.sweepOne(ctx, item.ID, item.MediaStoragePath, func(id int64) error {
			return w.privateContentItems.ClearMediaPointer(ctx, id)
		})
	}

	return nil
}

func (w *Worker) sweepOne(ctx context.Context, id int64, storageKey string, clear func(int64) error) {
	if err := w.store.Delete(ctx, storageKey); err != nil && !errors.Is(err, entity.ErrNotFound) {
		w.logger.Warn("cleanup: storage delete failed, will retry next run",
			slog.Int64("content_item_id", id), slog.String("storage_key", storageKey), slog.Any("error", err))
	}
	if err := clear(id); err != nil {
		w.logger.Error("cleanup: clear media pointer failed",
			slog.Int64("content_item_id", id), slog.Any("error", err))
	}
}
