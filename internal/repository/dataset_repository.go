package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/scolarite-api/internal/models"
)

// ErrConcurrentUpdate is returned when an optimistic update kept losing races.
var ErrConcurrentUpdate = errors.New("dataset modified concurrently")

// DatasetStore loads and persists the whole dataset document.
type DatasetStore interface {
	Load(ctx context.Context) (*models.Dataset, error)
	Save(ctx context.Context, dataset *models.Dataset) error
}

// transactionalStore is implemented by stores able to run a compare-and-swap update themselves.
type transactionalStore interface {
	Update(ctx context.Context, fn func(*models.Dataset) error) error
}

// StoreObserver receives timings of store operations.
type StoreObserver interface {
	ObserveStoreOperation(op string, duration time.Duration)
}

// DatasetRepository owns access to the dataset. Every mutation runs
// load-mutate-save while holding a single writer lock.
type DatasetRepository struct {
	store    DatasetStore
	observer StoreObserver
	logger   *zap.Logger
	mu       sync.Mutex
}

// NewDatasetRepository constructs a repository over store. observer may be nil.
func NewDatasetRepository(store DatasetStore, observer StoreObserver, logger *zap.Logger) *DatasetRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DatasetRepository{store: store, observer: observer, logger: logger}
}

// View loads the current dataset and hands it to fn. Changes made by fn are discarded.
func (r *DatasetRepository) View(ctx context.Context, fn func(*models.Dataset) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dataset, err := r.load(ctx)
	if err != nil {
		return err
	}
	return fn(dataset)
}

// Update loads the dataset, lets fn mutate it and persists the result. When fn
// returns an error nothing is written and the error is returned unchanged.
func (r *DatasetRepository) Update(ctx context.Context, fn func(*models.Dataset) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tx, ok := r.store.(transactionalStore); ok {
		start := time.Now()
		err := tx.Update(ctx, fn)
		r.observe("update", start)
		return err
	}

	dataset, err := r.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(dataset); err != nil {
		return err
	}
	start := time.Now()
	err = r.store.Save(ctx, dataset)
	r.observe("save", start)
	if err != nil {
		r.logger.Error("dataset save failed", zap.Error(err))
	}
	return err
}

func (r *DatasetRepository) load(ctx context.Context) (*models.Dataset, error) {
	start := time.Now()
	dataset, err := r.store.Load(ctx)
	r.observe("load", start)
	if err != nil {
		r.logger.Error("dataset load failed", zap.Error(err))
		return nil, err
	}
	dataset.Normalize()
	return dataset, nil
}

func (r *DatasetRepository) observe(op string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveStoreOperation(op, time.Since(start))
	}
}
