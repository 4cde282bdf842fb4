package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/meiligate/internal/domain"
	domidx "github.com/kailas-cloud/meiligate/internal/domain/index"
	"github.com/kailas-cloud/meiligate/internal/domain/settings"
	"github.com/kailas-cloud/meiligate/internal/domain/task"
)

// Options tune listing behaviour.
type Options struct {
	// EmptyListNotFound makes List report ErrNotFound instead of an empty slice.
	EmptyListNotFound bool
	// PageSize is the window used when walking the index list.
	PageSize int64
}

// Service handles index management and per-attribute settings.
type Service struct {
	acquire Acquirer
	opts    Options
}

// New creates an index service.
func New(acquire Acquirer, opts Options) *Service {
	if opts.PageSize <= 0 {
		opts.PageSize = 1000
	}
	return &Service{acquire: acquire, opts: opts}
}

// Create enqueues index creation, waits for it, and returns the stored index.
func (s *Service) Create(ctx context.Context, uid, primaryKey string) (domidx.Info, error) {
	if err := domidx.ValidateUID(uid); err != nil {
		return domidx.Info{}, err
	}

	gw, release, err := s.acquire(ctx)
	if err != nil {
		return domidx.Info{}, err
	}
	defer release()

	h, err := gw.CreateIndex(ctx, uid, primaryKey)
	if err != nil {
		return domidx.Info{}, fmt.Errorf("create index: %w", err)
	}
	if _, err := gw.AwaitTask(ctx, h.TaskUID); err != nil {
		return domidx.Info{}, fmt.Errorf("create index: %w", err)
	}
	info, err := gw.GetIndex(ctx, uid)
	if err != nil {
		return domidx.Info{}, fmt.Errorf("get created index: %w", err)
	}
	return info, nil
}

// Get returns one index.
func (s *Service) Get(ctx context.Context, uid string) (domidx.Info, error) {
	gw, release, err := s.acquire(ctx)
	if err != nil {
		return domidx.Info{}, err
	}
	defer release()

	info, err := gw.GetIndex(ctx, uid)
	if err != nil {
		return domidx.Info{}, fmt.Errorf("get index: %w", err)
	}
	return info, nil
}

// List returns every index, walking the upstream pages.
func (s *Service) List(ctx context.Context) ([]domidx.Info, error) {
	gw, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	all := make([]domidx.Info, 0)
	for offset := int64(0); ; offset += s.opts.PageSize {
		page, total, err := gw.ListIndexes(ctx, offset, s.opts.PageSize)
		if err != nil {
			return nil, fmt.Errorf("list indexes: %w", err)
		}
		all = append(all, page...)
		if len(page) == 0 || int64(len(all)) >= total {
			break
		}
	}

	if len(all) == 0 && s.opts.EmptyListNotFound {
		return nil, fmt.Errorf("list indexes: %w: no indexes", domain.ErrNotFound)
	}
	return all, nil
}

// Update changes the primary key, waits for the task, and returns the index.
func (s *Service) Update(ctx context.Context, uid, primaryKey string) (domidx.Info, error) {
	if primaryKey == "" {
		return domidx.Info{}, domain.BadRequest("primaryKey is required")
	}

	gw, release, err := s.acquire(ctx)
	if err != nil {
		return domidx.Info{}, err
	}
	defer release()

	h, err := gw.UpdateIndex(ctx, uid, primaryKey)
	if err != nil {
		return domidx.Info{}, fmt.Errorf("update index: %w", err)
	}
	if _, err := gw.AwaitTask(ctx, h.TaskUID); err != nil {
		return domidx.Info{}, fmt.Errorf("update index: %w", err)
	}
	info, err := gw.GetIndex(ctx, uid)
	if err != nil {
		return domidx.Info{}, fmt.Errorf("get updated index: %w", err)
	}
	return info, nil
}

// Delete enqueues index deletion without waiting.
func (s *Service) Delete(ctx context.Context, uid string) (task.Handle, error) {
	gw, release, err := s.acquire(ctx)
	if err != nil {
		return task.Handle{}, err
	}
	defer release()

	h, err := gw.DeleteIndex(ctx, uid)
	if err != nil {
		return task.Handle{}, fmt.Errorf("delete index: %w", err)
	}
	return h, nil
}

// DeleteIfExists deletes the index when present and waits for the deletion.
// A missing index is not an error.
func (s *Service) DeleteIfExists(ctx context.Context, uid string) error {
	gw, release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if _, err := gw.GetIndex(ctx, uid); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("delete index if exists: %w", err)
	}

	h, err := gw.DeleteIndex(ctx, uid)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("delete index if exists: %w", err)
	}
	if _, err := gw.AwaitTask(ctx, h.TaskUID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete index if exists: %w", err)
	}
	return nil
}

// PrimaryKey returns the index's primary key, nil when not yet inferred.
func (s *Service) PrimaryKey(ctx context.Context, uid string) (*string, error) {
	info, err := s.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	return info.PrimaryKey, nil
}

// Stats returns per-index statistics.
func (s *Service) Stats(ctx context.Context, uid string) (domidx.Stats, error) {
	gw, release, err := s.acquire(ctx)
	if err != nil {
		return domidx.Stats{}, err
	}
	defer release()

	stats, err := gw.IndexStats(ctx, uid)
	if err != nil {
		return domidx.Stats{}, fmt.Errorf("index stats: %w", err)
	}
	if stats.FieldDistribution == nil {
		stats.FieldDistribution = map[string]int64{}
	}
	return stats, nil
}

// GetAttribute returns the current value of one setting.
func (s *Service) GetAttribute(ctx context.Context, uid string, attr settings.Attribute) (any, error) {
	gw, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	bundle, err := gw.GetSettings(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", attr, err)
	}
	bundle = bundle.Filled()
	return attr.Value(&bundle), nil
}

// UpdateAttribute enqueues a change of one setting from its raw JSON value.
func (s *Service) UpdateAttribute(ctx context.Context, uid string, attr settings.Attribute, raw json.RawMessage) (task.Handle, error) {
	partial, err := attr.Partial(raw)
	if err != nil {
		return task.Handle{}, err
	}

	gw, release, err := s.acquire(ctx)
	if err != nil {
		return task.Handle{}, err
	}
	defer release()

	h, err := gw.UpdateSettings(ctx, uid, partial)
	if err != nil {
		return task.Handle{}, fmt.Errorf("update %s: %w", attr, err)
	}
	return h, nil
}

// ResetAttribute enqueues a reset of one setting to its default.
func (s *Service) ResetAttribute(ctx context.Context, uid string, attr settings.Attribute) (task.Handle, error) {
	gw, release, err := s.acquire(ctx)
	if err != nil {
		return task.Handle{}, err
	}
	defer release()

	h, err := gw.ResetAttribute(ctx, uid, attr)
	if err != nil {
		return task.Handle{}, fmt.Errorf("reset %s: %w", attr, err)
	}
	return h, nil
}
