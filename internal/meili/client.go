package meili

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meilisearch/meilisearch-go"

	"github.com/kailas-cloud/meiligate/internal/domain"
	"github.com/kailas-cloud/meiligate/internal/domain/index"
	"github.com/kailas-cloud/meiligate/internal/domain/task"
	"github.com/kailas-cloud/meiligate/internal/metrics"
)

// Client is a leased view of the shared Meilisearch connection.
// It is valid until the lease is released.
type Client struct {
	sm           meilisearch.ServiceManager
	rest         *rest
	waitTimeout  time.Duration
	pollInterval time.Duration
}

// do runs one upstream call with metrics and error translation.
func (c *Client) do(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	err := translate(ctx, op, fn())
	metrics.ObserveUpstream(op, start, err)
	return err
}

func toHandle(info *meilisearch.TaskInfo) (task.Handle, error) {
	var h task.Handle
	if info == nil {
		return h, errors.New("meilisearch returned no task")
	}
	if err := convert(info, &h); err != nil {
		return task.Handle{}, err
	}
	return h, nil
}

func toIndexInfo(uid, primaryKey string, createdAt, updatedAt time.Time) index.Info {
	info := index.Info{
		UID:       uid,
		CreatedAt: domain.Timestamp{Time: createdAt.UTC()},
		UpdatedAt: domain.Timestamp{Time: updatedAt.UTC()},
	}
	if primaryKey != "" {
		pk := primaryKey
		info.PrimaryKey = &pk
	}
	return info
}

// WaitTask polls a task until it reaches a final state or the configured
// wait timeout elapses.
func (c *Client) WaitTask(ctx context.Context, taskUID int64) (task.Task, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.waitTimeout)
	defer cancel()

	var t *meilisearch.Task
	start := time.Now()
	err := c.do(waitCtx, OpWaitTask, func() (err error) {
		t, err = c.sm.WaitForTaskWithContext(waitCtx, taskUID, c.pollInterval)
		return err
	})
	if err != nil {
		if ctx.Err() == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return task.Task{}, fmt.Errorf("%w: task %d still pending after %s",
				domain.ErrTaskTimeout, taskUID, time.Since(start).Round(time.Millisecond))
		}
		return task.Task{}, err
	}

	var out task.Task
	if err := convert(t, &out); err != nil {
		return task.Task{}, err
	}
	return out, nil
}

// AwaitTask waits for a task and converts a failed outcome into an error.
func (c *Client) AwaitTask(ctx context.Context, taskUID int64) (task.Task, error) {
	t, err := c.WaitTask(ctx, taskUID)
	if err != nil {
		return t, err
	}
	return t, t.Err()
}

// CreateIndex enqueues index creation.
func (c *Client) CreateIndex(ctx context.Context, uid, primaryKey string) (task.Handle, error) {
	var info *meilisearch.TaskInfo
	err := c.do(ctx, OpCreateIndex, func() (err error) {
		info, err = c.sm.CreateIndexWithContext(ctx, &meilisearch.IndexConfig{Uid: uid, PrimaryKey: primaryKey})
		return err
	})
	if err != nil {
		return task.Handle{}, err
	}
	return toHandle(info)
}

// GetIndex fetches one index descriptor.
func (c *Client) GetIndex(ctx context.Context, uid string) (index.Info, error) {
	var res *meilisearch.IndexResult
	err := c.do(ctx, OpGetIndex, func() (err error) {
		res, err = c.sm.GetIndexWithContext(ctx, uid)
		return err
	})
	if err != nil {
		return index.Info{}, err
	}
	return toIndexInfo(res.UID, res.PrimaryKey, res.CreatedAt, res.UpdatedAt), nil
}

// ListIndexes fetches one page of index descriptors and the total count.
func (c *Client) ListIndexes(ctx context.Context, offset, limit int64) ([]index.Info, int64, error) {
	var res *meilisearch.IndexesResults
	err := c.do(ctx, OpListIndexes, func() (err error) {
		res, err = c.sm.ListIndexesWithContext(ctx, &meilisearch.IndexesQuery{Offset: offset, Limit: limit})
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	out := make([]index.Info, 0, len(res.Results))
	for _, r := range res.Results {
		out = append(out, toIndexInfo(r.UID, r.PrimaryKey, r.CreatedAt, r.UpdatedAt))
	}
	return out, res.Total, nil
}

// UpdateIndex enqueues a primary key change.
func (c *Client) UpdateIndex(ctx context.Context, uid, primaryKey string) (task.Handle, error) {
	var info *meilisearch.TaskInfo
	err := c.do(ctx, OpUpdateIndex, func() (err error) {
		info, err = c.sm.Index(uid).UpdateIndexWithContext(ctx, primaryKey)
		return err
	})
	if err != nil {
		return task.Handle{}, err
	}
	return toHandle(info)
}

// DeleteIndex enqueues index deletion.
func (c *Client) DeleteIndex(ctx context.Context, uid string) (task.Handle, error) {
	var info *meilisearch.TaskInfo
	err := c.do(ctx, OpDeleteIndex, func() (err error) {
		info, err = c.sm.DeleteIndexWithContext(ctx, uid)
		return err
	})
	if err != nil {
		return task.Handle{}, err
	}
	return toHandle(info)
}

// IndexStats fetches per-index statistics.
func (c *Client) IndexStats(ctx context.Context, uid string) (index.Stats, error) {
	var res *meilisearch.StatsIndex
	err := c.do(ctx, OpIndexStats, func() (err error) {
		res, err = c.sm.Index(uid).GetStatsWithContext(ctx)
		return err
	})
	if err != nil {
		return index.Stats{}, err
	}

	var stats index.Stats
	if err := convert(res, &stats); err != nil {
		return index.Stats{}, err
	}
	return stats, nil
}
