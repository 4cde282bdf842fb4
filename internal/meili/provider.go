// Package meili is the gateway to a Meilisearch server. It is the only
// package that talks to meilisearch-go.
package meili

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/meiligate/internal/config"
	"github.com/kailas-cloud/meiligate/internal/domain"
	"github.com/kailas-cloud/meiligate/internal/metrics"
)

// Options tune the pooled HTTP client and task waiting.
type Options struct {
	RequestTimeout   time.Duration
	MaxIdleConns     int
	TaskWaitTimeout  time.Duration
	TaskPollInterval time.Duration
	Logger           *zap.Logger
}

func (o *Options) applyDefaults() {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = 32
	}
	if o.TaskWaitTimeout <= 0 {
		o.TaskWaitTimeout = 30 * time.Second
	}
	if o.TaskPollInterval <= 0 {
		o.TaskPollInterval = 50 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Provider hands out request-scoped client leases over one shared connection.
// Every lease must be released; Close waits for outstanding leases.
type Provider struct {
	conn       config.Connection
	opts       Options
	httpClient *http.Client
	sm         meilisearch.ServiceManager
	rest       *rest

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewProvider builds the shared client. Retries are disabled: failures are
// reported to the caller as they happen.
func NewProvider(conn config.Connection, opts Options) (*Provider, error) {
	if conn.URL == "" {
		return nil, fmt.Errorf("%w: meilisearch url is empty", domain.ErrInvalidConfig)
	}
	opts.applyDefaults()

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = opts.MaxIdleConns
	transport.MaxIdleConnsPerHost = opts.MaxIdleConns
	httpClient := &http.Client{Timeout: opts.RequestTimeout, Transport: transport}

	clientOpts := []meilisearch.Option{
		meilisearch.WithCustomClient(httpClient),
		meilisearch.DisableRetries(),
	}
	if conn.APIKey != "" {
		clientOpts = append(clientOpts, meilisearch.WithAPIKey(conn.APIKey))
	}

	return &Provider{
		conn:       conn,
		opts:       opts,
		httpClient: httpClient,
		sm:         meilisearch.New(conn.URL, clientOpts...),
		rest:       newRest(httpClient, conn.URL, conn.APIKey),
	}, nil
}

// Acquire leases a client for one request. The returned release func is
// idempotent and must be deferred by the caller.
func (p *Provider) Acquire(ctx context.Context) (*Client, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("acquire client: %w", err)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, nil, domain.ErrProviderClosed
	}
	p.inflight.Add(1)
	p.mu.Unlock()

	metrics.ClientLeasesInFlight.Inc()
	var once sync.Once
	release := func() {
		once.Do(func() {
			metrics.ClientLeasesInFlight.Dec()
			p.inflight.Done()
		})
	}

	return &Client{
		sm:           p.sm,
		rest:         p.rest,
		waitTimeout:  p.opts.TaskWaitTimeout,
		pollInterval: p.opts.TaskPollInterval,
	}, release, nil
}

// Close stops new leases, waits for outstanding ones within ctx, then drops
// idle connections.
func (p *Provider) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("wait for client leases: %w", ctx.Err())
		p.opts.Logger.Warn("closing meilisearch provider with leases still held")
	}

	p.httpClient.CloseIdleConnections()
	return err
}

// Ping checks that Meilisearch answers its health endpoint.
func (p *Provider) Ping(ctx context.Context) error {
	c, release, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	status, err := c.Health(ctx)
	if err != nil {
		return err
	}
	if status != "available" {
		return fmt.Errorf("%w: status %q", domain.ErrUpstreamUnavailable, status)
	}
	return nil
}
