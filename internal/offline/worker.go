package offline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const instrumentationName = "hrportfolio.dev/web/internal/offline"

var tracer = otel.Tracer(instrumentationName)

var (
	// ErrNotInstalled is returned by Activate before a successful Install.
	ErrNotInstalled = errors.New("offline: generation not installed")
	// ErrInvalidState is returned when a lifecycle step runs out of order.
	ErrInvalidState = errors.New("offline: invalid worker state")
	// ErrNetwork matches every NetworkError.
	ErrNetwork = errors.New("offline: network failure")
)

// NetworkError wraps a failed network fetch.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("offline: fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is reports ErrNetwork so callers need not know the concrete type.
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// StatusError reports a non-2xx response for a manifest entry.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("offline: fetch %s: unexpected status %d", e.URL, e.Status)
}

// State is the worker lifecycle position.
type State int

const (
	StateParsed State = iota
	StateInstalling
	StateInstalled
	StateActivating
	StateActivated
)

func (s State) String() string {
	switch s {
	case StateParsed:
		return "parsed"
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActivated:
		return "activated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Fetcher performs network requests. *http.Client satisfies it.
type Fetcher interface {
	Do(*http.Request) (*http.Response, error)
}

// Worker precaches a versioned asset generation and answers same-origin requests from it.
type Worker struct {
	scope     *url.URL
	cacheName string
	manifest  Manifest
	storage   Storage
	fetcher   Fetcher
	logger    *zap.Logger
	now       func() time.Time

	fetches        metric.Int64Counter
	fetchesEnabled bool

	lifecycle sync.Mutex
	mu        sync.RWMutex
	state     State
}

// Option customises a Worker.
type Option func(*Worker)

// WithCacheName sets the version token naming the generation.
func WithCacheName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.cacheName = name
		}
	}
}

// WithManifest replaces the default manifest.
func WithManifest(m Manifest) Option {
	return func(w *Worker) {
		if len(m) > 0 {
			w.manifest = append(Manifest(nil), m...)
		}
	}
}

// WithFetcher sets the network client (default http.DefaultClient).
func WithFetcher(f Fetcher) Option {
	return func(w *Worker) {
		if f != nil {
			w.fetcher = f
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithClock injects the clock stamped on stored entries.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

// WithMeter overrides the global meter provider.
func WithMeter(meter metric.Meter) Option {
	return func(w *Worker) {
		if meter != nil {
			w.registerMetrics(meter)
		}
	}
}

// NewWorker builds a worker for the given scope URL.
func NewWorker(scope string, storage Storage, opts ...Option) (*Worker, error) {
	u, err := url.Parse(scope)
	if err != nil {
		return nil, fmt.Errorf("offline: parse scope: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("offline: scope %q must be an absolute URL", scope)
	}
	if storage == nil {
		return nil, errors.New("offline: storage is required")
	}
	w := &Worker{
		scope:     u,
		cacheName: DefaultCacheName,
		manifest:  DefaultManifest(),
		storage:   storage,
		fetcher:   http.DefaultClient,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	if w.fetches == nil {
		w.registerMetrics(otel.GetMeterProvider().Meter(instrumentationName))
	}
	return w, nil
}

func (w *Worker) registerMetrics(meter metric.Meter) {
	counter, err := meter.Int64Counter(
		"offline.fetch.requests",
		metric.WithDescription("Requests handled by the offline worker by result"),
	)
	if err != nil {
		if w.logger != nil {
			w.logger.Warn("offline: unable to register fetch metric", zap.Error(err))
		}
		return
	}
	w.fetches = counter
	w.fetchesEnabled = true
}

// CacheName returns the version token.
func (w *Worker) CacheName() string { return w.cacheName }

// Scope returns a copy of the scope URL.
func (w *Worker) Scope() *url.URL {
	u := *w.scope
	return &u
}

// State returns the lifecycle position.
func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// Install fetches every manifest entry and stores them under the version token. Nothing is
// written unless every fetch returned 2xx; a failure leaves the worker parsed.
func (w *Worker) Install(ctx context.Context) (err error) {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()

	if st := w.State(); st != StateParsed {
		return fmt.Errorf("%w: install from %s", ErrInvalidState, st)
	}

	ctx, span := tracer.Start(ctx, "offline.install", trace.WithAttributes(attribute.String("offline.cache", w.cacheName)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	w.setState(StateInstalling)
	defer func() {
		if err != nil {
			w.setState(StateParsed)
			w.logger.Warn("offline: install failed", zap.String("cache", w.cacheName), zap.Error(err))
		}
	}()

	keys, err := w.manifest.Resolve(w.scope)
	if err != nil {
		return err
	}

	entries := make([]Entry, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		g.Go(func() error {
			e, err := w.precache(gctx, key)
			if err != nil {
				return err
			}
			entries[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("offline: install %s: %w", w.cacheName, err)
	}

	existed, err := w.storage.Has(ctx, w.cacheName)
	if err != nil {
		return fmt.Errorf("offline: install %s: %w", w.cacheName, err)
	}
	cache, err := w.storage.Open(ctx, w.cacheName)
	if err != nil {
		return fmt.Errorf("offline: install %s: %w", w.cacheName, err)
	}
	for i, key := range keys {
		if err := cache.Put(ctx, key, entries[i]); err != nil {
			if !existed {
				if _, delErr := w.storage.Delete(context.WithoutCancel(ctx), w.cacheName); delErr != nil {
					w.logger.Warn("offline: discard partial generation", zap.String("cache", w.cacheName), zap.Error(delErr))
				}
			}
			return fmt.Errorf("offline: install %s: %w", w.cacheName, err)
		}
	}

	w.setState(StateInstalled)
	w.logger.Info("offline: installed", zap.String("cache", w.cacheName), zap.Int("entries", len(keys)))
	return nil
}

func (w *Worker) precache(ctx context.Context, key string) (Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("offline: build request %s: %w", key, err)
	}
	resp, err := w.network(req)
	if err != nil {
		return Entry{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Entry{}, &StatusError{URL: key, Status: resp.StatusCode}
	}
	return newEntry(key, req, resp, w.now())
}

// Activate removes every generation except the current token.
func (w *Worker) Activate(ctx context.Context) (err error) {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()

	if st := w.State(); st != StateInstalled {
		return fmt.Errorf("%w: activate from %s", ErrNotInstalled, st)
	}

	ctx, span := tracer.Start(ctx, "offline.activate", trace.WithAttributes(attribute.String("offline.cache", w.cacheName)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	w.setState(StateActivating)
	names, err := w.storage.Keys(ctx)
	if err != nil {
		w.setState(StateInstalled)
		return fmt.Errorf("offline: activate %s: %w", w.cacheName, err)
	}
	for _, name := range names {
		if name == w.cacheName {
			continue
		}
		if _, err := w.storage.Delete(ctx, name); err != nil {
			w.setState(StateInstalled)
			return fmt.Errorf("offline: activate %s: delete %s: %w", w.cacheName, name, err)
		}
		w.logger.Info("offline: removed stale generation", zap.String("cache", name))
	}
	w.setState(StateActivated)
	span.SetAttributes(attribute.Int("offline.removed", len(names)-1))
	return nil
}

// Fetch answers req. Before activation and for cross-origin requests it goes straight to
// the network. Same-origin GET and HEAD requests are served from storage when an entry is
// present and its Vary snapshot matches the request; misses are fetched and never written
// back.
func (w *Worker) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req == nil || req.URL == nil {
		return nil, errors.New("offline: request is required")
	}
	req = req.WithContext(ctx)

	if w.State() != StateActivated || !sameOrigin(w.scope, req.URL) {
		w.count(ctx, "passthrough")
		return w.network(req)
	}

	ctx, span := tracer.Start(ctx, "offline.fetch", trace.WithAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.String("url.path", req.URL.Path),
	))
	defer span.End()
	req = req.WithContext(ctx)

	result := "miss"
	if req.Method == http.MethodGet || req.Method == http.MethodHead {
		entry, ok, err := w.storage.Match(ctx, RequestKey(req.URL))
		if err != nil {
			w.logger.Warn("offline: storage lookup failed", zap.String("url", req.URL.String()), zap.Error(err))
		}
		switch {
		case ok && entry.Matches(req):
			w.count(ctx, "hit")
			span.SetAttributes(attribute.String("offline.result", "hit"))
			return entry.Response(req), nil
		case ok:
			result = "vary_miss"
		}
	}

	w.count(ctx, result)
	span.SetAttributes(attribute.String("offline.result", result))
	resp, err := w.network(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, err
}

// Generations lists stored generation names in creation order.
func (w *Worker) Generations(ctx context.Context) ([]string, error) {
	return w.storage.Keys(ctx)
}

func (w *Worker) network(req *http.Request) (*http.Response, error) {
	resp, err := w.fetcher.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: req.URL.String(), Err: err}
	}
	return resp, nil
}

func (w *Worker) count(ctx context.Context, result string) {
	if !w.fetchesEnabled {
		return
	}
	w.fetches.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
