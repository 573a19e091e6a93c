// Package discovery inspects the metric namespace of live datasources and
// turns it into panel suggestions. Discovery is best effort: a failed or
// slow request is logged and treated as an empty result.
package discovery

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wcatz/dashboard-generator/internal/logger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds each request to the query service.
const DefaultTimeout = 30 * time.Second

// Untyped is the metric type used when a datasource has no metadata for a name.
const Untyped = "untyped"

// MetricInfo is the type and help text of one metric.
type MetricInfo struct {
	Type string `json:"type"`
	Help string `json:"help,omitempty"`
}

// Metric is a metric name with its info.
type Metric struct {
	Name string `json:"name"`
	MetricInfo
}

// NameSet is a set of metric names. Sets returned by Discovery are shared
// through its cache and must not be modified.
type NameSet map[string]struct{}

// NewNameSet builds a set from names.
func NewNameSet(names ...string) NameSet {
	s := make(NameSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set.
func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the names in lexical order.
func (s NameSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Categories splits two datasources' metrics into shared and exclusive sets.
// Each list is sorted by name.
type Categories struct {
	Shared []Metric `json:"shared"`
	OnlyA  []Metric `json:"only_a"`
	OnlyB  []Metric `json:"only_b"`
}

// Discovery fetches and caches metric universes for one run. It is safe for
// concurrent use; concurrent requests for the same key share one call.
type Discovery struct {
	client  Client
	log     logger.Logger
	timeout time.Duration

	mu    sync.Mutex
	cache map[string]any
	group singleflight.Group
}

// Option configures a Discovery.
type Option func(*Discovery)

// WithLogger sets where fetch warnings go.
func WithLogger(l logger.Logger) Option {
	return func(d *Discovery) {
		d.log = l
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(t time.Duration) Option {
	return func(d *Discovery) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// New creates a Discovery backed by client.
func New(client Client, opts ...Option) *Discovery {
	d := &Discovery{
		client:  client,
		log:     logger.Default(),
		timeout: DefaultTimeout,
		cache:   make(map[string]any),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Discovery) cached(key string) (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.cache[key]
	return v, ok
}

// fetch returns the cached value for key or runs call once to fill it.
// Failures are logged and cached as empty so every later lookup in the run
// sees the same answer. A cancelled parent context is not cached.
func fetch[T any](ctx context.Context, d *Discovery, kind, ds string, empty T, call func(context.Context) (T, error)) T {
	key := kind + ":" + ds
	if v, ok := d.cached(key); ok {
		return v.(T)
	}

	v, _, _ := d.group.Do(key, func() (any, error) {
		if v, ok := d.cached(key); ok {
			return v, nil
		}

		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		d.log.Debug("fetching %s from datasource '%s'", kind, ds)
		result, err := call(callCtx)
		if err != nil {
			d.log.Warn("fetching %s from datasource '%s' failed: %v", kind, ds, err)
			if ctx.Err() != nil {
				return empty, nil
			}
			result = empty
		}

		d.mu.Lock()
		d.cache[key] = result
		d.mu.Unlock()
		return result, nil
	})
	return v.(T)
}

// FetchMetrics returns the set of metric names in ds.
func (d *Discovery) FetchMetrics(ctx context.Context, ds string) NameSet {
	return fetch(ctx, d, "metrics", ds, NameSet{}, func(ctx context.Context) (NameSet, error) {
		names, err := d.client.MetricNames(ctx, ds)
		if err != nil {
			return nil, err
		}
		return NewNameSet(names...), nil
	})
}

// FetchMetadata returns type and help text per metric in ds.
func (d *Discovery) FetchMetadata(ctx context.Context, ds string) map[string]MetricInfo {
	return fetch(ctx, d, "metadata", ds, map[string]MetricInfo{}, func(ctx context.Context) (map[string]MetricInfo, error) {
		return d.client.Metadata(ctx, ds)
	})
}

// FetchLabelValues returns the values label takes in ds.
func (d *Discovery) FetchLabelValues(ctx context.Context, ds, label string) []string {
	return fetch(ctx, d, "label "+label, ds, []string{}, func(ctx context.Context) ([]string, error) {
		return d.client.LabelValues(ctx, ds, label)
	})
}

// Categorize compares the metric names of a and b. Every metric takes its
// info from its own side first and falls back to the other side's metadata.
// The four fetches run concurrently. The only error is ctx's.
func (d *Discovery) Categorize(ctx context.Context, a, b string) (Categories, error) {
	var (
		namesA, namesB NameSet
		metaA, metaB   map[string]MetricInfo
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		namesA = d.FetchMetrics(gctx, a)
		return gctx.Err()
	})
	g.Go(func() error {
		namesB = d.FetchMetrics(gctx, b)
		return gctx.Err()
	})
	g.Go(func() error {
		metaA = d.FetchMetadata(gctx, a)
		return gctx.Err()
	})
	g.Go(func() error {
		metaB = d.FetchMetadata(gctx, b)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return Categories{}, err
	}

	cats := Categories{Shared: []Metric{}, OnlyA: []Metric{}, OnlyB: []Metric{}}
	for _, name := range namesA.Sorted() {
		if namesB.Has(name) {
			cats.Shared = append(cats.Shared, Metric{Name: name, MetricInfo: lookupMeta(name, metaA, metaB)})
		} else {
			cats.OnlyA = append(cats.OnlyA, Metric{Name: name, MetricInfo: lookupMeta(name, metaA, metaB)})
		}
	}
	for _, name := range namesB.Sorted() {
		if !namesA.Has(name) {
			cats.OnlyB = append(cats.OnlyB, Metric{Name: name, MetricInfo: lookupMeta(name, metaB, metaA)})
		}
	}
	return cats, nil
}

func lookupMeta(name string, primary, fallback map[string]MetricInfo) MetricInfo {
	if info, ok := primary[name]; ok {
		return info
	}
	if info, ok := fallback[name]; ok {
		return info
	}
	return MetricInfo{Type: Untyped}
}
