package discovery

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/wcatz/dashboard-generator/internal/errors"
)

// Client is the narrow view of a metrics query service that discovery needs.
// Datasources are addressed by their config name.
type Client interface {
	MetricNames(ctx context.Context, ds string) ([]string, error)
	Metadata(ctx context.Context, ds string) (map[string]MetricInfo, error)
	LabelValues(ctx context.Context, ds, label string) ([]string, error)
}

// PromClient implements Client against the Prometheus HTTP API. One API
// client is created per datasource on first use.
type PromClient struct {
	urls map[string]string
	rt   http.RoundTripper

	mu   sync.Mutex
	apis map[string]v1.API
}

// PromOption configures a PromClient.
type PromOption func(*PromClient)

// WithRoundTripper sets the transport used for every request.
func WithRoundTripper(rt http.RoundTripper) PromOption {
	return func(c *PromClient) {
		c.rt = rt
	}
}

// NewPromClient creates a client for the datasources in urls (name -> base URL).
func NewPromClient(urls map[string]string, opts ...PromOption) *PromClient {
	c := &PromClient{
		urls: urls,
		apis: make(map[string]v1.API),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *PromClient) api(ds string) (v1.API, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if a, ok := c.apis[ds]; ok {
		return a, nil
	}
	addr := c.urls[ds]
	if addr == "" {
		return nil, errors.New(errors.ErrDiscovery,
			fmt.Sprintf("No URL configured for datasource '%s'", ds),
			"Set url: on the datasource or pass --prometheus-url")
	}
	client, err := api.NewClient(api.Config{Address: addr, RoundTripper: c.rt})
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrDiscovery,
			fmt.Sprintf("Invalid URL for datasource '%s'", ds), "")
	}
	a := v1.NewAPI(client)
	c.apis[ds] = a
	return a, nil
}

// MetricNames lists every metric name the datasource knows.
func (c *PromClient) MetricNames(ctx context.Context, ds string) ([]string, error) {
	return c.LabelValues(ctx, ds, model.MetricNameLabel)
}

// LabelValues lists the values of label across all series.
func (c *PromClient) LabelValues(ctx context.Context, ds, label string) ([]string, error) {
	a, err := c.api(ds)
	if err != nil {
		return nil, err
	}
	values, _, err := a.LabelValues(ctx, label, nil, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	sort.Strings(out)
	return out, nil
}

// Metadata returns type and help text per metric. When a metric reports
// several metadata entries the first one wins.
func (c *PromClient) Metadata(ctx context.Context, ds string) (map[string]MetricInfo, error) {
	a, err := c.api(ds)
	if err != nil {
		return nil, err
	}
	raw, err := a.Metadata(ctx, "", "")
	if err != nil {
		return nil, err
	}
	meta := make(map[string]MetricInfo, len(raw))
	for name, entries := range raw {
		if len(entries) == 0 {
			continue
		}
		info := MetricInfo{Type: string(entries[0].Type), Help: entries[0].Help}
		if info.Type == "" {
			info.Type = Untyped
		}
		meta[name] = info
	}
	return meta, nil
}
