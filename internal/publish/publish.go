// Package publish uploads generated dashboards to a Grafana server.
package publish

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/grafana-tools/sdk"
	"github.com/wcatz/dashboard-generator/internal/errors"
)

// DefaultTimeout bounds a single upload.
const DefaultTimeout = 30 * time.Second

// Result is Grafana's answer to one upload.
type Result struct {
	Status  string `json:"status"`
	UID     string `json:"uid"`
	URL     string `json:"url,omitempty"`
	Version int    `json:"version,omitempty"`
}

// Publisher uploads one encoded dashboard.
type Publisher interface {
	Publish(ctx context.Context, dashboard []byte) (Result, error)
}

// Auth holds Grafana credentials. A token takes precedence over user and
// password.
type Auth struct {
	Token    string
	User     string
	Password string
}

func (a Auth) credential() string {
	if a.Token != "" {
		return a.Token
	}
	if a.User != "" {
		return a.User + ":" + a.Password
	}
	return ""
}

// GrafanaPublisher creates or overwrites dashboards through Grafana's
// dashboard API.
type GrafanaPublisher struct {
	client   *sdk.Client
	url      string
	folderID int
}

// Option configures a GrafanaPublisher.
type Option func(*options)

type options struct {
	httpClient *http.Client
	folderID   int
}

// WithHTTPClient replaces the default client, which times out after DefaultTimeout.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithFolderID files dashboards into a folder instead of General.
func WithFolderID(id int) Option {
	return func(o *options) {
		o.folderID = id
	}
}

// NewGrafanaPublisher creates a publisher for the Grafana at url.
func NewGrafanaPublisher(url string, auth Auth, opts ...Option) (*GrafanaPublisher, error) {
	if url == "" {
		return nil, errors.New(errors.ErrPublish,
			"No Grafana URL given",
			"Pass --grafana-url or set DASHGEN_GRAFANA_URL")
	}
	o := options{httpClient: &http.Client{Timeout: DefaultTimeout}}
	for _, opt := range opts {
		opt(&o)
	}

	client, err := sdk.NewClient(url, auth.credential(), o.httpClient)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrPublish,
			fmt.Sprintf("Invalid Grafana URL %s", url), "")
	}
	return &GrafanaPublisher{client: client, url: url, folderID: o.folderID}, nil
}

// Publish uploads dashboard, overwriting any dashboard with the same uid.
func (p *GrafanaPublisher) Publish(ctx context.Context, dashboard []byte) (Result, error) {
	resp, err := p.client.SetRawDashboardWithParam(ctx, sdk.RawBoardRequest{
		Dashboard: dashboard,
		Parameters: sdk.SetDashboardParams{
			FolderID:  p.folderID,
			Overwrite: true,
		},
	})
	res := Result{
		Status:  deref(resp.Status),
		UID:     deref(resp.UID),
		URL:     deref(resp.URL),
		Version: deref(resp.Version),
	}
	if err != nil {
		return res, errors.WrapWithCode(err, errors.ErrPublish,
			fmt.Sprintf("Grafana at %s rejected the dashboard", p.url),
			"Check --grafana-url and the credentials in --grafana-token or --grafana-user/--grafana-pass")
	}
	return res, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
