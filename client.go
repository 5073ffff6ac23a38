/*
Copyright The engine-go Authors.
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package engine assembles a container engine client from its parts: the
// transport selected for the engine address, a connection manager bounding
// concurrent connections, an optional proxy and a registry credential
// supplier chain.
package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/containerd/log"

	"github.com/enginekit/engine-go/auth"
	"github.com/enginekit/engine-go/endpoint"
	"github.com/enginekit/engine-go/proxy"
	"github.com/enginekit/engine-go/transport"
)

// Client is a configured engine client.
type Client struct {
	endpoint endpoint.Endpoint
	manager  *transport.Manager
	supplier auth.Supplier
}

// New validates cfg and builds a client from it. No connection is made until
// the first request.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ep := endpoint.Default()
	if cfg.Host != "" {
		var err error
		if ep, err = endpoint.Parse(cfg.Host); err != nil {
			return nil, err
		}
	}

	certs := cfg.Certificates
	if cfg.CertPath != "" {
		var err error
		if certs, err = transport.LoadCertificates(cfg.CertPath, cfg.TLSVerify); err != nil {
			return nil, err
		}
	}
	if certs != nil {
		ep = ep.WithTLS()
	}

	reg, err := transport.Select(ep, certs, transport.WithConnectTimeout(cfg.ConnectTimeout))
	if err != nil {
		return nil, err
	}
	opts := []transport.ManagerOption{transport.WithReadTimeout(cfg.ReadTimeout)}
	if !ep.IsLocal() {
		if p := proxy.Resolve(cfg.Proxy, ep.Host); p != nil {
			opts = append(opts, transport.WithProxy(p))
		}
	}
	if cfg.Retry {
		opts = append(opts, transport.WithRetry(nil))
	}
	manager, err := transport.NewManager(reg, ep, cfg.PoolSize, opts...)
	if err != nil {
		return nil, err
	}

	supplier, err := newSupplier(ctx, cfg)
	if err != nil {
		manager.Close()
		return nil, err
	}

	log.G(ctx).WithField("endpoint", ep.String()).
		WithField("tls", certs != nil).
		Debug("engine client created")
	return &Client{
		endpoint: ep,
		manager:  manager,
		supplier: supplier,
	}, nil
}

// newSupplier builds the credential chain described by cfg. An explicit
// supplier or credential replaces the configuration file.
func newSupplier(ctx context.Context, cfg Config) (auth.Supplier, error) {
	var base auth.Supplier
	switch {
	case cfg.AuthSupplier != nil:
		base = cfg.AuthSupplier
	case cfg.RegistryAuth != nil:
		base = auth.Fixed(cfg.RegistryAuth, nil)
	default:
		path := cfg.DockerConfig
		if path == "" {
			path = auth.DefaultConfigPath()
		}
		base = auth.ConfigFile(path)
	}
	if !cfg.GoogleAuth {
		return base, nil
	}
	google, err := auth.NewGoogleTokenSupplier(ctx)
	if err != nil {
		return nil, fmt.Errorf("google credentials: %w", err)
	}
	return auth.Multi(base, google), nil
}

// Endpoint returns the engine endpoint, upgraded to https when certificates
// are configured.
func (c *Client) Endpoint() endpoint.Endpoint {
	return c.endpoint
}

// HTTP returns the HTTP client bound to the connection manager.
func (c *Client) HTTP() *http.Client {
	return c.manager.Client()
}

// BaseURL returns the URL request paths are resolved against.
func (c *Client) BaseURL() string {
	return c.manager.BaseURL()
}

// Auth returns the registry credential supplier.
func (c *Client) Auth() auth.Supplier {
	return c.supplier
}

// Manager returns the connection manager.
func (c *Client) Manager() *transport.Manager {
	return c.manager
}

// NewRequest returns a request for the API path p.
func (c *Client) NewRequest(ctx context.Context, method, p string, body io.Reader) (*http.Request, error) {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return http.NewRequestWithContext(ctx, method, c.BaseURL()+p, body)
}

// Ping checks that the engine answers /_ping.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.NewRequest(ctx, http.MethodGet, "/_ping", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s %q: unexpected status %s: %s", req.Method, req.URL, resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

// Close releases idle connections. Requests made after Close fail.
func (c *Client) Close() error {
	return c.manager.Close()
}
