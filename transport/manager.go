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

package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/containerd/log"
	"golang.org/x/sync/semaphore"

	"github.com/enginekit/engine-go/endpoint"
	"github.com/enginekit/engine-go/errdef"
	"github.com/enginekit/engine-go/proxy"
	"github.com/enginekit/engine-go/transport/retry"
)

// DefaultPoolSize is the default number of concurrent engine connections.
const DefaultPoolSize = 100

// localBaseURL addresses the engine over a unix socket or a named pipe. The
// host is never resolved.
const localBaseURL = "http://localhost"

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// Proxy routes network connections through an HTTP proxy. Ignored for
	// local endpoints.
	Proxy *proxy.Config

	// ReadTimeout bounds the wait for response headers. Zero means no
	// timeout.
	ReadTimeout time.Duration

	// RetryPolicy, if set, retries requests that failed before reaching
	// the engine.
	RetryPolicy func() retry.Policy
}

// ManagerOption sets a ManagerOptions field.
type ManagerOption func(*ManagerOptions)

// WithProxy routes network connections through p.
func WithProxy(p *proxy.Config) ManagerOption {
	return func(o *ManagerOptions) {
		o.Proxy = p
	}
}

// WithReadTimeout bounds the wait for response headers.
func WithReadTimeout(timeout time.Duration) ManagerOption {
	return func(o *ManagerOptions) {
		o.ReadTimeout = timeout
	}
}

// WithRetry enables request retries. A nil policy selects
// retry.DefaultPolicy.
func WithRetry(policy func() retry.Policy) ManagerOption {
	return func(o *ManagerOptions) {
		if policy == nil {
			policy = func() retry.Policy { return retry.DefaultPolicy }
		}
		o.RetryPolicy = policy
	}
}

// Manager owns the connections to one engine endpoint.
//
// Network and unix endpoints get a pool of at most poolSize concurrent
// connections. A named pipe endpoint gets a single connection: a pipe handle
// cannot be shared between logical streams, so each connection is used for
// one request and closed afterwards.
type Manager struct {
	ep     endpoint.Endpoint
	pooled bool
	size   int64
	sem    *semaphore.Weighted
	open   atomic.Int64
	http   *http.Transport
	client *http.Client

	closeOnce sync.Once
	closed    atomic.Bool
}

// NewManager creates a connection manager for ep using the transports in
// reg.
func NewManager(reg Registry, ep endpoint.Endpoint, poolSize int, opts ...ManagerOption) (*Manager, error) {
	if poolSize <= 0 {
		return nil, fmt.Errorf("pool size %d: %w", poolSize, errdef.ErrInvalidArgument)
	}
	var options ManagerOptions
	for _, o := range opts {
		o(&options)
	}
	if options.ReadTimeout < 0 {
		return nil, fmt.Errorf("read timeout %v: %w", options.ReadTimeout, errdef.ErrInvalidArgument)
	}

	scheme := ep.Scheme
	if scheme == endpoint.SchemeTCP {
		scheme = endpoint.SchemeHTTP
	}
	t, err := reg.Lookup(scheme)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		ep:     ep,
		pooled: ep.Scheme != endpoint.SchemeNpipe,
	}
	m.size = int64(poolSize)
	if !m.pooled {
		m.size = 1
	}
	m.sem = semaphore.NewWeighted(m.size)

	m.http = &http.Transport{
		DialContext:           m.dialer(t),
		MaxIdleConns:          int(m.size),
		MaxIdleConnsPerHost:   int(m.size),
		MaxConnsPerHost:       int(m.size),
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: options.ReadTimeout,
		DisableKeepAlives:     !m.pooled,
		DisableCompression:    ep.IsLocal(),
	}
	if tt, ok := t.(*tlsTransport); ok {
		// plain connections are still needed to reach a proxy
		plain, err := reg.Lookup(endpoint.SchemeHTTP)
		if err != nil {
			return nil, err
		}
		m.http.DialContext = m.dialer(plain)
		m.http.DialTLSContext = m.dialer(t)
		m.http.TLSClientConfig = tt.config.Clone()
	}
	if options.Proxy != nil && !ep.IsLocal() {
		m.http.Proxy = http.ProxyURL(options.Proxy.URL())
	}

	var rt http.RoundTripper = m.http
	if options.RetryPolicy != nil {
		rt = &retry.Transport{Base: m.http, Policy: options.RetryPolicy}
	}
	m.client = &http.Client{Transport: &closeGuard{m: m, base: rt}}

	log.L.WithField("endpoint", ep.String()).
		WithField("pooled", m.pooled).
		WithField("size", m.size).
		Debug("connection manager created")
	return m, nil
}

// dialer returns a dial function over t bounded by the pool semaphore.
// Local transports always dial the endpoint path; addr only names the
// virtual host.
func (m *Manager) dialer(t Transport) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, _, addr string) (net.Conn, error) {
		if m.closed.Load() {
			return nil, errdef.ErrClosed
		}
		if m.ep.IsLocal() {
			addr = m.ep.Path
		}
		if err := m.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		conn, err := t.Dial(ctx, addr)
		if err != nil {
			m.sem.Release(1)
			return nil, err
		}
		m.open.Add(1)
		log.G(ctx).WithField("scheme", t.Scheme()).WithField("address", addr).Trace("engine connection opened")
		return &managedConn{Conn: conn, release: func() {
			m.open.Add(-1)
			m.sem.Release(1)
		}}, nil
	}
}

// Client returns the HTTP client speaking to the engine.
func (m *Manager) Client() *http.Client {
	return m.client
}

// BaseURL returns the URL requests are made against.
func (m *Manager) BaseURL() string {
	if m.ep.IsLocal() {
		return localBaseURL
	}
	scheme := endpoint.SchemeHTTP
	if m.ep.IsTLS() {
		scheme = endpoint.SchemeHTTPS
	}
	host := net.JoinHostPort(m.ep.Host, strconv.Itoa(m.ep.Port))
	return scheme + "://" + host + strings.TrimSuffix(m.ep.Path, "/")
}

// Pooled reports whether connections are pooled. It is false for named
// pipe endpoints.
func (m *Manager) Pooled() bool {
	return m.pooled
}

// Size returns the maximum number of concurrent connections.
func (m *Manager) Size() int {
	return int(m.size)
}

// Open returns the number of connections currently open.
func (m *Manager) Open() int {
	return int(m.open.Load())
}

// Endpoint returns the managed endpoint.
func (m *Manager) Endpoint() endpoint.Endpoint {
	return m.ep
}

// Close closes idle connections and rejects new ones.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		m.http.CloseIdleConnections()
	})
	return nil
}

// managedConn returns its pool slot once closed.
type managedConn struct {
	net.Conn
	once    sync.Once
	release func()
}

func (c *managedConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(c.release)
	return err
}

// closeGuard fails requests once the manager is closed, including those
// that would reuse a connection returned to the pool after Close.
type closeGuard struct {
	m    *Manager
	base http.RoundTripper
}

func (g *closeGuard) RoundTrip(req *http.Request) (*http.Response, error) {
	if g.m.closed.Load() {
		if req.Body != nil {
			req.Body.Close()
		}
		g.m.http.CloseIdleConnections()
		return nil, errdef.ErrClosed
	}
	resp, err := g.base.RoundTrip(req)
	if err != nil || resp.StatusCode == http.StatusSwitchingProtocols {
		return resp, err
	}
	resp.Body = &guardedBody{ReadCloser: resp.Body, m: g.m}
	return resp, nil
}

// guardedBody drops the connection it was read from when the manager was
// closed while the response was in flight.
type guardedBody struct {
	io.ReadCloser
	m *Manager
}

func (b *guardedBody) Close() error {
	err := b.ReadCloser.Close()
	if b.m.closed.Load() {
		b.m.http.CloseIdleConnections()
	}
	return err
}
