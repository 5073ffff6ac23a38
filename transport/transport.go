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

// Package transport maps an engine endpoint onto a wire transport and owns
// the connections opened over it.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/enginekit/engine-go/endpoint"
	"github.com/enginekit/engine-go/errdef"
	"github.com/enginekit/engine-go/transport/npipe"
)

// Transport opens connections of one kind. Each variant only supports the
// operations its medium can honor.
type Transport interface {
	// Scheme returns the scheme the transport is registered under.
	Scheme() string
	// Dial opens a connection to addr, which is host:port for network
	// transports and a path for local ones.
	Dial(ctx context.Context, addr string) (net.Conn, error)
}

// tcpTransport dials plaintext TCP.
type tcpTransport struct {
	dialer *net.Dialer
}

func (t *tcpTransport) Scheme() string { return endpoint.SchemeHTTP }

func (t *tcpTransport) Dial(ctx context.Context, addr string) (net.Conn, error) {
	return t.dialer.DialContext(ctx, "tcp", addr)
}

// tlsTransport dials TCP and performs a TLS client handshake.
type tlsTransport struct {
	dialer *net.Dialer
	config *tls.Config
}

func (t *tlsTransport) Scheme() string { return endpoint.SchemeHTTPS }

func (t *tlsTransport) Dial(ctx context.Context, addr string) (net.Conn, error) {
	config := t.config.Clone()
	if config.ServerName == "" {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		config.ServerName = host
	}
	d := &tls.Dialer{NetDialer: t.dialer, Config: config}
	return d.DialContext(ctx, "tcp", addr)
}

// unixTransport dials a unix domain socket.
type unixTransport struct {
	dialer *net.Dialer
}

func (t *unixTransport) Scheme() string { return endpoint.SchemeUnix }

func (t *unixTransport) Dial(ctx context.Context, path string) (net.Conn, error) {
	return t.dialer.DialContext(ctx, "unix", path)
}

// pipeTransport opens a named pipe. Every dial gets its own exclusive
// handle.
type pipeTransport struct {
	timeout time.Duration
}

func (t *pipeTransport) Scheme() string { return endpoint.SchemeNpipe }

func (t *pipeTransport) Dial(ctx context.Context, path string) (net.Conn, error) {
	return npipe.Dial(ctx, path, t.timeout)
}

// Registry maps a scheme to the transport serving it.
type Registry map[string]Transport

// Lookup returns the transport registered for scheme.
func (r Registry) Lookup(scheme string) (Transport, error) {
	t, ok := r[scheme]
	if !ok {
		return nil, fmt.Errorf("no transport registered for %q: %w", scheme, errdef.ErrUnsupportedScheme)
	}
	return t, nil
}
