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
	"fmt"
	"net"
	"time"

	"github.com/containerd/log"

	"github.com/enginekit/engine-go/endpoint"
	"github.com/enginekit/engine-go/errdef"
)

// defaultKeepAlive matches the keep-alive of http.DefaultTransport.
const defaultKeepAlive = 30 * time.Second

// SelectOptions configures Select.
type SelectOptions struct {
	// ConnectTimeout bounds connection establishment. Zero blocks
	// indefinitely.
	ConnectTimeout time.Duration
}

// SelectOption sets a SelectOptions field.
type SelectOption func(*SelectOptions)

// WithConnectTimeout sets the connect timeout of every transport.
func WithConnectTimeout(timeout time.Duration) SelectOption {
	return func(o *SelectOptions) {
		o.ConnectTimeout = timeout
	}
}

// Select builds the transport registry for ep.
//
// The registry always holds http and https transports. https uses the TLS
// configuration of certs, or a default client configuration if certs is
// nil. A unix or npipe transport is added when ep is local; certs are then
// accepted but unused for ep itself, since there is no TLS over local IPC.
func Select(ep endpoint.Endpoint, certs *CertificateBundle, opts ...SelectOption) (Registry, error) {
	var options SelectOptions
	for _, o := range opts {
		o(&options)
	}
	if options.ConnectTimeout < 0 {
		return nil, fmt.Errorf("connect timeout %v: %w", options.ConnectTimeout, errdef.ErrInvalidArgument)
	}

	dialer := &net.Dialer{
		Timeout:   options.ConnectTimeout,
		KeepAlive: defaultKeepAlive,
	}
	reg := Registry{
		endpoint.SchemeHTTP:  &tcpTransport{dialer: dialer},
		endpoint.SchemeHTTPS: &tlsTransport{dialer: dialer, config: certs.tlsConfig()},
	}

	switch ep.Scheme {
	case endpoint.SchemeTCP, endpoint.SchemeHTTP, endpoint.SchemeHTTPS:
	case endpoint.SchemeUnix:
		reg[endpoint.SchemeUnix] = &unixTransport{dialer: dialer}
	case endpoint.SchemeNpipe:
		reg[endpoint.SchemeNpipe] = &pipeTransport{timeout: options.ConnectTimeout}
	default:
		return nil, fmt.Errorf("%q: %w", ep.Scheme, errdef.ErrUnsupportedScheme)
	}

	entry := log.L.WithField("endpoint", ep.String())
	if certs != nil && ep.IsLocal() {
		entry.Debug("certificates are not used for local endpoint")
	}
	entry.WithField("schemes", len(reg)).Debug("transports selected")
	return reg, nil
}
