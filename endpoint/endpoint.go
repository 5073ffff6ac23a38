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

// Package endpoint parses the address of a container engine.
//
// An endpoint is either a network address (tcp, http, https) identified by
// host and port, or a local IPC address (unix, npipe) identified by a path.
package endpoint

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/enginekit/engine-go/errdef"
)

// Supported endpoint schemes.
const (
	SchemeTCP   = "tcp"
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
	SchemeUnix  = "unix"
	SchemeNpipe = "npipe"
)

// Defaults substituted for missing endpoint components.
const (
	DefaultHost      = "localhost"
	DefaultPort      = 2375
	DefaultTLSPort   = 2376
	DefaultUnixPath  = "/var/run/docker.sock"
	DefaultNpipePath = "//./pipe/docker_engine"
)

// Endpoint is a parsed engine address.
type Endpoint struct {
	// Scheme is one of tcp, http, https, unix or npipe.
	Scheme string
	// Host is the engine host name. Empty for unix and npipe endpoints.
	Host string
	// Port is the engine port. Zero for unix and npipe endpoints.
	Port int
	// Path is the socket or pipe path for unix and npipe endpoints, and an
	// optional API path prefix otherwise.
	Path string
}

// Parse parses an engine address such as tcp://localhost:2375,
// unix:///var/run/docker.sock or npipe:////./pipe/docker_engine.
func Parse(uri string) (Endpoint, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: %w", uri, err)
	}

	switch u.Scheme {
	case SchemeUnix:
		path := u.Host + u.Path
		if path == "" {
			path = DefaultUnixPath
		}
		return Endpoint{Scheme: SchemeUnix, Path: path}, nil
	case SchemeNpipe:
		path := u.Host + u.Path
		if path == "" {
			path = DefaultNpipePath
		}
		return Endpoint{Scheme: SchemeNpipe, Path: path}, nil
	case SchemeTCP, SchemeHTTP, SchemeHTTPS:
		host := u.Hostname()
		if host == "" {
			host = DefaultHost
		}
		port := DefaultPort
		if u.Scheme == SchemeHTTPS {
			port = DefaultTLSPort
		}
		if p := u.Port(); p != "" {
			port, err = strconv.Atoi(p)
			if err != nil || port <= 0 || port > 65535 {
				return Endpoint{}, fmt.Errorf("invalid port %q in endpoint %q: %w", p, uri, errdef.ErrInvalidArgument)
			}
		}
		return Endpoint{
			Scheme: u.Scheme,
			Host:   host,
			Port:   port,
			Path:   u.Path,
		}, nil
	default:
		return Endpoint{}, fmt.Errorf("%q in endpoint %q: %w", u.Scheme, uri, errdef.ErrUnsupportedScheme)
	}
}

// MustParse is like Parse but panics if the address cannot be parsed.
func MustParse(uri string) Endpoint {
	ep, err := Parse(uri)
	if err != nil {
		panic(err)
	}
	return ep
}

// IsLocal reports whether the endpoint is a local IPC address.
func (ep Endpoint) IsLocal() bool {
	return ep.Scheme == SchemeUnix || ep.Scheme == SchemeNpipe
}

// IsTLS reports whether the endpoint requires TLS.
func (ep Endpoint) IsTLS() bool {
	return ep.Scheme == SchemeHTTPS
}

// Address returns host:port for network endpoints and the path for local
// endpoints.
func (ep Endpoint) Address() string {
	if ep.IsLocal() {
		return ep.Path
	}
	return net.JoinHostPort(ep.Host, strconv.Itoa(ep.Port))
}

// WithTLS returns the endpoint upgraded to https. Local endpoints are
// returned unchanged since there is no TLS over local IPC.
func (ep Endpoint) WithTLS() Endpoint {
	if ep.IsLocal() {
		return ep
	}
	ep.Scheme = SchemeHTTPS
	return ep
}

// String returns the endpoint in URI form.
func (ep Endpoint) String() string {
	if ep.IsLocal() {
		return ep.Scheme + "://" + ep.Path
	}
	return ep.Scheme + "://" + ep.Address() + ep.Path
}
