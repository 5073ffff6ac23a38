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

package endpoint

import (
	"errors"
	"reflect"
	"testing"

	"github.com/enginekit/engine-go/errdef"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		want    Endpoint
		wantErr error
	}{
		{
			name: "tcp with host and port",
			uri:  "tcp://engine.example.com:4243",
			want: Endpoint{Scheme: SchemeTCP, Host: "engine.example.com", Port: 4243},
		},
		{
			name: "tcp without port",
			uri:  "tcp://engine.example.com",
			want: Endpoint{Scheme: SchemeTCP, Host: "engine.example.com", Port: DefaultPort},
		},
		{
			name: "tcp without host",
			uri:  "tcp://:2380",
			want: Endpoint{Scheme: SchemeTCP, Host: DefaultHost, Port: 2380},
		},
		{
			name: "https default port",
			uri:  "https://engine.example.com",
			want: Endpoint{Scheme: SchemeHTTPS, Host: "engine.example.com", Port: DefaultTLSPort},
		},
		{
			name: "http with path prefix",
			uri:  "http://10.0.0.1:2375/engine",
			want: Endpoint{Scheme: SchemeHTTP, Host: "10.0.0.1", Port: 2375, Path: "/engine"},
		},
		{
			name: "ipv6 host",
			uri:  "tcp://[::1]:2375",
			want: Endpoint{Scheme: SchemeTCP, Host: "::1", Port: 2375},
		},
		{
			name: "unix socket",
			uri:  "unix:///run/engine.sock",
			want: Endpoint{Scheme: SchemeUnix, Path: "/run/engine.sock"},
		},
		{
			name: "unix without path",
			uri:  "unix://",
			want: Endpoint{Scheme: SchemeUnix, Path: DefaultUnixPath},
		},
		{
			name: "named pipe",
			uri:  "npipe:////./pipe/docker_engine",
			want: Endpoint{Scheme: SchemeNpipe, Path: "//./pipe/docker_engine"},
		},
		{
			name: "named pipe without path",
			uri:  "npipe://",
			want: Endpoint{Scheme: SchemeNpipe, Path: DefaultNpipePath},
		},
		{
			name:    "unsupported scheme",
			uri:     "ssh://user@engine.example.com",
			wantErr: errdef.ErrUnsupportedScheme,
		},
		{
			name:    "no scheme",
			uri:     "/var/run/docker.sock",
			wantErr: errdef.ErrUnsupportedScheme,
		},
		{
			name:    "port out of range",
			uri:     "tcp://localhost:70000",
			wantErr: errdef.ErrInvalidArgument,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.uri)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEndpoint_Address(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{uri: "tcp://localhost:2375", want: "localhost:2375"},
		{uri: "tcp://[::1]:2375", want: "[::1]:2375"},
		{uri: "unix:///var/run/docker.sock", want: "/var/run/docker.sock"},
		{uri: "npipe:////./pipe/docker_engine", want: "//./pipe/docker_engine"},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			if got := MustParse(tt.uri).Address(); got != tt.want {
				t.Errorf("Endpoint.Address() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEndpoint_WithTLS(t *testing.T) {
	ep := MustParse("tcp://engine.example.com:2376").WithTLS()
	if ep.Scheme != SchemeHTTPS || ep.Port != 2376 {
		t.Errorf("Endpoint.WithTLS() = %+v, want https on port 2376", ep)
	}
	if !ep.IsTLS() {
		t.Errorf("Endpoint.IsTLS() = false, want true")
	}

	local := MustParse("unix:///var/run/docker.sock").WithTLS()
	if local.Scheme != SchemeUnix {
		t.Errorf("Endpoint.WithTLS() on unix endpoint changed scheme to %q", local.Scheme)
	}
}

func TestEndpoint_String(t *testing.T) {
	for _, uri := range []string{
		"tcp://localhost:2375",
		"https://engine.example.com:2376/v1",
		"unix:///var/run/docker.sock",
		"npipe:////./pipe/docker_engine",
	} {
		if got := MustParse(uri).String(); got != uri {
			t.Errorf("Endpoint.String() = %q, want %q", got, uri)
		}
	}
}

func TestDefault(t *testing.T) {
	ep := Default()
	if !ep.IsLocal() {
		t.Errorf("Default() = %+v, want a local endpoint", ep)
	}
	parsed, err := Parse(DefaultEngineHost)
	if err != nil {
		t.Fatalf("Parse(DefaultEngineHost) error = %v", err)
	}
	if !reflect.DeepEqual(parsed, ep) {
		t.Errorf("Parse(DefaultEngineHost) = %+v, want %+v", parsed, ep)
	}
}
