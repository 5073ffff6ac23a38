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
	"crypto/tls"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enginekit/engine-go/endpoint"
	"github.com/enginekit/engine-go/errdef"
)

func schemes(reg Registry) []string {
	var got []string
	for scheme := range reg {
		got = append(got, scheme)
	}
	sort.Strings(got)
	return got
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		want     []string
	}{
		{"tcp", "tcp://engine.example.com:2375", []string{"http", "https"}},
		{"http", "http://engine.example.com", []string{"http", "https"}},
		{"https", "https://engine.example.com", []string{"http", "https"}},
		{"unix", "unix:///var/run/docker.sock", []string{"http", "https", "unix"}},
		{"npipe", "npipe:////./pipe/docker_engine", []string{"http", "https", "npipe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := Select(endpoint.MustParse(tt.endpoint), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, schemes(reg))
			for scheme, tr := range reg {
				assert.Equal(t, scheme, tr.Scheme())
			}
		})
	}
}

func TestSelect_unsupportedScheme(t *testing.T) {
	_, err := Select(endpoint.Endpoint{Scheme: "ftp", Host: "engine", Port: 21}, nil)
	assert.ErrorIs(t, err, errdef.ErrUnsupportedScheme)
}

func TestSelect_negativeTimeout(t *testing.T) {
	_, err := Select(endpoint.MustParse("tcp://localhost:2375"), nil, WithConnectTimeout(-time.Second))
	assert.ErrorIs(t, err, errdef.ErrInvalidArgument)
}

func TestSelect_certificates(t *testing.T) {
	certs := &CertificateBundle{Config: &tls.Config{ServerName: "engine.internal", MinVersion: tls.VersionTLS13}}

	reg, err := Select(endpoint.MustParse("https://engine.example.com"), certs)
	require.NoError(t, err)
	tr, err := reg.Lookup(endpoint.SchemeHTTPS)
	require.NoError(t, err)
	config := tr.(*tlsTransport).config
	assert.Equal(t, "engine.internal", config.ServerName)
	assert.Equal(t, uint16(tls.VersionTLS13), config.MinVersion)
	assert.NotSame(t, certs.Config, config, "the bundle configuration must not be shared")

	// certificates are accepted for a local endpoint and left unused
	reg, err = Select(endpoint.MustParse("unix:///var/run/docker.sock"), certs)
	require.NoError(t, err)
	assert.Contains(t, reg, endpoint.SchemeUnix)
}

func TestSelect_defaultTLS(t *testing.T) {
	reg, err := Select(endpoint.MustParse("tcp://localhost:2375"), nil)
	require.NoError(t, err)
	config := reg[endpoint.SchemeHTTPS].(*tlsTransport).config
	require.NotNil(t, config)
	assert.GreaterOrEqual(t, config.MinVersion, uint16(tls.VersionTLS12))
}

func TestRegistry_Lookup(t *testing.T) {
	reg, err := Select(endpoint.MustParse("tcp://localhost:2375"), nil)
	require.NoError(t, err)
	_, err = reg.Lookup(endpoint.SchemeUnix)
	assert.ErrorIs(t, err, errdef.ErrUnsupportedScheme)
}
