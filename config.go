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

package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/enginekit/engine-go/auth"
	"github.com/enginekit/engine-go/endpoint"
	"github.com/enginekit/engine-go/errdef"
	"github.com/enginekit/engine-go/proxy"
	"github.com/enginekit/engine-go/transport"
)

// Default timeouts.
const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultReadTimeout    = 30 * time.Second
)

// Environment variables read by FromEnv.
const (
	EnvHost         = "DOCKER_HOST"
	EnvCertPath     = "DOCKER_CERT_PATH"
	EnvTLSVerify    = "DOCKER_TLS_VERIFY"
	EnvDockerConfig = "DOCKER_CONFIG"
)

// Config describes how to reach an engine and which registry credentials
// to present to it.
type Config struct {
	// Host is the engine address. Empty selects the platform default.
	Host string

	// CertPath is a directory holding ca.pem, cert.pem and key.pem.
	// Mutually exclusive with Certificates.
	CertPath string
	// TLSVerify enables server certificate verification for certificates
	// loaded from CertPath.
	TLSVerify bool
	// Certificates is a ready TLS configuration. Mutually exclusive with
	// CertPath.
	Certificates *transport.CertificateBundle

	// PoolSize bounds the number of concurrent connections.
	PoolSize int
	// ConnectTimeout bounds connection establishment. Zero blocks.
	ConnectTimeout time.Duration
	// ReadTimeout bounds the wait for response headers. Zero blocks.
	ReadTimeout time.Duration
	// Retry retries requests that failed before reaching the engine.
	Retry bool

	// Proxy is consulted for network endpoints.
	Proxy proxy.Settings

	// RegistryAuth is a fixed credential for every registry operation.
	// Mutually exclusive with AuthSupplier.
	RegistryAuth *auth.Credential
	// AuthSupplier resolves registry credentials. Mutually exclusive with
	// RegistryAuth.
	AuthSupplier auth.Supplier
	// DockerConfig is the docker client configuration file credentials
	// are read from when neither RegistryAuth nor AuthSupplier is set.
	DockerConfig string
	// GoogleAuth adds Google application default credentials for the
	// gcr.io registries, after the other credential sources.
	GoogleAuth bool
}

// DefaultConfig returns a configuration for the default local engine.
func DefaultConfig() Config {
	return Config{
		PoolSize:       transport.DefaultPoolSize,
		ConnectTimeout: DefaultConnectTimeout,
		ReadTimeout:    DefaultReadTimeout,
	}
}

// FromEnv returns the default configuration overlaid with DOCKER_HOST,
// DOCKER_CERT_PATH, DOCKER_TLS_VERIFY, DOCKER_CONFIG and the proxy
// environment.
func FromEnv() Config {
	cfg := DefaultConfig()
	cfg.Host = os.Getenv(EnvHost)
	cfg.TLSVerify = os.Getenv(EnvTLSVerify) != ""
	cfg.CertPath = os.Getenv(EnvCertPath)
	cfg.DockerConfig = auth.DefaultConfigPath()
	if cfg.CertPath == "" && cfg.TLSVerify {
		// certificates live next to the client configuration by default
		cfg.CertPath = filepath.Dir(cfg.DockerConfig)
	}
	cfg.Proxy = proxy.FromEnvironment()
	return cfg
}

// Validate reports every problem with the configuration.
func (c Config) Validate() error {
	var result *multierror.Error
	if c.Host != "" {
		if _, err := endpoint.Parse(c.Host); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := proxy.CheckScheme(c.Proxy.Scheme); err != nil {
		result = multierror.Append(result, err)
	}
	if c.CertPath != "" && c.Certificates != nil {
		result = multierror.Append(result, fmt.Errorf("cert path and certificates are both set: %w", errdef.ErrConfigurationConflict))
	}
	if c.RegistryAuth != nil && c.AuthSupplier != nil {
		result = multierror.Append(result, fmt.Errorf("registry auth and auth supplier are both set: %w", errdef.ErrConfigurationConflict))
	}
	if c.PoolSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("pool size %d: %w", c.PoolSize, errdef.ErrInvalidArgument))
	}
	if c.ConnectTimeout < 0 {
		result = multierror.Append(result, fmt.Errorf("connect timeout %v: %w", c.ConnectTimeout, errdef.ErrInvalidArgument))
	}
	if c.ReadTimeout < 0 {
		result = multierror.Append(result, fmt.Errorf("read timeout %v: %w", c.ReadTimeout, errdef.ErrInvalidArgument))
	}
	return result.ErrorOrNil()
}
