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
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/enginekit/engine-go/auth"
)

// FileConfig is the TOML form of a client configuration.
//
//	host = "tcp://engine.example.com:2376"
//	cert-path = "/etc/engine/certs"
//	tls-verify = true
//	connect-timeout = "5s"
//
//	[proxy]
//	host = "proxy.example.com"
//	no-proxy = ["*.internal", "localhost"]
type FileConfig struct {
	Host           string `toml:"host"`
	CertPath       string `toml:"cert-path"`
	TLSVerify      *bool  `toml:"tls-verify"`
	PoolSize       int    `toml:"pool-size"`
	ConnectTimeout string `toml:"connect-timeout"`
	ReadTimeout    string `toml:"read-timeout"`
	Retry          *bool  `toml:"retry"`
	DockerConfig   string `toml:"docker-config"`
	GoogleAuth     *bool  `toml:"google-auth"`

	Proxy        *FileProxy      `toml:"proxy"`
	RegistryAuth *FileCredential `toml:"registry-auth"`
}

// FileProxy is the [proxy] table.
type FileProxy struct {
	Scheme   string   `toml:"scheme"`
	Host     string   `toml:"host"`
	Port     int      `toml:"port"`
	NoProxy  []string `toml:"no-proxy"`
	Username string   `toml:"username"`
	Password string   `toml:"password"`
}

// FileCredential is the [registry-auth] table.
type FileCredential struct {
	Username      string `toml:"username"`
	Password      string `toml:"password"`
	IdentityToken string `toml:"identity-token"`
	ServerAddress string `toml:"server-address"`
}

// LoadFile reads the TOML configuration at path and applies it on top of
// base. Settings absent from the file keep their base value.
func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to read client config at %s", path)
	}
	var fc FileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return Config{}, errors.Wrapf(err, "failed to parse client config at %s", path)
	}
	cfg, err := fc.Apply(base)
	if err != nil {
		return Config{}, errors.Wrapf(err, "invalid client config at %s", path)
	}
	return cfg, nil
}

// Apply overlays the settings present in fc on base.
func (fc FileConfig) Apply(base Config) (Config, error) {
	cfg := base
	if fc.Host != "" {
		cfg.Host = fc.Host
	}
	if fc.CertPath != "" {
		cfg.CertPath = fc.CertPath
	}
	if fc.TLSVerify != nil {
		cfg.TLSVerify = *fc.TLSVerify
	}
	if fc.PoolSize != 0 {
		cfg.PoolSize = fc.PoolSize
	}
	if fc.ConnectTimeout != "" {
		d, err := time.ParseDuration(fc.ConnectTimeout)
		if err != nil {
			return Config{}, errors.Wrap(err, "connect-timeout")
		}
		cfg.ConnectTimeout = d
	}
	if fc.ReadTimeout != "" {
		d, err := time.ParseDuration(fc.ReadTimeout)
		if err != nil {
			return Config{}, errors.Wrap(err, "read-timeout")
		}
		cfg.ReadTimeout = d
	}
	if fc.Retry != nil {
		cfg.Retry = *fc.Retry
	}
	if fc.DockerConfig != "" {
		cfg.DockerConfig = fc.DockerConfig
	}
	if fc.GoogleAuth != nil {
		cfg.GoogleAuth = *fc.GoogleAuth
	}
	if p := fc.Proxy; p != nil {
		cfg.Proxy.Scheme = p.Scheme
		cfg.Proxy.Host = p.Host
		cfg.Proxy.Port = p.Port
		cfg.Proxy.NoProxy = p.NoProxy
		cfg.Proxy.Username = p.Username
		cfg.Proxy.Password = p.Password
	}
	if a := fc.RegistryAuth; a != nil {
		cfg.RegistryAuth = &auth.Credential{
			Username:      a.Username,
			Password:      a.Password,
			IdentityToken: a.IdentityToken,
			ServerAddress: a.ServerAddress,
		}
	}
	return cfg, nil
}
