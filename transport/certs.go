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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/docker/go-connections/tlsconfig"
)

// File names looked up in a certificate directory.
const (
	CAFile   = "ca.pem"
	CertFile = "cert.pem"
	KeyFile  = "key.pem"
)

// CertificateBundle carries the TLS material for an https endpoint.
type CertificateBundle struct {
	// Config is the client TLS configuration.
	Config *tls.Config

	// VerifyConnection, if set, replaces the default server name check
	// performed after the handshake.
	VerifyConnection func(tls.ConnectionState) error
}

// tlsConfig returns a TLS configuration to dial with.
func (b *CertificateBundle) tlsConfig() *tls.Config {
	if b == nil || b.Config == nil {
		return tlsconfig.ClientDefault()
	}
	config := b.Config.Clone()
	if b.VerifyConnection != nil {
		config.VerifyConnection = b.VerifyConnection
	}
	return config
}

// LoadCertificates reads ca.pem, cert.pem and key.pem from dir. It returns
// a nil bundle when none of the files exist. A client certificate requires
// both cert.pem and key.pem. When verify is false the server certificate is
// not checked.
func LoadCertificates(dir string, verify bool) (*CertificateBundle, error) {
	files := make(map[string]string)
	for _, name := range []string{CAFile, CertFile, KeyFile} {
		path := filepath.Join(dir, name)
		_, err := os.Stat(path)
		switch {
		case err == nil:
			files[name] = path
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read certificate directory %s: %w", dir, err)
		}
	}
	if len(files) == 0 {
		return nil, nil
	}

	config, err := tlsconfig.Client(tlsconfig.Options{
		CAFile:             files[CAFile],
		CertFile:           files[CertFile],
		KeyFile:            files[KeyFile],
		InsecureSkipVerify: !verify,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load certificates from %s: %w", dir, err)
	}
	return &CertificateBundle{Config: config}, nil
}
