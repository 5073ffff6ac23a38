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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPKI is a throwaway certificate authority with one server and one
// client certificate.
type testPKI struct {
	caPEM     []byte
	server    tls.Certificate
	clientPEM []byte
	keyPEM    []byte
}

func newTestPKI(t *testing.T) *testPKI {
	t.Helper()
	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	caTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "engine test ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTemplate, caTemplate, &caKey.PublicKey, caKey)
	require.NoError(t, err)
	ca, err := x509.ParseCertificate(caDER)
	require.NoError(t, err)

	issue := func(serial int64, usage x509.ExtKeyUsage) ([]byte, *ecdsa.PrivateKey) {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
		template := &x509.Certificate{
			SerialNumber: big.NewInt(serial),
			Subject:      pkix.Name{CommonName: "engine"},
			NotBefore:    time.Now().Add(-time.Hour),
			NotAfter:     time.Now().Add(time.Hour),
			KeyUsage:     x509.KeyUsageDigitalSignature,
			ExtKeyUsage:  []x509.ExtKeyUsage{usage},
			IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1)},
			DNSNames:     []string{"localhost"},
		}
		der, err := x509.CreateCertificate(rand.Reader, template, ca, &key.PublicKey, caKey)
		require.NoError(t, err)
		return der, key
	}

	serverDER, serverKey := issue(2, x509.ExtKeyUsageServerAuth)
	clientDER, clientKey := issue(3, x509.ExtKeyUsageClientAuth)
	clientKeyDER, err := x509.MarshalECPrivateKey(clientKey)
	require.NoError(t, err)

	return &testPKI{
		caPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: caDER}),
		server: tls.Certificate{
			Certificate: [][]byte{serverDER},
			PrivateKey:  serverKey,
		},
		clientPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: clientDER}),
		keyPEM:    pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: clientKeyDER}),
	}
}

// writeDir writes the PKI to a certificate directory.
func (p *testPKI) writeDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CAFile), p.caPEM, 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, CertFile), p.clientPEM, 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, KeyFile), p.keyPEM, 0600))
	return dir
}

func TestLoadCertificates(t *testing.T) {
	pki := newTestPKI(t)
	bundle, err := LoadCertificates(pki.writeDir(t), true)
	require.NoError(t, err)
	require.NotNil(t, bundle)
	assert.False(t, bundle.Config.InsecureSkipVerify)
	assert.Len(t, bundle.Config.Certificates, 1)
	assert.NotNil(t, bundle.Config.RootCAs)
}

func TestLoadCertificates_noVerify(t *testing.T) {
	pki := newTestPKI(t)
	bundle, err := LoadCertificates(pki.writeDir(t), false)
	require.NoError(t, err)
	assert.True(t, bundle.Config.InsecureSkipVerify)
}

func TestLoadCertificates_empty(t *testing.T) {
	bundle, err := LoadCertificates(t.TempDir(), true)
	assert.NoError(t, err)
	assert.Nil(t, bundle)
}

func TestLoadCertificates_caOnly(t *testing.T) {
	pki := newTestPKI(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CAFile), pki.caPEM, 0600))

	bundle, err := LoadCertificates(dir, true)
	require.NoError(t, err)
	require.NotNil(t, bundle)
	assert.Empty(t, bundle.Config.Certificates)
}

func TestLoadCertificates_certWithoutKey(t *testing.T) {
	pki := newTestPKI(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CertFile), pki.clientPEM, 0600))

	_, err := LoadCertificates(dir, true)
	assert.Error(t, err)
}

func TestCertificateBundle_tlsConfig(t *testing.T) {
	var nilBundle *CertificateBundle
	assert.NotNil(t, nilBundle.tlsConfig())

	called := false
	b := &CertificateBundle{
		Config: &tls.Config{ServerName: "engine"},
		VerifyConnection: func(tls.ConnectionState) error {
			called = true
			return nil
		},
	}
	config := b.tlsConfig()
	require.NotNil(t, config.VerifyConnection)
	assert.NoError(t, config.VerifyConnection(tls.ConnectionState{}))
	assert.True(t, called)
	assert.Nil(t, b.Config.VerifyConnection, "the bundle configuration must not be modified")
}
