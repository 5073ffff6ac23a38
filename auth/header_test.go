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

package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeAuthHeader(t *testing.T) {
	cred := &Credential{Username: "alice", Password: "s3cret?>", ServerAddress: "registry.example.com"}
	value, err := EncodeAuthHeader(cred)
	require.NoError(t, err)

	raw, err := base64.URLEncoding.DecodeString(value)
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"alice","password":"s3cret?>","serveraddress":"registry.example.com"}`, string(raw))

	decoded, err := DecodeAuthHeader(value)
	require.NoError(t, err)
	assert.Equal(t, cred, decoded)
}

func TestEncodeAuthHeader_nil(t *testing.T) {
	value, err := EncodeAuthHeader(nil)
	require.NoError(t, err)
	assert.Equal(t, base64.URLEncoding.EncodeToString([]byte("{}")), value)
}

func TestEncodeConfigHeader(t *testing.T) {
	creds := CredentialMap{}
	creds.Set("registry.example.com", Credential{Username: "alice", Password: "s3cret"})
	creds.Set("gcr.io", Credential{Username: DefaultTokenUsername, Password: "token"})

	value, err := EncodeConfigHeader(creds)
	require.NoError(t, err)
	raw, err := base64.URLEncoding.DecodeString(value)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"registry.example.com": {"username":"alice","password":"s3cret","serveraddress":"registry.example.com"},
		"gcr.io": {"username":"oauth2accesstoken","password":"token","serveraddress":"gcr.io"}
	}`, string(raw))
}

func TestSetImageAuth(t *testing.T) {
	req, err := http.NewRequest(http.MethodPost, "http://localhost/images/create?fromImage=busybox", nil)
	require.NoError(t, err)

	require.NoError(t, SetImageAuth(context.Background(), req, Fixed(nil, nil), "busybox"))
	assert.Empty(t, req.Header.Get(HeaderRegistryAuth))

	cred := &Credential{Username: "alice", Password: "s3cret"}
	require.NoError(t, SetImageAuth(context.Background(), req, Fixed(cred, nil), "busybox"))
	got, err := DecodeAuthHeader(req.Header.Get(HeaderRegistryAuth))
	require.NoError(t, err)
	assert.Equal(t, cred, got)
}

func TestSetImageAuth_error(t *testing.T) {
	boom := errors.New("boom")
	req, err := http.NewRequest(http.MethodPost, "http://localhost/images/create", nil)
	require.NoError(t, err)
	err = SetImageAuth(context.Background(), req, &countingSupplier{err: boom}, "busybox")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, req.Header.Get(HeaderRegistryAuth))
}

func TestSetSwarmAuth(t *testing.T) {
	req, err := http.NewRequest(http.MethodPost, "http://localhost/swarm/join", nil)
	require.NoError(t, err)
	require.NoError(t, SetSwarmAuth(context.Background(), req, Fixed(&Credential{Username: "swarm"}, nil)))
	got, err := DecodeAuthHeader(req.Header.Get(HeaderRegistryAuth))
	require.NoError(t, err)
	assert.Equal(t, "swarm", got.Username)
}

func TestSetBuildAuth(t *testing.T) {
	req, err := http.NewRequest(http.MethodPost, "http://localhost/build", nil)
	require.NoError(t, err)
	require.NoError(t, SetBuildAuth(context.Background(), req, Fixed(nil, nil)))

	raw, err := base64.URLEncoding.DecodeString(req.Header.Get(HeaderRegistryConfig))
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
}

func TestEncodeHeaders_email(t *testing.T) {
	cred := Credential{Username: "u", Password: "p", Email: "u@example.com", ServerAddress: "registry.example.com"}

	value, err := EncodeAuthHeader(&cred)
	require.NoError(t, err)
	got, err := DecodeAuthHeader(value)
	require.NoError(t, err)
	assert.Equal(t, &cred, got)

	creds := CredentialMap{}
	creds.Set("registry.example.com", cred)
	value, err = EncodeConfigHeader(creds)
	require.NoError(t, err)
	raw, err := base64.URLEncoding.DecodeString(value)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"registry.example.com": {"username":"u","password":"p","email":"u@example.com","serveraddress":"registry.example.com"}
	}`, string(raw))
}
