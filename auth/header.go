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
	"net/http"

	"github.com/moby/moby/api/types/registry"
)

// Headers carrying registry credentials on engine requests.
const (
	HeaderRegistryAuth   = "X-Registry-Auth"
	HeaderRegistryConfig = "X-Registry-Config"
)

// authConfig is the wire form of a credential on engine headers. The engine
// API type no longer carries the email, which engines still accept.
type authConfig struct {
	registry.AuthConfig
	Email string `json:"email,omitempty"`
}

func toAuthConfig(c Credential) authConfig {
	return authConfig{
		AuthConfig: registry.AuthConfig{
			Username:      c.Username,
			Password:      c.Password,
			ServerAddress: c.ServerAddress,
			IdentityToken: c.IdentityToken,
		},
		Email: c.Email,
	}
}

// EncodeAuthHeader returns the X-Registry-Auth value for cred: the
// URL-safe base64 of its JSON form. A nil credential encodes as "{}".
func EncodeAuthHeader(cred *Credential) (string, error) {
	var ac authConfig
	if cred != nil {
		ac = toAuthConfig(*cred)
	}
	data, err := json.Marshal(ac)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// DecodeAuthHeader parses an X-Registry-Auth value.
func DecodeAuthHeader(value string) (*Credential, error) {
	data, err := base64.URLEncoding.DecodeString(value)
	if err != nil {
		return nil, err
	}
	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

// EncodeConfigHeader returns the X-Registry-Config value for creds, keyed
// by registry address.
func EncodeConfigHeader(creds CredentialMap) (string, error) {
	configs := make(map[string]authConfig, len(creds))
	for k, v := range creds {
		configs[k] = toAuthConfig(v)
	}
	data, err := json.Marshal(configs)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// SetImageAuth asks supplier for the credential of image and attaches it to
// req. Nothing is attached when the supplier governs no credential.
func SetImageAuth(ctx context.Context, req *http.Request, supplier Supplier, image string) error {
	cred, err := supplier.AuthForImage(ctx, image)
	if err != nil || cred == nil {
		return err
	}
	value, err := EncodeAuthHeader(cred)
	if err != nil {
		return err
	}
	req.Header.Set(HeaderRegistryAuth, value)
	return nil
}

// SetSwarmAuth attaches the swarm credential of supplier to req, if any.
func SetSwarmAuth(ctx context.Context, req *http.Request, supplier Supplier) error {
	cred, err := supplier.AuthForSwarm(ctx)
	if err != nil || cred == nil {
		return err
	}
	value, err := EncodeAuthHeader(cred)
	if err != nil {
		return err
	}
	req.Header.Set(HeaderRegistryAuth, value)
	return nil
}

// SetBuildAuth attaches the build credentials of supplier to req. An empty
// map is still sent so the engine does not fall back to its own store.
func SetBuildAuth(ctx context.Context, req *http.Request, supplier Supplier) error {
	creds, err := supplier.AuthForBuild(ctx)
	if err != nil {
		return err
	}
	value, err := EncodeConfigHeader(creds)
	if err != nil {
		return err
	}
	req.Header.Set(HeaderRegistryConfig, value)
	return nil
}
