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
	"encoding/base64"
	"fmt"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Credential is the authentication material for one registry.
// References:
//   - https://docs.docker.com/engine/api/v1.41/#section/Authentication
type Credential struct {
	// Username is the name of the user for the registry.
	Username string `json:"username,omitempty"`
	// Password is the secret associated with the username.
	Password string `json:"password,omitempty"`
	// IdentityToken is used to authenticate the user and get an access token
	// for the registry.
	IdentityToken string `json:"identitytoken,omitempty"`
	// Email is kept for engines that still expect it.
	Email string `json:"email,omitempty"`
	// ServerAddress is the registry the credential applies to.
	ServerAddress string `json:"serveraddress,omitempty"`
}

// IsEmpty reports whether c carries no secret.
func (c Credential) IsEmpty() bool {
	return c.Username == "" && c.Password == "" && c.IdentityToken == ""
}

// UnmarshalJSON accepts the wire form of a credential. The legacy auth field,
// base64 of "{username}:{password}", is decoded when username and password
// are absent.
func (c *Credential) UnmarshalJSON(data []byte) error {
	type credential Credential
	var wire struct {
		credential
		Auth string `json:"auth,omitempty"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*c = Credential(wire.credential)
	if c.Username == "" && c.Password == "" && wire.Auth != "" {
		username, password, err := DecodeAuth(wire.Auth)
		if err != nil {
			return err
		}
		c.Username, c.Password = username, password
	}
	return nil
}

// EncodeAuth base64-encodes username and password into base64(username:password).
func EncodeAuth(username, password string) string {
	if username == "" && password == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}

// DecodeAuth decodes a base64-encoded auth field and returns username and
// password. The decoded value is split on its first colon.
func DecodeAuth(auth string) (username string, password string, err error) {
	if auth == "" {
		return "", "", nil
	}

	decoded, err := base64.StdEncoding.DecodeString(auth)
	if err != nil {
		return "", "", err
	}
	decodedStr := string(decoded)
	username, password, ok := strings.Cut(decodedStr, ":")
	if !ok {
		return "", "", fmt.Errorf("auth does not conform the base64(username:password) format")
	}
	return username, password, nil
}

// CredentialMap maps a registry address to its credential.
type CredentialMap map[string]Credential

// Set stores cred under addr. An empty ServerAddress is filled with addr.
func (m CredentialMap) Set(addr string, cred Credential) {
	if cred.ServerAddress == "" {
		cred.ServerAddress = addr
	}
	m[addr] = cred
}

// Keys returns the registry addresses in sorted order.
func (m CredentialMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ToHostname normalizes a registry address to its host[:port], dropping a
// scheme and any path.
func ToHostname(addr string) string {
	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "https://")
	addr, _, _ = strings.Cut(addr, "/")
	return addr
}
