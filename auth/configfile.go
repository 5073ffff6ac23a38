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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/containerd/log"
	"github.com/docker/cli/cli/config"
	"github.com/docker/cli/cli/config/configfile"
	"github.com/docker/cli/cli/config/types"
)

// configFile is a Supplier backed by a docker client configuration file.
type configFile struct {
	path string
}

// ConfigFile returns a Supplier reading credentials from the docker client
// configuration file at path. The file is read again on every call, so
// logins made after construction are picked up. A missing or empty file
// governs nothing.
func ConfigFile(path string) Supplier {
	return &configFile{path: path}
}

// DefaultConfigPath returns the path of the docker client configuration
// file, honoring DOCKER_CONFIG.
func DefaultConfigPath() string {
	dir := os.Getenv(config.EnvOverrideConfigDir)
	if dir == "" {
		dir = config.Dir()
	}
	return filepath.Join(dir, config.ConfigFileName)
}

// load reads the configuration file. It returns nil when the file is
// missing or empty.
func (s *configFile) load() (*configfile.ConfigFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read docker config %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	cf, err := config.LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse docker config %s: %w", s.path, err)
	}
	cf.Filename = s.path
	return cf, nil
}

// AuthForImage returns the credential stored for the registry of image.
func (s *configFile) AuthForImage(ctx context.Context, image string) (*Credential, error) {
	domain, err := RegistryOf(image)
	if err != nil {
		return nil, err
	}
	cf, err := s.load()
	if err != nil || cf == nil {
		return nil, err
	}

	key := domain
	if domain == dockerHubDomain {
		key = DockerHubAddress
	}
	ac, err := cf.GetAuthConfig(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get credential for %s: %w", key, err)
	}
	if isEmptyAuthConfig(ac) {
		log.G(ctx).WithField("registry", key).Debug("no credential in docker config")
		return nil, nil
	}
	cred := fromAuthConfig(key, ac)
	return &cred, nil
}

// AuthForSwarm returns the Docker Hub credential if present, otherwise the
// credential of the first registry in key order.
func (s *configFile) AuthForSwarm(ctx context.Context) (*Credential, error) {
	creds, err := s.all()
	if err != nil || len(creds) == 0 {
		return nil, err
	}
	if cred, ok := creds[DockerHubAddress]; ok {
		return &cred, nil
	}
	cred := creds[creds.Keys()[0]]
	return &cred, nil
}

// AuthForBuild returns every credential in the file.
func (s *configFile) AuthForBuild(ctx context.Context) (CredentialMap, error) {
	return s.all()
}

func (s *configFile) all() (CredentialMap, error) {
	cf, err := s.load()
	if err != nil || cf == nil {
		return nil, err
	}
	all, err := cf.GetAllCredentials()
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials from %s: %w", s.path, err)
	}
	creds := make(CredentialMap, len(all))
	for key, ac := range all {
		if isEmptyAuthConfig(ac) {
			continue
		}
		creds.Set(key, fromAuthConfig(key, ac))
	}
	return creds, nil
}

func isEmptyAuthConfig(ac types.AuthConfig) bool {
	return ac.Username == "" && ac.Password == "" && ac.IdentityToken == "" && ac.RegistryToken == ""
}

// fromAuthConfig converts a stored entry. ServerAddress is always the key
// the entry was looked up with.
func fromAuthConfig(key string, ac types.AuthConfig) Credential {
	return Credential{
		Username:      ac.Username,
		Password:      ac.Password,
		IdentityToken: ac.IdentityToken,
		Email:         ac.Email,
		ServerAddress: key,
	}
}
