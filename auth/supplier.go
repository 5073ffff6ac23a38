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

// Package auth resolves the registry credentials that apply to an engine
// operation when several credential sources are configured.
//
// A Supplier answers for three kinds of operations: an image pull or push,
// a swarm join or update, and an image build. A nil credential or an empty
// map means the supplier does not govern the operation, so a Multi supplier
// may ask the next one.
package auth

import (
	"context"
	"fmt"

	"github.com/distribution/reference"
)

// Supplier supplies registry credentials.
type Supplier interface {
	// AuthForImage returns the credential for pulling or pushing image, or
	// nil if the supplier does not govern the image's registry.
	AuthForImage(ctx context.Context, image string) (*Credential, error)

	// AuthForSwarm returns the credential used by swarm operations, or nil.
	AuthForSwarm(ctx context.Context) (*Credential, error)

	// AuthForBuild returns the credentials for every registry a build may
	// pull from. A nil or empty map means none.
	AuthForBuild(ctx context.Context) (CredentialMap, error)
}

// Docker Hub addresses.
const (
	// DockerHubAddress is the key Docker Hub credentials are stored under.
	DockerHubAddress = "https://index.docker.io/v1/"
	dockerHubDomain  = "docker.io"
)

// RegistryOf returns the registry domain of image. Docker Hub images,
// including short names such as "busybox", return "docker.io".
func RegistryOf(image string) (string, error) {
	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return "", fmt.Errorf("invalid image reference %q: %w", image, err)
	}
	return reference.Domain(named), nil
}

// fixed is a Supplier returning the same credentials for every operation.
type fixed struct {
	cred  *Credential
	build CredentialMap
}

// Fixed returns a Supplier answering every image and swarm request with
// cred and every build request with build. A nil build map is derived from
// cred when cred names its ServerAddress.
func Fixed(cred *Credential, build CredentialMap) Supplier {
	if build == nil && cred != nil && cred.ServerAddress != "" {
		build = CredentialMap{}
		build.Set(cred.ServerAddress, *cred)
	}
	return &fixed{cred: cred, build: build}
}

func (s *fixed) AuthForImage(context.Context, string) (*Credential, error) {
	return s.copy(), nil
}

func (s *fixed) AuthForSwarm(context.Context) (*Credential, error) {
	return s.copy(), nil
}

func (s *fixed) AuthForBuild(context.Context) (CredentialMap, error) {
	if s.build == nil {
		return nil, nil
	}
	build := make(CredentialMap, len(s.build))
	for k, v := range s.build {
		build[k] = v
	}
	return build, nil
}

func (s *fixed) copy() *Credential {
	if s.cred == nil {
		return nil
	}
	c := *s.cred
	return &c
}
