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

// Package remotes lets containerd's registry resolver authenticate with the
// credentials of an auth.Supplier.
package remotes

import (
	"context"
	"net/http"

	"github.com/containerd/containerd/remotes"
	"github.com/containerd/containerd/remotes/docker"
	"github.com/containerd/log"
	"github.com/distribution/reference"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/enginekit/engine-go/auth"
)

// dockerHubHost is where traffic for docker.io is sent.
// Reference: https://github.com/moby/moby/blob/v24.0.0-beta.2/registry/config.go#L25-L48
const dockerHubHost = "registry-1.docker.io"

// Credentials returns a containerd credential callback answering with the
// credential supplier holds for image. Hosts other than the image's registry
// get no credential. An identity token is returned as the secret with an
// empty username.
func Credentials(ctx context.Context, supplier auth.Supplier, image string) (func(host string) (string, string, error), error) {
	registry, err := auth.RegistryOf(image)
	if err != nil {
		return nil, err
	}
	if registry == "docker.io" {
		registry = dockerHubHost
	}
	return func(host string) (string, string, error) {
		if auth.ToHostname(host) != registry {
			return "", "", nil
		}
		cred, err := supplier.AuthForImage(ctx, image)
		if err != nil {
			return "", "", err
		}
		if cred == nil || cred.IsEmpty() {
			log.G(ctx).WithField("host", host).Debug("no registry credential")
			return "", "", nil
		}
		if cred.IdentityToken != "" {
			return "", cred.IdentityToken, nil
		}
		return cred.Username, cred.Password, nil
	}, nil
}

// NewAuthorizer returns a containerd authorizer for the registry of image.
// A nil client selects http.DefaultClient.
func NewAuthorizer(ctx context.Context, supplier auth.Supplier, image string, client *http.Client) (docker.Authorizer, error) {
	creds, err := Credentials(ctx, supplier, image)
	if err != nil {
		return nil, err
	}
	opts := []docker.AuthorizerOpt{docker.WithAuthCreds(creds)}
	if client != nil {
		opts = append(opts, docker.WithAuthClient(client))
	}
	return docker.NewDockerAuthorizer(opts...), nil
}

// NewResolver returns a containerd resolver for image authenticating with
// supplier. Localhost registries are spoken to over plain HTTP, and so are
// all registries when plainHTTP is set.
func NewResolver(ctx context.Context, supplier auth.Supplier, image string, plainHTTP bool) (remotes.Resolver, error) {
	authorizer, err := NewAuthorizer(ctx, supplier, image, nil)
	if err != nil {
		return nil, err
	}
	match := docker.MatchLocalhost
	if plainHTTP {
		match = docker.MatchAllHosts
	}
	return docker.NewResolver(docker.ResolverOptions{
		Hosts: docker.ConfigureDefaultRegistries(
			docker.WithAuthorizer(authorizer),
			docker.WithPlainHTTP(match),
		),
	}), nil
}

// Resolve looks image up in its registry and returns the descriptor of its
// manifest. Short names such as busybox are expanded to their Docker Hub
// form first.
func Resolve(ctx context.Context, supplier auth.Supplier, image string, plainHTTP bool) (ocispec.Descriptor, error) {
	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	ref := reference.TagNameOnly(named).String()
	resolver, err := NewResolver(ctx, supplier, ref, plainHTTP)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	_, desc, err := resolver.Resolve(ctx, ref)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	log.G(ctx).WithField("ref", ref).WithField("digest", desc.Digest).Debug("resolved image")
	return desc, nil
}
