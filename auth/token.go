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
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/containerd/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/enginekit/engine-go/errdef"
)

const (
	// DefaultMinimumLifetime is the remaining lifetime below which a token
	// is refreshed before use.
	DefaultMinimumLifetime = time.Minute

	// DefaultTokenUsername is the username registries expect alongside an
	// OAuth2 access token.
	DefaultTokenUsername = "oauth2accesstoken"

	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
	tokenSourceName    = "token"
)

// DefaultTokenRegistries are the registries governed by a TokenSupplier
// unless WithRegistries says otherwise.
var DefaultTokenRegistries = []string{
	"gcr.io",
	"us.gcr.io",
	"eu.gcr.io",
	"asia.gcr.io",
	"staging-k8s.gcr.io",
	"marketplace.gcr.io",
}

// errNoTokenSource is returned when a refresh is due and there is nothing
// to refresh from.
var errNoTokenSource = errors.New("no token source")

// TokenSupplier supplies an OAuth2 access token as a registry credential,
// refreshing it before use when its remaining lifetime is too short.
//
// A TokenSupplier is safe for concurrent use. At most one refresh runs at a
// time and every caller observes the refreshed token.
type TokenSupplier struct {
	mu     sync.Mutex
	token  *oauth2.Token
	source oauth2.TokenSource

	minLifetime time.Duration
	now         func() time.Time
	registries  []string
	username    string
}

// TokenOption configures a TokenSupplier.
type TokenOption func(*TokenSupplier)

// WithMinimumLifetime sets the remaining lifetime below which the token is
// refreshed.
func WithMinimumLifetime(d time.Duration) TokenOption {
	return func(s *TokenSupplier) {
		s.minLifetime = d
	}
}

// WithClock replaces the wall clock used to evaluate token expiry.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenSupplier) {
		s.now = now
	}
}

// WithRegistries sets the registries the token is used for.
func WithRegistries(registries ...string) TokenOption {
	return func(s *TokenSupplier) {
		s.registries = append([]string(nil), registries...)
	}
}

// WithUsername sets the username paired with the access token.
func WithUsername(username string) TokenOption {
	return func(s *TokenSupplier) {
		s.username = username
	}
}

// NewTokenSupplier returns a supplier holding token, refreshed from source.
// token may be nil, in which case the first use fetches one. A token with a
// zero Expiry never expires and is never refreshed.
func NewTokenSupplier(token *oauth2.Token, source oauth2.TokenSource, opts ...TokenOption) *TokenSupplier {
	s := &TokenSupplier{
		token:       token,
		source:      source,
		minLifetime: DefaultMinimumLifetime,
		now:         time.Now,
		username:    DefaultTokenUsername,
	}
	for _, o := range opts {
		o(s)
	}
	if s.registries == nil {
		s.registries = append([]string(nil), DefaultTokenRegistries...)
	}
	sort.Strings(s.registries)
	return s
}

// NewGoogleTokenSupplier returns a TokenSupplier refreshing from Google
// application default credentials with the cloud-platform scope.
func NewGoogleTokenSupplier(ctx context.Context, opts ...TokenOption) (*TokenSupplier, error) {
	src, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
	if err != nil {
		return nil, err
	}
	s := NewTokenSupplier(nil, nil, opts...)
	// the cached source must renew no later than the supplier asks for it
	s.source = oauth2.ReuseTokenSourceWithExpiry(nil, src, s.minLifetime)
	return s, nil
}

// Token returns the current token, refreshing it first if it is due.
func (s *TokenSupplier) Token(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.needsRefresh() {
		if s.source == nil {
			return nil, errdef.NewRefreshError(tokenSourceName, errNoTokenSource)
		}
		log.G(ctx).Debug("refreshing registry access token")
		token, err := s.source.Token()
		if err != nil {
			return nil, errdef.NewRefreshError(tokenSourceName, err)
		}
		if token == nil {
			return nil, errdef.NewRefreshError(tokenSourceName, errNoTokenSource)
		}
		s.token = token
	}
	token := *s.token
	return &token, nil
}

// needsRefresh reports whether the token is missing or expires in less
// than the minimum lifetime. s.mu must be held.
func (s *TokenSupplier) needsRefresh() bool {
	if s.token == nil {
		return true
	}
	if s.token.Expiry.IsZero() {
		return false
	}
	return s.token.Expiry.Sub(s.now()) < s.minLifetime
}

// governs reports whether registry is served by the token.
func (s *TokenSupplier) governs(registry string) bool {
	i := sort.SearchStrings(s.registries, registry)
	return i < len(s.registries) && s.registries[i] == registry
}

func (s *TokenSupplier) credential(token *oauth2.Token, registry string) Credential {
	return Credential{
		Username:      s.username,
		Password:      token.AccessToken,
		ServerAddress: registry,
	}
}

// AuthForImage returns the token credential when the image is hosted on a
// governed registry. A failed refresh is returned as *errdef.RefreshError.
func (s *TokenSupplier) AuthForImage(ctx context.Context, image string) (*Credential, error) {
	registry, err := RegistryOf(image)
	if err != nil {
		return nil, err
	}
	if !s.governs(registry) {
		return nil, nil
	}
	token, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}
	cred := s.credential(token, registry)
	return &cred, nil
}

// AuthForSwarm returns the token credential. A failed refresh is logged and
// yields no credential.
func (s *TokenSupplier) AuthForSwarm(ctx context.Context) (*Credential, error) {
	token, err := s.Token(ctx)
	if err != nil {
		log.G(ctx).WithError(err).Warn("unable to refresh registry access token for swarm")
		return nil, nil
	}
	cred := s.credential(token, "")
	return &cred, nil
}

// AuthForBuild returns the token credential for every governed registry. A
// failed refresh is logged and yields an empty map.
func (s *TokenSupplier) AuthForBuild(ctx context.Context) (CredentialMap, error) {
	creds := CredentialMap{}
	token, err := s.Token(ctx)
	if err != nil {
		log.G(ctx).WithError(err).Warn("unable to refresh registry access token for build")
		return creds, nil
	}
	for _, registry := range s.registries {
		creds.Set(registry, s.credential(token, registry))
	}
	return creds, nil
}
