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

// Package proxy decides whether connections to an engine host go through
// a proxy, and which one.
package proxy

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/containerd/log"
	"golang.org/x/net/http/httpproxy"

	"github.com/enginekit/engine-go/errdef"
)

// Proxy schemes understood by the engine transport.
const (
	SchemeHTTP   = "http"
	SchemeHTTPS  = "https"
	SchemeSOCKS5 = "socks5"
)

// DefaultPort is used when the port of an http proxy is not set.
const DefaultPort = 80

// defaultPorts maps a proxy scheme to the port used when none is set.
var defaultPorts = map[string]int{
	SchemeHTTP:   DefaultPort,
	SchemeHTTPS:  443,
	SchemeSOCKS5: 1080,
}

// CheckScheme returns errdef.ErrUnsupportedScheme unless scheme is empty
// (meaning http) or one of http, https and socks5.
func CheckScheme(scheme string) error {
	if scheme == "" {
		return nil
	}
	if _, ok := defaultPorts[scheme]; !ok {
		return fmt.Errorf("proxy scheme %q: %w", scheme, errdef.ErrUnsupportedScheme)
	}
	return nil
}

// Config is a resolved proxy.
type Config struct {
	Scheme   string
	Host     string
	Port     int
	Username string
	Password string
}

// URL returns the proxy URL, carrying the credentials if any.
func (c *Config) URL() *url.URL {
	scheme := c.Scheme
	if scheme == "" {
		scheme = SchemeHTTP
	}
	u := &url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
	}
	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	return u
}

// Settings holds the proxy configuration a client is constructed with.
type Settings struct {
	// Scheme is http, https or socks5. Empty means http.
	Scheme string
	// Host is the proxy host. No proxy is used when empty.
	Host string
	// Port is the proxy port. Zero selects the default port of the scheme.
	Port int
	// NoProxy lists host patterns that bypass the proxy. A pattern may use
	// `*` as a wildcard, and a leading dot matches the domain and all of its
	// subdomains.
	NoProxy  []string
	Username string
	Password string
}

// FromEnvironment reads proxy settings from HTTPS_PROXY, HTTP_PROXY and
// NO_PROXY (or their lowercase forms). HTTPS_PROXY takes precedence. A proxy
// URL with an unsupported scheme is ignored.
func FromEnvironment() Settings {
	return fromConfig(httpproxy.FromEnvironment())
}

func fromConfig(cfg *httpproxy.Config) Settings {
	var settings Settings
	for _, s := range strings.Split(cfg.NoProxy, ",") {
		if s = strings.TrimSpace(s); s != "" {
			settings.NoProxy = append(settings.NoProxy, s)
		}
	}

	raw := cfg.HTTPSProxy
	if raw == "" {
		raw = cfg.HTTPProxy
	}
	if raw == "" {
		return settings
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return settings
	}
	scheme := strings.ToLower(u.Scheme)
	if err := CheckScheme(scheme); err != nil {
		log.L.WithError(err).Warn("ignoring proxy from environment")
		return settings
	}
	settings.Scheme = scheme
	settings.Host = u.Hostname()
	if p, err := strconv.Atoi(u.Port()); err == nil {
		settings.Port = p
	}
	if u.User != nil {
		settings.Username = u.User.Username()
		settings.Password, _ = u.User.Password()
	}
	return settings
}

// Resolve returns the proxy to use for targetHost, or nil when no proxy host
// is set or targetHost matches a no-proxy pattern.
func Resolve(settings Settings, targetHost string) *Config {
	if settings.Host == "" {
		return nil
	}
	for _, pattern := range settings.NoProxy {
		if Match(pattern, targetHost) {
			return nil
		}
	}
	scheme := settings.Scheme
	if scheme == "" {
		scheme = SchemeHTTP
	}
	port := settings.Port
	if port == 0 {
		port = defaultPorts[scheme]
	}
	return &Config{
		Scheme:   scheme,
		Host:     settings.Host,
		Port:     port,
		Username: settings.Username,
		Password: settings.Password,
	}
}

// Match reports whether host matches a no-proxy pattern. Matching is case
// insensitive and covers the whole host name.
func Match(pattern, host string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	host = strings.ToLower(host)
	if pattern == "" || host == "" {
		return false
	}
	if pattern == "*" {
		return true
	}
	if _, network, err := net.ParseCIDR(pattern); err == nil {
		ip := net.ParseIP(host)
		return ip != nil && network.Contains(ip)
	}
	if strings.HasPrefix(pattern, ".") && !strings.Contains(pattern, "*") {
		return host == pattern[1:] || strings.HasSuffix(host, pattern)
	}
	expr := "^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*") + "$"
	matched, err := regexp.MatchString(expr, host)
	return err == nil && matched
}
