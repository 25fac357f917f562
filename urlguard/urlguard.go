// Package urlguard decides which URLs the browser may navigate to: scheme
// whitelist, allowed and blocked origins, and private network targets
// (SSRF prevention when the server is exposed over HTTP).
package urlguard

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

var (
	// ErrUnsafeScheme is returned for schemes other than http, https,
	// about and data.
	ErrUnsafeScheme = errors.New("urlguard: scheme not allowed")

	// ErrBlockedOrigin is returned when the URL matches BlockedOrigins.
	ErrBlockedOrigin = errors.New("urlguard: origin is blocked")

	// ErrOriginNotAllowed is returned when AllowedOrigins is set and the
	// URL matches none of its entries.
	ErrOriginNotAllowed = errors.New("urlguard: origin is not in the allowed list")

	// ErrPrivateNetwork is returned when the host is or resolves to a
	// loopback, link-local or private address.
	ErrPrivateNetwork = errors.New("urlguard: URL targets a private or loopback address")
)

var safeSchemes = map[string]bool{"http": true, "https": true, "about": true, "data": true}

// Policy is a navigation policy. The zero value allows every http(s),
// about and data URL.
type Policy struct {
	// AllowedOrigins, when non-empty, is the exhaustive list of origins
	// navigation may reach. Entries are origins ("https://example.com"),
	// hosts ("example.com") or host wildcards ("*.example.com").
	AllowedOrigins []string
	// BlockedOrigins wins over AllowedOrigins.
	BlockedOrigins []string
	// BlockPrivateNetwork rejects hosts resolving to private addresses.
	BlockPrivateNetwork bool
	// LookupHost resolves hostnames. Defaults to net.LookupHost.
	LookupHost func(host string) ([]string, error)
}

// Check returns nil when rawURL may be navigated to. Origin rules and the
// private network check apply to http and https only; about: and data:
// pages carry no origin of their own.
func (p Policy) Check(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("urlguard: invalid URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if !safeSchemes[scheme] {
		return fmt.Errorf("%w: %q", ErrUnsafeScheme, u.Scheme)
	}
	if scheme != "http" && scheme != "https" {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("urlguard: URL has no host")
	}
	origin := scheme + "://" + strings.ToLower(u.Host)

	if matchAny(p.BlockedOrigins, origin, host) {
		return fmt.Errorf("%w: %s", ErrBlockedOrigin, origin)
	}
	if len(p.AllowedOrigins) > 0 && !matchAny(p.AllowedOrigins, origin, host) {
		return fmt.Errorf("%w: %s", ErrOriginNotAllowed, origin)
	}
	if p.BlockPrivateNetwork {
		return p.checkHost(host)
	}
	return nil
}

// CheckRequest applies the origin and private network rules to a request
// the page issues on its own: redirects, subresources, fetches. Only http
// and https requests are judged; the browser resolves other schemes (blob,
// data) without leaving the page.
func (p Policy) CheckRequest(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("urlguard: invalid URL: %w", err)
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return nil
	}
	return p.Check(rawURL)
}

// Active reports whether the policy restricts any http(s) URL.
func (p Policy) Active() bool {
	return len(p.AllowedOrigins) > 0 || len(p.BlockedOrigins) > 0 || p.BlockPrivateNetwork
}

func (p Policy) checkHost(host string) error {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return ErrPrivateNetwork
	}
	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return ErrPrivateNetwork
		}
		return nil
	}

	lookup := p.LookupHost
	if lookup == nil {
		lookup = net.LookupHost
	}
	addrs, err := lookup(host)
	if err != nil {
		// Unresolvable hosts fail at navigation time anyway.
		return nil
	}
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && isPrivateIP(ip) {
			return ErrPrivateNetwork
		}
	}
	return nil
}

// matchAny reports whether origin or host matches one of the patterns.
func matchAny(patterns []string, origin, host string) bool {
	for _, pat := range patterns {
		pat = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(pat), "/"))
		switch {
		case pat == "":
		case strings.Contains(pat, "://"):
			if pat == origin {
				return true
			}
		case strings.HasPrefix(pat, "*."):
			if strings.HasSuffix(host, pat[1:]) {
				return true
			}
		default:
			if pat == host {
				return true
			}
		}
	}
	return false
}

var privateRanges = func() []*net.IPNet {
	var nets []*net.IPNet
	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"100.64.0.0/10",
		"fc00::/7",
	} {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}()

func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	for _, n := range privateRanges {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
