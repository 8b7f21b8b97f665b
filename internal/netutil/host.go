// Package netutil provides shared host normalization and handle
// derivation helpers.
package netutil

import (
	"net"
	"strings"
)

// NormalizeHost lower-cases and strips ports/trailing dots from host values.
func NormalizeHost(raw string) string {
	host := strings.ToLower(strings.TrimSpace(raw))
	if host == "" {
		return ""
	}

	if h, p, err := net.SplitHostPort(host); err == nil && p != "" {
		host = h
	} else if strings.Count(host, ":") == 1 {
		left, right, ok := strings.Cut(host, ":")
		if ok && isDigits(right) {
			host = left
		}
	}

	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	return strings.TrimSuffix(host, ".")
}

// ServesDomain reports whether host is the serving domain itself or a
// subdomain of it. Hosts outside the serving domain are rejected before
// any request state is created.
func ServesDomain(host, domain string) bool {
	h := NormalizeHost(host)
	d := NormalizeHost(domain)
	if h == "" || d == "" {
		return false
	}
	return h == d || strings.HasSuffix(h, "."+d)
}

// DeriveLabel strips the serving domain suffix and its separating dot from
// host and returns the remaining leading segment. It reports failure when
// the suffix is absent or nothing remains in front of it.
func DeriveLabel(host, domain string) (string, bool) {
	h := NormalizeHost(host)
	d := NormalizeHost(domain)
	if h == "" || d == "" {
		return "", false
	}
	label, ok := strings.CutSuffix(h, "."+d)
	if !ok || label == "" {
		return "", false
	}
	return label, true
}

func isDigits(v string) bool {
	if v == "" {
		return false
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
