// Package security guards the relay's single outbound call.
//
// The Teams webhook URL arrives from configuration (usually SSM), so a bad
// parameter value could point the function at the instance metadata service
// or a VPC-internal host. SafeTransport refuses to dial any address in a
// blocked range, checking every resolved IP at connect time so redirects
// and DNS rebinding are covered as well.
package security

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// dnsTimeout is the maximum time allowed for DNS resolution.
const dnsTimeout = 500 * time.Millisecond

// ErrBlockedDestination is returned when the webhook resolves to a blocked range.
var ErrBlockedDestination = errors.New("egress: destination is in a blocked IP range")

// ErrDNSTimeout is returned when DNS resolution exceeds dnsTimeout.
var ErrDNSTimeout = errors.New("egress: DNS resolution timeout")

// ErrDNSFailed is returned when DNS resolution fails or yields no addresses.
var ErrDNSFailed = errors.New("egress: DNS resolution failed")

// BlockedCIDRs are the ranges a webhook may never resolve to.
var BlockedCIDRs = []string{
	"127.0.0.0/8",    // Localhost
	"10.0.0.0/8",     // Private Class A
	"172.16.0.0/12",  // Private Class B
	"192.168.0.0/16", // Private Class C
	"169.254.0.0/16", // Link-local (instance metadata)
	"0.0.0.0/8",      // Current network
	"224.0.0.0/4",    // Multicast
	"240.0.0.0/4",    // Reserved
	"100.64.0.0/10",  // Shared Address Space (CGN)
	"198.18.0.0/15",  // Benchmark testing
	"fc00::/7",       // IPv6 private
	"fe80::/10",      // IPv6 link-local
	"::1/128",        // IPv6 localhost
}

// Resolver abstracts DNS resolution for testability.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// SafeTransport is an http.RoundTripper whose dialer rejects blocked ranges.
type SafeTransport struct {
	// Base performs the actual round trips. Its DialContext is replaced.
	Base *http.Transport

	// Resolver is used for DNS lookups. If nil, net.DefaultResolver is used.
	Resolver Resolver

	blocked []*net.IPNet
}

// NewSafeTransport wraps base, or a clone of http.DefaultTransport when base
// is nil so proxy and TLS defaults are kept.
func NewSafeTransport(base *http.Transport) (*SafeTransport, error) {
	nets, err := parseCIDRs(BlockedCIDRs)
	if err != nil {
		return nil, err
	}
	return newSafeTransport(base, nets), nil
}

func newSafeTransport(base *http.Transport, blocked []*net.IPNet) *SafeTransport {
	if base == nil {
		base = http.DefaultTransport.(*http.Transport).Clone()
	}
	st := &SafeTransport{Base: base, blocked: blocked}
	base.DialContext = st.dialContext
	return st
}

// NewWebhookClient returns an *http.Client for the Teams webhook. It sets no
// client timeout; the invocation context bounds the request.
func NewWebhookClient() (*http.Client, error) {
	transport, err := NewSafeTransport(nil)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: transport}, nil
}

// RoundTrip implements http.RoundTripper.
func (st *SafeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return st.Base.RoundTrip(req)
}

// dialContext resolves the host, rejects the dial if any resolved address is
// blocked, and otherwise connects to the first address.
func (st *SafeTransport) dialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("egress: invalid address %q: %w", addr, err)
	}

	dialer := &net.Dialer{}

	if ip := net.ParseIP(host); ip != nil {
		if st.isBlocked(ip) {
			return nil, fmt.Errorf("%w: %s", ErrBlockedDestination, ip)
		}
		return dialer.DialContext(ctx, network, addr)
	}

	dnsCtx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	ips, err := st.resolver().LookupIPAddr(dnsCtx, host)
	if err != nil {
		if dnsCtx.Err() != nil {
			return nil, fmt.Errorf("%w: host %q", ErrDNSTimeout, host)
		}
		return nil, fmt.Errorf("%w: host %q: %v", ErrDNSFailed, host, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("%w: host %q resolved to no addresses", ErrDNSFailed, host)
	}

	// All addresses must be allowed, otherwise a rebinding answer could mix a
	// public address with an internal one.
	for _, ipAddr := range ips {
		if st.isBlocked(ipAddr.IP) {
			return nil, fmt.Errorf("%w: %s (resolved from %s)", ErrBlockedDestination, ipAddr.IP, host)
		}
	}

	return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].IP.String(), port))
}

func (st *SafeTransport) isBlocked(ip net.IP) bool {
	for _, n := range st.blocked {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func (st *SafeTransport) resolver() Resolver {
	if st.Resolver != nil {
		return st.Resolver
	}
	return net.DefaultResolver
}

func parseCIDRs(cidrs []string) ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("egress: failed to parse CIDR %q: %w", cidr, err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}
