// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package scheduler

import (
	"context"
	"net"
	"net/url"
	"time"

	"github.com/aytachuseynli/waymark/internal/logging"
)

// NetworkChecker answers whether the remote endpoint is reachable right
// now. The scheduler consults it before every sync attempt.
type NetworkChecker interface {
	Available(ctx context.Context) bool
}

// TCPChecker probes reachability with a TCP dial to the remote host. A
// completed handshake is enough; the HTTP layer handles everything else.
type TCPChecker struct {
	addr    string
	timeout time.Duration
}

// NewTCPChecker builds a checker for the remote store URL.
func NewTCPChecker(remoteURL string) (*TCPChecker, error) {
	u, err := url.Parse(remoteURL)
	if err != nil {
		return nil, err
	}

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		if u.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}

	return &TCPChecker{
		addr:    net.JoinHostPort(host, port),
		timeout: 3 * time.Second,
	}, nil
}

// Available dials the remote address.
func (c *TCPChecker) Available(ctx context.Context) bool {
	dialer := &net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		logging.Debug().Err(err).Str("addr", c.addr).Msg("Network probe failed")
		return false
	}
	if err := conn.Close(); err != nil {
		logging.Debug().Err(err).Msg("Error closing probe connection")
	}
	return true
}

// StaticChecker always answers the same; used in tests and standalone
// deployments that assume connectivity.
type StaticChecker struct {
	Online bool
}

// Available returns the fixed answer.
func (c *StaticChecker) Available(ctx context.Context) bool {
	return c.Online
}
