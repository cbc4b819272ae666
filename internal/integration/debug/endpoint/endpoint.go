// Package endpoint allocates local endpoints for debugger transports.
//
// An endpoint is a free TCP port, found by briefly binding port 0, paired
// with a random session identifier. The listener is closed before the
// port is returned, so another process may claim the port before the
// debugger binds it. That window is accepted: allocation is not retried
// and the port is not held open.
package endpoint

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// DefaultHost is the host name used in endpoint URLs.
const DefaultHost = "localhost"

// Endpoint is an allocated (port, session id) pair.
type Endpoint struct {
	Host      string
	Port      int
	SessionID string
}

// URL returns the websocket URL for the endpoint.
func (e Endpoint) URL() string {
	host := e.Host
	if host == "" {
		host = DefaultHost
	}
	return "ws://" + net.JoinHostPort(host, strconv.Itoa(e.Port)) + "/" + e.SessionID
}

// Address returns host:port for dialing or listening.
func (e Endpoint) Address() string {
	host := e.Host
	if host == "" {
		host = DefaultHost
	}
	return net.JoinHostPort(host, strconv.Itoa(e.Port))
}

// AllocError is returned when the OS refuses to hand out a port.
type AllocError struct {
	Err error
}

func (e *AllocError) Error() string {
	return fmt.Sprintf("allocate debugger port: %v", e.Err)
}

func (e *AllocError) Unwrap() error {
	return e.Err
}

// FindAvailablePort binds a listener to port 0, reads the port the OS
// assigned and releases it.
func FindAvailablePort(ctx context.Context) (int, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", ":0")
	if err != nil {
		return 0, &AllocError{Err: err}
	}
	defer ln.Close()

	addr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		return 0, &AllocError{Err: fmt.Errorf("unexpected listener address %v", ln.Addr())}
	}
	return addr.Port, nil
}

// NewSessionID returns a short random token. It only needs to keep
// concurrently started sessions apart and is not a secret.
func NewSessionID() string {
	return strconv.FormatUint(rand.Uint64(), 36)
}

// Allocate returns a fresh endpoint on DefaultHost.
func Allocate(ctx context.Context) (Endpoint, error) {
	port, err := FindAvailablePort(ctx)
	if err != nil {
		return Endpoint{}, err
	}
	return Endpoint{
		Host:      DefaultHost,
		Port:      port,
		SessionID: NewSessionID(),
	}, nil
}

// AllocateEndpoint returns the URL of a fresh endpoint,
// ws://localhost:<port>/<session-id>.
func AllocateEndpoint(ctx context.Context) (string, error) {
	ep, err := Allocate(ctx)
	if err != nil {
		return "", err
	}
	return ep.URL(), nil
}

// Parse splits an endpoint URL produced by URL back into its parts.
func Parse(rawURL string) (Endpoint, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Endpoint{}, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "ws" {
		return Endpoint{}, fmt.Errorf("endpoint %q: expected ws scheme", rawURL)
	}

	port, err := strconv.Atoi(u.Port())
	if err != nil || port < 1 || port > 65535 {
		return Endpoint{}, fmt.Errorf("endpoint %q: invalid port %q", rawURL, u.Port())
	}

	return Endpoint{
		Host:      u.Hostname(),
		Port:      port,
		SessionID: strings.TrimPrefix(u.Path, "/"),
	}, nil
}
