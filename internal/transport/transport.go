// Package transport provides the subscription transports that feed the
// listener and the request/reply round-tripper used by the request client.
package transport

import "errors"

var (
	// ErrTimeout is returned by a round trip whose reply did not arrive in
	// time.
	ErrTimeout = errors.New("request timed out")

	// ErrClosed is returned after a transport has been closed.
	ErrClosed = errors.New("transport closed")
)
