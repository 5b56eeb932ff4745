package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoNodesAvailable means the cache held no active node at selection time.
	ErrNoNodesAvailable = errors.New("no available RPC nodes")

	// ErrQueueTimeout means a request waited the full queue deadline without a slot.
	ErrQueueTimeout = errors.New("request queue wait timed out")

	// ErrQueueClosed means the admission queue was closed for shutdown.
	ErrQueueClosed = errors.New("request queue closed")

	// ErrNotFullNode marks a probe rejected with method-not-found: the node
	// advertises RPC but does not serve the token-account API surface.
	ErrNotFullNode = errors.New("node does not serve full RPC API")
)

// ForwardError wraps a failed forward with the endpoint it was sent to, so
// the handler can evict the right node.
type ForwardError struct {
	Endpoint   string
	StatusCode int // zero for transport errors
	Err        error
}

func (e *ForwardError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("forward to %s failed: upstream status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("forward to %s failed: %v", e.Endpoint, e.Err)
}

func (e *ForwardError) Unwrap() error {
	return e.Err
}
