package mempool

import (
	"bytes"
	"fmt"
)

// The client surfaces exactly two kinds of errors: NetworkError when no
// endpoint could be reached at the transport level, and ResponseError when an
// endpoint answered with a non-success status. All lower-level transport
// failures are funneled into one of the two.

// NetworkError reports that every endpoint failed at the transport level
// (DNS, connect, timeout, TLS). It wraps the last cause seen.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("mempool: network failure on %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ResponseError reports a non-success HTTP status. Decoded holds the parsed
// JSON error payload when the body parses as JSON; otherwise the raw body is
// kept. When every endpoint produced response errors, the first one recorded
// is surfaced so the diagnostic reflects the highest-priority mirror.
type ResponseError struct {
	URL        string
	StatusCode int
	Body       []byte
	Decoded    interface{}
}

func (e *ResponseError) Error() string {
	if e.Decoded != nil {
		return fmt.Sprintf("mempool: %s returned %d: %v", e.URL, e.StatusCode, e.Decoded)
	}
	if body := bytes.TrimSpace(e.Body); len(body) > 0 {
		return fmt.Sprintf("mempool: %s returned %d: %s", e.URL, e.StatusCode, body)
	}
	return fmt.Sprintf("mempool: %s returned %d", e.URL, e.StatusCode)
}
