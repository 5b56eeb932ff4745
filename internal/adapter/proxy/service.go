package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/x1labs/x1-rpc-proxy/internal/core/domain"
	"github.com/x1labs/x1-rpc-proxy/internal/logger"
)

const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
)

// Forwarder relays a JSON-RPC request to a chosen upstream and hands the
// response body back untouched. The body is never re-decoded on the way
// through, so numeric precision and field ordering survive exactly as the
// node produced them.
type Forwarder struct {
	client  *http.Client
	timeout time.Duration
	logger  logger.StyledLogger
}

func NewForwarder(requestTimeout time.Duration, styledLogger logger.StyledLogger) *Forwarder {
	transport := &http.Transport{
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
	}
	return &Forwarder{
		client:  &http.Client{Transport: transport},
		timeout: requestTimeout,
		logger:  styledLogger,
	}
}

// newForwarderWithClient lets tests drive the HTTP layer directly.
func newForwarderWithClient(client *http.Client, requestTimeout time.Duration, styledLogger logger.StyledLogger) *Forwarder {
	return &Forwarder{client: client, timeout: requestTimeout, logger: styledLogger}
}

// Forward posts the request to endpoint and returns the upstream's raw
// response body. Transport failures and non-2xx statuses come back as a
// *domain.ForwardError carrying the endpoint so the caller can evict it.
func (f *Forwarder) Forward(ctx context.Context, endpoint string, request *domain.RPCRequest) ([]byte, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("encoding request for %s: %w", endpoint, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &domain.ForwardError{Endpoint: endpoint, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, &domain.ForwardError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ForwardError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.ForwardError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("upstream returned status %d", resp.StatusCode),
		}
	}

	f.logger.Debug("forwarded request",
		"endpoint", endpoint,
		"method", request.Method,
		"duration", time.Since(start),
		"bytes", len(body))

	return body, nil
}
