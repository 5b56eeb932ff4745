package health

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/x1labs/x1-rpc-proxy/internal/core/domain"
	"github.com/x1labs/x1-rpc-proxy/internal/logger"
)

const (
	// probes deliberately use getTokenAccountsByOwner rather than getHealth:
	// light nodes answer getHealth but refuse the token-account API surface,
	// and only full nodes are worth routing to.
	probeMethod = "getTokenAccountsByOwner"

	probeMaxResponseBytes = 1 << 20
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// FullNodeValidator probes an endpoint with a token-account query and
// classifies the response. Network I/O aside it is side-effect free.
type FullNodeValidator struct {
	client HTTPClient
	owner  string
	logger logger.StyledLogger
}

func NewFullNodeValidator(styledLogger logger.StyledLogger) *FullNodeValidator {
	return &FullNodeValidator{
		// per-probe deadlines come from the caller's context
		client: &http.Client{},
		owner:  randomOwnerPubkey(),
		logger: styledLogger,
	}
}

// NewFullNodeValidatorWithClient is used by tests to inject a transport.
func NewFullNodeValidatorWithClient(client HTTPClient, styledLogger logger.StyledLogger) *FullNodeValidator {
	return &FullNodeValidator{
		client: client,
		owner:  randomOwnerPubkey(),
		logger: styledLogger,
	}
}

// randomOwnerPubkey builds a well-formed but arbitrary base58 pubkey. The
// probe does not care whose token accounts it asks for, only whether the
// node can answer the method family at all.
func randomOwnerPubkey() string {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		// fall back to the zero key; still well-formed base58
		return solana.PublicKey{}.String()
	}
	return base58.Encode(raw[:])
}

type probeResponse struct {
	Result json.RawMessage  `json:"result"`
	Error  *domain.RPCError `json:"error"`
}

// Validate returns nil when the endpoint proves itself a full RPC node.
//
// Classification: transport failures, non-2xx statuses and malformed bodies
// are failures; a method-not-found error disqualifies the node as a light
// node; any other RPC error still proves the node processed the request.
func (v *FullNodeValidator) Validate(ctx context.Context, endpoint string, timeout time.Duration) error {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(&domain.RPCRequest{
		JSONRPC: domain.JSONRPCVersion,
		ID:      json.RawMessage("1"),
		Method:  probeMethod,
		Params: mustMarshalParams(
			v.owner,
			map[string]string{"programId": solana.TokenProgramID.String()},
			map[string]string{"encoding": "jsonParsed"},
		),
	})
	if err != nil {
		return fmt.Errorf("building probe request: %w", err)
	}

	req, err := http.NewRequestWithContext(probeCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building probe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe request failed: %w", err)
	}
	defer func(b io.ReadCloser) {
		_ = b.Close()
	}(resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("probe returned status %d", resp.StatusCode)
	}

	var parsed probeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, probeMaxResponseBytes)).Decode(&parsed); err != nil {
		return fmt.Errorf("probe response malformed: %w", err)
	}

	switch {
	case parsed.Error != nil && parsed.Error.Code == domain.RPCCodeMethodNotFound:
		return domain.ErrNotFullNode
	case parsed.Error != nil:
		// the node processed the request; rejecting our arbitrary params
		// still proves capability
		return nil
	case len(parsed.Result) > 0:
		return nil
	default:
		return fmt.Errorf("probe response carried neither result nor error")
	}
}

func mustMarshalParams(params ...any) json.RawMessage {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil
	}
	return raw
}
