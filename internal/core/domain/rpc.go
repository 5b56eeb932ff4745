package domain

import (
	"encoding/json"
	"fmt"
)

// JSON-RPC 2.0 error codes used on the proxy's own responses.
const (
	RPCCodeServerError    = -32000
	RPCCodeMethodNotFound = -32601
	RPCCodeInvalidParams  = -32602
	RPCCodeInternalError  = -32603
	RPCCodeParseError     = -32700
)

const JSONRPCVersion = "2.0"

// RPCRequest is the inbound JSON-RPC 2.0 envelope. ID and Params stay raw:
// the id must round-trip byte-for-byte and params are never interpreted.
type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// RPCResponse is the envelope the proxy emits for its own errors. Upstream
// success bodies are streamed back verbatim and never pass through this type.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// NewErrorResponse builds an error envelope carrying the request's original id.
func NewErrorResponse(id json.RawMessage, code int, message string, data any) *RPCResponse {
	return &RPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error: &RPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

const (
	summaryParamsPreviewLen = 97
	summaryPubkeyPrefixLen  = 8
)

// Summary derives a short display form of the request for log lines. For the
// two account-keyed methods the first param is peeked as a string; params are
// otherwise opaque to the proxy.
func (r *RPCRequest) Summary() string {
	id := string(r.ID)
	if id == "" {
		id = "null"
	}

	switch r.Method {
	case "getTokenAccountsByOwner":
		if owner, ok := r.firstParamString(); ok {
			return fmt.Sprintf("getTokenAccountsByOwner(owner=%s..., id=%s)", prefixOf(owner, summaryPubkeyPrefixLen), id)
		}
		return fmt.Sprintf("getTokenAccountsByOwner(id=%s)", id)
	case "getAccountInfo":
		if account, ok := r.firstParamString(); ok {
			return fmt.Sprintf("getAccountInfo(account=%s..., id=%s)", prefixOf(account, summaryPubkeyPrefixLen), id)
		}
		return fmt.Sprintf("getAccountInfo(id=%s)", id)
	case "sendTransaction", "simulateTransaction", "getBalance", "getRecentBlockhash",
		"getSlot", "getBlockHeight", "getHealth", "getVersion", "getEpochInfo", "getLatestBlockhash":
		return fmt.Sprintf("%s(id=%s)", r.Method, id)
	}

	preview := "null"
	if len(r.Params) > 0 {
		preview = string(r.Params)
		if len(preview) > summaryParamsPreviewLen+3 {
			preview = preview[:summaryParamsPreviewLen] + "..."
		}
	}
	return fmt.Sprintf("%s(params=%s, id=%s)", r.Method, preview, id)
}

func (r *RPCRequest) firstParamString() (string, bool) {
	if len(r.Params) == 0 {
		return "", false
	}
	var params []json.RawMessage
	if err := json.Unmarshal(r.Params, &params); err != nil || len(params) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(params[0], &s); err != nil {
		return "", false
	}
	return s, true
}

func prefixOf(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}
