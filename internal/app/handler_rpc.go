package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/x1labs/x1-rpc-proxy/internal/core/domain"
	"github.com/x1labs/x1-rpc-proxy/internal/core/ports"
)

const maxRequestBodyBytes = 10 << 20

// rpcHandler serves POST /. Admission first, then node selection, then a
// single forward attempt. A failed forward evicts the chosen node before the
// error goes out, so the next request cannot pick the same dead endpoint.
func (a *Application) rpcHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		a.writeRPCError(w, http.StatusBadRequest, nil, domain.RPCCodeParseError, "Parse error")
		return
	}

	var request domain.RPCRequest
	if err := json.Unmarshal(body, &request); err != nil {
		a.writeRPCError(w, http.StatusBadRequest, nil, domain.RPCCodeParseError, "Parse error")
		return
	}

	if err := a.queue.Acquire(r.Context()); err != nil {
		switch {
		case errors.Is(err, domain.ErrQueueTimeout):
			a.collector.RecordQueueRejection(ports.RejectionTimeout)
			a.logger.Warn("Request shed, queue full", "request", request.Summary())
			a.writeRPCError(w, http.StatusServiceUnavailable, request.ID, domain.RPCCodeServerError, "Server overloaded, request queue full")
		case errors.Is(err, domain.ErrQueueClosed):
			a.collector.RecordQueueRejection(ports.RejectionClosed)
			a.writeRPCError(w, http.StatusServiceUnavailable, request.ID, domain.RPCCodeServerError, "Server shutting down")
		default:
			// client gave up while queued; nothing useful to write
		}
		return
	}
	defer a.queue.Release()

	node := a.repository.SelectFast(r.Context())
	if node == nil {
		a.collector.RecordQueueRejection(ports.RejectionNoNodes)
		a.logger.Warn("No active RPC nodes to serve request", "request", request.Summary())
		a.writeRPCError(w, http.StatusServiceUnavailable, request.ID, domain.RPCCodeServerError, "No available RPC nodes")
		return
	}

	a.logger.Debug("forwarding request", "endpoint", node.Endpoint, "request", request.Summary())

	// the forward must finish even if the client hangs up mid-flight
	forwardCtx := context.WithoutCancel(r.Context())

	start := time.Now()
	responseBody, err := a.forwarder.Forward(forwardCtx, node.Endpoint, &request)
	latency := time.Since(start)

	if err != nil {
		a.collector.RecordForward(ports.OutcomeFailure, latency)
		if a.repository.Remove(forwardCtx, node.Endpoint) {
			a.collector.RecordEviction(node.Endpoint)
			a.reprober.Schedule(forwardCtx, node.Endpoint)
		}
		a.logger.ErrorWithEndpoint("Forward failed, evicting", node.Endpoint, "request", request.Summary(), "error", err)
		a.writeRPCError(w, http.StatusInternalServerError, request.ID, domain.RPCCodeInternalError, "Internal error")
		return
	}

	a.collector.RecordForward(ports.OutcomeSuccess, latency)

	w.Header().Set(ContentTypeHeader, ContentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(responseBody)
}

func (a *Application) writeRPCError(w http.ResponseWriter, status int, id json.RawMessage, code int, message string) {
	w.Header().Set(ContentTypeHeader, ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.NewErrorResponse(id, code, message, nil))
}
