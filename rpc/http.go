package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"harberger/core/state"
	"harberger/native/feerecord"
	"harberger/native/purchase"
	"harberger/native/settlement"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeTokenNotFound  = -32030
	codeInvalidPayment = -32031
	codeFeeEvasion     = -32032
	codeUnpurchasable  = -32033
)

// Server exposes the purchase engine and settlement adapter over JSON-RPC.
type Server struct {
	engine  *purchase.Engine
	adapter *settlement.Adapter
	log     *slog.Logger
}

// NewServer wires the RPC surface. A nil logger falls back to slog.Default.
func NewServer(engine *purchase.Engine, adapter *settlement.Adapter, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{engine: engine, adapter: adapter, log: log}
}

// Router builds the HTTP routing table, including the metrics endpoint.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Post("/", s.handle)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start serves the router on the supplied address, blocking.
func (s *Server) Start(addr string) error {
	s.log.Info("starting JSON-RPC server", "addr", addr)
	return http.ListenAndServe(addr, s.Router())
}

// RPCRequest is the inbound JSON-RPC envelope.
type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

// RPCResponse is the outbound JSON-RPC envelope.
type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError carries a JSON-RPC error object.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeEngineError maps engine failures onto the RPC error code set.
func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, purchase.ErrUnauthorized), errors.Is(err, settlement.ErrOnlySettlement):
		writeError(w, http.StatusUnauthorized, id, codeUnauthorized, err.Error(), nil)
	case errors.Is(err, purchase.ErrUnknownAsset), errors.Is(err, feerecord.ErrUnknownAsset), errors.Is(err, feerecord.ErrEmptyRecord):
		writeError(w, http.StatusBadRequest, id, codeTokenNotFound, err.Error(), nil)
	case errors.Is(err, purchase.ErrInvalidPayment), errors.Is(err, state.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, id, codeInvalidPayment, err.Error(), nil)
	case errors.Is(err, purchase.ErrUnpurchasable), errors.Is(err, settlement.ErrUnpurchasable):
		writeError(w, http.StatusConflict, id, codeUnpurchasable, err.Error(), nil)
	case errors.Is(err, settlement.ErrFeeEvasion):
		writeError(w, http.StatusConflict, id, codeFeeEvasion, err.Error(), nil)
	default:
		writeError(w, http.StatusBadRequest, id, codeServerError, err.Error(), nil)
	}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "unable to read request body", err.Error())
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	switch req.Method {
	case "harberger_getFeeFromPrice":
		s.handleGetFeeFromPrice(w, &req)
	case "harberger_getPriceFromFee":
		s.handleGetPriceFromFee(w, &req)
	case "harberger_getCurrentFeeAndPrice":
		s.handleGetCurrentFeeAndPrice(w, &req)
	case "harberger_getResalePrice":
		s.handleGetResalePrice(w, &req)
	case "harberger_getAuctionPriceFromFee":
		s.handleGetAuctionPriceFromFee(w, &req)
	case "harberger_purchaseToken":
		s.handlePurchaseToken(w, &req)
	case "harberger_purchaseCheapest":
		s.handlePurchaseCheapest(w, &req)
	case "harberger_updateFeePaid":
		s.handleUpdateFeePaid(w, &req)
	case "harberger_overrideFeePaid":
		s.handleOverrideFeePaid(w, &req)
	case "harberger_mint":
		s.handleMint(w, &req)
	case "harberger_setNumFreeTransfers":
		s.handleSetNumFreeTransfers(w, &req)
	case "harberger_confirm":
		s.handleConfirm(w, &req)
	case "harberger_isConfirmed":
		s.handleIsConfirmed(w, &req)
	case "harberger_royaltyInfo":
		s.handleRoyaltyInfo(w, &req)
	case "settlement_generateOrder":
		s.handleGenerateOrder(w, &req)
	case "settlement_previewOrder":
		s.handlePreviewOrder(w, &req)
	case "settlement_ratifyOrder":
		s.handleRatifyOrder(w, &req)
	case "settlement_getMetadata":
		s.handleGetMetadata(w, &req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
	}
}

// decodeParams unmarshals the single positional parameter object.
func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected exactly one params object, got %d", len(req.Params))
	}
	return json.Unmarshal(req.Params[0], out)
}

// parseAmount decodes a decimal string into a uint256.
func parseAmount(value string) (*uint256.Int, error) {
	if value == "" {
		return new(uint256.Int), nil
	}
	amount, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return amount, nil
}
