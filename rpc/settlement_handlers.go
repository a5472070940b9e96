package rpc

import (
	"encoding/hex"
	"errors"
	"net/http"

	"harberger/core/types"
	"harberger/native/settlement"
	"harberger/observability/metrics"
)

type orderItemParam struct {
	Wildcard bool   `json:"wildcard,omitempty"`
	AssetID  uint64 `json:"assetId,omitempty"`
}

type generateOrderParam struct {
	Caller    string           `json:"caller"`
	Fulfiller string           `json:"fulfiller"`
	Items     []orderItemParam `json:"items"`
	TotalFee  string           `json:"totalFee,omitempty"`
}

type ratifyOrderParam struct {
	Caller   string   `json:"caller"`
	AssetIDs []uint64 `json:"assetIds"`
}

type orderItemResult struct {
	AssetID   uint64 `json:"assetId"`
	Price     string `json:"price"`
	Recipient string `json:"recipient"`
}

type orderResult struct {
	OrderID      string            `json:"orderId"`
	Items        []orderItemResult `json:"items"`
	FeeAmount    string            `json:"feeAmount"`
	FeeRecipient string            `json:"feeRecipient"`
}

func orderToResult(order *settlement.Order) orderResult {
	result := orderResult{
		OrderID:      hex.EncodeToString(order.ID[:]),
		Items:        make([]orderItemResult, 0, len(order.Items)),
		FeeAmount:    order.Fee.Amount.Dec(),
		FeeRecipient: order.Fee.Recipient.Hex(),
	}
	for _, item := range order.Items {
		result.Items = append(result.Items, orderItemResult{
			AssetID:   item.AssetID,
			Price:     item.Price.Dec(),
			Recipient: item.Recipient.Hex(),
		})
	}
	return result
}

func toItemRequests(items []orderItemParam) []settlement.ItemRequest {
	requests := make([]settlement.ItemRequest, 0, len(items))
	for _, item := range items {
		requests = append(requests, settlement.ItemRequest{Wildcard: item.Wildcard, AssetID: item.AssetID})
	}
	return requests
}

func (s *Server) handleGenerateOrder(w http.ResponseWriter, req *RPCRequest) {
	var params generateOrderParam
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := types.ParseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	fulfiller, err := types.ParseAddress(params.Fulfiller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	totalFee, err := parseAmount(params.TotalFee)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	order, err := s.adapter.GenerateOrder(caller, fulfiller, toItemRequests(params.Items), totalFee)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	metrics.Market().ObserveSettlement("generate")
	writeResult(w, req.ID, orderToResult(order))
}

func (s *Server) handlePreviewOrder(w http.ResponseWriter, req *RPCRequest) {
	var params generateOrderParam
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	fulfiller, err := types.ParseAddress(params.Fulfiller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	totalFee, err := parseAmount(params.TotalFee)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	order, err := s.adapter.PreviewOrder(fulfiller, toItemRequests(params.Items), totalFee)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	metrics.Market().ObserveSettlement("preview")
	writeResult(w, req.ID, orderToResult(order))
}

func (s *Server) handleRatifyOrder(w http.ResponseWriter, req *RPCRequest) {
	var params ratifyOrderParam
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := types.ParseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.adapter.RatifyOrder(caller, params.AssetIDs); err != nil {
		if errors.Is(err, settlement.ErrFeeEvasion) {
			metrics.Market().ObserveFeeEvasion()
		}
		writeEngineError(w, req.ID, err)
		return
	}
	metrics.Market().ObserveSettlement("ratify")
	writeResult(w, req.ID, map[string]bool{"ratified": true})
}

func (s *Server) handleGetMetadata(w http.ResponseWriter, req *RPCRequest) {
	meta := s.adapter.GetMetadata()
	writeResult(w, req.ID, map[string]string{
		"name":       meta.Name,
		"version":    meta.Version,
		"instanceId": meta.InstanceID,
		"adapter":    meta.Adapter.Hex(),
	})
}
