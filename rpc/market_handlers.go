package rpc

import (
	"net/http"

	"harberger/core/types"
	"harberger/native/pricing"
	"harberger/observability/metrics"
)

type priceParam struct {
	Price string `json:"price"`
}

type feeParam struct {
	Fee       string `json:"fee"`
	Timestamp *int64 `json:"timestamp,omitempty"`
}

type assetParam struct {
	AssetID uint64 `json:"assetId"`
}

type callerAssetParam struct {
	Caller  string `json:"caller"`
	AssetID uint64 `json:"assetId"`
	Payment string `json:"payment,omitempty"`
	Weight  string `json:"weight,omitempty"`
	Count   uint8  `json:"count,omitempty"`
}

type mintParam struct {
	Caller  string `json:"caller"`
	To      string `json:"to"`
	AssetID uint64 `json:"assetId"`
}

type purchaseCheapestParam struct {
	Caller  string `json:"caller"`
	Payment string `json:"payment"`
}

type amountResult struct {
	Amount string `json:"amount"`
}

type feeAndPriceResult struct {
	Fee   string `json:"fee"`
	Price string `json:"price"`
}

type purchaseResult struct {
	AssetID uint64 `json:"assetId"`
}

type royaltyResult struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

func (s *Server) handleGetFeeFromPrice(w http.ResponseWriter, req *RPCRequest) {
	var params priceParam
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	price, err := parseAmount(params.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	fee, err := pricing.FeeFromPrice(price, s.engine.Curve().FeeBps())
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: fee.Dec()})
}

func (s *Server) handleGetPriceFromFee(w http.ResponseWriter, req *RPCRequest) {
	var params feeParam
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	fee, err := parseAmount(params.Fee)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	price, err := pricing.PriceFromFee(fee, s.engine.Curve().FeeBps())
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: price.Dec()})
}

func (s *Server) handleGetCurrentFeeAndPrice(w http.ResponseWriter, req *RPCRequest) {
	var params assetParam
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	fee, price, err := s.engine.CurrentFeeAndPrice(params.AssetID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, feeAndPriceResult{Fee: fee.Dec(), Price: price.Dec()})
}

func (s *Server) handleGetResalePrice(w http.ResponseWriter, req *RPCRequest) {
	var params assetParam
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	price, err := s.engine.ResalePrice(params.AssetID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: price.Dec()})
}

func (s *Server) handleGetAuctionPriceFromFee(w http.ResponseWriter, req *RPCRequest) {
	var params feeParam
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	fee, err := parseAmount(params.Fee)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	price, err := s.engine.AuctionPriceFromFee(fee, params.Timestamp)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: price.Dec()})
}

func (s *Server) handlePurchaseToken(w http.ResponseWriter, req *RPCRequest) {
	var params callerAssetParam
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := types.ParseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	payment, err := parseAmount(params.Payment)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.PurchaseToken(caller, params.AssetID, payment); err != nil {
		metrics.Market().ObservePurchase("error")
		writeEngineError(w, req.ID, err)
		return
	}
	metrics.Market().ObservePurchase("ok")
	metrics.Market().SetRecordSize(s.engine.Record().Len())
	writeResult(w, req.ID, purchaseResult{AssetID: params.AssetID})
}

func (s *Server) handlePurchaseCheapest(w http.ResponseWriter, req *RPCRequest) {
	var params purchaseCheapestParam
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := types.ParseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	payment, err := parseAmount(params.Payment)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := s.engine.PurchaseCheapest(caller, payment)
	if err != nil {
		metrics.Market().ObservePurchase("error")
		writeEngineError(w, req.ID, err)
		return
	}
	metrics.Market().ObservePurchase("ok")
	writeResult(w, req.ID, purchaseResult{AssetID: id})
}

func (s *Server) handleUpdateFeePaid(w http.ResponseWriter, req *RPCRequest) {
	var params callerAssetParam
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := types.ParseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	payment, err := parseAmount(params.Payment)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.UpdateFeePaid(caller, params.AssetID, payment); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, purchaseResult{AssetID: params.AssetID})
}

func (s *Server) handleOverrideFeePaid(w http.ResponseWriter, req *RPCRequest) {
	var params callerAssetParam
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := types.ParseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	weight, err := parseAmount(params.Weight)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.OverrideFeePaid(caller, params.AssetID, weight); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, purchaseResult{AssetID: params.AssetID})
}

func (s *Server) handleMint(w http.ResponseWriter, req *RPCRequest) {
	var params mintParam
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := types.ParseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	to, err := types.ParseAddress(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.Mint(caller, to, params.AssetID); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	metrics.Market().SetRecordSize(s.engine.Record().Len())
	writeResult(w, req.ID, purchaseResult{AssetID: params.AssetID})
}

func (s *Server) handleSetNumFreeTransfers(w http.ResponseWriter, req *RPCRequest) {
	var params callerAssetParam
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := types.ParseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.SetNumFreeTransfers(caller, params.AssetID, params.Count); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, purchaseResult{AssetID: params.AssetID})
}

func (s *Server) handleConfirm(w http.ResponseWriter, req *RPCRequest) {
	var params callerAssetParam
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	caller, err := types.ParseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.Confirm(caller, params.AssetID); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, purchaseResult{AssetID: params.AssetID})
}

func (s *Server) handleIsConfirmed(w http.ResponseWriter, req *RPCRequest) {
	var params assetParam
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	confirmed, err := s.engine.IsConfirmed(params.AssetID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"confirmed": confirmed})
}

func (s *Server) handleRoyaltyInfo(w http.ResponseWriter, req *RPCRequest) {
	var params struct {
		SalePrice string `json:"salePrice"`
	}
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	salePrice, err := parseAmount(params.SalePrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	recipient, amount, err := s.engine.RoyaltyInfo(salePrice)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, royaltyResult{Recipient: recipient.Hex(), Amount: amount.Dec()})
}
