package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"moneylink-backend/internal/domain"
	"moneylink-backend/internal/service"
)

const maxRequestBytes = 1 << 20

type p2pTransferRequest struct {
	RecipientID  string          `json:"recipient_id" validate:"required"`
	SenderBankID string          `json:"sender_bank_id" validate:"required"`
	Amount       decimal.Decimal `json:"amount" validate:"required"`
	Note         *string         `json:"note,omitempty" validate:"omitempty,max=280"`
}

type bankTransferRequest struct {
	SourceBankID      string          `json:"source_bank_id" validate:"required"`
	DestinationBankID string          `json:"destination_bank_id" validate:"required"`
	Amount            decimal.Decimal `json:"amount" validate:"required"`
	Note              *string         `json:"note,omitempty" validate:"omitempty,max=280"`
}

type p2pTransferResponse struct {
	TransferRef string              `json:"transfer_ref"`
	Transaction *domain.Transaction `json:"transaction"`
}

type transactionResponse struct {
	Transaction *domain.Transaction `json:"transaction"`
}

type TransferHandler struct {
	svc service.TransferService
}

func NewTransferHandler(svc service.TransferService) *TransferHandler {
	return &TransferHandler{svc: svc}
}

// decodeRequest reads a JSON body into dst and validates its tags.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError("Malformed JSON body")
	}
	return validateStruct(dst)
}

func (h *TransferHandler) CreateP2PTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req p2pTransferRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	res, err := h.svc.CreateP2PTransfer(ctx, service.P2PTransferRequest{
		SenderID:     userID,
		RecipientID:  req.RecipientID,
		SenderBankID: req.SenderBankID,
		Amount:       req.Amount,
		Note:         req.Note,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	// The credit leg belongs to the recipient and is not returned to the sender.
	respondJSON(w, http.StatusCreated, p2pTransferResponse{TransferRef: res.TransferRef, Transaction: res.SenderLeg})
}

func (h *TransferHandler) CreateBankTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req bankTransferRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	tx, err := h.svc.CreateBankTransfer(ctx, service.BankTransferRequest{
		UserID:            userID,
		SourceBankID:      req.SourceBankID,
		DestinationBankID: req.DestinationBankID,
		Amount:            req.Amount,
		Note:              req.Note,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, transactionResponse{Transaction: tx})
}

func (h *TransferHandler) CancelTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	tx, err := h.svc.CancelTransfer(ctx, userID, mux.Vars(r)["id"])
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, transactionResponse{Transaction: tx})
}
