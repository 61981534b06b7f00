package handler

import (
	"context"
	"net/http"

	"fortnite-checker-api/internal/model"
	"fortnite-checker-api/pkg/response"
)

// DocumentFetcher builds account documents.
type DocumentFetcher interface {
	FetchAccountDocument(ctx context.Context, cred model.Credential) (*model.AccountDocument, error)
}

// AccountHandler serves account documents.
type AccountHandler struct {
	fetcher DocumentFetcher
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(fetcher DocumentFetcher) *AccountHandler {
	return &AccountHandler{fetcher: fetcher}
}

// Data handles POST /account/data
func (h *AccountHandler) Data(w http.ResponseWriter, r *http.Request) {
	var req CredentialRequest
	if err := decodeJSON(w, r, &req, maxAuthBody); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	doc, err := h.fetcher.FetchAccountDocument(r.Context(), req.credential())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, doc)
}
