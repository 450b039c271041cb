package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/corebank/ledgersvc/internal/adapter/http/dto"
	"github.com/corebank/ledgersvc/internal/domain"
	"github.com/corebank/ledgersvc/internal/usecase"
)

// PostingHandler handles transaction posting HTTP requests.
type PostingHandler struct {
	postingUC *usecase.PostingUseCase
}

// NewPostingHandler creates a new PostingHandler.
func NewPostingHandler(postingUC *usecase.PostingUseCase) *PostingHandler {
	return &PostingHandler{postingUC: postingUC}
}

// Post posts a balanced transaction to the ledger.
func (h *PostingHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req dto.PostTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	txn, err := h.postingUC.Post(r.Context(), req.ToUseCaseInput())
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to post transaction", err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(txn))
}

// Get retrieves a transaction by ID with its legs and entries.
func (h *PostingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", "")
		return
	}

	txn, err := h.postingUC.GetTransaction(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get transaction", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// List lists transactions, newest first.
func (h *PostingHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	txns, err := h.postingUC.ListTransactions(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list transactions", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionsFromDomain(txns))
}

// Reverse posts an offsetting transaction against a posted or settled one.
func (h *PostingHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", "")
		return
	}

	var req dto.ReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	txn, err := h.postingUC.Reverse(r.Context(), id, req.Reason)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to reverse transaction", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// Settle marks a posted transaction as settled.
func (h *PostingHandler) Settle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", "")
		return
	}

	txn, err := h.postingUC.Settle(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to settle transaction", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// Cancel cancels an initiated transaction before it is posted.
func (h *PostingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.close(w, r, h.postingUC.Cancel, "failed to cancel transaction")
}

// Fail marks an initiated transaction as failed.
func (h *PostingHandler) Fail(w http.ResponseWriter, r *http.Request) {
	h.close(w, r, h.postingUC.Fail, "failed to fail transaction")
}

func (h *PostingHandler) close(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id, reason string) (*domain.Transaction, error), msg string) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", "")
		return
	}

	var req dto.ReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	txn, err := op(r.Context(), id, req.Reason)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, msg, err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// Legs lists the legs of a transaction, including reversal offsets.
func (h *PostingHandler) Legs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", "")
		return
	}

	txn, err := h.postingUC.GetTransaction(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get transaction", err.Error())

		return
	}

	legs := make([]*dto.LegResponse, len(txn.Legs))
	for i, leg := range txn.Legs {
		legs[i] = dto.LegFromDomain(leg)
	}

	writeJSON(w, http.StatusOK, legs)
}

// History lists the status history of a transaction, oldest first.
func (h *PostingHandler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", "")
		return
	}

	rows, err := h.postingUC.ListStatusHistory(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to list status history", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.StatusHistoryFromDomain(rows))
}

// ListEntriesByAccount lists ledger entries booked against an account.
func (h *PostingHandler) ListEntriesByAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	entries, err := h.postingUC.ListEntriesByAccount(r.Context(), accountID, limit, offset)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to list entries", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}
