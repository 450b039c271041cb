package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/corebank/ledgersvc/internal/adapter/http/dto"
	"github.com/corebank/ledgersvc/internal/usecase"
)

// OutboxHandler exposes read-only views of the event outbox for operators.
type OutboxHandler struct {
	outboxRepo usecase.OutboxRepository
}

// NewOutboxHandler creates a new OutboxHandler.
func NewOutboxHandler(outboxRepo usecase.OutboxRepository) *OutboxHandler {
	return &OutboxHandler{outboxRepo: outboxRepo}
}

// ListPending lists unprocessed outbox events, oldest first.
func (h *OutboxHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	events, err := h.outboxRepo.ListPending(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list pending events", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.OutboxEventsFromDomain(events))
}

// ListByAggregate lists the event trail of a single aggregate.
func (h *OutboxHandler) ListByAggregate(w http.ResponseWriter, r *http.Request) {
	aggregateType := chi.URLParam(r, "type")
	aggregateID := chi.URLParam(r, "id")
	if aggregateType == "" || aggregateID == "" {
		writeError(w, http.StatusBadRequest, "missing aggregate type or ID", "")
		return
	}

	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	events, err := h.outboxRepo.GetByAggregate(r.Context(), aggregateType, aggregateID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list aggregate events", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.OutboxEventsFromDomain(events))
}
