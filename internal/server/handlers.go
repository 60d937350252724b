package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/kmadira/ledgerstream/internal/domain"
	"github.com/kmadira/ledgerstream/internal/ledger"
)

// Summarizer serves the cached aggregate view.
type Summarizer interface {
	GetSummary(ctx context.Context) (domain.SummarySnapshot, error)
}

// EventPublisher notifies subscribers about committed transactions.
type EventPublisher interface {
	Publish(ctx context.Context, tx domain.Transaction) error
}

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger    *slog.Logger
	store     ledger.Store
	publisher EventPublisher
	summaries Summarizer
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, store ledger.Store, publisher EventPublisher, summaries Summarizer) *APIHandlers {
	return &APIHandlers{
		logger:    logger,
		store:     store,
		publisher: publisher,
		summaries: summaries,
	}
}

type createTransactionRequest struct {
	Type string `json:"type"`
	// Amount is accepted as a JSON number or a quoted decimal string.
	Amount    domain.Cents `json:"amount"`
	Status    string       `json:"status"`
	Payee     string       `json:"payee"`
	Recipient string       `json:"recipient"`
}

func (h *APIHandlers) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := domain.NewTransaction(
		domain.Kind(req.Type),
		req.Amount,
		domain.Status(req.Status),
		req.Payee,
		req.Recipient,
	)
	if err != nil {
		if domain.IsValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("transaction validation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create transaction")
		return
	}

	created, err := h.store.InsertTransaction(r.Context(), tx)
	if err != nil {
		h.logger.Error("failed to insert transaction", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create transaction")
		return
	}

	// The commit stands regardless of the notification outcome: a missed
	// event is logged, never bounced back to the caller.
	if err := h.publisher.Publish(r.Context(), created); err != nil {
		h.logger.Warn("transaction event not published", "error", err, "id", created.ID)
	}

	respondJSON(w, http.StatusCreated, created)
}

func (h *APIHandlers) getTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	tx, err := h.store.GetTransaction(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to fetch transaction", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to fetch transaction")
		return
	}

	respondJSON(w, http.StatusOK, tx)
}

const maxPageLimit = 100

func (h *APIHandlers) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := ledger.Filter{
		Kind:   domain.Kind(q.Get("type")),
		Status: domain.Status(q.Get("status")),
		Page:   parseQueryInt(q.Get("page"), 1),
		Limit:  parseQueryInt(q.Get("limit"), 10),
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}

	if raw := q.Get("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id filter")
			return
		}
		filter.ID = id
	}

	startRaw, endRaw := q.Get("startDate"), q.Get("endDate")
	if (startRaw == "") != (endRaw == "") {
		writeError(w, http.StatusBadRequest, "startDate and endDate must be provided together")
		return
	}
	if startRaw != "" {
		start, err := time.Parse(time.RFC3339, startRaw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid startDate")
			return
		}
		end, err := time.Parse(time.RFC3339, endRaw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid endDate")
			return
		}
		// endDate is inclusive; the store works on half-open [from, to)
		// ranges, so shift the bound by one timestamp tick.
		filter.From, filter.To = start, end.Add(time.Millisecond)
	}

	txs, err := h.store.ListTransactions(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	respondJSON(w, http.StatusOK, txs)
}

func (h *APIHandlers) getSummary(w http.ResponseWriter, r *http.Request) {
	snap, err := h.summaries.GetSummary(r.Context())
	if err != nil {
		h.logger.Error("failed to compute summary", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute summary")
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

func parseQueryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
