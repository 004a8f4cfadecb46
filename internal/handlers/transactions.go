package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/l5yth/potato-mesh/internal/metrics"
	"github.com/l5yth/potato-mesh/internal/models"
)

// Transaction accepts a homeserver push. Authentication has already passed;
// the payload is logged and acknowledged with 200 {}.
func (h *Handler) Transaction(w http.ResponseWriter, r *http.Request) {
	txn := models.Transaction{TxnID: chi.URLParam(r, "txnID")}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Warn().Err(err).Str("txn_id", txn.TxnID).Msg("failed to read transaction body")
		h.Empty(w, http.StatusBadRequest)
		return
	}
	if !json.Valid(body) {
		h.logger.Warn().Str("txn_id", txn.TxnID).Msg("transaction body is not JSON")
		h.Empty(w, http.StatusBadRequest)
		return
	}
	txn.Payload = body

	metrics.TransactionsReceived.Inc()
	h.logger.Info().
		Str("txn_id", txn.TxnID).
		RawJSON("payload", txn.Payload).
		Msg("received transaction")

	h.Empty(w, http.StatusOK)
}
