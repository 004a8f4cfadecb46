package models

import "encoding/json"

// Transaction represents an appservice transaction pushed by the homeserver.
type Transaction struct {
	TxnID   string          `json:"txn_id"`
	Payload json.RawMessage `json:"payload"` // Opaque, logged only
}
