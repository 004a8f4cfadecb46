package models

import "slices"

// Checkpoint is the durable cursor of the forwarding pipeline.
//
// LastRxTimeIDs holds the ids already admitted at exactly LastRxTime and is
// only non-empty while LastRxTime is set. LastMessageID and LastRxTime never
// move backward.
type Checkpoint struct {
	LastMessageID *uint64  `json:"last_message_id"`
	LastRxTime    *uint64  `json:"last_rx_time"`
	LastRxTimeIDs []uint64 `json:"last_rx_time_ids"`

	// LastCheckedAt is the single-timestamp cursor written by older releases.
	// It is read on load and never written back.
	LastCheckedAt *uint64 `json:"last_checked_at,omitempty"`
}

// Normalize migrates a legacy checkpoint into the receipt-time model.
func (c *Checkpoint) Normalize() {
	if c.LastRxTime == nil && c.LastCheckedAt != nil {
		ts := *c.LastCheckedAt
		c.LastRxTime = &ts
	}
	c.LastCheckedAt = nil
	if c.LastRxTime == nil {
		c.LastRxTimeIDs = nil
	}
	if c.LastRxTimeIDs == nil {
		c.LastRxTimeIDs = []uint64{}
	}
}

// IsEmpty reports whether nothing has been recorded yet.
func (c *Checkpoint) IsEmpty() bool {
	return c.LastMessageID == nil && c.LastRxTime == nil && len(c.LastRxTimeIDs) == 0
}

// ShouldForward reports whether msg has not been admitted yet.
//
// Without a receipt-time checkpoint the message id is compared against
// LastMessageID. With one, receipt time decides and ties are broken by the
// ids already seen at that time.
func (c *Checkpoint) ShouldForward(msg *Message) bool {
	if c.LastRxTime == nil {
		if c.LastMessageID == nil {
			return true
		}
		return msg.ID > *c.LastMessageID
	}

	switch last := *c.LastRxTime; {
	case msg.RxTime > last:
		return true
	case msg.RxTime < last:
		return false
	default:
		return !slices.Contains(c.LastRxTimeIDs, msg.ID)
	}
}

// Record advances the checkpoint past msg.
//
// Callers must only record messages that ShouldForward admitted. A message
// with an older receipt time leaves the receipt-time fields untouched, and
// LastMessageID is never lowered, so misuse cannot break the invariants.
func (c *Checkpoint) Record(msg *Message) {
	if c.LastMessageID == nil || msg.ID > *c.LastMessageID {
		id := msg.ID
		c.LastMessageID = &id
	}

	switch {
	case c.LastRxTime == nil || msg.RxTime > *c.LastRxTime:
		rx := msg.RxTime
		c.LastRxTime = &rx
		c.LastRxTimeIDs = []uint64{msg.ID}
	case msg.RxTime == *c.LastRxTime && !slices.Contains(c.LastRxTimeIDs, msg.ID):
		c.LastRxTimeIDs = append(c.LastRxTimeIDs, msg.ID)
	}
}

// Clone returns a deep copy.
func (c *Checkpoint) Clone() *Checkpoint {
	out := &Checkpoint{LastRxTimeIDs: slices.Clone(c.LastRxTimeIDs)}
	if c.LastMessageID != nil {
		id := *c.LastMessageID
		out.LastMessageID = &id
	}
	if c.LastRxTime != nil {
		rx := *c.LastRxTime
		out.LastRxTime = &rx
	}
	if c.LastCheckedAt != nil {
		ts := *c.LastCheckedAt
		out.LastCheckedAt = &ts
	}
	if out.LastRxTimeIDs == nil {
		out.LastRxTimeIDs = []uint64{}
	}
	return out
}
