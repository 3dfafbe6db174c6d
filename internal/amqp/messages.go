package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"billtracker/internal/ledger"

	"github.com/google/uuid"
)

// LedgerChangedMessage carries one ledger mutation and the full state after
// it, so consumers never need to read the store back.
type LedgerChangedMessage struct {
	ID        string          `json:"id"`
	Op        string          `json:"op"`
	EntityID  string          `json:"entityId,omitempty"`
	Seq       uint64          `json:"seq,omitempty"`
	Snapshot  ledger.Snapshot `json:"snapshot"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewLedgerChangedMessage stamps the message with the time the change was
// applied; now is used only for changes that carry no time.
func NewLedgerChangedMessage(c ledger.Change, now time.Time) *LedgerChangedMessage {
	at := c.At
	if at.IsZero() {
		at = now
	}
	return &LedgerChangedMessage{
		ID:        uuid.New().String(),
		Op:        c.Op,
		EntityID:  c.EntityID,
		Seq:       c.Seq,
		Snapshot:  c.Snapshot,
		Timestamp: at.UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes a message and checks it names an operation.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Op == "" {
		return nil, fmt.Errorf("message %q has no operation", msg.ID)
	}
	return &msg, nil
}
