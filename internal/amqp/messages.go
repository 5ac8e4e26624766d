package amqp

import (
	"encoding/json"
	"time"

	"expensetracker/internal/core"
)

// ExpenseChangedMessage announces a persisted mutation of the collection.
// Consumers re-read the snapshot for the full record.
type ExpenseChangedMessage struct {
	Op        string    `json:"op"`
	ID        int64     `json:"id,omitempty"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseChangedMessage builds a message from a store event. A zero event
// timestamp is replaced with the current time.
func NewExpenseChangedMessage(ev core.ChangeEvent) *ExpenseChangedMessage {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &ExpenseChangedMessage{
		Op:        string(ev.Op),
		ID:        ev.ID,
		Count:     ev.Count,
		Timestamp: ts,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseChangedMessageFromJSON decodes a message body.
func ExpenseChangedMessageFromJSON(data []byte) (*ExpenseChangedMessage, error) {
	var msg ExpenseChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
