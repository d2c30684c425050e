package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"bottega/internal/core"
)

var ErrInvalidMessage = errors.New("invalid sync message")

// RecordSyncMessage asks the worker to mirror one sale or expense. It only
// carries the reference; the worker reads the current record from storage.
type RecordSyncMessage struct {
	Kind      core.Kind `json:"kind"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordSyncMessage(kind core.Kind, id string) *RecordSyncMessage {
	return &RecordSyncMessage{
		Kind:      kind,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

func (m *RecordSyncMessage) Validate() error {
	if _, err := core.ParseKind(string(m.Kind)); err != nil || m.ID == "" {
		return ErrInvalidMessage
	}
	return nil
}

func (m *RecordSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordSyncMessageFromJSON decodes and validates a message body.
func RecordSyncMessageFromJSON(data []byte) (*RecordSyncMessage, error) {
	var msg RecordSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
