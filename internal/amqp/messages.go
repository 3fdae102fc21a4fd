package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TransactionsSyncedMessage signals that new transactions landed in the
// database and a detection pass should run. It carries no payload beyond the
// count; the worker reads the full history itself.
type TransactionsSyncedMessage struct {
	MessageID        string    `json:"message_id"`
	TransactionCount int       `json:"transaction_count"`
	Timestamp        time.Time `json:"timestamp"`
}

func NewTransactionsSyncedMessage(count int) *TransactionsSyncedMessage {
	return &TransactionsSyncedMessage{
		MessageID:        uuid.New().String(),
		TransactionCount: count,
		Timestamp:        time.Now(),
	}
}

func (m *TransactionsSyncedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionsSyncedMessageFromJSON(data []byte) (*TransactionsSyncedMessage, error) {
	var msg TransactionsSyncedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// DetectionCompletedMessage is published after a detection pass so other
// consumers can react, e.g. refresh alert reconciliation.
type DetectionCompletedMessage struct {
	MessageID      string    `json:"message_id"`
	RecurringCount int       `json:"recurring_count"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewDetectionCompletedMessage(recurringCount int) *DetectionCompletedMessage {
	return &DetectionCompletedMessage{
		MessageID:      uuid.New().String(),
		RecurringCount: recurringCount,
		Timestamp:      time.Now(),
	}
}

func (m *DetectionCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DetectionCompletedMessageFromJSON(data []byte) (*DetectionCompletedMessage, error) {
	var msg DetectionCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
