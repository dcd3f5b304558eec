package amqp

import (
	"encoding/json"
	"time"
)

// Event types published after successful store mutations.
const (
	EventIncomeUpdated       = "income.updated"
	EventCategoryCreated     = "category.created"
	EventCategoryRenamed     = "category.renamed"
	EventCategoryDeleted     = "category.deleted"
	EventCategoriesReordered = "categories.reordered"
	EventStoreReset          = "store.reset"
)

// IncomeEventMessage notifies consumers that the income data changed.
// Only the fields relevant to the event type are set; consumers fetch
// whatever else they need from the store.
type IncomeEventMessage struct {
	Type         string    `json:"type"`
	Year         int       `json:"year,omitempty"`
	CategoryID   string    `json:"categoryId,omitempty"`
	CategoryName string    `json:"categoryName,omitempty"`
	Month        int       `json:"month,omitempty"`
	Value        int64     `json:"value,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewIncomeEvent stamps a message with the current time.
func NewIncomeEvent(eventType string) *IncomeEventMessage {
	return &IncomeEventMessage{
		Type:      eventType,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *IncomeEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// IncomeEventFromJSON creates a message from JSON bytes.
func IncomeEventFromJSON(data []byte) (*IncomeEventMessage, error) {
	var msg IncomeEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
