package amqp

import (
	"encoding/json"
	"time"
)

// Ledger event types. The consumer recomputes the affected month's report.
const (
	TransactionCreated    = "transaction.created"
	TransactionUpdated    = "transaction.updated"
	TransactionDeleted    = "transaction.deleted"
	CategoryCreated       = "category.created"
	CategoryUpdated       = "category.updated"
	CategoryDeleted       = "category.deleted"
	BudgetUpserted        = "budget.upserted"
	CategoryBudgetUpdated = "category_budget.upserted"
)

// LedgerEvent notifies listeners that a user's ledger changed.
// MonthKey is empty when the change is not tied to one month.
type LedgerEvent struct {
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	EntityID  string    `json:"entity_id"`
	MonthKey  string    `json:"month_key,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(eventType, userID, entityID, monthKey string) *LedgerEvent {
	return &LedgerEvent{
		Type:      eventType,
		UserID:    userID,
		EntityID:  entityID,
		MonthKey:  monthKey,
		Timestamp: time.Now(),
	}
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
