package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fina/internal/core"
)

// Event kinds carried by LedgerEvent.
const (
	KindTransactionCreated = "transaction.created"
	KindTransactionUpdated = "transaction.updated"
	KindTransactionDeleted = "transaction.deleted"
)

// LedgerEvent announces a committed ledger change. It carries a snapshot of
// the transaction so consumers never read back from the store.
type LedgerEvent struct {
	Kind        string           `json:"kind"`
	UserID      int64            `json:"user_id"`
	Transaction core.Transaction `json:"transaction"`
	Timestamp   time.Time        `json:"timestamp"`
}

func NewLedgerEvent(kind string, tx core.Transaction) *LedgerEvent {
	return &LedgerEvent{
		Kind:        kind,
		UserID:      tx.UserID,
		Transaction: tx,
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and checks an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Kind {
	case KindTransactionCreated, KindTransactionUpdated, KindTransactionDeleted:
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return &e, nil
}
