package amqp

import (
	"encoding/json"
	"time"
)

// Reasons carried by a LedgerSyncMessage.
const (
	ReasonEntryCreated    = "entry_created"
	ReasonEntryDeleted    = "entry_deleted"
	ReasonImport          = "import"
	ReasonSettingsUpdated = "settings_updated"
)

// LedgerSyncMessage notifies the sync worker that the ledger changed.
// The worker recomputes the report from storage, so the message only
// carries the reason and, when applicable, the entry involved.
type LedgerSyncMessage struct {
	Reason    string    `json:"reason"`
	EntryID   int64     `json:"entry_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerSyncMessage(reason string, entryID int64) *LedgerSyncMessage {
	return &LedgerSyncMessage{
		Reason:    reason,
		EntryID:   entryID,
		Timestamp: time.Now(),
	}
}

func (m *LedgerSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerSyncMessageFromJSON(data []byte) (*LedgerSyncMessage, error) {
	var msg LedgerSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
