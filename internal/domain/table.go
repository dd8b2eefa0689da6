package domain

import (
	"encoding/json"
	"fmt"
)

// TableStatus is the service state of a table. Clients may introduce statuses
// beyond the ones the hub sets itself.
type TableStatus string

const (
	TableStatusAvailable     TableStatus = "Available"
	TableStatusSentToKitchen TableStatus = "Sent to Kitchen"
	TableStatusPreparing     TableStatus = "Preparing"
	TableStatusReadyToServe  TableStatus = "Ready to Serve"
)

// Table is one restaurant table as seen by every device.
type Table struct {
	ID         ID                `json:"id"`
	Name       string            `json:"name"`
	Status     TableStatus       `json:"status"`
	Background string            `json:"bg"`
	Text       string            `json:"text"`
	Cart       []json.RawMessage `json:"cart"`
	LockedBy   *string           `json:"lockedBy"`
	WaiterName *string           `json:"waiterName"`
	// OpenedAt is the client's timestamp (epoch millis or ISO string), null while unset.
	OpenedAt   json.RawMessage   `json:"openedAt"`
	PayRecords []json.RawMessage `json:"payRecords"`

	Extra Fields `json:"-"`
}

type plainTable Table

func (t Table) MarshalJSON() ([]byte, error) {
	p := plainTable(t)
	if p.Cart == nil {
		p.Cart = []json.RawMessage{}
	}
	if p.PayRecords == nil {
		p.PayRecords = []json.RawMessage{}
	}
	return withFields(p, t.Extra)
}

// UnmarshalJSON only insists on a usable id. Every other attribute is display data
// the hub passes along, so a value of an unexpected type is kept as sent.
func (t *Table) UnmarshalJSON(data []byte) error {
	d, err := newObjectDecoder(data)
	if err != nil {
		return fmt.Errorf("decode table: %w", err)
	}

	var out Table
	if err := decodeStrict(d, "id", &out.ID); err != nil {
		return fmt.Errorf("decode table: %w", err)
	}
	decodeLenient(d, "name", &out.Name)
	decodeLenient(d, "status", &out.Status)
	decodeLenient(d, "bg", &out.Background)
	decodeLenient(d, "text", &out.Text)
	decodeLenient(d, "cart", &out.Cart)
	decodeLenient(d, "lockedBy", &out.LockedBy)
	decodeLenient(d, "waiterName", &out.WaiterName)
	decodeLenient(d, "openedAt", &out.OpenedAt)
	decodeLenient(d, "payRecords", &out.PayRecords)
	out.Extra = d.rest()

	if out.Cart == nil {
		out.Cart = []json.RawMessage{}
	}
	if out.PayRecords == nil {
		out.PayRecords = []json.RawMessage{}
	}
	*t = out
	return nil
}

// SetStatus overwrites the status, including one the client sent with an unexpected type.
func (t *Table) SetStatus(status TableStatus) {
	t.Status = status
	t.Extra = withoutField(t.Extra, "status")
}

// FindTable returns the index of the table with the given id, or -1.
func FindTable(tables []Table, id ID) int {
	for i := range tables {
		if tables[i].ID == id {
			return i
		}
	}
	return -1
}
