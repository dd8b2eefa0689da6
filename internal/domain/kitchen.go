package domain

import "fmt"

// KitchenStatus is the lifecycle state of a kitchen order. Orders leave the
// pending queue once they reach KitchenStatusReady.
type KitchenStatus string

const (
	KitchenStatusNew       KitchenStatus = "new"
	KitchenStatusPreparing KitchenStatus = "preparing"
	KitchenStatusReady     KitchenStatus = "ready"
)

func (s KitchenStatus) Valid() bool {
	switch s {
	case KitchenStatusNew, KitchenStatusPreparing, KitchenStatusReady:
		return true
	default:
		return false
	}
}

// KitchenOrder is an order waiting in the kitchen. Items, quantities and any other
// client payload are carried in Extra untouched.
type KitchenOrder struct {
	ID      ID            `json:"id"`
	TableID ID            `json:"tableId"`
	Status  KitchenStatus `json:"status"`

	Extra Fields `json:"-"`
}

type plainKitchenOrder KitchenOrder

func (o KitchenOrder) MarshalJSON() ([]byte, error) {
	return withFields(plainKitchenOrder(o), o.Extra)
}

// UnmarshalJSON is strict about the ids the hub matches on. The status is
// overwritten by the hub on every transition, so a mistyped one is kept as sent.
func (o *KitchenOrder) UnmarshalJSON(data []byte) error {
	d, err := newObjectDecoder(data)
	if err != nil {
		return fmt.Errorf("decode kitchen order: %w", err)
	}

	var out KitchenOrder
	if err := decodeStrict(d, "id", &out.ID); err != nil {
		return fmt.Errorf("decode kitchen order: %w", err)
	}
	if err := decodeStrict(d, "tableId", &out.TableID); err != nil {
		return fmt.Errorf("decode kitchen order: %w", err)
	}
	decodeLenient(d, "status", &out.Status)
	out.Extra = d.rest()

	*o = out
	return nil
}

// SetStatus overwrites the status, including one the client sent with an unexpected type.
func (o *KitchenOrder) SetStatus(status KitchenStatus) {
	o.Status = status
	o.Extra = withoutField(o.Extra, "status")
}

// FindKitchenOrder returns the index of the order with the given id, or -1.
func FindKitchenOrder(orders []KitchenOrder, id ID) int {
	for i := range orders {
		if orders[i].ID == id {
			return i
		}
	}
	return -1
}
