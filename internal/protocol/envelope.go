package protocol

import (
	"encoding/json"
	"fmt"
)

// EventName is the name carried in a frame's envelope.
type EventName string

// Inbound events (client to hub).
const (
	EventUpdateTable         EventName = "update_table"
	EventSendToKitchen       EventName = "send_to_kitchen"
	EventUpdateKitchenStatus EventName = "update_kitchen_status"
	EventBroadcastHistory    EventName = "broadcast_history"
	EventBroadcastStaff      EventName = "broadcast_staff"
	EventBroadcastProducts   EventName = "broadcast_products"
)

// Outbound events (hub to client).
const (
	EventSyncState    EventName = "sync_state"
	EventSyncHistory  EventName = "sync_history"
	EventSyncStaff    EventName = "sync_staff"
	EventSyncProducts EventName = "sync_products"
	EventToast        EventName = "toast"
)

// Envelope is the JSON shape of every frame.
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Encode wraps payload in an envelope for the given event.
func Encode(event EventName, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", event, err)
	}
	return frame, nil
}
