package protocol

import (
	"bytes"
	"encoding/json"

	"github.com/pscheid92/tablehub/internal/domain"
	apperrors "github.com/pscheid92/tablehub/internal/platform/errors"
)

// Request is one decoded inbound event. The concrete type identifies the event.
type Request interface {
	Event() EventName
}

// UpdateTable upserts a table by id.
type UpdateTable struct {
	Table domain.Table
}

// SendToKitchen enqueues a new kitchen order. Order.ID is zero when the client did not send one.
type SendToKitchen struct {
	Order domain.KitchenOrder
}

// UpdateKitchenStatus moves a pending order to NextStatus.
type UpdateKitchenStatus struct {
	OrderID    domain.ID            `json:"orderId"`
	NextStatus domain.KitchenStatus `json:"nextStatus"`
}

// BroadcastHistory proposes a replacement for the order history.
type BroadcastHistory struct {
	History []domain.HistoryRecord
}

// BroadcastStaff replaces the staff roster.
type BroadcastStaff struct {
	Staff []domain.StaffMember
}

// BroadcastProducts replaces the product catalog.
type BroadcastProducts struct {
	Products []domain.Product
}

func (UpdateTable) Event() EventName         { return EventUpdateTable }
func (SendToKitchen) Event() EventName       { return EventSendToKitchen }
func (UpdateKitchenStatus) Event() EventName { return EventUpdateKitchenStatus }
func (BroadcastHistory) Event() EventName    { return EventBroadcastHistory }
func (BroadcastStaff) Event() EventName      { return EventBroadcastStaff }
func (BroadcastProducts) Event() EventName   { return EventBroadcastProducts }

type decodeFunc func(data json.RawMessage) (Request, error)

var decoders = map[EventName]decodeFunc{
	EventUpdateTable:         decodeUpdateTable,
	EventSendToKitchen:       decodeSendToKitchen,
	EventUpdateKitchenStatus: decodeUpdateKitchenStatus,
	EventBroadcastHistory:    decodeBroadcastHistory,
	EventBroadcastStaff:      decodeBroadcastStaff,
	EventBroadcastProducts:   decodeBroadcastProducts,
}

// IsInbound reports whether name is an event clients may send.
func IsInbound(name EventName) bool {
	_, ok := decoders[name]
	return ok
}

// Decode parses an inbound frame. Failures are structured validation errors
// carrying the event name.
func Decode(frame []byte) (Request, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, apperrors.ValidationErrorf(err, "malformed envelope")
	}
	if env.Event == "" {
		return nil, apperrors.ValidationError("missing event name")
	}

	decode, ok := decoders[env.Event]
	if !ok {
		return nil, apperrors.ValidationError("unknown event").WithField("event", string(env.Event))
	}

	req, err := decode(env.Data)
	if err != nil {
		return nil, apperrors.AsStructuredError(err).WithField("event", string(env.Event))
	}
	return req, nil
}

func decodeUpdateTable(data json.RawMessage) (Request, error) {
	if !isObject(data) {
		return nil, apperrors.ValidationError("table must be an object")
	}
	var table domain.Table
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, apperrors.ValidationErrorf(err, "invalid table")
	}
	if table.ID.IsZero() {
		return nil, apperrors.ValidationError("table id is required")
	}
	return UpdateTable{Table: table}, nil
}

func decodeSendToKitchen(data json.RawMessage) (Request, error) {
	if !isObject(data) {
		return nil, apperrors.ValidationError("order must be an object")
	}
	var order domain.KitchenOrder
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, apperrors.ValidationErrorf(err, "invalid order")
	}
	return SendToKitchen{Order: order}, nil
}

func decodeUpdateKitchenStatus(data json.RawMessage) (Request, error) {
	if !isObject(data) {
		return nil, apperrors.ValidationError("status change must be an object")
	}
	var req UpdateKitchenStatus
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, apperrors.ValidationErrorf(err, "invalid status change")
	}
	if req.OrderID.IsZero() {
		return nil, apperrors.ValidationError("orderId is required")
	}
	if !req.NextStatus.Valid() {
		return nil, apperrors.ValidationError("unsupported nextStatus").WithField("next_status", string(req.NextStatus))
	}
	return req, nil
}

func decodeBroadcastHistory(data json.RawMessage) (Request, error) {
	if isNull(data) {
		return nil, apperrors.ValidationError("history must not be null")
	}
	history, err := decodeList(data, "history")
	if err != nil {
		return nil, err
	}
	return BroadcastHistory{History: history}, nil
}

func decodeBroadcastStaff(data json.RawMessage) (Request, error) {
	staff, err := decodeList(data, "staff")
	if err != nil {
		return nil, err
	}
	return BroadcastStaff{Staff: staff}, nil
}

func decodeBroadcastProducts(data json.RawMessage) (Request, error) {
	products, err := decodeList(data, "products")
	if err != nil {
		return nil, err
	}
	return BroadcastProducts{Products: products}, nil
}

// decodeList decodes a JSON array of opaque values. null (or a missing payload)
// yields an empty list.
func decodeList(data json.RawMessage, what string) ([]json.RawMessage, error) {
	if isNull(data) {
		return []json.RawMessage{}, nil
	}
	if !isArray(data) {
		return nil, apperrors.ValidationError(what + " must be an array")
	}
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, apperrors.ValidationErrorf(err, "invalid %s", what)
	}
	return list, nil
}

func isNull(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func isObject(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func isArray(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '['
}
