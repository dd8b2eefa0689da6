package domain

import "encoding/json"

// HistoryRecord is a finalized order entry. The hub never looks inside it.
type HistoryRecord = json.RawMessage

// StaffMember is one entry of the staff roster, relayed verbatim.
type StaffMember = json.RawMessage

// Product is one entry of the product catalog, relayed verbatim.
type Product = json.RawMessage
