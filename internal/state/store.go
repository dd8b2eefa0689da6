package state

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/pscheid92/tablehub/internal/domain"
)

const (
	defaultTableBackground = "bg-gray-100"
	defaultTableText       = "text-gray-400"
)

// Snapshot is a point-in-time copy of every collection in the Store.
type Snapshot struct {
	Tables        []domain.Table         `json:"tables"`
	KitchenOrders []domain.KitchenOrder  `json:"kitchenOrders"`
	OrderHistory  []domain.HistoryRecord `json:"orderHistory"`
	Staff         []domain.StaffMember   `json:"staff"`
	Products      []domain.Product       `json:"products"`
}

// Store is the Shared State Store. Getters return copies of the collection slice;
// the only way to change a collection is to replace it.
type Store struct {
	tables        []domain.Table
	kitchenOrders []domain.KitchenOrder
	orderHistory  []domain.HistoryRecord
	staff         []domain.StaffMember
	products      []domain.Product
}

// NewStore creates a Store seeded with the given tables. Every other collection starts empty.
func NewStore(tables []domain.Table) *Store {
	s := &Store{}
	s.ReplaceTables(tables)
	s.ReplaceKitchenOrders(nil)
	s.ReplaceOrderHistory(nil)
	s.ReplaceStaff(nil)
	s.ReplaceProducts(nil)
	return s
}

// DefaultTables returns n fresh tables named T1..Tn, all Available.
func DefaultTables(n int) []domain.Table {
	tables := make([]domain.Table, 0, n)
	for i := 1; i <= n; i++ {
		tables = append(tables, domain.Table{
			ID:         domain.StringID(fmt.Sprintf("T%d", i)),
			Name:       string(domain.TableStatusAvailable),
			Status:     domain.TableStatusAvailable,
			Background: defaultTableBackground,
			Text:       defaultTableText,
			Cart:       []json.RawMessage{},
			PayRecords: []json.RawMessage{},
		})
	}
	return tables
}

func (s *Store) Tables() []domain.Table {
	return slices.Clone(s.tables)
}

func (s *Store) ReplaceTables(tables []domain.Table) {
	s.tables = cloneOrEmpty(tables)
}

func (s *Store) KitchenOrders() []domain.KitchenOrder {
	return slices.Clone(s.kitchenOrders)
}

func (s *Store) ReplaceKitchenOrders(orders []domain.KitchenOrder) {
	s.kitchenOrders = cloneOrEmpty(orders)
}

func (s *Store) OrderHistory() []domain.HistoryRecord {
	return slices.Clone(s.orderHistory)
}

func (s *Store) ReplaceOrderHistory(history []domain.HistoryRecord) {
	s.orderHistory = cloneOrEmpty(history)
}

func (s *Store) Staff() []domain.StaffMember {
	return slices.Clone(s.staff)
}

func (s *Store) ReplaceStaff(staff []domain.StaffMember) {
	s.staff = cloneOrEmpty(staff)
}

func (s *Store) Products() []domain.Product {
	return slices.Clone(s.products)
}

func (s *Store) ReplaceProducts(products []domain.Product) {
	s.products = cloneOrEmpty(products)
}

// SyncState returns the table and kitchen view pushed to clients as sync_state.
func (s *Store) SyncState() domain.SyncState {
	return domain.SyncState{
		Tables:        s.Tables(),
		KitchenOrders: s.KitchenOrders(),
	}
}

func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		Tables:        s.Tables(),
		KitchenOrders: s.KitchenOrders(),
		OrderHistory:  s.OrderHistory(),
		Staff:         s.Staff(),
		Products:      s.Products(),
	}
}

// cloneOrEmpty copies in, never returning nil so collections encode as [] on the wire.
func cloneOrEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return slices.Clone(in)
}

// Counts reports collection sizes without copying them.
func (s *Store) Counts() (tables, pendingOrders, history int) {
	return len(s.tables), len(s.kitchenOrders), len(s.orderHistory)
}
