package state

import (
	"encoding/json"
	"testing"

	"github.com/pscheid92/tablehub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTables(t *testing.T) {
	tables := DefaultTables(6)

	require.Len(t, tables, 6)
	for i, table := range tables {
		assert.Equal(t, domain.StringID("T"+string(rune('1'+i))), table.ID)
		assert.Equal(t, domain.TableStatusAvailable, table.Status)
		assert.Equal(t, "Available", table.Name)
		assert.Equal(t, "bg-gray-100", table.Background)
		assert.Equal(t, "text-gray-400", table.Text)
		assert.Empty(t, table.Cart)
		assert.NotNil(t, table.Cart)
		assert.Nil(t, table.LockedBy)
		assert.Nil(t, table.WaiterName)
		assert.Nil(t, table.OpenedAt)
	}
}

func TestNewStore_OtherCollectionsStartEmpty(t *testing.T) {
	store := NewStore(DefaultTables(2))

	snapshot := store.Snapshot()
	assert.Len(t, snapshot.Tables, 2)
	assert.NotNil(t, snapshot.KitchenOrders)
	assert.Empty(t, snapshot.KitchenOrders)
	assert.NotNil(t, snapshot.OrderHistory)
	assert.Empty(t, snapshot.OrderHistory)
	assert.NotNil(t, snapshot.Staff)
	assert.NotNil(t, snapshot.Products)

	out, err := json.Marshal(snapshot)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"kitchenOrders":[]`)
	assert.Contains(t, string(out), `"orderHistory":[]`)
}

func TestStore_GettersReturnCopies(t *testing.T) {
	store := NewStore(DefaultTables(1))

	tables := store.Tables()
	tables[0].Status = domain.TableStatusPreparing

	assert.Equal(t, domain.TableStatusAvailable, store.Tables()[0].Status, "mutating a copy must not leak into the store")

	store.ReplaceTables(tables)
	assert.Equal(t, domain.TableStatusPreparing, store.Tables()[0].Status)
}

func TestStore_ReplaceCopiesInput(t *testing.T) {
	store := NewStore(nil)
	history := []domain.HistoryRecord{json.RawMessage(`{"id":1}`)}

	store.ReplaceOrderHistory(history)
	history[0] = json.RawMessage(`{"id":2}`)

	assert.JSONEq(t, `{"id":1}`, string(store.OrderHistory()[0]))
}

func TestStore_ReplaceWithNilStoresEmpty(t *testing.T) {
	store := NewStore(DefaultTables(1))
	store.ReplaceStaff([]domain.StaffMember{json.RawMessage(`{"name":"Mia"}`)})

	store.ReplaceStaff(nil)
	store.ReplaceTables(nil)

	assert.NotNil(t, store.Staff())
	assert.Empty(t, store.Staff())
	assert.Empty(t, store.Tables())
}

func TestStore_SyncState(t *testing.T) {
	store := NewStore(DefaultTables(2))
	store.ReplaceKitchenOrders([]domain.KitchenOrder{{ID: domain.StringID("o1"), TableID: domain.StringID("T1"), Status: domain.KitchenStatusNew}})

	syncState := store.SyncState()

	assert.Len(t, syncState.Tables, 2)
	require.Len(t, syncState.KitchenOrders, 1)
	assert.Equal(t, domain.StringID("o1"), syncState.KitchenOrders[0].ID)
}

func TestStore_Counts(t *testing.T) {
	s := NewStore(DefaultTables(4))
	s.ReplaceKitchenOrders([]domain.KitchenOrder{{ID: domain.StringID("o1")}})

	tables, pending, history := s.Counts()
	assert.Equal(t, 4, tables)
	assert.Equal(t, 1, pending)
	assert.Equal(t, 0, history)
}
