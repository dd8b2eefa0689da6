package hub

import (
	"encoding/json"
	"testing"

	"github.com/pscheid92/tablehub/internal/domain"
	"github.com/pscheid92/tablehub/internal/protocol"
	"github.com/pscheid92/tablehub/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRequest(t *testing.T, frame string) protocol.Request {
	t.Helper()
	req, err := protocol.Decode([]byte(frame))
	require.NoError(t, err)
	return req
}

func fixedOrderID(id string) func() domain.ID {
	return func() domain.ID { return domain.StringID(id) }
}

func eventsOf(emissions []emission) []protocol.EventName {
	names := make([]protocol.EventName, 0, len(emissions))
	for _, e := range emissions {
		names = append(names, e.event)
	}
	return names
}

func rawList(items ...string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		out = append(out, json.RawMessage(item))
	}
	return out
}

func TestUpdateTable_AppendsUnknownTableOnce(t *testing.T) {
	s := state.NewStore(state.DefaultTables(6))
	req := decodeRequest(t, `{"event":"update_table","data":{"id":"T7","name":"Patio","status":"Available"}}`).(protocol.UpdateTable)

	emissions := updateTable(s, req, false)

	assert.Empty(t, emissions)
	tables := s.Tables()
	require.Len(t, tables, 7)
	assert.Equal(t, domain.StringID("T7"), tables[6].ID)
	assert.Equal(t, "Patio", tables[6].Name)
}

func TestUpdateTable_ReplacesExistingTableWholesale(t *testing.T) {
	waiter := "Ana"
	seed := state.DefaultTables(2)
	seed[0].WaiterName = &waiter
	seed[0].Cart = rawList(`{"sku":"tea"}`)
	s := state.NewStore(seed)

	req := decodeRequest(t, `{"event":"update_table","data":{"id":"T1","name":"Window","status":"Occupied"}}`).(protocol.UpdateTable)
	updateTable(s, req, false)

	tables := s.Tables()
	require.Len(t, tables, 2)
	assert.Equal(t, "Window", tables[0].Name)
	assert.Equal(t, domain.TableStatus("Occupied"), tables[0].Status)
	assert.Nil(t, tables[0].WaiterName, "unspecified fields are not merged")
	assert.Empty(t, tables[0].Cart)
	assert.Empty(t, tables[0].Background)
}

func TestUpdateTable_BroadcastOption(t *testing.T) {
	s := state.NewStore(state.DefaultTables(1))
	req := decodeRequest(t, `{"event":"update_table","data":{"id":"T1","name":"A"}}`).(protocol.UpdateTable)

	emissions := updateTable(s, req, true)

	require.Len(t, emissions, 1)
	assert.Equal(t, protocol.EventSyncState, emissions[0].event)
	assert.Equal(t, domain.RecipientsAll, emissions[0].recipients)
}

func TestSendToKitchen_Scenario(t *testing.T) {
	s := state.NewStore(state.DefaultTables(6))
	req := decodeRequest(t, `{"event":"send_to_kitchen","data":{"id":"o1","tableId":"T1","items":[{"name":"Soup","qty":2}]}}`).(protocol.SendToKitchen)

	emissions := sendToKitchen(s, req, fixedOrderID("unused"))

	orders := s.KitchenOrders()
	require.Len(t, orders, 1)
	assert.Equal(t, domain.StringID("o1"), orders[0].ID)
	assert.Equal(t, domain.KitchenStatusNew, orders[0].Status)
	assert.JSONEq(t, `[{"name":"Soup","qty":2}]`, string(orders[0].Extra["items"]))
	assert.Equal(t, domain.TableStatusSentToKitchen, s.Tables()[0].Status)

	assert.Equal(t, []protocol.EventName{protocol.EventSyncState, protocol.EventToast}, eventsOf(emissions))
	for _, e := range emissions {
		assert.Equal(t, domain.RecipientsAll, e.recipients)
	}
	toast := emissions[1].payload.(domain.Toast)
	assert.Equal(t, domain.RoleChef, toast.RoleTarget)
	assert.Equal(t, domain.ToastInfo, toast.Type)
	assert.Equal(t, "New Order in Kitchen!", toast.Message)

	sync := emissions[0].payload.(domain.SyncState)
	assert.Len(t, sync.KitchenOrders, 1)
	assert.Equal(t, domain.TableStatusSentToKitchen, sync.Tables[0].Status)
}

func TestSendToKitchen_HeadIsMostRecent(t *testing.T) {
	s := state.NewStore(state.DefaultTables(2))

	for _, frame := range []string{
		`{"event":"send_to_kitchen","data":{"id":"a","tableId":"T1"}}`,
		`{"event":"send_to_kitchen","data":{"id":"b","tableId":"T1"}}`,
		`{"event":"send_to_kitchen","data":{"id":"c","tableId":"T2"}}`,
	} {
		sendToKitchen(s, decodeRequest(t, frame).(protocol.SendToKitchen), fixedOrderID("unused"))
	}

	orders := s.KitchenOrders()
	require.Len(t, orders, 3)
	assert.Equal(t, domain.StringID("c"), orders[0].ID)
	assert.Equal(t, domain.StringID("b"), orders[1].ID)
	assert.Equal(t, domain.StringID("a"), orders[2].ID)
}

func TestSendToKitchen_GeneratesMissingIDAndForcesNew(t *testing.T) {
	s := state.NewStore(state.DefaultTables(1))
	req := decodeRequest(t, `{"event":"send_to_kitchen","data":{"tableId":"T1","status":"ready"}}`).(protocol.SendToKitchen)

	sendToKitchen(s, req, fixedOrderID("generated"))

	orders := s.KitchenOrders()
	require.Len(t, orders, 1)
	assert.Equal(t, domain.StringID("generated"), orders[0].ID)
	assert.Equal(t, domain.KitchenStatusNew, orders[0].Status)
}

func TestSendToKitchen_NumericStatusBecomesNew(t *testing.T) {
	s := state.NewStore(state.DefaultTables(1))
	s.ReplaceTables([]domain.Table{{ID: domain.StringID("T1"), Status: domain.TableStatusAvailable, Extra: domain.Fields{"status": json.RawMessage(`4`)}}})
	req := decodeRequest(t, `{"event":"send_to_kitchen","data":{"id":"o1","tableId":"T1","status":0}}`).(protocol.SendToKitchen)

	emissions := sendToKitchen(s, req, fixedOrderID("unused"))

	sync := emissions[0].payload.(domain.SyncState)
	out, err := json.Marshal(sync)
	require.NoError(t, err)

	var decoded struct {
		Tables        []map[string]any `json:"tables"`
		KitchenOrders []map[string]any `json:"kitchenOrders"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Len(t, decoded.KitchenOrders, 1)
	assert.Equal(t, "new", decoded.KitchenOrders[0]["status"])
	assert.Equal(t, "Sent to Kitchen", decoded.Tables[0]["status"])
}

func TestUpdateTable_KeepsMistypedDisplayFields(t *testing.T) {
	s := state.NewStore(state.DefaultTables(1))
	req := decodeRequest(t, `{"event":"update_table","data":{"id":"T1","lockedBy":7,"waiterName":{"first":"Mia"}}}`).(protocol.UpdateTable)

	emissions := updateTable(s, req, true)

	require.Len(t, emissions, 1)
	out, err := json.Marshal(emissions[0].payload)
	require.NoError(t, err)

	var decoded struct {
		Tables []map[string]json.RawMessage `json:"tables"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Len(t, decoded.Tables, 1)
	assert.JSONEq(t, `7`, string(decoded.Tables[0]["lockedBy"]))
	assert.JSONEq(t, `{"first":"Mia"}`, string(decoded.Tables[0]["waiterName"]))
}

func TestSendToKitchen_UnknownTableStillQueues(t *testing.T) {
	s := state.NewStore(state.DefaultTables(1))
	req := decodeRequest(t, `{"event":"send_to_kitchen","data":{"id":"o1","tableId":"T99"}}`).(protocol.SendToKitchen)

	emissions := sendToKitchen(s, req, fixedOrderID("unused"))

	assert.Len(t, s.KitchenOrders(), 1)
	assert.Equal(t, domain.TableStatusAvailable, s.Tables()[0].Status)
	assert.Len(t, emissions, 2)
}

func kitchenStore(t *testing.T) *state.Store {
	t.Helper()
	s := state.NewStore(state.DefaultTables(6))
	s.ReplaceKitchenOrders([]domain.KitchenOrder{
		{ID: domain.StringID("X"), TableID: domain.StringID("T2"), Status: domain.KitchenStatusNew},
		{ID: domain.StringID("Y"), TableID: domain.StringID("T2"), Status: domain.KitchenStatusNew},
		{ID: domain.StringID("Z"), TableID: domain.StringID("T3"), Status: domain.KitchenStatusPreparing},
	})
	return s
}

func TestUpdateKitchenStatus_ReadyScenario(t *testing.T) {
	s := kitchenStore(t)
	req := decodeRequest(t, `{"event":"update_kitchen_status","data":{"orderId":"X","nextStatus":"ready"}}`).(protocol.UpdateKitchenStatus)

	emissions := updateKitchenStatus(s, req)

	orders := s.KitchenOrders()
	require.Len(t, orders, 2)
	assert.Equal(t, -1, domain.FindKitchenOrder(orders, domain.StringID("X")))
	assert.Equal(t, 0, domain.FindKitchenOrder(orders, domain.StringID("Y")), "orders of the same table stay")
	assert.Equal(t, domain.TableStatusReadyToServe, s.Tables()[1].Status)

	assert.Equal(t, []protocol.EventName{protocol.EventToast, protocol.EventSyncState}, eventsOf(emissions))
	toast := emissions[0].payload.(domain.Toast)
	assert.Equal(t, domain.RoleWaiter, toast.RoleTarget)
	assert.Equal(t, domain.ToastSuccess, toast.Type)
	assert.Equal(t, "Order for T2 is Ready!", toast.Message)
}

func TestUpdateKitchenStatus_Preparing(t *testing.T) {
	s := kitchenStore(t)
	req := decodeRequest(t, `{"event":"update_kitchen_status","data":{"orderId":"Y","nextStatus":"preparing"}}`).(protocol.UpdateKitchenStatus)

	emissions := updateKitchenStatus(s, req)

	orders := s.KitchenOrders()
	require.Len(t, orders, 3)
	assert.Equal(t, domain.KitchenStatusPreparing, orders[1].Status)
	assert.Equal(t, domain.TableStatusPreparing, s.Tables()[1].Status)
	assert.Equal(t, []protocol.EventName{protocol.EventSyncState}, eventsOf(emissions))
}

func TestUpdateKitchenStatus_UnknownOrderIsNoOp(t *testing.T) {
	s := kitchenStore(t)
	before := s.Snapshot()
	req := decodeRequest(t, `{"event":"update_kitchen_status","data":{"orderId":"nope","nextStatus":"ready"}}`).(protocol.UpdateKitchenStatus)

	emissions := updateKitchenStatus(s, req)

	assert.Empty(t, emissions)
	assert.Equal(t, before, s.Snapshot())
}

func TestUpdateKitchenStatus_IDKindMatters(t *testing.T) {
	s := state.NewStore(state.DefaultTables(1))
	s.ReplaceKitchenOrders([]domain.KitchenOrder{{ID: domain.NumericID(5), TableID: domain.StringID("T1"), Status: domain.KitchenStatusNew}})

	stringReq := decodeRequest(t, `{"event":"update_kitchen_status","data":{"orderId":"5","nextStatus":"ready"}}`).(protocol.UpdateKitchenStatus)
	assert.Empty(t, updateKitchenStatus(s, stringReq))
	assert.Len(t, s.KitchenOrders(), 1)

	numberReq := decodeRequest(t, `{"event":"update_kitchen_status","data":{"orderId":5,"nextStatus":"ready"}}`).(protocol.UpdateKitchenStatus)
	assert.NotEmpty(t, updateKitchenStatus(s, numberReq))
	assert.Empty(t, s.KitchenOrders())
}

func TestUpdateKitchenStatus_ReadyWithoutTableStillLeavesQueue(t *testing.T) {
	s := state.NewStore(state.DefaultTables(1))
	s.ReplaceKitchenOrders([]domain.KitchenOrder{{ID: domain.StringID("o1"), TableID: domain.StringID("gone"), Status: domain.KitchenStatusNew}})
	req := decodeRequest(t, `{"event":"update_kitchen_status","data":{"orderId":"o1","nextStatus":"ready"}}`).(protocol.UpdateKitchenStatus)

	emissions := updateKitchenStatus(s, req)

	assert.Empty(t, s.KitchenOrders())
	assert.Equal(t, []protocol.EventName{protocol.EventSyncState}, eventsOf(emissions))
}

func TestMergeHistory(t *testing.T) {
	tests := []struct {
		name      string
		current   []json.RawMessage
		candidate []json.RawMessage
		accepted  bool
	}{
		{"longer replaces", rawList(`1`), rawList(`1`, `2`), true},
		{"equal length replaces", rawList(`1`, `2`), rawList(`3`, `4`), true},
		{"empty over empty", nil, rawList(), true},
		{"shorter is ignored", rawList(`1`, `2`, `3`), rawList(`1`, `2`), false},
		{"empty never wipes history", rawList(`1`), rawList(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := state.NewStore(nil)
			s.ReplaceOrderHistory(tt.current)
			before := s.OrderHistory()

			emissions := mergeHistory(s, protocol.BroadcastHistory{History: tt.candidate})

			if !tt.accepted {
				assert.Empty(t, emissions)
				assert.Equal(t, before, s.OrderHistory())
				return
			}
			require.Len(t, emissions, 1)
			assert.Equal(t, protocol.EventSyncHistory, emissions[0].event)
			assert.Equal(t, domain.RecipientsOthers, emissions[0].recipients)
			assert.Len(t, s.OrderHistory(), len(tt.candidate))
		})
	}
}

func TestReplaceStaffAndProducts(t *testing.T) {
	s := state.NewStore(nil)
	s.ReplaceStaff(rawList(`{"name":"old"}`))

	staff := replaceStaff(s, protocol.BroadcastStaff{Staff: rawList(`{"name":"Ana"}`, `{"name":"Bo"}`)})
	products := replaceProducts(s, protocol.BroadcastProducts{Products: rawList(`{"sku":"tea"}`)})

	assert.Len(t, s.Staff(), 2)
	assert.Len(t, s.Products(), 1)
	require.Len(t, staff, 1)
	require.Len(t, products, 1)
	assert.Equal(t, protocol.EventSyncStaff, staff[0].event)
	assert.Equal(t, protocol.EventSyncProducts, products[0].event)
	assert.Equal(t, domain.RecipientsOthers, staff[0].recipients)
	assert.Equal(t, domain.RecipientsOthers, products[0].recipients)
}

func TestReplaceStaff_EmptyListClears(t *testing.T) {
	s := state.NewStore(nil)
	s.ReplaceStaff(rawList(`{"name":"Ana"}`))

	replaceStaff(s, decodeRequest(t, `{"event":"broadcast_staff","data":null}`).(protocol.BroadcastStaff))

	assert.Empty(t, s.Staff())
}

func TestBootstrap(t *testing.T) {
	t.Run("history only when catalogs are empty", func(t *testing.T) {
		s := state.NewStore(state.DefaultTables(6))
		assert.Equal(t, []protocol.EventName{protocol.EventSyncHistory}, eventsOf(bootstrap(s, false)))
	})

	t.Run("staff and products when present", func(t *testing.T) {
		s := state.NewStore(state.DefaultTables(6))
		s.ReplaceStaff(rawList(`{"name":"Ana"}`))
		s.ReplaceProducts(rawList(`{"sku":"tea"}`))
		assert.Equal(t,
			[]protocol.EventName{protocol.EventSyncHistory, protocol.EventSyncStaff, protocol.EventSyncProducts},
			eventsOf(bootstrap(s, false)))
	})

	t.Run("state when enabled", func(t *testing.T) {
		s := state.NewStore(state.DefaultTables(6))
		emissions := bootstrap(s, true)
		assert.Equal(t, []protocol.EventName{protocol.EventSyncHistory, protocol.EventSyncState}, eventsOf(emissions))
		for _, e := range emissions {
			assert.Equal(t, domain.RecipientsOriginator, e.recipients)
		}
	})
}
