package hub

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/pscheid92/tablehub/internal/domain"
	"github.com/pscheid92/tablehub/internal/metrics"
	apperrors "github.com/pscheid92/tablehub/internal/platform/errors"
	"github.com/pscheid92/tablehub/internal/protocol"
	"github.com/pscheid92/tablehub/internal/state"
)

// emission is one outbound event produced by a mutation.
type emission struct {
	event      protocol.EventName
	payload    any
	recipients domain.Recipients
}

type mutationHandler func(s *state.Store, req protocol.Request) []emission

// handlerFor adapts a typed handler to the dispatch table signature.
func handlerFor[R protocol.Request](fn func(*state.Store, R) []emission) mutationHandler {
	return func(s *state.Store, req protocol.Request) []emission {
		typed, ok := req.(R)
		if !ok {
			panic(fmt.Sprintf("handler for %s received %T", req.Event(), req))
		}
		return fn(s, typed)
	}
}

func newDispatchTable(opts Options, newOrderID func() domain.ID) map[protocol.EventName]mutationHandler {
	return map[protocol.EventName]mutationHandler{
		protocol.EventUpdateTable: handlerFor(func(s *state.Store, req protocol.UpdateTable) []emission {
			return updateTable(s, req, opts.BroadcastTableUpdates)
		}),
		protocol.EventSendToKitchen: handlerFor(func(s *state.Store, req protocol.SendToKitchen) []emission {
			return sendToKitchen(s, req, newOrderID)
		}),
		protocol.EventUpdateKitchenStatus: handlerFor(updateKitchenStatus),
		protocol.EventBroadcastHistory:    handlerFor(mergeHistory),
		protocol.EventBroadcastStaff:      handlerFor(replaceStaff),
		protocol.EventBroadcastProducts:   handlerFor(replaceProducts),
	}
}

func randomOrderID() domain.ID {
	return domain.StringID(uuid.NewString())
}

func syncStateTo(s *state.Store, recipients domain.Recipients) emission {
	return emission{event: protocol.EventSyncState, payload: s.SyncState(), recipients: recipients}
}

func toastToAll(t domain.Toast) emission {
	return emission{event: protocol.EventToast, payload: t, recipients: domain.RecipientsAll}
}

// updateTable replaces the table with the same id wholesale, or appends it.
// Tables propagate with the next kitchen broadcast unless broadcast is set.
func updateTable(s *state.Store, req protocol.UpdateTable, broadcast bool) []emission {
	tables := s.Tables()
	if i := domain.FindTable(tables, req.Table.ID); i >= 0 {
		tables[i] = req.Table
	} else {
		tables = append(tables, req.Table)
	}
	s.ReplaceTables(tables)

	if !broadcast {
		return nil
	}
	return []emission{syncStateTo(s, domain.RecipientsAll)}
}

// sendToKitchen puts a new order at the head of the pending queue and marks its table.
func sendToKitchen(s *state.Store, req protocol.SendToKitchen, newOrderID func() domain.ID) []emission {
	order := req.Order
	if order.ID.IsZero() {
		order.ID = newOrderID()
	}
	order.SetStatus(domain.KitchenStatusNew)

	s.ReplaceKitchenOrders(append([]domain.KitchenOrder{order}, s.KitchenOrders()...))

	if !order.TableID.IsZero() {
		tables := s.Tables()
		if i := domain.FindTable(tables, order.TableID); i >= 0 {
			tables[i].SetStatus(domain.TableStatusSentToKitchen)
			s.ReplaceTables(tables)
		} else {
			slog.Debug("Order references unknown table", "order_id", order.ID.String(), "table_id", order.TableID.String())
		}
	}

	return []emission{
		syncStateTo(s, domain.RecipientsAll),
		toastToAll(domain.Toast{Message: "New Order in Kitchen!", Type: domain.ToastInfo, RoleTarget: domain.RoleChef}),
	}
}

// updateKitchenStatus moves a pending order forward. Ready orders leave the queue.
func updateKitchenStatus(s *state.Store, req protocol.UpdateKitchenStatus) []emission {
	orders := s.KitchenOrders()
	i := domain.FindKitchenOrder(orders, req.OrderID)
	if i < 0 {
		notFound := apperrors.NotFoundError("kitchen order not found").
			WithField("order_id", req.OrderID.String()).
			WithField("next_status", string(req.NextStatus))
		slog.Debug("Ignoring status change", notFound.LogAttrs()...)
		return nil
	}
	orders[i].SetStatus(req.NextStatus)
	order := orders[i]

	var out []emission
	tables := s.Tables()
	if t := domain.FindTable(tables, order.TableID); t >= 0 {
		switch req.NextStatus {
		case domain.KitchenStatusPreparing:
			tables[t].SetStatus(domain.TableStatusPreparing)
		case domain.KitchenStatusReady:
			tables[t].SetStatus(domain.TableStatusReadyToServe)
			out = append(out, toastToAll(domain.Toast{
				Message:    fmt.Sprintf("Order for %s is Ready!", tables[t].ID),
				Type:       domain.ToastSuccess,
				RoleTarget: domain.RoleWaiter,
			}))
		}
		s.ReplaceTables(tables)
	}

	if req.NextStatus == domain.KitchenStatusReady {
		orders = slices.Delete(orders, i, i+1)
	}
	s.ReplaceKitchenOrders(orders)

	return append(out, syncStateTo(s, domain.RecipientsAll))
}

// mergeHistory accepts the candidate only when it is at least as long as the current history.
// Two divergent histories of equal length resolve to whichever arrives last.
func mergeHistory(s *state.Store, req protocol.BroadcastHistory) []emission {
	current := len(s.OrderHistory())
	if len(req.History) < current {
		metrics.HistoryMergesTotal.WithLabelValues("rejected").Inc()
		slog.Debug("History candidate shorter than current, ignoring", "candidate_length", len(req.History), "current_length", current)
		return nil
	}
	if len(req.History) == current && current > 0 {
		slog.Debug("History replaced by candidate of equal length", "length", current)
	}

	s.ReplaceOrderHistory(req.History)
	metrics.HistoryMergesTotal.WithLabelValues("accepted").Inc()
	return []emission{{event: protocol.EventSyncHistory, payload: s.OrderHistory(), recipients: domain.RecipientsOthers}}
}

func replaceStaff(s *state.Store, req protocol.BroadcastStaff) []emission {
	s.ReplaceStaff(req.Staff)
	return []emission{{event: protocol.EventSyncStaff, payload: s.Staff(), recipients: domain.RecipientsOthers}}
}

func replaceProducts(s *state.Store, req protocol.BroadcastProducts) []emission {
	s.ReplaceProducts(req.Products)
	return []emission{{event: protocol.EventSyncProducts, payload: s.Products(), recipients: domain.RecipientsOthers}}
}

// bootstrap is what a freshly connected client receives before any broadcast.
func bootstrap(s *state.Store, includeState bool) []emission {
	out := []emission{{event: protocol.EventSyncHistory, payload: s.OrderHistory(), recipients: domain.RecipientsOriginator}}
	if staff := s.Staff(); len(staff) > 0 {
		out = append(out, emission{event: protocol.EventSyncStaff, payload: staff, recipients: domain.RecipientsOriginator})
	}
	if products := s.Products(); len(products) > 0 {
		out = append(out, emission{event: protocol.EventSyncProducts, payload: products, recipients: domain.RecipientsOriginator})
	}
	if includeState {
		out = append(out, syncStateTo(s, domain.RecipientsOriginator))
	}
	return out
}
