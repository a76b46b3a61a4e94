package lifecycle

// OrderStatus is the status of a purchase order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// PawahStatus is the status of a pawah project.
type PawahStatus string

const (
	PawahOpen       PawahStatus = "open"
	PawahAccepted   PawahStatus = "accepted"
	PawahInProgress PawahStatus = "in_progress"
	PawahCompleted  PawahStatus = "completed"
	PawahCancelled  PawahStatus = "cancelled"
)

// Order actions as submitted by buyers and sellers.
const (
	ActionCancel        = "cancel"
	ActionMarkPaid      = "mark_paid"
	ActionMarkShipped   = "mark_shipped"
	ActionMarkCompleted = "mark_completed"
)

var orderActions = map[string]OrderStatus{
	ActionCancel:        OrderCancelled,
	ActionMarkPaid:      OrderPaid,
	ActionMarkShipped:   OrderShipped,
	ActionMarkCompleted: OrderCompleted,
}

// OrderTransitions lists, per state, the states an order may move to.
// States without an entry are terminal.
var OrderTransitions = map[OrderStatus]map[OrderStatus]bool{
	OrderPending: {OrderPaid: true, OrderCancelled: true},
	OrderPaid:    {OrderShipped: true, OrderCompleted: true},
	OrderShipped: {OrderCompleted: true},
}

// PawahTransitions lists, per state, the states a project may move to.
// open -> accepted only happens through acceptance, never through Advance.
var PawahTransitions = map[PawahStatus]map[PawahStatus]bool{
	PawahOpen:       {PawahAccepted: true},
	PawahAccepted:   {PawahInProgress: true, PawahCompleted: true, PawahCancelled: true},
	PawahInProgress: {PawahCompleted: true, PawahCancelled: true},
}

// TargetForAction maps a symbolic order action to the status it requests.
func TargetForAction(action string) (OrderStatus, bool) {
	s, ok := orderActions[action]
	return s, ok
}

// AllowedOrder returns the statuses reachable in one step from current.
func AllowedOrder(current OrderStatus) []OrderStatus {
	return keys(OrderTransitions[current])
}

// AllowedPawah returns the statuses reachable in one step from current.
func AllowedPawah(current PawahStatus) []PawahStatus {
	return keys(PawahTransitions[current])
}

// CanTransitionOrder reports whether an order may move from one status to another.
func CanTransitionOrder(from, to OrderStatus) bool {
	return OrderTransitions[from][to]
}

// CanTransitionPawah reports whether a project may move from one status to another.
func CanTransitionPawah(from, to PawahStatus) bool {
	return PawahTransitions[from][to]
}

// IsAdvanceTarget reports whether s can be requested through a plain status
// change (as opposed to acceptance).
func IsAdvanceTarget(s PawahStatus) bool {
	return s == PawahInProgress || s == PawahCompleted || s == PawahCancelled
}

func (s OrderStatus) Terminal() bool { return len(OrderTransitions[s]) == 0 }

func (s PawahStatus) Terminal() bool { return len(PawahTransitions[s]) == 0 }

func keys[S ~string](m map[S]bool) []S {
	out := make([]S, 0, len(m))
	for k, ok := range m {
		if ok {
			out = append(out, k)
		}
	}
	return out
}
