package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderPending, OrderPaid, true},
		{OrderPending, OrderCancelled, true},
		{OrderPending, OrderShipped, false},
		{OrderPending, OrderCompleted, false},
		{OrderPaid, OrderShipped, true},
		{OrderPaid, OrderCompleted, true},
		{OrderPaid, OrderCancelled, false},
		{OrderShipped, OrderCompleted, true},
		{OrderShipped, OrderCancelled, false},
		{OrderCompleted, OrderCancelled, false},
		{OrderCancelled, OrderPending, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, CanTransitionOrder(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestOrderReachability(t *testing.T) {
	seen := map[OrderStatus]bool{OrderPending: true}
	queue := []OrderStatus{OrderPending}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range AllowedOrder(cur) {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	assert.Len(t, seen, 5)
	assert.True(t, OrderCompleted.Terminal())
	assert.True(t, OrderCancelled.Terminal())
	assert.False(t, OrderPending.Terminal())
}

func TestPawahTransitions(t *testing.T) {
	assert.ElementsMatch(t, []PawahStatus{PawahAccepted}, AllowedPawah(PawahOpen))
	assert.ElementsMatch(t, []PawahStatus{PawahInProgress, PawahCompleted, PawahCancelled}, AllowedPawah(PawahAccepted))
	assert.ElementsMatch(t, []PawahStatus{PawahCompleted, PawahCancelled}, AllowedPawah(PawahInProgress))
	assert.Empty(t, AllowedPawah(PawahCompleted))
	assert.Empty(t, AllowedPawah(PawahCancelled))

	assert.False(t, CanTransitionPawah(PawahOpen, PawahInProgress))
	assert.False(t, CanTransitionPawah(PawahInProgress, PawahAccepted))
}

func TestTargetForAction(t *testing.T) {
	s, ok := TargetForAction(ActionMarkShipped)
	assert.True(t, ok)
	assert.Equal(t, OrderShipped, s)

	_, ok = TargetForAction("refund")
	assert.False(t, ok)
}

func TestIsAdvanceTarget(t *testing.T) {
	assert.True(t, IsAdvanceTarget(PawahInProgress))
	assert.True(t, IsAdvanceTarget(PawahCancelled))
	assert.False(t, IsAdvanceTarget(PawahAccepted))
	assert.False(t, IsAdvanceTarget(PawahOpen))
}
