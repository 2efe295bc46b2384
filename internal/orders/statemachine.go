package orders

import (
	"fmt"

	"github.com/hatbazar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/hatbazar/marketplace-backend/pkg/errors"
)

// validTransitions is the full order lifecycle. Transitions move forward
// only; terminal states have no exits.
var validTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered},
	enums.OrderStatusDelivered:  {enums.OrderStatusReturned},
	enums.OrderStatusCancelled:  {},
	enums.OrderStatusReturned:   {},
}

// CanTransition reports whether from→to is a legal lifecycle step.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a typed state-conflict error for an illegal step.
func ValidateTransition(from, to enums.OrderStatus) error {
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", to))
	}
	if !CanTransition(from, to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot transition order from %s to %s", from, to))
	}
	return nil
}
