package entity

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrHoldNotActive          = errors.New("ticket hold is not active")
	ErrLinkNotUsable          = errors.New("purchase link is not usable")
	ErrUserNotAuthorized      = errors.New("user is not authorized for this purchase link")
	ErrNoAllocation           = errors.New("ticket type is not allocated to this hold")
	ErrAllocationHasPurchases = errors.New("allocation has recorded purchases and cannot be removed")
)

// InsufficientInventoryError is returned at hold create/update time when the
// requested allocation does not fit the remaining public inventory.
type InsufficientInventoryError struct {
	TicketTypeName string
	Requested      int
	Available      int
}

func (e InsufficientInventoryError) Error() string {
	return fmt.Sprintf(
		"insufficient inventory for %q: requested %d, available %d",
		e.TicketTypeName, e.Requested, e.Available,
	)
}

// InsufficientHoldInventoryError is returned at purchase time when a line
// asks for more units than the allocation has left.
type InsufficientHoldInventoryError struct {
	TicketTypeID string
	Requested    int
	Remaining    int
}

func (e InsufficientHoldInventoryError) Error() string {
	return fmt.Sprintf(
		"insufficient hold inventory for ticket type %s: requested %d, remaining %d",
		e.TicketTypeID, e.Requested, e.Remaining,
	)
}
