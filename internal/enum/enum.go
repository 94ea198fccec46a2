package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusPreparing = "PREPARING"
	OrderStatusReady     = "READY"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)

const (
	SessionStatusSeated    = "SEATED"
	SessionStatusOrdering  = "ORDERING"
	SessionStatusOrdered   = "ORDERED"
	SessionStatusServing   = "SERVING"
	SessionStatusDining    = "DINING"
	SessionStatusBilling   = "BILLING"
	SessionStatusCompleted = "COMPLETED"
)

const (
	BillSplitStatusPending     = "PENDING"
	BillSplitStatusPartialPaid = "PARTIAL_PAID"
	BillSplitStatusPaid        = "PAID"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleOwner   = "OWNER"
	UserRoleManager = "MANAGER"
	UserRoleWaiter  = "WAITER"
	UserRoleCook    = "COOK"
	UserRoleCashier = "CASHIER"
)

const (
	SessionOriginStaff = "STAFF"
	SessionOriginQR    = "QR"
)

const (
	SplitTypeByItem   = "by_item"
	SplitTypeByPerson = "by_person"
	SplitTypeEqual    = "equal_split"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodCard     = "CARD"
	PaymentMethodTransfer = "TRANSFER"
	PaymentMethodQR       = "QR"
	PaymentMethodOther    = "OTHER"
)

const (
	OrderActionConfirm        = "confirm"
	OrderActionStartPreparing = "start_preparing"
	OrderActionMarkReady      = "mark_ready"
	OrderActionMarkDelivered  = "mark_delivered"
)

// sessionStatusRank orders session statuses along the dining flow.
var sessionStatusRank = map[string]int{
	SessionStatusSeated:    0,
	SessionStatusOrdering:  1,
	SessionStatusOrdered:   2,
	SessionStatusServing:   3,
	SessionStatusDining:    4,
	SessionStatusBilling:   5,
	SessionStatusCompleted: 6,
}

// IsSessionStatus reports whether s is a known session status.
func IsSessionStatus(s string) bool {
	_, ok := sessionStatusRank[s]
	return ok
}

// SessionStatusBefore reports whether status a comes earlier in the dining
// flow than status b. Unknown statuses are never before anything.
func SessionStatusBefore(a, b string) bool {
	ra, okA := sessionStatusRank[a]
	rb, okB := sessionStatusRank[b]
	return okA && okB && ra < rb
}

func IsOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReady, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func IsPaymentMethod(s string) bool {
	switch s {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer,
		PaymentMethodQR, PaymentMethodOther:
		return true
	}
	return false
}

func IsSplitType(s string) bool {
	switch s {
	case SplitTypeByItem, SplitTypeByPerson, SplitTypeEqual:
		return true
	}
	return false
}

// IsStaffRole reports whether role can be assigned to a staff account.
func IsStaffRole(role string) bool {
	switch role {
	case UserRoleManager, UserRoleWaiter, UserRoleCook, UserRoleCashier:
		return true
	}
	return false
}

// IsAdminRole reports whether role carries restaurant admin capability.
func IsAdminRole(role string) bool {
	return role == UserRoleOwner || role == UserRoleManager
}
