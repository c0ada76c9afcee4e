package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "PENDING"
	OrderStatusNew       = "NEW"
	OrderStatusPreparing = "PREPARING"
	OrderStatusReady     = "READY"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

const (
	LeaveStatusPending  = "PENDING"
	LeaveStatusApproved = "APPROVED"
	LeaveStatusRejected = "REJECTED"
)

const (
	BookingStatusConfirmed  = "CONFIRMED"
	BookingStatusCheckedIn  = "CHECKED_IN"
	BookingStatusCheckedOut = "CHECKED_OUT"
	BookingStatusCancelled  = "CANCELLED"
)

const (
	RoomStatusAvailable   = "AVAILABLE"
	RoomStatusOccupied    = "OCCUPIED"
	RoomStatusMaintenance = "MAINTENANCE"
)

const (
	TableStatusAvailable = "AVAILABLE"
	TableStatusOccupied  = "OCCUPIED"
	TableStatusReserved  = "RESERVED"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleAdmin        = "ADMIN"
	UserRoleReceptionist = "RECEPTIONIST"
	UserRoleKitchen      = "KITCHEN"
	UserRoleWaiter       = "WAITER"
	UserRoleCustomer     = "CUSTOMER"
)

const (
	RoomTypeSingle = "SINGLE"
	RoomTypeDouble = "DOUBLE"
	RoomTypeSuite  = "SUITE"
	RoomTypeDeluxe = "DELUXE"
)

const (
	LeaveTypeAnnual = "ANNUAL"
	LeaveTypeSick   = "SICK"
	LeaveTypeUnpaid = "UNPAID"
	LeaveTypeOther  = "OTHER"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodCard     = "CARD"
	PaymentMethodTransfer = "TRANSFER"
	PaymentMethodQRIS     = "QRIS"
)

// StaffRoles are the roles that sign in to a dashboard.
var StaffRoles = []string{UserRoleAdmin, UserRoleReceptionist, UserRoleKitchen, UserRoleWaiter}

// IsStaffRole reports whether role belongs to an employee account.
func IsStaffRole(role string) bool {
	for _, r := range StaffRoles {
		if r == role {
			return true
		}
	}
	return false
}

// DashboardPath returns the frontend route a signed-in user lands on.
func DashboardPath(role string) string {
	switch role {
	case UserRoleAdmin:
		return "/admin"
	case UserRoleReceptionist:
		return "/reception"
	case UserRoleKitchen:
		return "/kitchen"
	case UserRoleWaiter:
		return "/waiter"
	}
	return "/"
}

func IsValidRoomType(s string) bool {
	switch s {
	case RoomTypeSingle, RoomTypeDouble, RoomTypeSuite, RoomTypeDeluxe:
		return true
	}
	return false
}

func IsValidRoomStatus(s string) bool {
	switch s {
	case RoomStatusAvailable, RoomStatusOccupied, RoomStatusMaintenance:
		return true
	}
	return false
}

func IsValidTableStatus(s string) bool {
	switch s {
	case TableStatusAvailable, TableStatusOccupied, TableStatusReserved:
		return true
	}
	return false
}

func IsValidLeaveType(s string) bool {
	switch s {
	case LeaveTypeAnnual, LeaveTypeSick, LeaveTypeUnpaid, LeaveTypeOther:
		return true
	}
	return false
}

func IsValidPaymentMethod(s string) bool {
	switch s {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer, PaymentMethodQRIS:
		return true
	}
	return false
}
