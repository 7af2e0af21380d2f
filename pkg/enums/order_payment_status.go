package enums

import "fmt"

// OrderPaymentStatus tracks the settlement lifecycle of a mirrored supplier order.
type OrderPaymentStatus string

const (
	OrderPaymentStatusIncomplete    OrderPaymentStatus = "INCOMPLETE"
	OrderPaymentStatusPartiallyPaid OrderPaymentStatus = "PARTIALLY_PAID"
	OrderPaymentStatusPaid          OrderPaymentStatus = "PAID"
	OrderPaymentStatusCancelled     OrderPaymentStatus = "CANCELLED"
)

var validOrderPaymentStatuses = []OrderPaymentStatus{
	OrderPaymentStatusIncomplete,
	OrderPaymentStatusPartiallyPaid,
	OrderPaymentStatusPaid,
	OrderPaymentStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderPaymentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderPaymentStatus.
func (s OrderPaymentStatus) IsValid() bool {
	for _, candidate := range validOrderPaymentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderPaymentStatus converts raw input into an OrderPaymentStatus.
func ParseOrderPaymentStatus(value string) (OrderPaymentStatus, error) {
	for _, candidate := range validOrderPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order payment status %q", value)
}
