package status

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// Status is the closed set of order states.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

var ErrInvalidStatus = errors.New("invalid order status")

func (s Status) String() string {
	return string(s)
}

func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

// Parse validates a raw status value against the recognized set.
func Parse(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusPaid, StatusDelivered, StatusCancelled:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}
