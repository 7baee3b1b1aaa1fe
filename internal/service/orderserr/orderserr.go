package orderserr

import (
	"errors"
	"fmt"
)

// ErrOrderNotFound is returned when a requested order id has no record.
var ErrOrderNotFound = errors.New("order not found")

// ProductNotFoundError is returned when an order references product ids the
// catalog does not recognize. No order is persisted in that case.
type ProductNotFoundError struct {
	ProductIDs []int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("products not found in catalog: %v", e.ProductIDs)
}

// RemoteError wraps a failure from an external collaborator call. The
// orchestrator never retries these; retry policy belongs to the caller.
type RemoteError struct {
	Target string
	Err    error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote call to %s failed: %v", e.Target, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
