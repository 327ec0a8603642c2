package storefront

import (
	"errors"

	"erpbridge/internal/bridgeclient"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrNoCustomer      = errors.New("select a customer to continue")
	ErrOutOfStock      = errors.New("product is out of stock")
	ErrUnknownProduct  = errors.New("unknown product")
	ErrUnknownCustomer = errors.New("unknown customer")
	ErrProbeInFlight   = errors.New("a connection check is already running")
	ErrCheckoutBusy    = errors.New("an order is already being sent")
)

const (
	connErrTitle      = "SQL connection failed"
	unreachableDetail = "The local bridge is not responding. Is the local relay running?"
	noRelayDetail     = "No relay URL configured; working with sample data."
)

// ConnError is what the storefront shows after a failed probe.
type ConnError struct {
	Title   string
	Message string
	Err     error
}

func (e *ConnError) Error() string { return e.Message }

func (e *ConnError) Unwrap() error { return e.Err }

// connError keeps the relay's own wording unless nothing answered at all.
func connError(err error) *ConnError {
	msg := err.Error()
	if errors.Is(err, bridgeclient.ErrUnreachable) {
		msg = unreachableDetail
	}
	return &ConnError{Title: connErrTitle, Message: msg, Err: err}
}
