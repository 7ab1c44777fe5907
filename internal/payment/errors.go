package payment

import "errors"

var (
	ErrSDKNotLoaded      = errors.New("payment SDK not loaded")
	ErrPaymentInProgress = errors.New("payment already in progress")
	ErrAlreadyPaid       = errors.New("order already paid")
	ErrUnknownProvider   = errors.New("unknown payment provider")
	ErrReferenceMismatch = errors.New("payment reference does not match prepared payment")
)

// FallbackMessage is shown when the provider gives no message of its own.
const FallbackMessage = "Payment failed. Please try again."

// DeclinedError is a failed attempt. Message is safe to show to the customer.
type DeclinedError struct {
	Provider Provider
	Message  string
	Err      error
}

func (e *DeclinedError) Error() string {
	return e.Message
}

func (e *DeclinedError) Unwrap() error {
	return e.Err
}
