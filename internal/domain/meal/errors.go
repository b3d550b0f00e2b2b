package meal

import (
	"errors"
	"fmt"
)

// AuthError means the platform rejected the credentials or the session.
// It is fatal for a run and never retried locally.
type AuthError struct {
	Account string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("meican auth failed for %s", e.Account)
	}
	return fmt.Sprintf("meican auth failed for %s: %v", e.Account, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransientFetchError wraps network and server failures while reading the
// catalog. The whole refresh may be retried.
type TransientFetchError struct {
	Op  string
	Err error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("%s: transient fetch failure: %v", e.Op, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// OrderError means the platform refused one specific order.
type OrderError struct {
	SlotLabel string
	Dish      string
	Err       error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order %q for %q rejected: %v", e.Dish, e.SlotLabel, e.Err)
}

func (e *OrderError) Unwrap() error { return e.Err }

// UnknownStatusError reports a raw status string the normalizer did not
// recognize. It is logged, never returned from a refresh.
type UnknownStatusError struct {
	SlotID string
	Raw    string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("slot %s: unrecognized status %q", e.SlotID, e.Raw)
}

func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

func IsTransient(err error) bool {
	var te *TransientFetchError
	return errors.As(err, &te)
}
