package autotrader

import "errors"

var (
	// errOrderNotFound: the ledger has no such order id.
	errOrderNotFound = errors.New("order not found")

	// errInvalidState: the operation is not legal for the order's status.
	errInvalidState = errors.New("invalid order status")

	// errValidation: the order is missing fields submission requires.
	// The caller must fix the order; retrying cannot help.
	errValidation = errors.New("order validation failed")

	// errConnection: no venue session could be established. Retryable
	// after reconnect; the ledger is unchanged.
	errConnection = errors.New("failed to connect to venue")

	// errBrokerRejection: the venue refused the order. Surfaced verbatim;
	// the ledger is unchanged.
	errBrokerRejection = errors.New("venue rejected order")
)

// Exported checks for callers that need to discriminate outcomes without
// depending on sentinel identity.
func IsOrderNotFound(err error) bool   { return errors.Is(err, errOrderNotFound) }
func IsInvalidState(err error) bool    { return errors.Is(err, errInvalidState) }
func IsValidation(err error) bool      { return errors.Is(err, errValidation) }
func IsConnection(err error) bool      { return errors.Is(err, errConnection) }
func IsBrokerRejection(err error) bool { return errors.Is(err, errBrokerRejection) }
