package venue

import (
	"errors"
	"fmt"
)

var (
	// ErrIDCollision means the venue refused the connection because the
	// client id is already in use. Retrying the same id cannot succeed;
	// a new id must be generated.
	ErrIDCollision = errors.New("client id already in use")

	// ErrNotConnected means a call was attempted on a disconnected session.
	ErrNotConnected = errors.New("not connected to venue")

	// ErrContractNotFound means the venue could not qualify the contract.
	ErrContractNotFound = errors.New("contract not found")

	// ErrOrderNotFound means the venue has no record of the broker order id.
	ErrOrderNotFound = errors.New("order not found at venue")
)

// ConnectError classifies a failed connection attempt. Collision is fatal
// to the current client id; everything else is transient and may be retried
// with the same id.
type ConnectError struct {
	Collision bool
	ClientID  int
	Err       error
}

func (e *ConnectError) Error() string {
	if e.Collision {
		return fmt.Sprintf("connect: client id %d collision: %v", e.ClientID, e.Err)
	}
	return fmt.Sprintf("connect: transient failure with client id %d: %v", e.ClientID, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// IsCollision reports whether err is a fatal client-id collision.
func IsCollision(err error) bool {
	var ce *ConnectError
	if errors.As(err, &ce) {
		return ce.Collision
	}
	return errors.Is(err, ErrIDCollision)
}
