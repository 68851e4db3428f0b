// Package settlement owns the purchase lifecycle of a course: the PENDING
// settlement created at checkout, its single transition to SUCCESS or FAILED
// when the gateway callback arrives, and the enrollment that success grants.
package settlement

import "github.com/pkg/errors"

var (
	ErrCourseNotFound      = errors.New("course not found")
	ErrSettlementNotFound  = errors.New("settlement not found")
	ErrGatewayUnavailable  = errors.New("payment gateway unavailable")
	ErrOrderInProgress     = errors.New("order creation already in progress")
	ErrIdempotencyMismatch = errors.New("idempotency key already used for another course")
	ErrSettlementClosed    = errors.New("idempotency key belongs to a closed settlement")
	ErrAmountOutOfRange    = errors.New("order amount out of range")
	ErrInternal            = errors.New("internal error")
)

func internal(err error, msg string) error {
	return errors.Wrap(ErrInternal, msg+": "+err.Error())
}
