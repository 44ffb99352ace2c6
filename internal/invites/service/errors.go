package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/propinvite/internal/invites/domain"
)

var (
	ErrInviteInvalid   = errors.New("invite invalid")
	ErrInviteExpired   = errors.New("invite expired")
	ErrInviteRevoked   = errors.New("invite revoked")
	ErrCapacityReached = errors.New("invite capacity reached")
	ErrWrongAccount    = errors.New("invite issued to a different account")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnavailable     = errors.New("service temporarily unavailable")

	ErrUnauthenticated      = errors.New("authentication required")
	ErrForbidden            = errors.New("forbidden")
	ErrNotFound             = errors.New("not found")
	ErrInvalidInviteRequest = errors.New("invalid invite request")
	ErrInvalidRolloutChange = errors.New("invalid rollout change")
)

// RateLimitedError carries how long the caller must wait. It matches
// ErrRateLimited with errors.Is.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Is(target error) bool { return target == ErrRateLimited }

// RetryAfter extracts the wait from a rate limit error, or 0.
func RetryAfter(err error) time.Duration {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.RetryAfter
	}
	return 0
}

// KindOf maps an error returned by this package onto the shared taxonomy.
func KindOf(err error) domain.ErrorKind {
	switch {
	case err == nil:
		return domain.KindNone
	case errors.Is(err, ErrInviteInvalid):
		return domain.KindInvalid
	case errors.Is(err, ErrInviteExpired):
		return domain.KindExpired
	case errors.Is(err, ErrInviteRevoked):
		return domain.KindRevoked
	case errors.Is(err, ErrCapacityReached):
		return domain.KindCapacityReached
	case errors.Is(err, ErrWrongAccount):
		return domain.KindWrongAccount
	case errors.Is(err, ErrRateLimited):
		return domain.KindRateLimited
	case errors.Is(err, ErrUnavailable):
		return domain.KindUnavailable
	default:
		return domain.KindInternal
	}
}
