package types

import "errors"

// ErrNotFound is returned by stores when a row does not exist.
var ErrNotFound = errors.New("not found")

// Free link eligibility failures. The store re-checks these inside the
// redemption transaction, so they can surface both before and at grant time.
var (
	ErrLinkInactive     = errors.New("free link is inactive")
	ErrLinkLimitReached = errors.New("free link redemption limit reached")
	ErrLinkAlreadyUsed  = errors.New("free link already used by this user")
)
