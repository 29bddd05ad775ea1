package inbox

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSession is returned when an operation needs a signed-in user and none is bound.
	ErrNoSession = errors.New("inbox: no session bound")
	// ErrRemoteUpdate matches every *MutationError.
	ErrRemoteUpdate = errors.New("inbox: remote update failed")
)

// FetchError reports a failed full fetch. The cache has already been reset to empty
// when it is returned.
type FetchError struct {
	UserID string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch notifications for %s: %v", e.UserID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MutationError reports a rejected remote update. The cache is left untouched.
type MutationError struct {
	Op  string
	ID  string // empty for bulk operations
	Err error
}

func (e *MutationError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

func (e *MutationError) Is(target error) bool { return target == ErrRemoteUpdate }
