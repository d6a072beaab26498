package pusher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"scorepusher/lib/platforms/eas"
	"scorepusher/lib/platforms/sso"
	"scorepusher/lib/viewstate"
)

const (
	StageFetch = "fetch"
	StageLoad  = "load"
	StageDiff  = "diff"
	StageSave  = "save"
)

// CycleError is a failure that abandoned a cycle before the snapshot was
// saved.
type CycleError struct {
	Stage string
	Err   error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Err.Error())
}

func (e *CycleError) Unwrap() error {
	return e.Err
}

// ErrorKind names the class of a cycle failure for logs.
func ErrorKind(err error) string {
	var cycleErr *CycleError
	var netErr net.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, viewstate.ErrMalformed):
		return "decode"
	case errors.Is(err, eas.ErrShape):
		return "shape"
	case errors.Is(err, sso.ErrInvalidCredentials), errors.Is(err, sso.ErrNotAuthenticated):
		return "auth"
	case errors.As(err, &cycleErr) && (cycleErr.Stage == StageLoad || cycleErr.Stage == StageSave):
		return "store"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.As(err, &netErr):
		return "network"
	}
	return "unknown"
}
