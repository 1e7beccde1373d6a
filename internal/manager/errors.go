// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"errors"
	"fmt"

	"github.com/ManuGH/botcore/internal/async"
)

var (
	// ErrDuplicateListenerID is returned by Register when the id is taken.
	ErrDuplicateListenerID = errors.New("listener id already registered")
	// ErrNilListener is returned by Register for a nil listener.
	ErrNilListener = errors.New("listener is nil")
)

// PanicError is the error a recovered listener or pipeline panic is turned into.
type PanicError = async.PanicError

// ListenerError is the failure of one listener's pipeline.
type ListenerError struct {
	ListenerID string
	Err        error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener %q: %v", e.ListenerID, e.Err)
}

func (e *ListenerError) Unwrap() error { return e.Err }

// HandlerError is returned when the exception handler itself fails. The
// listener failure it was handling is kept as Suppressed.
type HandlerError struct {
	Err        error
	Suppressed error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("exception handler: %v (suppressed: %v)", e.Err, e.Suppressed)
}

func (e *HandlerError) Unwrap() []error { return []error{e.Err, e.Suppressed} }
