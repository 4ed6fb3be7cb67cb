package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrHostFailure is returned by a provider that cannot create a hosting operation.
var ErrHostFailure = errors.New("anchor hosting failed")

// ErrResolveFailure is returned by a provider that cannot create a resolving operation.
var ErrResolveFailure = errors.New("anchor resolving failed")

// ErrUnknownHandle is returned when a provider is asked about a handle it never issued.
var ErrUnknownHandle = errors.New("unknown anchor handle")

// ErrNotCompleted is returned when a completed identifier is requested before Success.
var ErrNotCompleted = errors.New("anchor operation not completed")

// ErrUnknownMode is returned when a session snapshot carries a mode the runtime cannot handle.
var ErrUnknownMode = errors.New("unknown session mode")

// ErrInconsistentSession is returned when a snapshot's pending handle disagrees with its mode.
var ErrInconsistentSession = errors.New("inconsistent session snapshot")
