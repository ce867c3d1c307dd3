// Package protoerr defines the error kinds shared across the protocol
// stack's layer boundaries, so callers can use errors.Is regardless of
// which layer raised them.
package protoerr

import "errors"

var (
	// ErrInvalid marks malformed arguments: size limits, empty buffers.
	ErrInvalid = errors.New("protocol: invalid argument")

	// ErrQuiet marks a decode attempt that found no qualifying channel
	// set. Not an error at the physical layer; it maps to "ignore" in
	// the receive state machine.
	ErrQuiet = errors.New("protocol: quiet")

	// ErrTimeout marks a peek/recv that found no ready data within the
	// configured receive timeout.
	ErrTimeout = errors.New("protocol: timeout")

	// ErrOutOfSync marks a link-layer sequence gap. The caller may
	// retry; the link layer has already flushed to the next fresh
	// packet.
	ErrOutOfSync = errors.New("protocol: out of sync")

	// ErrBackend marks an audio or FFT engine failure, generally fatal
	// to the current operation.
	ErrBackend = errors.New("protocol: backend failure")

	// ErrSequenceAhead marks a transport-layer sequence observed ahead
	// of the expected counter (by any amount), which the receiver
	// cannot recover from.
	ErrSequenceAhead = errors.New("protocol: sequence ahead, stream broken")
)
