package core

import "errors"

// Sentinel errors returned by the decode/dispatch path for programmer-error
// class conditions. A CAS observing a different value, or a fault the core
// simply declines to handle, are not errors — they are ordinary return
// values (see Handle).
var (
	// ErrNotAlignmentFault flags a Fault whose SignalCode isn't
	// SigAlignment. Handle never returns it — a non-alignment fault is an
	// ordinary "unhandled" outcome, not an error — but it's named here as
	// the diagnostic code a caller's own logging may want to attach to
	// that outcome.
	ErrNotAlignmentFault = errors.New("armatomic: fault signal code is not an alignment trap")

	ErrUnrecognizedEncoding = errors.New("armatomic: instruction word does not match a known atomic form")
	ErrUnknownLLSCOp        = errors.New("armatomic: LDAXR not followed by a recognized ALU/SWAP/STLXR sequence")
	ErrBadContainerWidth    = errors.New("armatomic: no atomic container fits the requested field width at this offset")

	// ErrTornAcrossCacheline is returned by the split-cell kernel when its
	// high-cell write commits but its low-cell write does not: a state a
	// concurrent observer could see as neither the old nor the new logical
	// value. This is the fundamental limitation the design notes describe
	// for a software fallback across two independently-atomic 16-byte
	// cells.
	ErrTornAcrossCacheline = errors.New("armatomic: split-cell store observed torn across its two halves")
)

// Signal codes the core distinguishes. SigAlignment models BUS_ADRALN, the
// asynchronous error code ARM64 raises on a misaligned atomic access.
type SignalCode int

const (
	SigAlignment SignalCode = iota
	SigOther
)
