package core

// Fault is the minimal description of a trapped atomic access the signal
// runtime hands to Handle: the signal code the kernel reported, the
// faulting instruction's address and encoding, and whatever instruction
// words follow it in the guest's text, supplied eagerly because Handle runs
// in signal-handler context and cannot safely fault again reading them
// lazily mid-dispatch.
type Fault struct {
	SignalCode    SignalCode
	FaultingPC    uint64
	InstrWord     uint32
	TrailingWords []uint32
}
