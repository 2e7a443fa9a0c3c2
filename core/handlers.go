package core

import "github.com/coredump-labs/armatomic/core/atomcell"

// Handle is the top-level entry point a signal handler calls once it has
// confirmed a trap and assembled a Fault. It decodes the faulting
// instruction, classifies the access, routes it to the sub-word or
// split-cell kernel, writes the result back into ctx, and advances the
// saved PC past whatever it emulated.
//
// handled reports whether this fault was this core's to handle at all; a
// caller that gets handled == false should re-raise the signal exactly as
// it would have without this core installed. err is non-nil only for the
// error conditions named in the design notes — an unrecognized encoding,
// an unrecognized LL/SC tail, or a torn split-cell store — never for an
// ordinary CAS mismatch.
func Handle(ctx *SignalContext64, mem *Memory, tele *Telemetry, fault Fault) (handled bool, err error) {
	if fault.SignalCode != SigAlignment {
		return false, nil
	}

	decoded, err := Decode(fault.InstrWord, fault.TrailingWords)
	if err != nil {
		return false, err
	}

	rf := NewRegisterFile(ctx)
	addr := rf.Load(decoded.Rn)

	switch decoded.Kind {
	case KindCAS:
		return handleCAS(rf, mem, tele, addr, decoded)
	case KindCASP:
		return handleCASP(rf, mem, tele, addr, decoded)
	case KindAtomicMemOp:
		return handleAtomicMemOp(rf, mem, tele, addr, decoded)
	case KindLoadAcquire:
		return handleLoadAcquire(rf, mem, tele, addr, decoded)
	case KindLoadAcquirePair:
		return handleLoadAcquirePair(rf, mem, tele, addr, decoded)
	case KindStoreRelease:
		return handleStoreRelease(rf, mem, tele, addr, decoded)
	case KindLLSC:
		return handleLLSC(rf, mem, tele, addr, decoded)
	default:
		return false, ErrUnrecognizedEncoding
	}
}

func isSplit(band Band) bool {
	return band == BandStraddle16 || band == BandStraddleLine
}

func handleCAS(rf RegisterFile, mem *Memory, tele *Telemetry, addr uint64, d Decoded) (bool, error) {
	width := d.Size
	expected := rf.Load(d.Rs) & maskWidth(width)
	desired := rf.Load(d.Rt) & maskWidth(width)

	band, _ := Classify(addr, width, tele)
	var observed uint64
	var err error
	if isSplit(band) {
		observed, _, err = SplitCellCAS(mem, addr, width, expected, desired)
	} else {
		observed, _, err = SubwordCAS(mem, addr, width, expected, desired)
	}

	// A CAS that simply observed a different value is not an error; Rs
	// always receives the pre-write value, matching the real instruction.
	rf.Store(d.Rs, observed)
	rf.AdvancePC(4)
	return true, err
}

func handleCASP(rf RegisterFile, mem *Memory, tele *Telemetry, addr uint64, d Decoded) (bool, error) {
	if d.Size == 4 {
		width := uint32(8)
		mask32 := maskWidth(4)
		expected := (rf.Load(d.Rs) & mask32) | ((rf.Load(d.Rs2) & mask32) << 32)
		desired := (rf.Load(d.Rt) & mask32) | ((rf.Load(d.Rt2) & mask32) << 32)

		band, _ := Classify(addr, width, tele)
		var observed uint64
		var err error
		if isSplit(band) {
			observed, _, err = SplitCellCAS(mem, addr, width, expected, desired)
		} else {
			observed, _, err = SubwordCAS(mem, addr, width, expected, desired)
		}
		rf.Store(d.Rs, observed&mask32)
		rf.Store(d.Rs2, (observed>>32)&mask32)
		rf.AdvancePC(4)
		return true, err
	}

	expectedWide := atomcell.WideFromHalves(rf.Load(d.Rs), rf.Load(d.Rs2))
	desiredWide := atomcell.WideFromHalves(rf.Load(d.Rt), rf.Load(d.Rt2))
	Classify(addr, 16, tele)
	observed, _, err := WideCAS(mem, addr, expectedWide, desiredWide)
	lo, hi := observed.Halves()
	rf.Store(d.Rs, lo)
	rf.Store(d.Rs2, hi)
	rf.AdvancePC(4)
	return true, err
}

func handleAtomicMemOp(rf RegisterFile, mem *Memory, tele *Telemetry, addr uint64, d Decoded) (bool, error) {
	width := d.Size
	operand := rf.Load(d.Rs) & maskWidth(width)

	band, _ := Classify(addr, width, tele)
	var prior uint64
	var err error
	if isSplit(band) {
		prior, err = SplitCellRMW(mem, addr, width, d.Op, operand)
	} else {
		prior, err = SubwordRMW(mem, addr, width, d.Op, operand)
	}
	rf.Store(d.Rt, prior)
	rf.AdvancePC(4)
	return true, err
}

func handleLoadAcquire(rf RegisterFile, mem *Memory, tele *Telemetry, addr uint64, d Decoded) (bool, error) {
	width := d.Size
	band, _ := Classify(addr, width, tele)
	var val uint64
	var err error
	if isSplit(band) {
		val = SplitCellLoad(mem, addr, width)
	} else {
		val, err = SubwordLoad(mem, addr, width)
	}
	rf.Store(d.Rt, val)
	rf.AdvancePC(4)
	return true, err
}

func handleLoadAcquirePair(rf RegisterFile, mem *Memory, tele *Telemetry, addr uint64, d Decoded) (bool, error) {
	Classify(addr, 16, tele)
	wide := WideLoadAcquire(mem, addr)
	lo, hi := wide.Halves()
	rf.Store(d.Rt, lo)
	rf.Store(d.Rt2, hi)
	rf.AdvancePC(4)
	return true, nil
}

func handleStoreRelease(rf RegisterFile, mem *Memory, tele *Telemetry, addr uint64, d Decoded) (bool, error) {
	width := d.Size
	val := rf.Load(d.Rt) & maskWidth(width)

	band, _ := Classify(addr, width, tele)
	var err error
	if isSplit(band) {
		_, err = SplitCellRMW(mem, addr, width, OpSwap, val)
	} else {
		_, err = SubwordRMW(mem, addr, width, OpSwap, val)
	}
	rf.AdvancePC(4)
	return true, err
}

func handleLLSC(rf RegisterFile, mem *Memory, tele *Telemetry, addr uint64, d Decoded) (bool, error) {
	width := d.Size
	operand := rf.Load(d.DataSrc) & maskWidth(width)

	band, _ := Classify(addr, width, tele)
	var prior uint64
	var err error
	if isSplit(band) {
		prior, err = SplitCellRMW(mem, addr, width, d.Op, operand)
	} else {
		prior, err = SubwordRMW(mem, addr, width, d.Op, operand)
	}
	if d.IsFetch {
		rf.Store(d.Rd, prior)
	}
	rf.AdvancePC(uint64(4 * d.SkipInstrs))
	return true, err
}
