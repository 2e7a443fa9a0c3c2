package core

import "github.com/coredump-labs/armatomic/core/atomcell"

// WideCAS and WideLoadAcquire handle the 16-byte-wide forms that do not fit
// the uint64-based fieldFn abstraction in subword.go and splitcell.go:
// CASP with 8-byte register pairs, and LoadAcquirePair. Both route through
// Cell128 when the 16 bytes land in a single naturally-aligned cell, and
// fall back to the same two-cell limb decomposition the split-cell kernel
// uses otherwise.

// WideCAS atomically replaces the 16 bytes at addr with desired if and
// only if they currently equal expected. CASP is a plain compare-and-swap,
// not a retry-obligated RMW, so on contention it reports the value it
// observed instead of looping.
func WideCAS(mem *Memory, addr uint64, expected, desired atomcell.Wide) (observed atomcell.Wide, success bool, err error) {
	if addr%16 == 0 {
		cell := mem.Cell128(addr)
		old := cell.LoadAcquire()
		if !old.Eq(expected) {
			return old, false, nil
		}
		if !cell.CompareAndSwap(expected, desired) {
			return cell.LoadAcquire(), false, nil
		}
		return expected, true, nil
	}

	lowCell, highCell, offset := splitCells(mem, addr)
	expLo, expHi := expected.Halves()
	desLo, desHi := desired.Halves()

	highOld := highCell.LoadAcquire()
	lowOld := lowCell.LoadAcquire()
	limbs := limbsFor(lowOld, highOld)

	oldLo := extractField(limbs, offset, 8)
	oldHi := extractField(limbs, offset+8, 8)
	if oldLo != expLo || oldHi != expHi {
		return atomcell.WideFromHalves(oldLo, oldHi), false, nil
	}

	newLimbs := limbs
	spliceField(&newLimbs, offset, 8, desLo)
	spliceField(&newLimbs, offset+8, 8, desHi)
	newLow := atomcell.WideFromHalves(newLimbs[0], newLimbs[1])
	newHigh := atomcell.WideFromHalves(newLimbs[2], newLimbs[3])

	if !highCell.CompareAndSwap(highOld, newHigh) {
		observedLimbs := limbsFor(lowCell.LoadAcquire(), highCell.LoadAcquire())
		oLo := extractField(observedLimbs, offset, 8)
		oHi := extractField(observedLimbs, offset+8, 8)
		return atomcell.WideFromHalves(oLo, oHi), false, nil
	}
	if !lowCell.CompareAndSwap(lowOld, newLow) {
		return expected, false, ErrTornAcrossCacheline
	}
	return expected, true, nil
}

// WideLoadAcquire reads the 16 bytes at addr as a single acquire-load,
// modeling the ldaxp+clrex pair the design notes describe: a load with no
// accompanying compare-and-swap, reading each cell once and never retrying.
func WideLoadAcquire(mem *Memory, addr uint64) atomcell.Wide {
	if addr%16 == 0 {
		return mem.Cell128(addr).LoadAcquire()
	}
	lowCell, highCell, offset := splitCells(mem, addr)
	highOld := highCell.LoadAcquire()
	lowOld := lowCell.LoadAcquire()
	limbs := limbsFor(lowOld, highOld)
	lo := extractField(limbs, offset, 8)
	hi := extractField(limbs, offset+8, 8)
	return atomcell.WideFromHalves(lo, hi)
}
