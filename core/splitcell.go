package core

import "github.com/coredump-labs/armatomic/core/atomcell"

// The split-cell kernel handles Straddle16 and StraddleLine accesses, where
// no single 16-byte-aligned cell contains the field. It works over the two
// adjacent 16-byte cells the field does fit within, modeled as four 8-byte
// limbs (the low and high half of each cell), and accepts the one failure
// mode a purely software fallback cannot avoid: a write that commits to the
// high cell but not the low one. See ErrTornAcrossCacheline.

// limbsFor decomposes the low and high cell's loaded values into four
// little-endian 8-byte limbs at byte positions 0, 8, 16, 24 of the combined
// 32-byte span starting at the low cell's address.
func limbsFor(low, high atomcell.Wide) [4]uint64 {
	lowLo, lowHi := low.Halves()
	highLo, highHi := high.Halves()
	return [4]uint64{lowLo, lowHi, highLo, highHi}
}

// extractField reads a width-byte little-endian field starting at byte
// offset out of a 4-limb, 32-byte combined span. width and offset must
// satisfy offset+width <= 32.
func extractField(limbs [4]uint64, offset, width uint32) uint64 {
	var v uint64
	var done uint32
	for done < width {
		limbIdx := (offset + done) / 8
		byteInLimb := (offset + done) % 8
		avail := 8 - byteInLimb
		take := width - done
		if take > avail {
			take = avail
		}
		chunk := (limbs[limbIdx] >> (byteInLimb * 8)) & maskWidth(take)
		v |= chunk << (done * 8)
		done += take
	}
	return v
}

// spliceField writes a width-byte little-endian field into a 4-limb
// combined span, in place.
func spliceField(limbs *[4]uint64, offset, width uint32, val uint64) {
	var done uint32
	for done < width {
		limbIdx := (offset + done) / 8
		byteInLimb := (offset + done) % 8
		avail := 8 - byteInLimb
		take := width - done
		if take > avail {
			take = avail
		}
		chunk := (val >> (done * 8)) & maskWidth(take)
		clearMask := maskWidth(take) << (byteInLimb * 8)
		limbs[limbIdx] = (limbs[limbIdx] &^ clearMask) | (chunk << (byteInLimb * 8))
		done += take
	}
}

// splitCells resolves the pair of adjacent 16-byte cells and the field's
// offset within the low one, for any addr/width whose access does not fit
// in a single 16-byte cell.
func splitCells(mem *Memory, addr uint64) (low, high atomcell.Cell128, offset uint32) {
	offset = uint32(addr % 16)
	lowAddr := addr - uint64(offset)
	return mem.Cell128(lowAddr), mem.Cell128(lowAddr + 16), offset
}

// runSplitCell is shared by SplitCellCAS and SplitCellRMW. It loads the
// high cell before the low one, and CASes the high cell before the low
// one: a write that fails its high-cell CAS is a legitimate retry (no
// write has landed anywhere yet), while a write that commits its high
// half but then fails its low half can no longer be rolled back, so that
// ordering is the one flagged as torn.
//
// retry controls what happens when the high-cell CAS fails on contention
// outside the field: a plain CAS (retry == false) is a non-retrying
// instruction on real hardware and must report the value it observed
// instead of looping, while an atomic-memory-op or LL/SC RMW (retry ==
// true) is obligated to make progress and keeps spinning.
func runSplitCell(mem *Memory, addr uint64, width uint32, retry bool, fn fieldFn) (resultField uint64, success bool, err error) {
	lowCell, highCell, offset := splitCells(mem, addr)

	for {
		highOld := highCell.LoadAcquire()
		lowOld := lowCell.LoadAcquire()
		limbs := limbsFor(lowOld, highOld)

		mask := maskWidth(width)
		oldField := extractField(limbs, offset, width) & mask
		expected, desired := fn(oldField)
		expected &= mask
		if oldField != expected {
			return oldField, false, nil
		}

		newLimbs := limbs
		spliceField(&newLimbs, offset, width, desired&mask)
		newLow := atomcell.WideFromHalves(newLimbs[0], newLimbs[1])
		newHigh := atomcell.WideFromHalves(newLimbs[2], newLimbs[3])

		if !highCell.CompareAndSwap(highOld, newHigh) {
			if !retry {
				observedLimbs := limbsFor(lowCell.LoadAcquire(), highCell.LoadAcquire())
				return extractField(observedLimbs, offset, width) & mask, false, nil
			}
			continue
		}
		if !lowCell.CompareAndSwap(lowOld, newLow) {
			return oldField, false, ErrTornAcrossCacheline
		}
		return expected, true, nil
	}
}

// SplitCellLoad performs the plain acquire-load half of the split-cell
// kernel, reading both cells without attempting to write either back.
func SplitCellLoad(mem *Memory, addr uint64, width uint32) uint64 {
	lowCell, highCell, offset := splitCells(mem, addr)
	highOld := highCell.LoadAcquire()
	lowOld := lowCell.LoadAcquire()
	limbs := limbsFor(lowOld, highOld)
	return extractField(limbs, offset, width) & maskWidth(width)
}

// SplitCellCAS is the split-cell kernel's literal compare-and-swap mode,
// the counterpart of SubwordCAS for fields that straddle two 16-byte
// cells. Like the real CAS instruction it does not retry on contention
// outside the field.
func SplitCellCAS(mem *Memory, addr uint64, width uint32, expected, desired uint64) (observed uint64, success bool, err error) {
	fn := fieldFn(func(uint64) (uint64, uint64) { return expected, desired })
	return runSplitCell(mem, addr, width, false, fn)
}

// SplitCellRMW is the split-cell kernel's operator-table mode, the
// counterpart of SubwordRMW.
func SplitCellRMW(mem *Memory, addr uint64, width uint32, op AtomicOp, operand uint64) (prior uint64, err error) {
	table := opTable(op)
	fn := fieldFn(func(oldField uint64) (uint64, uint64) {
		return table.expectedFn(oldField, operand), table.desiredFn(oldField, operand)
	})
	prior, _, err = runSplitCell(mem, addr, width, table.retry, fn)
	return prior, err
}
