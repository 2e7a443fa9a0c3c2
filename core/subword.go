package core

import "github.com/coredump-labs/armatomic/core/atomcell"

// fieldFn computes, from a freshly loaded field value, the field value the
// caller requires to be present (expected) and the field value to write in
// its place (desired). For a literal CAS both are constants; for a
// read-modify-write op both are functions of the loaded value via the
// operator table in ops.go.
type fieldFn func(oldField uint64) (expected, desired uint64)

// subwordLoop is the container-width-agnostic core of the sub-word atomic
// kernel: load the cell, extract the field, decide whether the field
// already satisfies the caller (if not, this is a genuine CAS mismatch and
// the loop exits without writing), splice in the new field value, and
// attempt the full-width compare-and-swap. A CAS failure caused by
// concurrent activity outside the field is indistinguishable, at this
// level, from one caused by concurrent activity inside it — either way the
// loop simply re-loads and tries again, since fieldFn is re-evaluated
// against the fresh value.
func subwordLoop(load func() uint64, cas func(old, new uint64) bool, offset, width uint32, fn fieldFn) (resultField uint64, success bool) {
	mask := maskWidth(width)
	shift := offset * 8
	for {
		old := load()
		oldField := (old >> shift) & mask
		expected, desired := fn(oldField)
		expected &= mask
		if oldField != expected {
			return oldField, false
		}
		newVal := (old &^ (mask << shift)) | ((desired & mask) << shift)
		if cas(old, newVal) {
			return expected, true
		}
	}
}

// subwordLoop128 is subwordLoop's counterpart for a 16-byte container,
// where the cell value is a Wide rather than a uint64.
func subwordLoop128(cell atomcell.Cell128, offset, width uint32, fn fieldFn) (resultField uint64, success bool) {
	mask := maskWidth(width)
	for {
		old := cell.LoadAcquire()
		oldField := old.FieldAt(offset, width)
		expected, desired := fn(oldField)
		expected &= mask
		if oldField != expected {
			return oldField, false
		}
		newVal := old.WithFieldAt(offset, width, desired&mask)
		if cell.CompareAndSwap(old, newVal) {
			return expected, true
		}
	}
}

// containerAndOffset resolves the naturally-aligned container and the
// field's byte offset within it for an AlignedInCell or Straddle8 access.
// Callers in handlers.go are responsible for routing Straddle16 and
// StraddleLine accesses to the split-cell kernel instead; a width that
// cannot fit any container here is ErrBadContainerWidth.
func containerAndOffset(addr uint64, width uint32) (cellAddr uint64, offset, container uint32, err error) {
	container, offset, err = chooseContainer(addr, width)
	if err != nil {
		return 0, 0, 0, err
	}
	cellAddr = addr - uint64(offset)
	return
}

// SubwordCAS implements the sub-word atomic kernel's literal compare-and-
// swap mode: field is written to desired if and only if it currently holds
// expected. A mismatch is an ordinary outcome, not an error — see the
// package's error-handling notes on CAS semantic failure.
func SubwordCAS(mem *Memory, addr uint64, width uint32, expected, desired uint64) (observed uint64, success bool, err error) {
	fn := fieldFn(func(uint64) (uint64, uint64) { return expected, desired })
	cellAddr, offset, container, err := containerAndOffset(addr, width)
	if err != nil {
		return 0, false, err
	}
	observed, success = runSubword(mem, cellAddr, container, offset, width, fn)
	return observed, success, nil
}

// SubwordRMW implements the sub-word atomic kernel's operator-table mode:
// the field's new value is recomputed from its current value on every
// retry, per opTable(op). It returns the field's value immediately before
// the write (the fetch semantics an AtomicMemOp reports back to Rt).
func SubwordRMW(mem *Memory, addr uint64, width uint32, op AtomicOp, operand uint64) (prior uint64, err error) {
	table := opTable(op)
	fn := fieldFn(func(oldField uint64) (uint64, uint64) {
		return table.expectedFn(oldField, operand), table.desiredFn(oldField, operand)
	})
	cellAddr, offset, container, err := containerAndOffset(addr, width)
	if err != nil {
		return 0, err
	}
	prior, _ = runSubword(mem, cellAddr, container, offset, width, fn)
	return prior, nil
}

// SubwordLoad performs the plain acquire-load half of the sub-word kernel,
// for LoadAcquire: a read of the field without any accompanying compare.
func SubwordLoad(mem *Memory, addr uint64, width uint32) (uint64, error) {
	cellAddr, offset, container, err := containerAndOffset(addr, width)
	if err != nil {
		return 0, err
	}
	mask := maskWidth(width)
	shift := offset * 8
	switch container {
	case 4:
		return (uint64(mem.Cell32(cellAddr).LoadAcquire()) >> shift) & mask, nil
	case 8:
		return (mem.Cell64(cellAddr).LoadAcquire() >> shift) & mask, nil
	default:
		return mem.Cell128(cellAddr).LoadAcquire().FieldAt(offset, width), nil
	}
}

func runSubword(mem *Memory, cellAddr uint64, container, offset, width uint32, fn fieldFn) (uint64, bool) {
	switch container {
	case 4:
		cell := mem.Cell32(cellAddr)
		return subwordLoop(
			func() uint64 { return uint64(cell.LoadAcquire()) },
			func(old, new uint64) bool { return cell.CompareAndSwap(uint32(old), uint32(new)) },
			offset, width, fn,
		)
	case 8:
		cell := mem.Cell64(cellAddr)
		return subwordLoop(cell.LoadAcquire, cell.CompareAndSwap, offset, width, fn)
	default:
		cell := mem.Cell128(cellAddr)
		return subwordLoop128(cell, offset, width, fn)
	}
}
