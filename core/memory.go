package core

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/coredump-labs/armatomic/core/atomcell"
)

// Page size for this memory model, matching the Go runtime's own minimum
// physical page size. Guest atomic containers are at most 16 bytes, so in
// practice only an access within the last 15 bytes of a page can cross a
// page boundary; the sparse per-page backing below stands in for what is,
// on real hardware, one contiguous physical mapping.
const (
	pageAddrSize = 12
	pageSize     = 1 << pageAddrSize
	pageAddrMask = pageSize - 1
)

// Memory is a page-backed, byte-addressable simulation of guest memory.
// It is grounded on this codebase's sparse paged memory model, stripped of
// the Merkle-witness bookkeeping that model carries for on-chain fraud
// proofs — no such requirement exists for a signal-handler emulation core.
type Memory struct {
	mu    sync.Mutex
	pages map[uint64]*[pageSize]byte

	// Two-slot cache of the most recently touched pages: fault handling
	// tends to revisit the same page (the same guest lock word) many
	// times in a row.
	lastPageKeys [2]uint64
	lastPage     [2]*[pageSize]byte
}

func NewMemory() *Memory {
	return &Memory{
		pages:        make(map[uint64]*[pageSize]byte),
		lastPageKeys: [2]uint64{^uint64(0), ^uint64(0)},
	}
}

func (m *Memory) pageLookup(pageIndex uint64) (*[pageSize]byte, bool) {
	if pageIndex == m.lastPageKeys[0] {
		return m.lastPage[0], true
	}
	if pageIndex == m.lastPageKeys[1] {
		return m.lastPage[1], true
	}
	p, ok := m.pages[pageIndex]
	if ok {
		m.lastPageKeys[1], m.lastPage[1] = m.lastPageKeys[0], m.lastPage[0]
		m.lastPageKeys[0], m.lastPage[0] = pageIndex, p
	}
	return p, ok
}

func (m *Memory) allocPage(pageIndex uint64) *[pageSize]byte {
	p := &[pageSize]byte{}
	m.pages[pageIndex] = p
	m.lastPageKeys[1], m.lastPage[1] = m.lastPageKeys[0], m.lastPage[0]
	m.lastPageKeys[0], m.lastPage[0] = pageIndex, p
	return p
}

// bytesAt returns a direct slice into the backing page array for
// [addr, addr+n), allocating the page on first touch. It panics if the
// range crosses a page boundary; see the page-size comment above.
func (m *Memory) bytesAt(addr uint64, n uint32) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	pageIndex := addr >> pageAddrSize
	pageOff := addr & pageAddrMask
	if pageOff+uint64(n) > pageSize {
		panic(fmt.Sprintf("armatomic: access [0x%x,+%d) crosses a page boundary of this memory model", addr, n))
	}

	p, ok := m.pageLookup(pageIndex)
	if !ok {
		p = m.allocPage(pageIndex)
	}
	return p[pageOff : pageOff+uint64(n)]
}

// SetUnaligned writes dat verbatim, with no atomicity guarantee. Used to
// set up test fixtures and to seed a replay scenario's memory image.
func (m *Memory) SetUnaligned(addr uint64, dat []byte) {
	copy(m.bytesAt(addr, uint32(len(dat))), dat)
}

// GetUnaligned reads n bytes, with no atomicity guarantee. Used for
// inspecting results in tests.
func (m *Memory) GetUnaligned(addr uint64, n uint32) []byte {
	out := make([]byte, n)
	copy(out, m.bytesAt(addr, n))
	return out
}

// Cell32 returns an atomic view over the naturally-aligned 4-byte cell
// starting at cellAddr. cellAddr must already be 4-byte aligned.
func (m *Memory) Cell32(cellAddr uint64) atomcell.Cell32 {
	return atomcell.NewCell32(m.bytesAt(cellAddr, 4))
}

// Cell64 returns an atomic view over the naturally-aligned 8-byte cell
// starting at cellAddr. cellAddr must already be 8-byte aligned.
func (m *Memory) Cell64(cellAddr uint64) atomcell.Cell64 {
	return atomcell.NewCell64(m.bytesAt(cellAddr, 8))
}

// Cell128 returns the software 128-bit atomic cell view described in
// core/atomcell, over the naturally-aligned 16-byte cell at cellAddr.
func (m *Memory) Cell128(cellAddr uint64) atomcell.Cell128 {
	b := m.bytesAt(cellAddr, 16)
	return atomcell.NewCell128(b, uintptr(unsafe.Pointer(&b[0])))
}
