package core

import (
	"encoding/binary"
	"testing"

	"github.com/coredump-labs/armatomic/core/atomcell"
	"github.com/stretchr/testify/require"
)

func TestHandleNonAlignmentFaultIsUnhandled(t *testing.T) {
	ctx := &SignalContext64{}
	mem := NewMemory()
	tele := &Telemetry{}
	handled, err := Handle(ctx, mem, tele, Fault{SignalCode: SigOther})
	require.NoError(t, err)
	require.False(t, handled)
}

func TestHandleUnrecognizedEncoding(t *testing.T) {
	ctx := &SignalContext64{}
	mem := NewMemory()
	tele := &Telemetry{}
	handled, err := Handle(ctx, mem, tele, Fault{SignalCode: SigAlignment, InstrWord: 0xffffffff})
	require.ErrorIs(t, err, ErrUnrecognizedEncoding)
	require.False(t, handled)
}

func TestHandleCAS(t *testing.T) {
	ctx := &SignalContext64{Pc: 0x9000}
	ctx.Regs[3] = 0x1000 // Rn: base address
	ctx.Regs[1] = 0x1111111111111111 // Rs: expected
	ctx.Regs[2] = 0x2222222222222222 // Rt: desired

	mem := NewMemory()
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], 0x1111111111111111)
	mem.SetUnaligned(0x1000, seed[:])

	tele := &Telemetry{}
	instr := encode(3, famCAS, 1, 0, 3, 2) // size=8, Rs=1, Rt=2, Rn=3
	handled, err := Handle(ctx, mem, tele, Fault{SignalCode: SigAlignment, InstrWord: instr, FaultingPC: 0x9000})
	require.NoError(t, err)
	require.True(t, handled)
	require.Equal(t, uint64(0x1111111111111111), ctx.Regs[1])
	require.Equal(t, uint64(0x9004), ctx.Pc)
	require.Equal(t, uint64(0x2222222222222222), binary.LittleEndian.Uint64(mem.GetUnaligned(0x1000, 8)))
}

func TestHandleCASMismatchIsNotAnError(t *testing.T) {
	ctx := &SignalContext64{Pc: 0x9000}
	ctx.Regs[3] = 0x1000
	ctx.Regs[1] = 0xbad // wrong expected
	ctx.Regs[2] = 0x2222222222222222

	mem := NewMemory()
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], 0x1111111111111111)
	mem.SetUnaligned(0x1000, seed[:])

	tele := &Telemetry{}
	instr := encode(3, famCAS, 1, 0, 3, 2)
	handled, err := Handle(ctx, mem, tele, Fault{SignalCode: SigAlignment, InstrWord: instr, FaultingPC: 0x9000})
	require.NoError(t, err)
	require.True(t, handled)
	require.Equal(t, uint64(0x1111111111111111), ctx.Regs[1]) // observed, not the stale guess
	require.Equal(t, uint64(0x1111111111111111), binary.LittleEndian.Uint64(mem.GetUnaligned(0x1000, 8)))
}

func TestHandleAtomicMemOp(t *testing.T) {
	ctx := &SignalContext64{Pc: 0x9000}
	ctx.Regs[2] = 0x2000 // Rn
	ctx.Regs[1] = 5      // Rs: operand

	mem := NewMemory()
	mem.SetUnaligned(0x2000, []byte{0x10, 0, 0, 0})

	tele := &Telemetry{}
	instr := encodeAMO(0, 1, 0 /* ADD */, 2, 4) // Rs=1, Rn=2, Rt=4, sel=ADD
	handled, err := Handle(ctx, mem, tele, Fault{SignalCode: SigAlignment, InstrWord: instr, FaultingPC: 0x9000})
	require.NoError(t, err)
	require.True(t, handled)
	require.Equal(t, uint64(0x10), ctx.Regs[4]) // fetched value is the value before the add
	require.Equal(t, uint32(0x15), binary.LittleEndian.Uint32(mem.GetUnaligned(0x2000, 4)))
	require.Equal(t, uint64(0x9004), ctx.Pc)
}

func TestHandleLoadAcquireAndStoreRelease(t *testing.T) {
	ctx := &SignalContext64{Pc: 0x9000}
	ctx.Regs[5] = 0x3000

	mem := NewMemory()
	mem.SetUnaligned(0x3000, []byte{0x42, 0, 0, 0})

	tele := &Telemetry{}
	load := encode(2, famLoadAcquire, 0, 0, 5, 7)
	handled, err := Handle(ctx, mem, tele, Fault{SignalCode: SigAlignment, InstrWord: load, FaultingPC: 0x9000})
	require.NoError(t, err)
	require.True(t, handled)
	require.Equal(t, uint64(0x42), ctx.Regs[7])

	ctx.Pc = 0xa000
	ctx.Regs[7] = 0x99
	store := encode(2, famStoreRelease, 0, 0, 5, 7)
	handled, err = Handle(ctx, mem, tele, Fault{SignalCode: SigAlignment, InstrWord: store, FaultingPC: 0xa000})
	require.NoError(t, err)
	require.True(t, handled)
	require.Equal(t, uint32(0x99), binary.LittleEndian.Uint32(mem.GetUnaligned(0x3000, 4)))
	require.Equal(t, uint64(0xa004), ctx.Pc)
}

func TestHandleLLSC(t *testing.T) {
	// Scenario S5: LDAXR W2,[X3]; ADD W2,W2,W4; STLXR W2,W2,[X3]; CBNZ W2,p.
	// Non-fetch: the status/data register is scratch and must not be written back.
	ctx := &SignalContext64{Pc: 0x9000}
	ctx.Regs[2] = 0xdead // pre-existing value in the scratch register
	ctx.Regs[3] = 0x4000 // base
	ctx.Regs[4] = 7      // operand

	mem := NewMemory()
	mem.SetUnaligned(0x4000, []byte{0x10, 0, 0, 0})

	ldaxr := encode(2, famLDAXR, 0, 0, 3, 2)
	add := encode(2, famALUAdd, 4, 0, 2, 2)
	stlxr := encode(2, famSTLXR, 2, 0, 3, 2)
	cbnz := encode(2, famCBNZ, 0, 0, 0, 2)

	tele := &Telemetry{}
	handled, err := Handle(ctx, mem, tele, Fault{
		SignalCode:    SigAlignment,
		InstrWord:     ldaxr,
		FaultingPC:    0x9000,
		TrailingWords: []uint32{add, stlxr, cbnz},
	})
	require.NoError(t, err)
	require.True(t, handled)
	require.Equal(t, uint64(0xdead), ctx.Regs[2]) // scratch register left untouched
	require.Equal(t, uint32(0x17), binary.LittleEndian.Uint32(mem.GetUnaligned(0x4000, 4)))
	require.Equal(t, uint64(0x9000+16), ctx.Pc) // 4 instructions emulated as one unit
}

func TestHandleLLSCFetch(t *testing.T) {
	// Scenario S6: LDAXR W2,[X3]; ADD W3,W2,W4; STLXR W5,W3,[X3]; CBNZ W5,p; MOV ...
	// Fetch: Rd (the LDAXR destination) carries the pre-op value back to the caller.
	ctx := &SignalContext64{Pc: 0x9000}
	ctx.Regs[3] = 0x4000 // base
	ctx.Regs[4] = 7      // operand

	mem := NewMemory()
	mem.SetUnaligned(0x4000, []byte{0x10, 0, 0, 0})

	ldaxr := encode(2, famLDAXR, 0, 0, 3, 2)
	add := encode(2, famALUAdd, 4, 0, 2, 3)
	stlxr := encode(2, famSTLXR, 5, 0, 3, 3)
	cbnz := encode(2, famCBNZ, 0, 0, 0, 5)
	mov := encode(2, famALUOrr, 0, 0, 31, 6)

	tele := &Telemetry{}
	handled, err := Handle(ctx, mem, tele, Fault{
		SignalCode:    SigAlignment,
		InstrWord:     ldaxr,
		FaultingPC:    0x9000,
		TrailingWords: []uint32{add, stlxr, cbnz, mov},
	})
	require.NoError(t, err)
	require.True(t, handled)
	require.Equal(t, uint64(0x10), ctx.Regs[2]) // LDAXR's destination gets the pre-op value
	require.Equal(t, uint32(0x17), binary.LittleEndian.Uint32(mem.GetUnaligned(0x4000, 4)))
	require.Equal(t, uint64(0x9000+16), ctx.Pc) // 4 instructions emulated as one unit
}

func TestHandleCASPWide(t *testing.T) {
	ctx := &SignalContext64{Pc: 0x9000}
	ctx.Regs[6] = 0x5000 // Rn, 16-byte aligned
	ctx.Regs[2] = 0x1111111111111111
	ctx.Regs[3] = 0x2222222222222222
	ctx.Regs[4] = 0x3333333333333333
	ctx.Regs[5] = 0x4444444444444444

	mem := NewMemory()
	existing := atomcell.WideFromHalves(0x1111111111111111, 0x2222222222222222)
	lo, hi := existing.Halves()
	var seed [16]byte
	binary.LittleEndian.PutUint64(seed[0:8], lo)
	binary.LittleEndian.PutUint64(seed[8:16], hi)
	mem.SetUnaligned(0x5000, seed[:])

	tele := &Telemetry{}
	instr := encode(1, famCASP, 2, 0, 6, 4) // 64-bit pairs: Rs=2,Rs2=3,Rt=4,Rt2=5,Rn=6
	handled, err := Handle(ctx, mem, tele, Fault{SignalCode: SigAlignment, InstrWord: instr, FaultingPC: 0x9000})
	require.NoError(t, err)
	require.True(t, handled)
	require.Equal(t, uint64(0x1111111111111111), ctx.Regs[2])
	require.Equal(t, uint64(0x2222222222222222), ctx.Regs[3])
	got := mem.GetUnaligned(0x5000, 16)
	require.Equal(t, uint64(0x3333333333333333), binary.LittleEndian.Uint64(got[0:8]))
	require.Equal(t, uint64(0x4444444444444444), binary.LittleEndian.Uint64(got[8:16]))
}
