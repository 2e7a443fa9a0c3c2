package core

// ZeroReg is the ARM64 register index that always reads as zero; writes to
// it are discarded. x86-on-ARM64 translators reserve it the same way the
// architecture does.
const ZeroReg = 31

// SignalContext64 is the trapped machine context handed to the fault
// handler, shaped after struct sigcontext on arm64 (the second argument a
// SA_SIGINFO handler receives via ucontext_t.uc_mcontext): 31 general
// purpose registers, the faulting PC, and the stack pointer at fault time.
// It is owned by the signal runtime; the core borrows it for one fault.
type SignalContext64 struct {
	Regs [31]uint64
	Sp   uint64
	Pc   uint64
}

// RegisterFile is a zero-register-aware view over a SignalContext64.
type RegisterFile struct {
	ctx *SignalContext64
}

// NewRegisterFile wraps ctx for register access during fault handling.
func NewRegisterFile(ctx *SignalContext64) RegisterFile {
	return RegisterFile{ctx: ctx}
}

// Load returns the value of register r, or 0 if r is the zero register.
func (rf RegisterFile) Load(r uint32) uint64 {
	if r == ZeroReg {
		return 0
	}
	return rf.ctx.Regs[r]
}

// Store writes v to register r. A write to the zero register is a no-op.
func (rf RegisterFile) Store(r uint32, v uint64) {
	if r == ZeroReg {
		return
	}
	rf.ctx.Regs[r] = v
}

// PC returns the faulting program counter.
func (rf RegisterFile) PC() uint64 {
	return rf.ctx.Pc
}

// AdvancePC moves the saved PC forward by n bytes, for instruction
// sequences (LL/SC) that the handler emulates in their entirety.
func (rf RegisterFile) AdvancePC(n uint64) {
	rf.ctx.Pc += n
}
