package atomcell

import "github.com/holiman/uint256"

// Wide is a 128-bit staging value used to assemble and compare the two
// halves of a 16-byte-straddling access. uint256.Int is the widest
// fixed-width integer type available in this codebase's dependency stack;
// Wide uses only its low 128 bits and never lets the upper half become
// nonzero.
type Wide struct {
	v uint256.Int
}

// WideFromHalves builds a Wide from its little-endian 64-bit halves, the
// natural shape of two adjacent aligned cells read low-address-first.
func WideFromHalves(lo, hi uint64) Wide {
	var w Wide
	w.v.SetUint64(hi)
	w.v.Lsh(&w.v, 64)
	var loPart uint256.Int
	loPart.SetUint64(lo)
	w.v.Or(&w.v, &loPart)
	return w
}

// Halves returns the value's little-endian 64-bit halves.
func (w Wide) Halves() (lo, hi uint64) {
	var mask uint256.Int
	mask.SetUint64(^uint64(0))

	var loPart uint256.Int
	loPart.And(&w.v, &mask)
	lo = loPart.Uint64()

	var hiPart uint256.Int
	hiPart.Rsh(&w.v, 64)
	hiPart.And(&hiPart, &mask)
	hi = hiPart.Uint64()
	return
}

func wideFromBytes16(b [16]byte) Wide {
	var rev [16]byte
	for i := range b {
		rev[i] = b[15-i]
	}
	var v uint256.Int
	v.SetBytes(rev[:])
	return Wide{v: v}
}

func (w Wide) bytes16() [16]byte {
	full := w.v.Bytes32()
	var out [16]byte
	for i := 0; i < 16; i++ {
		out[i] = full[31-i]
	}
	return out
}

// Eq reports whether two Wide values are bit-for-bit equal.
func (w Wide) Eq(o Wide) bool { return w.v.Eq(&o.v) }

// And, Or, Xor, AndNot mirror the operator table in ops.go for the rare
// case an operation's source or result needs the full 128 bits.
func (w Wide) And(o Wide) Wide { var r Wide; r.v.And(&w.v, &o.v); return r }
func (w Wide) Or(o Wide) Wide  { var r Wide; r.v.Or(&w.v, &o.v); return r }
func (w Wide) Xor(o Wide) Wide { var r Wide; r.v.Xor(&w.v, &o.v); return r }

func (w Wide) AndNot(o Wide) Wide {
	var not uint256.Int
	not.Not(&o.v)
	var r Wide
	r.v.And(&w.v, &not)
	return r
}

// Lsh and Rsh shift within the full 256-bit backing value; callers keep the
// upper 128 bits at zero by construction, so a left shift that would
// overflow past bit 127 is never issued.
func (w Wide) Lsh(n uint32) Wide { var r Wide; r.v.Lsh(&w.v, uint(n)); return r }
func (w Wide) Rsh(n uint32) Wide { var r Wide; r.v.Rsh(&w.v, uint(n)); return r }

// MaskWidth128 returns the all-ones mask for a width-byte field, for use
// against a Wide value. width must be in [0, 16].
func MaskWidth128(width uint32) Wide {
	var r Wide
	r.v.SetUint64(1)
	r.v.Lsh(&r.v, uint(width*8))
	one := uint256.NewInt(1)
	r.v.Sub(&r.v, one)
	return r
}

// FieldAt extracts the width-byte field at the given byte offset. width
// must be at most 8 so the field fits in a uint64.
func (w Wide) FieldAt(offset, width uint32) uint64 {
	lo, _ := w.Rsh(offset * 8).Halves()
	return lo & maskWidth(width)
}

// WithFieldAt returns a copy of w with its width-byte field at offset
// replaced by field's low width bytes.
func (w Wide) WithFieldAt(offset, width uint32, field uint64) Wide {
	fieldMask := MaskWidth128(width).Lsh(offset * 8)
	cleared := w.AndNot(fieldMask)
	placed := WideFromHalves(field&maskWidth(width), 0).Lsh(offset * 8)
	return cleared.Or(placed)
}

func maskWidth(width uint32) uint64 {
	if width >= 8 {
		return ^uint64(0)
	}
	return (uint64(1) << (width * 8)) - 1
}
