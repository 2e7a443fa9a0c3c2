package core

// Band classifies a misaligned access by which atomic primitive can still
// cover it.
type Band int

const (
	BandAlignedInCell Band = iota
	BandStraddle8
	BandStraddle16
	BandStraddleLine
)

func (b Band) MarshalJSON() ([]byte, error) { return []byte(`"` + b.String() + `"`), nil }

func (b Band) String() string {
	switch b {
	case BandAlignedInCell:
		return "aligned-in-cell"
	case BandStraddle8:
		return "straddle-8"
	case BandStraddle16:
		return "straddle-16"
	case BandStraddleLine:
		return "straddle-line"
	default:
		return "unknown"
	}
}

// Classify is a pure function of (addr, width) that returns the alignment
// band and the field's byte offset within its 16-byte cell. It also bumps
// the telemetry counters for the two bands that represent a genuine loss
// of atomicity.
func Classify(addr uint64, width uint32, t *Telemetry) (Band, uint32) {
	offset16 := uint32(addr % 16)
	offset64 := uint32(addr % 64)

	var band Band
	switch {
	case offset64+width > 64:
		band = BandStraddleLine
	case offset16+width > 16:
		band = BandStraddle16
	case uint32(addr%8)+width > 8:
		band = BandStraddle8
	default:
		band = BandAlignedInCell
	}

	if t != nil {
		switch band {
		case BandStraddle16:
			t.Split16Byte.Add(1)
		case BandStraddleLine:
			// A cacheline straddle is also a 16-byte straddle — (addr&63)==63
			// implies (addr&15)==15 — so both counters bump.
			t.Split16Byte.Add(1)
			t.SplitAcrossCacheline.Add(1)
		}
	}

	return band, offset16
}

// chooseContainer picks the smallest naturally-aligned container in
// {4,8,16} bytes that holds a width-byte field starting at addr without
// itself straddling a boundary the hardware cannot cross atomically.
// AlignedInCell and Straddle8 accesses always resolve to one of these;
// Straddle16/StraddleLine accesses go through the split-cell kernel
// instead and never call this helper. A width no container in {4,8,16}
// can hold (width > 16, i.e. the caller routed a field here that should
// have gone to the split-cell kernel) is ErrBadContainerWidth.
func chooseContainer(addr uint64, width uint32) (container uint32, offset uint32, err error) {
	for _, c := range []uint32{4, 8, 16} {
		if c < width {
			continue
		}
		off := uint32(addr % uint64(c))
		if off+width <= c {
			return c, off, nil
		}
	}
	return 0, 0, ErrBadContainerWidth
}
