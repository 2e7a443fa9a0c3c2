package atomcell

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWideHalvesRoundTrip(t *testing.T) {
	w := WideFromHalves(0x1122334455667788, 0x99aabbccddeeff00)
	lo, hi := w.Halves()
	require.Equal(t, uint64(0x1122334455667788), lo)
	require.Equal(t, uint64(0x99aabbccddeeff00), hi)
}

func TestWideBytesRoundTrip(t *testing.T) {
	w := WideFromHalves(0x1122334455667788, 0x99aabbccddeeff00)
	b := w.bytes16()
	got := wideFromBytes16(b)
	require.True(t, w.Eq(got))
}

func TestWideBitwiseOps(t *testing.T) {
	a := WideFromHalves(0xf0f0f0f0f0f0f0f0, 0)
	b := WideFromHalves(0x0f0f0f0f0f0f0f0f, 0)
	require.True(t, a.And(b).Eq(WideFromHalves(0, 0)))
	require.True(t, a.Or(b).Eq(WideFromHalves(^uint64(0), 0)))
	require.True(t, a.AndNot(a).Eq(WideFromHalves(0, 0)))
}

func TestMaskWidth128(t *testing.T) {
	require.True(t, MaskWidth128(2).Eq(WideFromHalves(0xffff, 0)))
	require.True(t, MaskWidth128(8).Eq(WideFromHalves(^uint64(0), 0)))
}

func TestWideFieldAtAndWithFieldAt(t *testing.T) {
	w := WideFromHalves(0x1122334455667788, 0x99aabbccddeeff00)
	require.Equal(t, uint64(0x7788), w.FieldAt(0, 2))
	require.Equal(t, uint64(0x5566), w.FieldAt(2, 2))

	replaced := w.WithFieldAt(0, 2, 0xbeef)
	require.Equal(t, uint64(0xbeef), replaced.FieldAt(0, 2))
	require.Equal(t, uint64(0x5566), replaced.FieldAt(2, 2))
	lo, hi := replaced.Halves()
	require.Equal(t, uint64(0x1122334455667788&^uint64(0xffff)|0xbeef), lo)
	require.Equal(t, uint64(0x99aabbccddeeff00), hi)
}
