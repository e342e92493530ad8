package dectape

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObverseComplementSelfInverse(t *testing.T) {
	vals := []uint32{0, Mask18, 1, 0o123456, 0o777776, 0o400000}
	for _, v := range vals {
		require.Equal(t, v, obverseComplement(obverseComplement(v)))
	}
}

func TestObverseComplementKnownValue(t *testing.T) {
	// complement of 0 is all ones (0o777777); the group reversal of an
	// all-ones value is itself.
	require.Equal(t, uint32(Mask18), obverseComplement(0))
	require.Equal(t, uint32(0), obverseComplement(Mask18))
}

func TestChecksumComplementOfSum(t *testing.T) {
	u := &Unit{geometry: Geometry{BlockSize: 4}, store: newStore(4)}
	u.store.words[0] = 1
	u.store.words[1] = 2
	u.store.words[2] = 3
	u.store.words[3] = 4

	got := checksum(u, 0)
	// running one's-complement sum of 1+2+3+4 starting from all-ones,
	// then complemented.
	sum := uint32(Mask18)
	for _, w := range []uint32{1, 2, 3, 4} {
		sum += w
		if sum > Mask18 {
			sum = (sum + 1) & Mask18
		}
	}
	want := sum ^ Mask18
	require.Equal(t, want, got)
}

func TestHeaderWordSlots(t *testing.T) {
	u := &Unit{geometry: geometryFor(Format18B), store: newStore(geometryFor(Format18B).Capacity)}
	fwdCsum := 2*HeaderTrailerWords + u.geometry.BlockSize - ChecksumWord - 1

	require.EqualValues(t, 5, headerWord(u, 5, BlockNumberWord, fwdCsum))
	require.EqualValues(t, Mask18, headerWord(u, 5, ChecksumWord, fwdCsum))
	require.Equal(t, checksum(u, 5), headerWord(u, 5, fwdCsum, fwdCsum))
	require.EqualValues(t, 0, headerWord(u, 5, 2, fwdCsum))
}
