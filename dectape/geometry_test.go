package dectape

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeometryFor18B(t *testing.T) {
	g := geometryFor(Format18B)
	require.Equal(t, BlockSize18B, g.BlockSize)
	require.Equal(t, TapeBlocks18B, g.BlockCount)

	wantLPB := 2*HeaderTrailerLines + BlockSize18B*TapeWordSize
	require.Equal(t, wantLPB, g.LinesPerBlock)

	wantFEZ := EndZoneLines + wantLPB*TapeBlocks18B
	require.Equal(t, wantFEZ, g.ForwardEndZone)
}

func TestGeometryFor12B(t *testing.T) {
	g := geometryFor(Format12B)
	require.Equal(t, BlockSize12B, g.BlockSize)
	require.Equal(t, TapeBlocks12B, g.BlockCount)
}

func TestClassifyZones(t *testing.T) {
	g := geometryFor(Format18B)

	_, _, zone := g.classify(0)
	require.Equal(t, ZoneReverse, zone)

	_, _, zone = g.classify(int64(g.ForwardEndZone))
	require.Equal(t, ZoneForward, zone)

	block, relpos, zone := g.classify(EndZoneLines)
	require.Equal(t, ZoneData, zone)
	require.Equal(t, 0, block)
	require.Equal(t, 0, relpos)

	block, _, zone = g.classify(int64(EndZoneLines + g.LinesPerBlock))
	require.Equal(t, ZoneData, zone)
	require.Equal(t, 1, block)
}
