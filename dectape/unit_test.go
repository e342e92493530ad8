package dectape

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	u := &Unit{id: 2}
	u.attached = true
	u.format = Format12B
	u.writeLocked = true
	u.path = "unit2.tap"
	u.pos = 12345
	u.lastTime = 999
	u.geometry = geometryFor(Format12B)
	u.store = newStore(u.geometry.Capacity)
	u.store.writeWord(0, 0o123)
	u.store.writeWord(1, 0o456)
	u.state.SetCurrent(Step{Motion: AtSpeedFwd, Function: FuncRead})

	snap := u.Snapshot()

	other := &Unit{id: 2}
	other.Restore(snap)

	require.True(t, other.attached)
	require.Equal(t, Format12B, other.format)
	require.True(t, other.writeLocked)
	require.Equal(t, "unit2.tap", other.path)
	require.EqualValues(t, 12345, other.pos)
	require.EqualValues(t, 999, other.lastTime)
	require.Equal(t, AtSpeedFwd, other.state.Current().Motion)
	require.Equal(t, FuncRead, other.state.Current().Function)
	require.EqualValues(t, 0o123, other.store.readWord(0))
	require.EqualValues(t, 0o456, other.store.readWord(1))
	require.Equal(t, u.geometry.Capacity, other.geometry.Capacity)

	// Mutating the snapshot's backing slice must not affect the live unit.
	snap.Words[0] = 0o777
	require.EqualValues(t, 0o123, u.store.readWord(0), "Snapshot should have copied store words, not aliased them")
}

func TestRestoreDetachedClearsStore(t *testing.T) {
	u := &Unit{id: 0}
	u.attached = true
	u.geometry = geometryFor(Format18B)
	u.store = newStore(u.geometry.Capacity)

	u.Restore(Snapshot{Attached: false})

	require.Nil(t, u.store)
	require.False(t, u.attached)
}
