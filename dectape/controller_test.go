package dectape

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dtape/dt550ctl/scheduler"
)

// memAdapter is an in-memory Adapter for tests, avoiding any file I/O.
type memAdapter struct {
	saved map[string][]uint32
}

func newMemAdapter() *memAdapter { return &memAdapter{saved: map[string][]uint32{}} }

func (m *memAdapter) Load(path string, format Format, capacity int) ([]uint32, int, error) {
	words := make([]uint32, capacity)
	if existing, ok := m.saved[path]; ok {
		copy(words, existing)
	}
	return words, 0, nil
}

func (m *memAdapter) Save(path string, words []uint32, hwmark int, format Format) error {
	cp := append([]uint32(nil), words[:hwmark]...)
	m.saved[path] = cp
	return nil
}

func newTestController(t *testing.T) (*Controller, *scheduler.Manual, *memAdapter) {
	t.Helper()
	sched := scheduler.NewManual()
	c := NewController(sched)
	c.Timing = Timing{LineTime: LineTime, AccelTime: AccelTime, DecelTime: DecelTime}
	adapter := newMemAdapter()
	for i := 0; i < NumUnits; i++ {
		require.NoError(t, c.Attach(i, adapter, "unit"+string(rune('0'+i))+".tap", Format18B, false), "attach unit %d", i)
	}
	return c, sched, adapter
}

func selectAndCommand(c *Controller, unit int, goFlag, reverse bool, fn Function) {
	c.Pulse(PulseSelectUnit, uint32(unitSelectFieldFor(unit))<<unitSelectShift)
	data := uint32(fn)
	if reverse {
		data |= reverseBit
	}
	if goFlag {
		data |= goBit
	}
	c.Pulse(PulseLoadCommand, data)
}

// unitSelectFieldFor inverts unitSelectMap for test convenience.
func unitSelectFieldFor(unit int) int {
	for field, mapped := range unitSelectMap {
		if mapped == unit {
			return field
		}
	}
	panic("no select field for unit")
}

// scenarios from spec.md §8's table of boundary conditions; each row is
// driven through a fresh controller and checked against the status bits
// it must leave set.
func TestBoundaryScenarios(t *testing.T) {
	t.Run("A_forward_move_reaches_forward_end_zone", func(t *testing.T) {
		c, sched, _ := newTestController(t)
		u := c.Units[0]

		selectAndCommand(c, 0, true, false, FuncMove)
		require.Equal(t, AccelFwd, u.state.Current().Motion)

		sched.RunUntilIdle(int64(u.geometry.ForwardEndZone) * LineTime * 3)

		require.GreaterOrEqual(t, u.pos, int64(u.geometry.ForwardEndZone))
		require.NotZero(t, c.statusB&ERF, "statusB=%#x", c.statusB)
		require.NotZero(t, c.statusB&EndOfTape, "statusB=%#x", c.statusB)
	})

	t.Run("B_search_timing_error_when_DTF_not_cleared", func(t *testing.T) {
		c, sched, _ := newTestController(t)
		u := c.Units[0]
		u.pos = EndZoneLines // start right at block 0

		selectAndCommand(c, 0, true, false, FuncSearch)
		sched.RunUntilIdle(int64(AccelTime) + int64(u.geometry.LinesPerBlock)*LineTime + 10)
		require.NotZero(t, c.statusB&DTF, "expected DTF set after first search completion")

		// Re-issuing the search clears DTF (select and load command both
		// do); the DTF it then raises is never consumed via PulseReadData,
		// so the next block number arrives with DTF still set and takes
		// the TIMING-ERROR path.
		selectAndCommand(c, 0, true, false, FuncSearch)
		sched.RunUntilIdle(int64(AccelTime) + int64(u.geometry.LinesPerBlock)*LineTime + 10)

		require.NotZero(t, c.statusB&ERF, "statusB=%#x", c.statusB)
		require.NotZero(t, c.statusB&TimingError, "statusB=%#x", c.statusB)
	})

	t.Run("C_reverse_search_retrieves_block_number", func(t *testing.T) {
		c, sched, _ := newTestController(t)
		u := c.Units[0]
		// Start far enough past block 3's data that the unit is still
		// inside block 3 after the distance covered while accelerating.
		u.pos = blockLineStart(u.geometry, 3) + 100 + advance(PhaseAccel, AccelTime, LineTime, AccelTime, DecelTime)

		selectAndCommand(c, 0, true, true, FuncSearch)
		// One block time at speed: long enough for the first block number,
		// short enough that the next one does not arrive on an unread DTF.
		sched.RunUntilIdle(int64(AccelTime) + int64(u.geometry.LinesPerBlock)*LineTime)

		require.NotZero(t, c.statusB&DTF, "expected DTF set after reverse search, statusB=%#x", c.statusB)
		require.Zero(t, c.statusB&ERF, "unexpected error during reverse search, statusB=%#x", c.statusB)
		require.EqualValues(t, 2, c.DataBuffer(), "reverse search from block 3 should find the preceding block")
	})

	t.Run("D_direction_reversal_decelerates_then_accelerates", func(t *testing.T) {
		c, sched, _ := newTestController(t)
		u := c.Units[0]

		selectAndCommand(c, 0, true, false, FuncMove)
		sched.Step(AccelTime + 1) // now at speed, forward
		require.Equal(t, AtSpeedFwd, u.state.Current().Motion)

		selectAndCommand(c, 0, true, true, FuncMove) // reverse while at speed
		require.Equal(t, DecelFwd, u.state.Current().Motion, "should decelerate before reversing")
		require.Equal(t, AccelRev, u.state.Next().Motion)
	})

	t.Run("E_deselect_while_at_speed_queues_off_reel", func(t *testing.T) {
		c, sched, _ := newTestController(t)
		u := c.Units[0]

		selectAndCommand(c, 0, true, false, FuncMove)
		sched.Step(AccelTime + 1)
		require.Equal(t, FuncMove, u.state.Current().Function)

		// Select a different unit, forcing deselect() on unit 0.
		c.Pulse(PulseSelectUnit, uint32(unitSelectFieldFor(1))<<unitSelectShift)

		require.Equal(t, FuncOffReel, u.state.Current().Function, "expected FuncOffReel after deselect")
	})

	t.Run("F_write_mark_always_rejected", func(t *testing.T) {
		c, _, _ := newTestController(t)
		selectAndCommand(c, 0, true, false, FuncWriteMark)

		require.NotZero(t, c.statusB&ERF, "statusB=%#x", c.statusB)
		require.NotZero(t, c.statusB&SelectError, "statusB=%#x", c.statusB)
		require.False(t, c.Units[0].state.Current().Motion.moving(), "unit should not have started moving for a rejected command")
	})
}

func TestWriteToWriteLockedUnitRejected(t *testing.T) {
	c, _, adapter := newTestController(t)
	require.NoError(t, c.Attach(1, adapter, "locked.tap", Format18B, true))

	selectAndCommand(c, 1, true, false, FuncWrite)

	require.NotZero(t, c.statusB&ERF, "statusB=%#x", c.statusB)
	require.NotZero(t, c.statusB&SelectError, "statusB=%#x", c.statusB)
}

func TestDetachWhileSelectedAndMovingRaisesSelectErrorAndDTF(t *testing.T) {
	c, sched, adapter := newTestController(t)

	selectAndCommand(c, 0, true, false, FuncMove)
	sched.Step(AccelTime + 1) // unit 0 is now at speed and selected

	require.NoError(t, c.Detach(0, adapter))

	require.NotZero(t, c.statusB&ERF, "statusB=%#x", c.statusB)
	require.NotZero(t, c.statusB&SelectError, "statusB=%#x", c.statusB)
	require.NotZero(t, c.statusB&DTF, "spec.md detach contract requires DTF alongside SELECT-ERROR, statusB=%#x", c.statusB)
	require.False(t, c.Units[0].Attached())
}
