package scheduler

import "testing"

func TestManualStepFiresWithinRange(t *testing.T) {
	m := NewManual()
	fired := false
	m.Arm(0, 30, func() { fired = true })

	m.Step(29)
	if fired {
		t.Fatalf("fired before delay elapsed")
	}
	m.Step(1)
	if !fired {
		t.Errorf("expected event to fire")
	}
}

func TestRunUntilIdleDrainsChainedEvents(t *testing.T) {
	m := NewManual()
	count := 0
	var step func()
	step = func() {
		count++
		if count < 3 {
			m.Arm(0, 10, step)
		}
	}
	m.Arm(0, 10, step)

	advanced := m.RunUntilIdle(1000)
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
	if advanced != 30 {
		t.Errorf("advanced = %d, want 30", advanced)
	}
	if m.IsActive(0) {
		t.Errorf("expected no pending events after drain")
	}
}

func TestRunUntilIdleRespectsMaxTicks(t *testing.T) {
	m := NewManual()
	fired := false
	m.Arm(0, 1000, func() { fired = true })

	advanced := m.RunUntilIdle(10)
	if fired {
		t.Fatalf("should not have fired within budget")
	}
	if advanced != 10 {
		t.Errorf("advanced = %d, want 10", advanced)
	}
	if !m.IsActive(0) {
		t.Errorf("event should still be pending")
	}
}
