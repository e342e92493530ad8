package scheduler

import "testing"

func TestArmFiresAtExactDelay(t *testing.T) {
	c := New()
	var fired int64 = -1
	c.Arm(0, 100, func() { fired = c.Now() })

	c.Advance(99)
	if fired != -1 {
		t.Fatalf("fired early at %d", fired)
	}
	c.Advance(1)
	if fired != 100 {
		t.Errorf("fired = %d, want 100", fired)
	}
}

func TestArmOrdersMultipleUnitsByDelay(t *testing.T) {
	c := New()
	var order []int
	c.Arm(2, 300, func() { order = append(order, 2) })
	c.Arm(0, 100, func() { order = append(order, 0) })
	c.Arm(1, 200, func() { order = append(order, 1) })

	c.Advance(300)
	want := []int{0, 1, 2}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %d, want %d", i, order[i], want[i])
		}
	}
}

func TestReArmReplacesPendingEvent(t *testing.T) {
	c := New()
	fireCount := 0
	c.Arm(0, 50, func() { fireCount++ })
	c.Arm(0, 100, func() { fireCount++ })

	c.Advance(50)
	if fireCount != 0 {
		t.Fatalf("original event still fired after re-arm")
	}
	c.Advance(50)
	if fireCount != 1 {
		t.Errorf("fireCount = %d, want 1", fireCount)
	}
}

func TestCancelRemovesEventAndPreservesOthers(t *testing.T) {
	c := New()
	var fired []int
	c.Arm(0, 50, func() { fired = append(fired, 0) })
	c.Arm(1, 100, func() { fired = append(fired, 1) })
	c.Cancel(0)

	c.Advance(100)
	if len(fired) != 1 || fired[0] != 1 {
		t.Errorf("fired = %v, want [1]", fired)
	}
}

func TestIsActive(t *testing.T) {
	c := New()
	if c.IsActive(0) {
		t.Fatalf("unit 0 active with nothing armed")
	}
	c.Arm(0, 10, func() {})
	if !c.IsActive(0) {
		t.Errorf("unit 0 should be active after Arm")
	}
	c.Advance(10)
	if c.IsActive(0) {
		t.Errorf("unit 0 should be inactive after firing")
	}
}

func TestCallbackCanReArmAnotherUnit(t *testing.T) {
	c := New()
	var order []int
	c.Arm(1, 200, func() { order = append(order, 1) })
	c.Arm(0, 100, func() {
		order = append(order, 0)
		c.Arm(1, 50, func() { order = append(order, 9) })
	})

	c.Advance(200)
	want := []int{0, 9}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %d, want %d", i, order[i], want[i])
		}
	}
}
