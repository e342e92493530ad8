/*
 * dt550ctl - Logical-time event scheduler.
 *
 * Copyright 2026, dt550ctl contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package scheduler implements dectape.Scheduler as a delta-ordered
// list of pending events, adapted from the teacher's emu/event package
// and generalized with an absolute logical clock: the teacher's event
// list only ever measured deltas between a host CPU's instruction
// steps and had no notion of "now", which dectape.Scheduler requires.
package scheduler

// entry is one pending event, ordered into the list by its delta from
// the entry before it (or from now, for the head).
type entry struct {
	unit  int
	delta int64
	cb    func()
	next  *entry
}

// Clock is a cooperative, single-threaded logical-time scheduler. It
// never reads a wall clock; callers advance it explicitly via Advance.
type Clock struct {
	now  int64
	head *entry
}

// New returns a Clock starting at logical time 0.
func New() *Clock {
	return &Clock{}
}

// Now returns the current logical time.
func (c *Clock) Now() int64 { return c.now }

// Arm schedules cb to fire delay ticks from now for unit, replacing
// any event already armed for that unit.
func (c *Clock) Arm(unit int, delay int64, cb func()) {
	c.Cancel(unit)
	if delay < 0 {
		delay = 0
	}
	e := &entry{unit: unit, cb: cb}

	var prev *entry
	remaining := delay
	cur := c.head
	for cur != nil && remaining >= cur.delta {
		remaining -= cur.delta
		prev = cur
		cur = cur.next
	}
	e.delta = remaining
	e.next = cur
	if cur != nil {
		cur.delta -= remaining
	}
	if prev == nil {
		c.head = e
	} else {
		prev.next = e
	}
}

// Cancel removes any event armed for unit. A no-op if none is armed.
func (c *Clock) Cancel(unit int) {
	var prev *entry
	cur := c.head
	for cur != nil {
		if cur.unit == unit {
			if cur.next != nil {
				cur.next.delta += cur.delta
			}
			if prev == nil {
				c.head = cur.next
			} else {
				prev.next = cur.next
			}
			return
		}
		prev = cur
		cur = cur.next
	}
}

// IsActive reports whether an event is currently armed for unit.
func (c *Clock) IsActive(unit int) bool {
	for cur := c.head; cur != nil; cur = cur.next {
		if cur.unit == unit {
			return true
		}
	}
	return false
}

// Advance moves the clock forward by ticks logical-time units, firing
// every event whose delta elapses at or before the new time, in
// order. Callbacks may re-arm or cancel other units' events; Advance
// observes the list as it stands after each callback runs.
func (c *Clock) Advance(ticks int64) {
	target := c.now + ticks
	for c.head != nil && c.now+c.head.delta <= target {
		e := c.head
		c.now += e.delta
		c.head = e.next
		e.cb()
	}
	if c.head != nil {
		c.head.delta -= target - c.now
	}
	c.now = target
}
