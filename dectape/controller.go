package dectape

import "fmt"

// NumUnits is the number of transports a controller manages.
const NumUnits = 8

// unitSelectMap translates the 4-bit unit-select field loaded by pulse
// 3 into a transport index, or -1 if the field names no transport.
var unitSelectMap = [16]int{
	-1, 1, 2, 3, 4, 5, 6, 7,
	0, -1, -1, -1, -1, -1, -1, -1,
}

// Pulse identifies which of the controller's five host pulses fired.
type Pulse int

const (
	PulseSelectUnit  Pulse = 3
	PulseLoadCommand Pulse = 4
	PulseReadData    Pulse = 5
	PulseWriteData   Pulse = 6
	PulseReadStatus  Pulse = 7
)

const (
	unitSelectShift = 12
	unitSelectMask  = 0xF
	reverseBit      = 1 << 4
	goBit           = 1 << 5
	functionMask    = 0x7
)

// StatusBits are the individual flags of status register B.
type StatusBits uint32

const (
	DTF            StatusBits = 1 << iota // data/transfer flag
	BEF                                   // block-end flag
	ERF                                   // error flag
	EndOfTape                             // E1: ran off the recorded region
	TimingError                           // E2: host missed a data pulse deadline
	MarkTrackError                        // E3: reserved, never raised
	SelectError                           // E4: bad unit/function/state
	Reverse                               // mirrors selected unit's direction
	Go                                    // mirrors selected unit's motion
)

const allErrorBits = EndOfTape | TimingError | MarkTrackError | SelectError

// StatusA is the controller's unit-select and command register.
type StatusA struct {
	UnitSelect int // raw 4-bit field, before table translation
	Go         bool
	Reverse    bool
	Function   Function
}

// SelectedUnit translates UnitSelect through the hardware mapping
// table, returning -1 if it names no transport.
func (a StatusA) SelectedUnit() int {
	if a.UnitSelect < 0 || a.UnitSelect >= len(unitSelectMap) {
		return -1
	}
	return unitSelectMap[a.UnitSelect]
}

// Timing holds the logical-time constants driving all motion.
type Timing struct {
	LineTime  int64
	AccelTime int64
	DecelTime int64
}

// DebugFlags gate verbose logging of individual function classes.
type DebugFlags uint8

const (
	LogMS DebugFlags = 1 << iota // MOVE/SEARCH start
	LogRW                        // read/write word transfers
	LogRA                        // READ-ALL start
	LogBL                        // limited to a single block number
)

// Logger is the optional collaborator the function executor calls for
// debug-gated tracing, mirroring util/debug's DebugDevf calls in the
// teacher codebase.
type Logger interface {
	Logf(unit int, format string, args ...interface{})
}

// InterruptSink is notified whenever the controller's combined
// DTF|BEF|ERF interrupt-pending condition may have changed, mirroring
// the teacher's ch.SetDevAttn push-style channel-end notification.
type InterruptSink interface {
	RequestInterrupt()
}

// Adapter performs the on-disk 12b/16b/18b transcoding for Attach and
// Detach. tapeimage.Adapter is the production implementation.
type Adapter interface {
	Load(path string, format Format, capacity int) (words []uint32, hwmark int, err error)
	Save(path string, words []uint32, hwmark int, format Format) error
}

// Controller is a Type 550/555 DECtape controller: eight transports
// plus the shared registers and command dispatch the host pulses
// drive.
type Controller struct {
	Units    [NumUnits]*Unit
	Timing   Timing
	Disabled bool

	Logger    Logger
	DebugMask DebugFlags
	LogBlock  int // with LogBL set, only this block number is traced

	Interrupts InterruptSink

	scheduler  Scheduler
	statusA    StatusA
	statusB    StatusBits
	dataBuffer uint32
}

// NewController builds a controller with all units unattached, driven
// by sched.
func NewController(sched Scheduler) *Controller {
	c := &Controller{scheduler: sched}
	for i := range c.Units {
		c.Units[i] = &Unit{id: i}
	}
	return c
}

// StatusA returns a copy of the current command register.
func (c *Controller) StatusA() StatusA { return c.statusA }

// StatusB returns the current flag register.
func (c *Controller) StatusB() StatusBits { return c.statusB }

// DataBuffer returns the current contents of the data buffer.
func (c *Controller) DataBuffer() uint32 { return c.dataBuffer }

// InterruptPending reports whether DTF, BEF or ERF is currently set.
func (c *Controller) InterruptPending() bool {
	return c.statusB&(DTF|BEF|ERF) != 0
}

// IORS reports the device-specific status-mask bit a host IORS query
// would see: set whenever DTF or ERF is asserted.
func (c *Controller) IORS() bool {
	return c.statusB&(DTF|ERF) != 0
}

func (c *Controller) updateInterrupt() {
	if c.Interrupts != nil && c.InterruptPending() {
		c.Interrupts.RequestInterrupt()
	}
}

func (c *Controller) logf(unitID int, flag DebugFlags, block int, format string, args ...interface{}) {
	if c.Logger == nil || c.DebugMask&flag == 0 {
		return
	}
	if c.DebugMask&LogBL != 0 && block != c.LogBlock {
		return
	}
	c.Logger.Logf(unitID, format, args...)
}

// Pulse dispatches one host pulse. result is data with any response
// bits merged in; refused is true if the controller is disabled and
// the pulse had no effect (the host maps this to its "stop" reason).
func (c *Controller) Pulse(pulse Pulse, data uint32) (result uint32, refused bool) {
	if c.Disabled {
		return data, true
	}
	switch pulse {
	case PulseSelectUnit:
		c.selectUnit(data)
		result = data
	case PulseLoadCommand:
		c.loadCommand(data)
		result = data
	case PulseReadData:
		result = data | c.dataBuffer
		c.statusB &^= DTF | BEF
	case PulseWriteData:
		c.dataBuffer = data & Mask18
		result = data
		c.statusB &^= DTF | BEF
	case PulseReadStatus:
		c.refreshMotionStatus()
		result = data | uint32(c.statusB)
	default:
		result = data
	}
	c.updateInterrupt()
	return result, false
}

func (c *Controller) refreshMotionStatus() {
	c.statusB &^= Reverse | Go
	idx := c.statusA.SelectedUnit()
	if idx < 0 {
		return
	}
	u := c.Units[idx]
	cur := u.state.Current()
	if cur.Motion.reverse() {
		c.statusB |= Reverse
	}
	if cur.Motion.phase() >= PhaseAccel || u.state.hasPending() {
		c.statusB |= Go
	}
}

func decodeCommand(data uint32) (goFlag, reverse bool, fn Function) {
	return data&goBit != 0, data&reverseBit != 0, Function(data & functionMask)
}

func (c *Controller) selectUnit(data uint32) {
	newField := int((data >> unitSelectShift) & unitSelectMask)
	if newField != c.statusA.UnitSelect {
		c.deselect()
	}
	c.statusA.UnitSelect = newField
	c.statusB &^= DTF | BEF | ERF | allErrorBits
}

// deselect implements spec §4.9: a unit losing selection while at
// speed is switched to OFF-REEL and keeps travelling in its current
// direction until it runs off that end of the tape and detaches
// itself; one still accelerating gets OFF-REEL as its next step, so it
// does the same once it reaches speed.
func (c *Controller) deselect() {
	idx := c.statusA.SelectedUnit()
	if idx < 0 {
		return
	}
	u := c.Units[idx]
	cur := u.state.Current()
	switch cur.Motion.phase() {
	case PhaseAtSpeed:
		c.newFunction(u, Step{Motion: cur.Motion, Function: FuncOffReel})
	case PhaseAccel:
		u.state.SetNext(Step{Motion: atSpeedMotion(cur.Motion.reverse()), Function: FuncOffReel})
	}
}

func (c *Controller) setSelectError() {
	c.statusA.Go = false
	c.statusB |= ERF | SelectError
	c.updateInterrupt()
}

func (c *Controller) loadCommand(data uint32) {
	goFlag, reverse, fn := decodeCommand(data)
	c.statusA.Go = goFlag
	c.statusA.Reverse = reverse
	c.statusA.Function = fn
	c.statusB &^= DTF | BEF | ERF | allErrorBits

	idx := c.statusA.SelectedUnit()
	if idx < 0 {
		c.setSelectError()
		return
	}
	u := c.Units[idx]
	if c.Disabled || !u.attached || fn == FuncWriteMark ||
		((fn == FuncWrite || fn == FuncWriteAll) && u.writeLocked) {
		c.setError(u, SelectError)
		return
	}
	c.transition(u, goFlag, reverse, fn)
}

// transition implements the unit state machine of spec §4.2.
func (c *Controller) transition(u *Unit, moving, reverse bool, fn Function) {
	cur := u.state.Current().Motion
	prevMoving := cur.moving()
	prevDir := cur.reverse()

	switch {
	case !prevMoving && !moving:
		return

	case moving && !prevMoving:
		c.updatePosition(u, c.scheduler.Now())
		c.scheduler.Cancel(u.id)
		c.scheduler.Arm(u.id, c.Timing.AccelTime, func() { c.service(u) })
		u.state.SetCurrent(Step{Motion: accelMotion(reverse)})
		u.state.SetNext(Step{Motion: atSpeedMotion(reverse), Function: fn})

	case !moving && prevMoving:
		if cur.phase() != PhaseDecel {
			c.updatePosition(u, c.scheduler.Now())
			c.scheduler.Cancel(u.id)
			c.scheduler.Arm(u.id, c.Timing.DecelTime, func() { c.service(u) })
		}
		u.state.SetCurrent(Step{Motion: decelMotion(prevDir)})
		u.state.SetNext(Step{})
		u.state.SetNextNext(Step{})

	case prevDir != reverse:
		if cur.phase() != PhaseDecel {
			c.updatePosition(u, c.scheduler.Now())
			c.scheduler.Cancel(u.id)
			c.scheduler.Arm(u.id, c.Timing.DecelTime, func() { c.service(u) })
		}
		u.state.SetCurrent(Step{Motion: decelMotion(prevDir)})
		u.state.SetNext(Step{Motion: accelMotion(reverse)})
		u.state.SetNextNext(Step{Motion: atSpeedMotion(reverse), Function: fn})

	case cur.phase() < PhaseAccel:
		c.updatePosition(u, c.scheduler.Now())
		c.scheduler.Cancel(u.id)
		c.scheduler.Arm(u.id, c.Timing.AccelTime, func() { c.service(u) })
		u.state.SetCurrent(Step{Motion: accelMotion(reverse)})
		u.state.SetNext(Step{Motion: atSpeedMotion(reverse), Function: fn})

	case cur.phase() < PhaseAtSpeed:
		u.state.SetNext(Step{Motion: atSpeedMotion(reverse), Function: fn})

	default:
		c.newFunction(u, Step{Motion: atSpeedMotion(reverse), Function: fn})
	}
}

type positionResult int

const (
	noChange positionResult = iota
	changed
	offReel
)

// updatePosition implements spec §4.5: advance pos by the distance
// covered since lastTime given the current motion phase, and detect
// the tape walking off either reel.
func (c *Controller) updatePosition(u *Unit, now int64) positionResult {
	elapsed := now - u.lastTime
	if elapsed == 0 {
		return noChange
	}
	u.lastTime = now
	motion := u.state.Current().Motion
	delta := advance(motion.phase(), elapsed, c.Timing.LineTime, c.Timing.AccelTime, c.Timing.DecelTime)
	if motion.reverse() {
		u.pos -= delta
	} else {
		u.pos += delta
	}
	offReelBound := int64(u.geometry.ForwardEndZone) + EndZoneLines
	if u.pos >= 0 && u.pos <= offReelBound {
		return changed
	}
	wasSelected := c.statusA.SelectedUnit() == u.id
	c.detachRaw(u)
	u.state = stateQueue{}
	u.pos = 0
	if wasSelected {
		c.setError(u, SelectError)
	}
	return offReel
}

// setError implements spec §4.8: stop the host command, raise the
// flag, and if the unit is accelerating or at speed, schedule its
// deceleration.
func (c *Controller) setError(u *Unit, kind StatusBits) {
	c.statusA.Go = false
	c.statusB |= ERF | kind
	if u.state.Current().Motion.phase() >= PhaseAccel {
		reverse := u.state.Current().Motion.reverse()
		c.scheduler.Cancel(u.id)
		// A position update here can itself detach the unit and
		// recurse into setError; when that happens the interrupt was
		// already raised by that inner call, so skip raising it twice.
		if c.updatePosition(u, c.scheduler.Now()) == offReel {
			return
		}
		c.scheduler.Arm(u.id, c.Timing.DecelTime, func() { c.service(u) })
		u.state.SetCurrent(Step{Motion: decelMotion(reverse)})
		u.state.SetNext(Step{})
		u.state.SetNextNext(Step{})
	}
	c.updateInterrupt()
}

// service is the timer callback armed for every phase transition and
// function-in-progress tick: spec §4.4.
func (c *Controller) service(u *Unit) {
	cur := u.state.Current().Motion
	switch cur.phase() {
	case PhaseDecel:
		if c.updatePosition(u, c.scheduler.Now()) == offReel {
			return
		}
		newCur := u.state.Shift()
		if newCur.Motion.moving() {
			c.scheduler.Arm(u.id, c.Timing.AccelTime, func() { c.service(u) })
		}
	case PhaseAccel:
		next := u.state.Next()
		c.newFunction(u, next)
	case PhaseAtSpeed:
		c.atSpeedService(u)
	default:
		c.setError(u, SelectError)
	}
	c.updateInterrupt()
}

// newFunction implements spec §4.3: commit a freshly at-speed (or
// off-reel) step and arm the timer for its first meaningful event.
func (c *Controller) newFunction(u *Unit, step Step) {
	oldPos := u.pos
	if c.updatePosition(u, c.scheduler.Now()) == offReel {
		return
	}
	u.state.SetCurrent(step)
	u.state.SetNext(Step{})
	u.state.SetNextNext(Step{})

	reverse := step.Motion.reverse()
	if oldPos == u.pos {
		if reverse {
			u.pos--
		} else {
			u.pos++
		}
	}

	block, _, zone := u.geometry.classify(u.pos)
	wrongZone := (reverse && zone == ZoneReverse) || (!reverse && zone == ZoneForward)
	if wrongZone {
		c.setError(u, EndOfTape)
		return
	}

	c.scheduler.Cancel(u.id)

	switch step.Function {
	case FuncOffReel:
		var target int64
		if reverse {
			target = -EndZoneLines
		} else {
			target = int64(u.geometry.ForwardEndZone) + 2*EndZoneLines
		}
		c.scheduler.Arm(u.id, abs64(target-u.pos)*c.Timing.LineTime, func() { c.service(u) })

	case FuncMove:
		c.scheduleEndZone(u, reverse)
		c.logf(u.id, LogMS, block, "unit %d moving %s", u.id, directionName(reverse))

	case FuncSearch:
		var target int64
		if reverse {
			p := block
			if zone == ZoneForward {
				p = u.geometry.BlockCount
			}
			target = blockLineStart(u.geometry, p) - BlockNumberLineOffset - TapeWordSize
		} else {
			p := block + 1
			if zone == ZoneReverse {
				p = 0
			}
			target = blockLineStart(u.geometry, p) + BlockNumberLineOffset + (TapeWordSize - 1)
		}
		c.scheduler.Arm(u.id, abs64(target-u.pos)*c.Timing.LineTime, func() { c.service(u) })
		c.logf(u.id, LogMS, block, "unit %d searching %s", u.id, directionName(reverse))

	case FuncRead, FuncWrite, FuncReadAll, FuncWriteAll:
		var target int64
		if zone != ZoneData {
			if reverse {
				target = int64(u.geometry.ForwardEndZone) - TapeWordSize
			} else {
				target = EndZoneLines + (TapeWordSize - 1)
			}
		} else {
			target = (u.pos / TapeWordSize) * TapeWordSize
			if reverse {
				target += TapeWordSize - 1
			}
		}
		c.scheduler.Arm(u.id, abs64(target-u.pos)*c.Timing.LineTime, func() { c.service(u) })
		if step.Function == FuncWrite || step.Function == FuncWriteAll {
			c.statusB |= DTF
		}
		if step.Function == FuncReadAll {
			c.logf(u.id, LogRA, block, "unit %d read all block %d", u.id, block)
		}

	default:
		c.setError(u, SelectError)
	}
}

func (c *Controller) scheduleEndZone(u *Unit, reverse bool) {
	var target int64
	if reverse {
		target = EndZoneLines - TapeWordSize
	} else {
		target = int64(u.geometry.ForwardEndZone) + TapeWordSize
	}
	c.scheduler.Arm(u.id, abs64(target-u.pos)*c.Timing.LineTime, func() { c.service(u) })
}

// atSpeedService implements spec §4.4's at-speed branch: check for
// end-of-tape, then dispatch on the function in progress.
func (c *Controller) atSpeedService(u *Unit) {
	if c.updatePosition(u, c.scheduler.Now()) == offReel {
		return
	}
	block, relpos, zone := u.geometry.classify(u.pos)
	if zone != ZoneData {
		c.setError(u, EndOfTape)
		return
	}

	cur := u.state.Current()
	reverse := cur.Motion.reverse()

	switch cur.Function {
	case FuncMove:
		c.setError(u, EndOfTape)
	case FuncOffReel:
		c.detachRaw(u)
		u.state = stateQueue{}
		u.pos = 0
	case FuncSearch:
		c.serviceSearch(u, block)
	case FuncRead:
		c.serviceRead(u, block, relpos, reverse, false)
	case FuncReadAll:
		c.serviceRead(u, block, relpos, reverse, true)
	case FuncWrite:
		c.serviceWrite(u, block, relpos, reverse, false)
	case FuncWriteAll:
		c.serviceWrite(u, block, relpos, reverse, true)
	default:
		c.setError(u, SelectError)
	}
	c.updateInterrupt()
}

func (c *Controller) serviceSearch(u *Unit, block int) {
	if c.statusB&DTF != 0 {
		c.setError(u, TimingError)
		return
	}
	c.scheduler.Arm(u.id, int64(u.geometry.LinesPerBlock)*c.Timing.LineTime, func() { c.service(u) })
	c.dataBuffer = uint32(block)
	c.statusB |= DTF
}

func (c *Controller) serviceRead(u *Unit, block, relpos int, reverse, all bool) {
	if c.statusB&DTF != 0 {
		c.setError(u, TimingError)
		return
	}
	c.scheduler.Arm(u.id, int64(TapeWordSize)*c.Timing.LineTime, func() { c.service(u) })

	ht := HeaderTrailerLines
	lpb := u.geometry.LinesPerBlock
	if relpos >= ht && relpos < lpb-ht {
		wordIdx := (relpos - ht) / TapeWordSize
		addr := block*u.geometry.BlockSize + wordIdx
		value := u.store.readWord(addr)
		if reverse {
			value = obverseComplement(value)
		}
		c.dataBuffer = value
		lastWord := u.geometry.BlockSize - 1
		endWord := lastWord
		if reverse {
			endWord = 0
		}
		if wordIdx == endWord {
			c.statusB |= BEF
		} else {
			c.statusB |= DTF
		}
		c.logf(u.id, LogRW, block, "unit %d read block %d word %d", u.id, block, wordIdx)
		return
	}

	wordOffset := relpos / TapeWordSize
	lastWord := 2*HeaderTrailerWords + u.geometry.BlockSize - 1
	if wordOffset == 0 || wordOffset == lastWord {
		return
	}
	forwardChecksumWord := 2*HeaderTrailerWords + u.geometry.BlockSize - ChecksumWord - 1
	if !all && wordOffset != ChecksumWord && wordOffset != forwardChecksumWord {
		return
	}

	value := headerWord(u, block, wordOffset, forwardChecksumWord)
	endChecksumWord := ChecksumWord
	if !reverse {
		endChecksumWord = forwardChecksumWord
	}
	if wordOffset == endChecksumWord {
		c.statusB |= BEF
	} else {
		c.statusB |= DTF
	}
	if reverse {
		value = obverseComplement(value)
	}
	c.dataBuffer = value
}

func (c *Controller) serviceWrite(u *Unit, block, relpos int, reverse, all bool) {
	if c.statusB&DTF != 0 {
		c.setError(u, TimingError)
		return
	}
	c.scheduler.Arm(u.id, int64(TapeWordSize)*c.Timing.LineTime, func() { c.service(u) })

	ht := HeaderTrailerLines
	lpb := u.geometry.LinesPerBlock
	if relpos >= ht && relpos < lpb-ht {
		wordIdx := (relpos - ht) / TapeWordSize
		addr := block*u.geometry.BlockSize + wordIdx
		value := c.dataBuffer
		if reverse {
			value = obverseComplement(value)
		}
		u.store.writeWord(addr, value)
		lastWord := u.geometry.BlockSize - 1
		endWord := lastWord
		if reverse {
			endWord = 0
		}
		if wordIdx == endWord {
			c.statusB |= BEF
		} else {
			c.statusB |= DTF
		}
		c.logf(u.id, LogRW, block, "unit %d write block %d word %d", u.id, block, wordIdx)
		return
	}

	wordOffset := relpos / TapeWordSize
	lastWord := 2*HeaderTrailerWords + u.geometry.BlockSize - 1
	if wordOffset == 0 || wordOffset == lastWord {
		return
	}
	forwardChecksumWord := 2*HeaderTrailerWords + u.geometry.BlockSize - ChecksumWord - 1
	if !all && wordOffset != forwardChecksumWord {
		return
	}
	c.statusB |= DTF
}

// SetWriteLock updates the write-protect flag of unit idx without
// requiring a detach/reattach cycle.
func (c *Controller) SetWriteLock(idx int, locked bool) error {
	if idx < 0 || idx >= NumUnits {
		return fmt.Errorf("dectape: invalid unit %d", idx)
	}
	c.Units[idx].writeLocked = locked
	return nil
}

// Attach mounts a tape image on unit idx, detaching any prior image
// first. A failed load leaves the unit detached, per spec §7.
func (c *Controller) Attach(idx int, adapter Adapter, path string, format Format, writeLocked bool) error {
	if idx < 0 || idx >= NumUnits {
		return fmt.Errorf("dectape: invalid unit %d", idx)
	}
	u := c.Units[idx]
	if u.attached {
		if err := c.Detach(idx, adapter); err != nil {
			return err
		}
	}
	geometry := geometryFor(format)
	words, hwmark, err := adapter.Load(path, format, geometry.Capacity)
	if err != nil {
		return fmt.Errorf("dectape: attach unit %d: %w", idx, err)
	}
	u.store = &store{words: words, hwmark: hwmark}
	u.format = format
	u.geometry = geometry
	u.writeLocked = writeLocked
	u.path = path
	u.adapter = adapter
	u.attached = true
	u.pos = EndZoneLines
	u.lastTime = c.scheduler.Now()
	u.state = stateQueue{}
	return nil
}

// Detach unmounts unit idx, writing the image back unless it was
// mounted read-only. If the unit was selected and running, this
// raises SELECT-ERROR the way an operator-initiated detach of a live
// transport does on the real controller.
func (c *Controller) Detach(idx int, adapter Adapter) error {
	if idx < 0 || idx >= NumUnits {
		return fmt.Errorf("dectape: invalid unit %d", idx)
	}
	u := c.Units[idx]
	if !u.attached {
		return nil
	}
	if c.scheduler.IsActive(u.id) {
		c.scheduler.Cancel(u.id)
		if idx == c.statusA.SelectedUnit() {
			c.statusB |= ERF | SelectError | DTF
			c.updateInterrupt()
		}
	}
	return c.detachRaw(u)
}

// detachRaw performs the file write-back and buffer release without
// touching motion state or flags; callers that detach as a side
// effect of running off a reel manage those separately.
func (c *Controller) detachRaw(u *Unit) error {
	if !u.attached {
		return nil
	}
	var saveErr error
	if !u.writeLocked && u.store != nil && u.adapter != nil {
		saveErr = u.adapter.Save(u.path, u.store.words, u.store.hwmark, u.format)
	}
	u.store = nil
	u.adapter = nil
	u.attached = false
	if saveErr != nil {
		return fmt.Errorf("dectape: detach unit %d: %w", u.id, saveErr)
	}
	return nil
}
