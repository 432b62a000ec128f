package acorntape

/*------------------------------------------------------------------
 *
 * Purpose:	Group the level stream into half-cycles and say which
 *		tone each one belongs to.
 *
 * Description:	There are two sources of half-cycles: PCM samples
 *		going through the level classifier, and pulse lengths
 *		straight out of a CSW file.  Both feed the same core
 *		which does the classification, the bit window counting
 *		and the checkpoints.
 *
 *---------------------------------------------------------------*/

import (
	"math"
)

type HalfCycleInfo struct {
	Freq       Frequency
	Level      Level
	Duration   int // samples
	PhaseShift int // degrees, 0, 90, 180 or 270
	Start      int // sample index where it began
}

// Summary of one bit window.
type HalfCycleCount struct {
	Count    int
	Min      int
	Max      int
	Duration int
	Dominant Frequency
}

type CycleDecoder interface {
	AdvanceHalfCycle() bool
	Info() HalfCycleInfo
	CountHalfCycles(window float64) (HalfCycleCount, bool)
	AlignBitWindow()
	ConsumeHalfCycles(freq Frequency) int
	StopOnHalfCycles(freq Frequency, n int) bool
	Checkpoint()
	Rollback()
	RegretCheckpoint()
	SetCarrierFreq(hz float64)
	Thresholds() TimingThresholds
	Position() int
	SampleRate() int
}

// What each variant has to provide.
type runSource interface {
	nextRun() (level Level, start int, duration int, ok bool)
	position() int
	saveSource()
	restoreSource()
	dropSource()
	setMaxRun(n int)
}

type cycleCoreState struct {
	info   HalfCycleInfo
	excess float64 // Samples consumed past the ideal end of the last bit window.
}

type cycleCore struct {
	src runSource

	thresholds TimingThresholds

	cycleCoreState

	checkpoints stack[cycleCoreState]
}

func (c *cycleCore) Info() HalfCycleInfo {
	return c.info
}

func (c *cycleCore) Thresholds() TimingThresholds {
	return c.thresholds
}

func (c *cycleCore) SampleRate() int {
	return c.thresholds.SampleRate
}

// Index of the next sample not yet consumed.
func (c *cycleCore) Position() int {
	return c.src.position()
}

/*------------------------------------------------------------------
 *
 * Name:	AdvanceHalfCycle
 *
 * Purpose:	Consume one half-cycle and classify it.
 *
 * Returns:	false at end of data.
 *
 * Description:	Classification uses the frequency of the previous
 *		half-cycle to settle durations in the F12 band.
 *		Phase shift only changes when we genuinely move between
 *		F1 and F2, and uses the level of the first half-cycle
 *		of the new tone.
 *
 *----------------------------------------------------------------*/

func (c *cycleCore) AdvanceHalfCycle() bool {
	var level, start, duration, ok = c.src.nextRun()
	if !ok {
		return false
	}

	var prev = c.info.Freq

	var freq = FreqNoCarrier
	var transitional = false

	if level != LevelNoCarrier {
		freq, transitional = c.thresholds.Classify(float64(duration), prev)
	}

	var phase = c.info.PhaseShift

	if isTone(freq) && isTone(prev) && freq != prev {
		phase = IfThenElse(level == LevelHigh, 0, 180)
		if transitional {
			phase += 90
		}
	}

	c.info = HalfCycleInfo{
		Freq:       freq,
		Level:      level,
		Duration:   duration,
		PhaseShift: phase,
		Start:      start,
	}

	return true
}

func isTone(f Frequency) bool {
	return f == FreqF1 || f == FreqF2
}

// Start a fresh bit alignment, normally at the leading edge of a start bit.
func (c *cycleCore) AlignBitWindow() {
	c.excess = 0
}

/*------------------------------------------------------------------
 *
 * Name:	CountHalfCycles
 *
 * Purpose:	Consume one bit period worth of half-cycles.
 *
 * Inputs:	window	- Bit period in samples.
 *
 * Returns:	Count, shortest and longest duration, and which tone
 *		most of them were.  false at end of data or loss of
 *		carrier.
 *
 * Description:	We can't split a half-cycle so we stop at the first
 *		boundary that is close enough to the ideal end of the
 *		window.  Whatever we overshoot (or fall short) by is
 *		carried into the next window so errors don't build up
 *		over the byte.
 *
 *----------------------------------------------------------------*/

func (c *cycleCore) CountHalfCycles(window float64) (HalfCycleCount, bool) {
	var target = window - c.excess
	var slack = c.thresholds.HalfCycleF2() / 2

	var res = HalfCycleCount{ //nolint:exhaustruct
		Min:      math.MaxInt,
		Dominant: FreqUndefined,
	}

	var f1, f2 = 0, 0

	for float64(res.Duration) < target-slack {
		if !c.AdvanceHalfCycle() {
			return res, false
		}

		if c.info.Freq == FreqNoCarrier {
			return res, false
		}

		res.Count++
		res.Duration += c.info.Duration
		res.Min = min(res.Min, c.info.Duration)
		res.Max = max(res.Max, c.info.Duration)

		switch c.info.Freq {
		case FreqF1:
			f1++
		case FreqF2:
			f2++
		}
	}

	if res.Count == 0 {
		res.Min = 0
	}

	switch {
	case f1 > f2:
		res.Dominant = FreqF1
	case f2 > f1:
		res.Dominant = FreqF2
	}

	c.excess = float64(res.Duration) - target

	return res, true
}

// ConsumeHalfCycles advances while half-cycles are strictly of the given
// frequency.  The first one that isn't is consumed too and left in Info.
func (c *cycleCore) ConsumeHalfCycles(freq Frequency) int {
	var n = 0

	for c.AdvanceHalfCycle() {
		if c.info.Freq != freq || !c.thresholds.IsStrict(freq, float64(c.info.Duration)) {
			return n
		}
		n++
	}

	return n
}

// StopOnHalfCycles advances over exactly n strict half-cycles of freq.
// false if something else turned up first; that half-cycle is left in Info.
func (c *cycleCore) StopOnHalfCycles(freq Frequency, n int) bool {
	for range n {
		if !c.AdvanceHalfCycle() {
			return false
		}

		if c.info.Freq != freq || !c.thresholds.IsStrict(freq, float64(c.info.Duration)) {
			return false
		}
	}

	return true
}

/*------------------------------------------------------------------
 *
 * Name:	SetCarrierFreq
 *
 * Purpose:	Re-derive all thresholds for a measured carrier.
 *
 * Inputs:	hz	- Carrier (F2) frequency as measured from a
 *			  tone, which follows tape speed.
 *
 * Description:	Only call between blocks.  Halfway through a byte it
 *		would move the goalposts for half-cycles already
 *		classified.
 *
 *----------------------------------------------------------------*/

func (c *cycleCore) SetCarrierFreq(hz float64) {
	var t, err = NewTimingThresholds(c.thresholds.SampleRate, hz, c.thresholds.Tolerance)
	if err != nil {
		return
	}

	c.thresholds = t
	c.src.setMaxRun(t.MaxHalfCycle())
}

func (c *cycleCore) Checkpoint() {
	c.checkpoints.push(c.cycleCoreState)
	c.src.saveSource()
}

func (c *cycleCore) Rollback() {
	c.cycleCoreState = c.checkpoints.pop()
	c.src.restoreSource()
}

func (c *cycleCore) RegretCheckpoint() {
	c.checkpoints.pop()
	c.src.dropSource()
}
