package acorntape

/*------------------------------------------------------------------
 *
 * Purpose:	Bytes and tones from a stream of half-cycles.
 *
 * Description:	Each byte is a start bit (0), eight data bits with the
 *		least significant first, and a stop bit (1).
 *
 *		At 1200 baud a 0 is one cycle of F1 and a 1 is two
 *		cycles of F2, so both last the same time.  At 300 baud
 *		everything is four times as long.
 *
 *		Data bits are decided by counting half-cycles inside a
 *		window one bit long.  Start bits are found by looking
 *		for consecutive F1 half-cycles.  Stop bits are consumed
 *		if present and forgotten about if not.
 *
 *---------------------------------------------------------------*/

import (
	"math"

	"github.com/charmbracelet/log"
)

type readerState struct {
	// Start bit half-cycles already seen, by a tone that
	// ended on one or a stop bit that ran into one.
	pendingHalves   int
	pendingDuration int
}

type CycleTapeReader struct {
	cycles CycleDecoder
	baud   int
	logger *log.Logger

	nominalCarrier float64
	tolerance      float64

	f1CyclesPerBit int // 1 at 1200 baud, 4 at 300.

	// Set during a trial read: the start bit must begin at the
	// F1 half-cycle already seen, not somewhere further on.
	trial bool

	readerState

	checkpoints stack[readerState]
}

/*------------------------------------------------------------------
 *
 * Name:	NewCycleTapeReader
 *
 * Inputs:	cycles	- Half-cycle source, PCM or pulses.
 *
 *		baud	- 300 or 1200.
 *
 *		logger	- Where tracing goes.  Nil for none.
 *
 *----------------------------------------------------------------*/

func NewCycleTapeReader(cycles CycleDecoder, baud int, logger *log.Logger) *CycleTapeReader {
	if baud != 300 {
		baud = 1200
	}

	var t = cycles.Thresholds()

	return &CycleTapeReader{ //nolint:exhaustruct
		cycles:         cycles,
		baud:           baud,
		logger:         orDiscard(logger),
		nominalCarrier: t.CarrierFreq,
		tolerance:      t.Tolerance,
		f1CyclesPerBit: 1200 / baud,
	}
}

func (r *CycleTapeReader) BaudRate() int {
	return r.baud
}

func (r *CycleTapeReader) Position() float64 {
	return float64(r.cycles.Position()) / float64(r.cycles.SampleRate())
}

func (r *CycleTapeReader) Checkpoint() {
	r.checkpoints.push(r.readerState)
	r.cycles.Checkpoint()
}

func (r *CycleTapeReader) Rollback() {
	r.readerState = r.checkpoints.pop()
	r.cycles.Rollback()
}

func (r *CycleTapeReader) RegretCheckpoint() {
	r.checkpoints.pop()
	r.cycles.RegretCheckpoint()
}

// Length of one bit in samples, following the current carrier estimate.
func (r *CycleTapeReader) bitWindow() float64 {
	return 2 * r.cycles.Thresholds().HalfCycleF1() * float64(r.f1CyclesPerBit)
}

func (r *CycleTapeReader) startHalves() int {
	return r.f1CyclesPerBit
}

// Up to this many half-cycles in a window is a 0, more is a 1.
func (r *CycleTapeReader) bitThreshold() int {
	return 3 * r.f1CyclesPerBit
}

func (r *CycleTapeReader) stopHalves() int {
	return 2 * r.f1CyclesPerBit
}

/*------------------------------------------------------------------
 *
 * Name:	waitStartBit
 *
 * Purpose:	Find the leading edge of a start bit and consume the
 *		rest of it.
 *
 * Returns:	false if the carrier goes away or the source ends.
 *
 * Description:	Carrier between bytes is skipped however long it is.
 *		A short tone the block decoder didn't want, such as an
 *		Atom micro tone below the minimum, ends up here.
 *
 *----------------------------------------------------------------*/

func (r *CycleTapeReader) waitStartBit() bool {
	var need = r.startHalves()
	var n = r.pendingHalves
	var duration = r.pendingDuration

	r.pendingHalves, r.pendingDuration = 0, 0

	for n < need {
		if !r.cycles.AdvanceHalfCycle() {
			return false
		}

		var info = r.cycles.Info()

		switch info.Freq {
		case FreqNoCarrier:
			return false
		case FreqF1:
			n++
			duration += info.Duration
		default:
			if r.trial {
				return false
			}

			n, duration = 0, 0
		}
	}

	r.cycles.AlignBitWindow()

	var _, ok = r.cycles.CountHalfCycles(r.bitWindow() - float64(duration))

	return ok
}

/*------------------------------------------------------------------
 *
 * Name:	readBit
 *
 * Description:	A 0 has few half-cycles and they are long.  Needing
 *		both keeps a burst of noise with the right count but
 *		the wrong timing from passing as a 0.
 *
 *----------------------------------------------------------------*/

func (r *CycleTapeReader) readBit() (Bit, bool) {
	var count, ok = r.cycles.CountHalfCycles(r.bitWindow())
	if !ok {
		return BitLow, false
	}

	if count.Count <= r.bitThreshold() && r.cycles.Thresholds().IsStrictF1(float64(count.Max)) {
		return BitLow, true
	}

	return BitHigh, true
}

// Not finding the stop bit is not fatal.  If we ran into what looks
// like the next start bit, remember that for the next byte.
func (r *CycleTapeReader) waitStopBit() {
	if r.cycles.StopOnHalfCycles(FreqF2, r.stopHalves()) {
		return
	}

	var info = r.cycles.Info()
	if info.Freq == FreqF1 {
		r.pendingHalves = 1
		r.pendingDuration = info.Duration
	}
}

func (r *CycleTapeReader) GetByte() (byte, bool) {
	if !r.waitStartBit() {
		return 0, false
	}

	var b byte

	for i := range 8 {
		var bit, ok = r.readBit()
		if !ok {
			return 0, false
		}

		if bit == BitHigh {
			b |= 1 << i
		}
	}

	r.waitStopBit()

	r.logger.Debug("byte", "t", tapeTime(r.Position()), "value", hexByte(b))

	return b, true
}

/*------------------------------------------------------------------
 *
 * Name:	WaitForTone
 *
 * Purpose:	Skip to a carrier tone and consume it.
 *
 * Inputs:	minCycles	- Shortest acceptable tone.
 *
 *		opts		- Dummy byte and header handling, and
 *				  whether to retune to the tone.
 *
 * Returns:	Description of the tone, false if none before the end.
 *
 * Description:	We keep a running count of carrier half-cycles.  F2
 *		adds one.  Anything else takes off as many as would
 *		have fitted in its duration, so a glitch costs a little
 *		and a long stretch of rubbish costs everything.
 *
 *		Loss of carrier ends the tone.  Otherwise it ends at an
 *		F1 half-cycle, which is normally the start bit of the
 *		next byte and is kept for it.  In header mode that F1
 *		must start the block preamble: we try reading a byte
 *		there and if it is anything else the F1 was noise and
 *		the tone carries on.
 *
 *		If a dummy byte is allowed, every F1 might be its start
 *		bit, so the same trial read looks for 0xAA too.
 *
 *		Trial reads are done on the carrier measured so far
 *		when calibrating.  A slow tape is out by most of a
 *		half-cycle by the end of a byte at nominal timing.
 *
 *----------------------------------------------------------------*/

func (r *CycleTapeReader) WaitForTone(minCycles int, opts ToneOptions) (Tone, bool) {
	var minHalves = 2 * max(minCycles, 1)
	var halfF2 = r.cycles.Thresholds().HalfCycleF2()

	r.pendingHalves, r.pendingDuration = 0, 0

	var tone = Tone{} //nolint:exhaustruct
	var count = 0
	var f2Sum, f2Count = 0, 0
	var started = false
	var tunedAt = 0 // f2Count when last retuned.

	var retune = func() {
		if opts.Calibrate && f2Count > 0 && f2Count != tunedAt {
			r.calibrate(float64(f2Sum) / float64(f2Count))
			tunedAt = f2Count
		}
	}

	var finish = func() (Tone, bool) {
		tone.Cycles = f2Count / 2
		tone.PhaseShift = r.cycles.Info().PhaseShift

		retune()

		r.logger.Debug("tone", "t", tapeTime(tone.Start), "cycles", tone.Cycles, "prelude", tone.Prelude, "dummy", tone.DummyByte)

		return tone, true
	}

	for {
		if !r.cycles.AdvanceHalfCycle() {
			if count >= minHalves {
				return finish()
			}

			return tone, false
		}

		var info = r.cycles.Info()

		switch info.Freq {
		case FreqF2:
			if count == 0 {
				if !tone.DummyByte {
					tone.Start = float64(info.Start) / float64(r.cycles.SampleRate())
				}

				f2Sum, f2Count, tunedAt = 0, 0, 0
				started = true
			}

			count++
			f2Sum += info.Duration
			f2Count++

			continue

		case FreqNoCarrier:
			if count >= minHalves {
				return finish()
			}

			count = 0

			continue

		case FreqF1:
			var long = count >= minHalves

			if started && (opts.Dummy || (opts.HeaderMode && long)) {
				retune()

				var done, accepted = r.tryDummy(&tone, info, long, opts)
				if done {
					return finish()
				}

				if accepted {
					tone.Prelude = f2Count / 2
					count, f2Sum, f2Count, tunedAt = 0, 0, 0, 0
					r.pendingHalves, r.pendingDuration = 0, 0

					continue
				}
			}

			if long && !opts.HeaderMode {
				r.pendingHalves = 1
				r.pendingDuration = info.Duration

				return finish()
			}
		}

		count -= max(1, int(math.Round(float64(info.Duration)/halfF2)))
		if count < 0 {
			count = 0
		}
	}
}

/*------------------------------------------------------------------
 *
 * Name:	tryDummy
 *
 * Purpose:	Trial read of a byte starting at an F1 half-cycle in
 *		the middle of a tone.
 *
 * Inputs:	info		- The F1 half-cycle just seen.  It has to be
 *				  the start of the byte.
 *
 *		long		- Tone is already long enough to end here.
 *
 * Returns:	done		- Preamble found in header mode, tone is over.
 *
 *		accepted	- Dummy byte found, keep counting the tone.
 *
 *		In all other cases the position is as it was.
 *
 *----------------------------------------------------------------*/

func (r *CycleTapeReader) tryDummy(tone *Tone, info HalfCycleInfo, long bool, opts ToneOptions) (bool, bool) {
	r.Checkpoint()

	r.pendingHalves = 1
	r.pendingDuration = info.Duration

	r.trial = true
	var b, ok = r.GetByte()
	r.trial = false

	switch {
	case ok && opts.HeaderMode && long && b == opts.Preamble:
		r.RegretCheckpoint()

		tone.PreambleRead = true

		return true, false

	case ok && opts.Dummy && b == DUMMY_BYTE && !tone.DummyByte:
		r.RegretCheckpoint()

		tone.DummyByte = true

		r.logger.Debug("dummy byte", "t", tapeTime(r.Position()))

		return false, true

	default:
		r.Rollback()

		return false, false
	}
}

// Retune to the measured tone, within tolerance of nominal.
func (r *CycleTapeReader) calibrate(avgHalfF2 float64) {
	if avgHalfF2 <= 0 {
		return
	}

	var hz = float64(r.cycles.SampleRate()) / (2 * avgHalfF2)

	hz = min(max(hz, r.nominalCarrier*(1-r.tolerance)), r.nominalCarrier*(1+r.tolerance))

	r.cycles.SetCarrierFreq(hz)

	r.logger.Debug("carrier", "t", tapeTime(r.Position()), "hz", int(hz+0.5))
}
