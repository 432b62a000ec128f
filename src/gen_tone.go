package acorntape

/*------------------------------------------------------------------
 *
 * Purpose:	Convert bytes to the tape signal, for writing to a .WAV
 *		or CSW style pulse list.
 *
 * Description:	The output is a square wave, which is close enough to
 *		what the machines produced for the decoder not to care.
 *		Half-cycle boundaries are kept as exact fractions of a
 *		sample and only rounded when samples are produced, so
 *		the timing doesn't drift over a long recording.
 *
 *---------------------------------------------------------------*/

import (
	"math"
)

type toneSegment struct {
	duration float64 // samples
	silent   bool
}

type ToneWriter struct {
	sampleRate int
	baud       int
	carrier    float64

	segments []toneSegment
}

/*------------------------------------------------------------------
 *
 * Name:	NewToneWriter
 *
 * Inputs:	sampleRate	- Samples per second to produce.
 *
 *		baud		- 300 or 1200.
 *
 *		carrierFreq	- F2 in Hz, normally 2400.  F1 is half.
 *
 *----------------------------------------------------------------*/

func NewToneWriter(sampleRate int, baud int, carrierFreq float64) *ToneWriter {
	if baud != 300 {
		baud = 1200
	}

	if carrierFreq <= 0 {
		carrierFreq = DEFAULT_CARRIER_FREQ
	}

	return &ToneWriter{
		sampleRate: sampleRate,
		baud:       baud,
		carrier:    carrierFreq,
		segments:   nil,
	}
}

func (w *ToneWriter) SampleRate() int {
	return w.sampleRate
}

func (w *ToneWriter) halfF2() float64 {
	return float64(w.sampleRate) / (2 * w.carrier)
}

func (w *ToneWriter) halfF1() float64 {
	return 2 * w.halfF2()
}

func (w *ToneWriter) half(duration float64) {
	w.segments = append(w.segments, toneSegment{duration: duration, silent: false})
}

// Cycles of carrier (F2).
func (w *ToneWriter) Cycles(n int) {
	for range 2 * n {
		w.half(w.halfF2())
	}
}

func (w *ToneWriter) Tone(seconds float64) {
	w.Cycles(secondsToCycles(seconds, w.carrier))
}

func (w *ToneWriter) Silence(seconds float64) {
	if seconds <= 0 {
		return
	}

	w.segments = append(w.segments, toneSegment{duration: seconds * float64(w.sampleRate), silent: true})
}

func (w *ToneWriter) Bit(b Bit) {
	var f1Cycles = 1200 / w.baud

	if b == BitLow {
		for range 2 * f1Cycles {
			w.half(w.halfF1())
		}

		return
	}

	for range 4 * f1Cycles {
		w.half(w.halfF2())
	}
}

// Start bit, eight data bits low first, stop bit.
func (w *ToneWriter) Byte(b byte) {
	w.Bit(BitLow)

	for i := range 8 {
		w.Bit(IfThenElse(b&(1<<i) != 0, BitHigh, BitLow))
	}

	w.Bit(BitHigh)
}

func (w *ToneWriter) Bytes(bs []byte) {
	for _, b := range bs {
		w.Byte(b)
	}
}

// Durations of the signal half-cycles, in samples, silence left out.
func (w *ToneWriter) HalfCycles() []float64 {
	var out = make([]float64, 0, len(w.segments))

	for _, s := range w.segments {
		if !s.silent {
			out = append(out, s.duration)
		}
	}

	return out
}

// Seconds written so far.
func (w *ToneWriter) Duration() float64 {
	var total = 0.0
	for _, s := range w.segments {
		total += s.duration
	}

	return total / float64(w.sampleRate)
}

// Round each cumulative boundary, not each duration.
func (w *ToneWriter) lengths() []int {
	var out = make([]int, len(w.segments))
	var pos = 0.0

	for i, s := range w.segments {
		var end = pos + s.duration
		out[i] = int(math.Round(end) - math.Round(pos))
		pos = end
	}

	return out
}

/*------------------------------------------------------------------
 *
 * Name:	Samples
 *
 * Purpose:	Render as 16 bit PCM.
 *
 * Inputs:	amplitude	- Peak value.  Silence is zero.
 *
 *		The first half-cycle is positive.
 *
 *----------------------------------------------------------------*/

func (w *ToneWriter) Samples(amplitude int16) []int16 {
	var lengths = w.lengths()

	var total = 0
	for _, n := range lengths {
		total += n
	}

	var out = make([]int16, 0, total)
	var high = true

	for i, s := range w.segments {
		var v = int16(0)

		if !s.silent {
			v = IfThenElse(high, amplitude, -amplitude)
			high = !high
		}

		for range lengths[i] {
			out = append(out, v)
		}
	}

	return out
}

// Pulses renders as CSW style pulse lengths.  Silence is one long pulse.
func (w *ToneWriter) Pulses() ([]int, Level) {
	var lengths = w.lengths()

	var out = make([]int, 0, len(lengths))

	for _, n := range lengths {
		if n > 0 {
			out = append(out, n)
		}
	}

	return out, LevelHigh
}
