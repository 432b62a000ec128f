package acorntape

/*------------------------------------------------------------------
 *
 * Purpose:	Half-cycle timing thresholds.
 *
 * Description:	Acorn machines record a "0" as cycles of the base
 *		frequency (normally 1200 Hz, called F1 here) and a "1"
 *		as cycles of twice that frequency (2400 Hz, F2).  The
 *		carrier tone between blocks is F2.
 *
 *		All thresholds are half-cycle durations measured in
 *		samples.  Going up in duration:
 *
 *		  MinF2 .. MaxF2		F2, strict
 *		  MaxF2 .. ThresholdF1F2	F12, ambiguous
 *		  ThresholdF1F2 .. MaxF1	F1
 *		  MinF1 .. MaxF1		F1, strict
 *
 *		Anything shorter than MinF2 or longer than MaxF1 is
 *		noise.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"math"
)

type Frequency int

const (
	FreqUndefined Frequency = iota
	FreqF1
	FreqF2
	FreqNoCarrier
)

func (f Frequency) String() string {
	switch f {
	case FreqF1:
		return "F1"
	case FreqF2:
		return "F2"
	case FreqNoCarrier:
		return "NoCarrier"
	default:
		return "Undefined"
	}
}

// Nominal Acorn carrier (F2) frequency in Hz.
const DEFAULT_CARRIER_FREQ = 2400.0

// Above this the strict F1 band would reach below the F1/F2 split.
const MAX_FREQ_TOLERANCE = 0.25

type TimingThresholds struct {
	SampleRate  int
	CarrierFreq float64 // F2, Hz
	Tolerance   float64

	MinF1, MaxF1   float64
	MinF2, MaxF2   float64
	MinF12, MaxF12 float64

	ThresholdF1F2 float64
}

/*------------------------------------------------------------------
 *
 * Name:	NewTimingThresholds
 *
 * Purpose:	Derive the classification bands.
 *
 * Inputs:	sampleRate	- Samples per second of the recording.
 *
 *		carrierFreq	- F2 frequency in Hz.  F1 is half of it.
 *
 *		tolerance	- Fraction, 0 < tolerance <= 0.25.
 *
 * Returns:	Thresholds, or error for out of range inputs.
 *
 *----------------------------------------------------------------*/

func NewTimingThresholds(sampleRate int, carrierFreq float64, tolerance float64) (TimingThresholds, error) {
	if sampleRate <= 0 {
		return TimingThresholds{}, fmt.Errorf("sample rate must be positive, got %d", sampleRate) //nolint:exhaustruct
	}

	if carrierFreq <= 0 || carrierFreq*2 > float64(sampleRate) {
		return TimingThresholds{}, fmt.Errorf("carrier frequency %.1f Hz not representable at %d samples/sec", carrierFreq, sampleRate) //nolint:exhaustruct
	}

	if tolerance <= 0 || tolerance > MAX_FREQ_TOLERANCE {
		return TimingThresholds{}, fmt.Errorf("frequency tolerance %.3f outside (0, %.3f]", tolerance, MAX_FREQ_TOLERANCE) //nolint:exhaustruct
	}

	var halfF2 = float64(sampleRate) / (2 * carrierFreq)
	var halfF1 = 2 * halfF2

	var t = TimingThresholds{
		SampleRate:    sampleRate,
		CarrierFreq:   carrierFreq,
		Tolerance:     tolerance,
		MinF1:         halfF1 * (1 - tolerance),
		MaxF1:         halfF1 * (1 + tolerance),
		MinF2:         halfF2 * (1 - tolerance),
		MaxF2:         halfF2 * (1 + tolerance),
		ThresholdF1F2: (halfF1 + halfF2) / 2,
	}

	// Rounding must not undo the ordering at the tolerance limit.
	t.MinF1 = max(t.MinF1, t.ThresholdF1F2)

	t.MinF12 = t.MaxF2
	t.MaxF12 = t.ThresholdF1F2

	return t, nil
}

// Nominal F1 half-cycle in samples.
func (t TimingThresholds) HalfCycleF1() float64 {
	return float64(t.SampleRate) / t.CarrierFreq
}

// Nominal F2 half-cycle in samples.
func (t TimingThresholds) HalfCycleF2() float64 {
	return float64(t.SampleRate) / (2 * t.CarrierFreq)
}

// Longest run that still counts as a half-cycle of signal.
func (t TimingThresholds) MaxHalfCycle() int {
	return int(math.Ceil(t.MaxF1))
}

func (t TimingThresholds) IsStrictF1(d float64) bool {
	return d >= t.MinF1 && d <= t.MaxF1
}

func (t TimingThresholds) IsStrictF2(d float64) bool {
	return d >= t.MinF2 && d <= t.MaxF2
}

func (t TimingThresholds) IsStrict(f Frequency, d float64) bool {
	switch f {
	case FreqF1:
		return t.IsStrictF1(d)
	case FreqF2:
		return t.IsStrictF2(d)
	default:
		return false
	}
}

func (t TimingThresholds) IsF12(d float64) bool {
	return d > t.MinF12 && d < t.MaxF12
}

/*------------------------------------------------------------------
 *
 * Name:	Classify
 *
 * Purpose:	Put one half-cycle duration into a frequency class.
 *
 * Inputs:	d	- Duration in samples.
 *
 *		prev	- Class of the half-cycle before it.
 *
 * Returns:	Class, and whether it came from the F12 band.
 *
 * Description:	A duration in the F12 band means the frequency is
 *		changing, so it resolves to the opposite of whatever
 *		came before.  With no usable history it stays undefined.
 *
 *----------------------------------------------------------------*/

func (t TimingThresholds) Classify(d float64, prev Frequency) (Frequency, bool) {
	switch {
	case t.IsStrictF2(d):
		return FreqF2, false
	case t.IsF12(d):
		switch prev {
		case FreqF1:
			return FreqF2, true
		case FreqF2:
			return FreqF1, true
		default:
			return FreqUndefined, true
		}
	case d >= t.ThresholdF1F2 && d <= t.MaxF1:
		return FreqF1, false
	default:
		return FreqUndefined, false
	}
}
