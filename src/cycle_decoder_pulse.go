package acorntape

// Half-cycles straight from pulse lengths, as stored in CSW files.
// Each pulse is one run of constant level and levels alternate.

type pulseState struct {
	idx int
	pos int
}

type PulseCycleDecoder struct {
	cycleCore

	pulses  []int
	initial Level // Level of the first pulse.
	maxRun  int

	pulseState

	saved stack[pulseState]
}

func NewPulseCycleDecoder(pulses []int, initial Level, sampleRate int, carrierFreq, freqTolerance float64) (*PulseCycleDecoder, error) {
	var t, err = NewTimingThresholds(sampleRate, carrierFreq, freqTolerance)
	if err != nil {
		return nil, err
	}

	if initial != LevelHigh {
		initial = LevelLow
	}

	var d = &PulseCycleDecoder{ //nolint:exhaustruct
		pulses:  pulses,
		initial: initial,
		maxRun:  t.MaxHalfCycle(),
	}

	d.cycleCore = cycleCore{ //nolint:exhaustruct
		src:        d,
		thresholds: t,
	}

	return d, nil
}

func (d *PulseCycleDecoder) nextRun() (Level, int, int, bool) {
	if d.idx >= len(d.pulses) {
		return LevelNoCarrier, d.pos, 0, false
	}

	var length = d.pulses[d.idx]
	var level = d.initial

	if d.idx%2 == 1 {
		level = IfThenElse(d.initial == LevelHigh, LevelLow, LevelHigh)
	}

	if length > d.maxRun {
		level = LevelNoCarrier
	}

	var start = d.pos

	d.idx++
	d.pos += length

	return level, start, length, true
}

func (d *PulseCycleDecoder) position() int {
	return d.pos
}

func (d *PulseCycleDecoder) saveSource() {
	d.saved.push(d.pulseState)
}

func (d *PulseCycleDecoder) restoreSource() {
	d.pulseState = d.saved.pop()
}

func (d *PulseCycleDecoder) dropSource() {
	d.saved.pop()
}

func (d *PulseCycleDecoder) setMaxRun(n int) {
	d.maxRun = max(n, 1)
}
