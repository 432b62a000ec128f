package acorntape

// Half-cycles from PCM samples, via the level classifier.

type pcmRunState struct {
	runLevel Level
	runStart int
}

type PCMCycleDecoder struct {
	cycleCore

	levels *LevelClassifier

	pcmRunState

	saved stack[pcmRunState]
}

/*------------------------------------------------------------------
 *
 * Name:	NewPCMCycleDecoder
 *
 * Inputs:	samples		- One channel of the recording.
 *
 *		sampleRate	- Samples per second.
 *
 *		carrierFreq	- Initial F2 guess, normally 2400.
 *
 *		freqTolerance	- See NewTimingThresholds.
 *
 *		levelTolerance	- See NewLevelClassifier.
 *
 *----------------------------------------------------------------*/

func NewPCMCycleDecoder(samples []int16, sampleRate int, carrierFreq, freqTolerance, levelTolerance float64) (*PCMCycleDecoder, error) {
	var t, err = NewTimingThresholds(sampleRate, carrierFreq, freqTolerance)
	if err != nil {
		return nil, err
	}

	var levels = NewLevelClassifier(samples, levelTolerance, t.MaxHalfCycle())

	var d = &PCMCycleDecoder{ //nolint:exhaustruct
		levels: levels,
		pcmRunState: pcmRunState{
			runLevel: levels.Level(),
			runStart: 0,
		},
	}

	d.cycleCore = cycleCore{ //nolint:exhaustruct
		src:        d,
		thresholds: t,
	}

	return d, nil
}

// A run ends at the first sample with a different level.
func (d *PCMCycleDecoder) nextRun() (Level, int, int, bool) {
	for !d.levels.End() {
		var at = d.levels.Position()
		var lvl = d.levels.Next()

		if lvl == d.runLevel {
			continue
		}

		var level, start = d.runLevel, d.runStart
		d.runLevel, d.runStart = lvl, at

		if at == start {
			continue // Nothing before the first sample.
		}

		return level, start, at - start, true
	}

	// Flush whatever was in progress when the samples ran out.
	if d.runStart < d.levels.Position() {
		var level, start = d.runLevel, d.runStart
		d.runStart = d.levels.Position()

		return level, start, d.levels.Position() - start, true
	}

	return LevelNoCarrier, d.runStart, 0, false
}

func (d *PCMCycleDecoder) position() int {
	return d.runStart
}

func (d *PCMCycleDecoder) saveSource() {
	d.saved.push(d.pcmRunState)
	d.levels.Checkpoint()
}

func (d *PCMCycleDecoder) restoreSource() {
	d.pcmRunState = d.saved.pop()
	d.levels.Rollback()
}

func (d *PCMCycleDecoder) dropSource() {
	d.saved.pop()
	d.levels.RegretCheckpoint()
}

func (d *PCMCycleDecoder) setMaxRun(n int) {
	d.levels.SetMaxRun(n)
}
