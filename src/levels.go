package acorntape

/*------------------------------------------------------------------
 *
 * Purpose:	Turn PCM samples into a three state level stream.
 *
 * Description:	A Schmitt trigger with two thresholds placed
 *		symmetrically around zero, a fraction of the peak
 *		amplitude apart.  Samples between the thresholds keep
 *		whatever level we already had, which stops noise
 *		around the zero crossing from producing extra edges.
 *
 *		If one level persists for longer than the longest
 *		possible half-cycle we call it "no carrier".  That is
 *		how silence and dropouts show up further along.
 *
 *---------------------------------------------------------------*/

type Level int

const (
	LevelNoCarrier Level = iota
	LevelLow
	LevelHigh
)

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "Low"
	case LevelHigh:
		return "High"
	default:
		return "NoCarrier"
	}
}

type levelState struct {
	pos   int
	level Level
	side  Level // Last threshold crossed.  Stays put through no carrier.
	run   int
}

// LevelClassifier remembers which threshold was crossed last apart from
// the level it reports.  Once a level has lasted too long and become no
// carrier, staying on that side keeps it no carrier.  The signal has to
// cross the opposite threshold to come back.
type LevelClassifier struct {
	samples []int16

	high int // Go high above this.
	low  int // Go low below this.

	maxRun int // Longest run of one level before it becomes no carrier.

	levelState

	checkpoints stack[levelState]
}

/*------------------------------------------------------------------
 *
 * Name:	NewLevelClassifier
 *
 * Inputs:	samples		- Entire recording, one channel.
 *
 *		levelTolerance	- 0 .. 1, fraction of the peak amplitude
 *				  a sample must exceed to change level.
 *				  0 means any sign change.
 *
 *		maxRun		- Longest valid half-cycle in samples.
 *
 *----------------------------------------------------------------*/

func NewLevelClassifier(samples []int16, levelTolerance float64, maxRun int) *LevelClassifier {
	var peak = 0
	for _, s := range samples {
		peak = max(peak, abs(int(s)))
	}

	levelTolerance = min(max(levelTolerance, 0), 1)

	var threshold = int(levelTolerance * float64(peak))

	return &LevelClassifier{ //nolint:exhaustruct
		samples: samples,
		high:    threshold,
		low:     -threshold,
		maxRun:  max(maxRun, 1),
		levelState: levelState{
			pos:   0,
			level: LevelNoCarrier,
			side:  LevelNoCarrier,
			run:   0,
		},
	}
}

// Next consumes one sample and returns the level after it.
// Caller must check End first.
func (l *LevelClassifier) Next() Level {
	var s = int(l.samples[l.pos])
	l.pos++

	switch {
	case l.side != LevelHigh && s > l.high:
		l.side, l.level = LevelHigh, LevelHigh
		l.run = 0
	case l.side != LevelLow && s < l.low:
		l.side, l.level = LevelLow, LevelLow
		l.run = 0
	}

	l.run++

	if l.level != LevelNoCarrier && l.run > l.maxRun {
		l.level = LevelNoCarrier
		l.run = 1
	}

	return l.level
}

func (l *LevelClassifier) Level() Level {
	return l.level
}

func (l *LevelClassifier) End() bool {
	return l.pos >= len(l.samples)
}

// Position is the index of the next sample to be read.
func (l *LevelClassifier) Position() int {
	return l.pos
}

func (l *LevelClassifier) SetMaxRun(n int) {
	l.maxRun = max(n, 1)
}

func (l *LevelClassifier) Checkpoint() {
	l.checkpoints.push(l.levelState)
}

func (l *LevelClassifier) Rollback() {
	l.levelState = l.checkpoints.pop()
}

func (l *LevelClassifier) RegretCheckpoint() {
	l.checkpoints.pop()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}

	return x
}
