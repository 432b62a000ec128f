package acorntape

/*------------------------------------------------------------------
 *
 * Purpose:	Common contract for the bit/byte level of the decoder.
 *
 * Description:	A tape reader hands out bytes and recognises carrier
 *		tones.  One implementation works from half-cycles
 *		(audio or CSW pulses), the other from bytes that a
 *		tape image container has already decoded for us.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
)

type Bit int

const (
	BitLow Bit = iota
	BitHigh
)

// Tone describes a carrier tone after it has been consumed.
type Tone struct {
	Start        float64 // Seconds from the start of the tape.
	Prelude      int     // Cycles before the dummy byte, if there was one.
	Cycles       int     // Cycles counted, after any dummy byte.
	DummyByte    bool
	PreambleRead bool // The byte following the tone was the preamble and has been consumed.
	PhaseShift   int
}

type ToneOptions struct {
	Dummy      bool // Tone may have a 0xAA byte embedded in it.
	HeaderMode bool // Tone only ends on the preamble byte, which is consumed.
	Preamble   byte
	Calibrate  bool // Retune the carrier frequency from what was measured.
}

const DUMMY_BYTE = 0xAA

type TapeReader interface {
	// GetByte reads one byte including start and stop bits.  Carrier
	// before the start bit is skipped.
	GetByte() (byte, bool)

	// WaitForTone skips forward to a carrier tone of at least
	// minCycles and consumes it.  false if the tape ran out first.
	WaitForTone(minCycles int, opts ToneOptions) (Tone, bool)

	Checkpoint()
	Rollback()
	RegretCheckpoint()

	// Position in seconds from the start of the tape.
	Position() float64

	BaudRate() int
}

// Convert seconds to mm:ss.mmm for log messages.
func tapeTime(seconds float64) string {
	var ms = int(seconds*1000 + 0.5)

	return fmt.Sprintf("%02d:%02d.%03d", ms/60000, (ms/1000)%60, ms%1000)
}
