package acorntape

/*------------------------------------------------------------------
 *
 * Purpose:	Tape reader over a tape image that already holds bytes.
 *
 * Description:	UEF files store what the machine would have seen
 *		after demodulation: runs of carrier tone, data bytes and
 *		silence.  No bit timing is left to recover, but the
 *		block decoder above still wants to wait for tones and
 *		read bytes, so this presents the same contract.
 *
 *---------------------------------------------------------------*/

import (
	"github.com/charmbracelet/log"
)

type ChunkKind int

const (
	ChunkTone ChunkKind = iota
	ChunkData
	ChunkGap
)

type Chunk struct {
	Kind    ChunkKind
	Cycles  int     // ChunkTone
	Bytes   []byte  // ChunkData
	Seconds float64 // ChunkGap
}

type byteCursor struct {
	idx int // Current chunk.
	off int // Next byte within a data chunk.
}

type ByteStreamReader struct {
	chunks  []Chunk
	starts  []float64 // Time each chunk begins, seconds.
	baud    int
	carrier float64
	logger  *log.Logger

	byteCursor

	checkpoints stack[byteCursor]
}

func NewByteStreamReader(chunks []Chunk, baud int, carrierFreq float64, logger *log.Logger) *ByteStreamReader {
	if baud != 300 {
		baud = 1200
	}

	if carrierFreq <= 0 {
		carrierFreq = DEFAULT_CARRIER_FREQ
	}

	var r = &ByteStreamReader{ //nolint:exhaustruct
		chunks:  chunks,
		starts:  make([]float64, len(chunks)+1),
		baud:    baud,
		carrier: carrierFreq,
		logger:  orDiscard(logger),
	}

	for i, c := range chunks {
		r.starts[i+1] = r.starts[i] + r.chunkSeconds(c)
	}

	return r
}

func (r *ByteStreamReader) chunkSeconds(c Chunk) float64 {
	switch c.Kind {
	case ChunkTone:
		return float64(c.Cycles) / r.carrier
	case ChunkData:
		return float64(len(c.Bytes)) * r.byteSeconds()
	default:
		return c.Seconds
	}
}

// Start bit, 8 data bits, stop bit.
func (r *ByteStreamReader) byteSeconds() float64 {
	return 10 / float64(r.baud)
}

func (r *ByteStreamReader) BaudRate() int {
	return r.baud
}

func (r *ByteStreamReader) Position() float64 {
	if r.idx >= len(r.chunks) {
		return r.starts[len(r.chunks)]
	}

	return r.starts[r.idx] + float64(r.off)*r.byteSeconds()
}

func (r *ByteStreamReader) Checkpoint() {
	r.checkpoints.push(r.byteCursor)
}

func (r *ByteStreamReader) Rollback() {
	r.byteCursor = r.checkpoints.pop()
}

func (r *ByteStreamReader) RegretCheckpoint() {
	r.checkpoints.pop()
}

// Move past any exhausted data chunks.
func (r *ByteStreamReader) settle() {
	for r.idx < len(r.chunks) && r.chunks[r.idx].Kind == ChunkData && r.off >= len(r.chunks[r.idx].Bytes) {
		r.idx++
		r.off = 0
	}
}

// GetByte skips carrier tone, as the machine would.  A gap means the
// block ended.
func (r *ByteStreamReader) GetByte() (byte, bool) {
	r.settle()

	for r.idx < len(r.chunks) && r.chunks[r.idx].Kind == ChunkTone {
		r.idx++
		r.off = 0

		r.settle()
	}

	if r.idx >= len(r.chunks) || r.chunks[r.idx].Kind != ChunkData {
		return 0, false
	}

	var b = r.chunks[r.idx].Bytes[r.off]
	r.off++

	r.logger.Debug("byte", "t", tapeTime(r.Position()), "value", hexByte(b))

	return b, true
}

/*------------------------------------------------------------------
 *
 * Name:	WaitForTone
 *
 * Purpose:	Skip to a run of tone chunks at least minCycles long.
 *
 * Description:	Consecutive tone chunks add up.  A single 0xAA data
 *		chunk between two of them is a dummy byte when allowed.
 *		Anything else, including any unread data, is skipped
 *		over and starts the count again.
 *
 *----------------------------------------------------------------*/

func (r *ByteStreamReader) WaitForTone(minCycles int, opts ToneOptions) (Tone, bool) {
	r.settle()

	if r.idx < len(r.chunks) && r.off > 0 {
		r.idx++
		r.off = 0
	}

	for r.idx < len(r.chunks) {
		if r.chunks[r.idx].Kind != ChunkTone {
			r.idx++
			continue
		}

		var tone = Tone{Start: r.starts[r.idx]} //nolint:exhaustruct
		var cycles = 0

		for r.idx < len(r.chunks) {
			var c = r.chunks[r.idx]

			if c.Kind == ChunkTone {
				cycles += c.Cycles
				r.idx++

				continue
			}

			if opts.Dummy && !tone.DummyByte && r.isDummy(r.idx) {
				tone.DummyByte = true
				tone.Prelude = cycles
				cycles = 0
				r.idx++

				continue
			}

			break
		}

		if cycles+tone.Prelude < minCycles {
			continue
		}

		tone.Cycles = cycles

		if opts.HeaderMode && r.idx < len(r.chunks) && r.chunks[r.idx].Kind == ChunkData &&
			len(r.chunks[r.idx].Bytes) > 0 && r.chunks[r.idx].Bytes[0] == opts.Preamble {
			r.off = 1
			tone.PreambleRead = true
		}

		r.logger.Debug("tone", "t", tapeTime(tone.Start), "cycles", tone.Cycles, "prelude", tone.Prelude, "dummy", tone.DummyByte)

		return tone, true
	}

	return Tone{}, false //nolint:exhaustruct
}

// A lone 0xAA between two tone chunks.
func (r *ByteStreamReader) isDummy(i int) bool {
	var c = r.chunks[i]

	return c.Kind == ChunkData && len(c.Bytes) == 1 && c.Bytes[0] == DUMMY_BYTE &&
		i > 0 && r.chunks[i-1].Kind == ChunkTone &&
		i+1 < len(r.chunks) && r.chunks[i+1].Kind == ChunkTone
}
