package acorntape

/*------------------------------------------------------------------
 *
 * Purpose:	Read UEF tape images.
 *
 * Description:	"UEF File!" 0x00, minor and major version bytes, then
 *		chunks of 2 byte id, 4 byte length, data.  The whole
 *		thing may be gzipped.
 *
 *		Chunks used here:
 *
 *		  0x0100	data bytes, 8N1 framing implied
 *		  0x0110	carrier tone, 2 byte cycle count
 *		  0x0111	carrier, 0xAA dummy byte, carrier
 *		  0x0112	gap, 2 byte count of 1/(2 * base) seconds
 *		  0x0113	base frequency, float
 *		  0x0116	gap, float seconds
 *		  0x0117	baud rate, 2 bytes
 *
 *		Everything else is skipped.
 *
 *---------------------------------------------------------------*/

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

const UEF_SIGNATURE = "UEF File!\x00"

var ErrNotUEF = errors.New("not a UEF file")

type UEFTape struct {
	Chunks   []Chunk
	BaseFreq float64 // F1, Hz
	Baud     int
	Major    int
	Minor    int
}

func ReadUEF(path string) (*UEFTape, error) {
	var b, err = os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, err
	}

	var tape, parseErr = ParseUEF(b)
	if parseErr != nil {
		return nil, fmt.Errorf("%s: %w", path, parseErr)
	}

	return tape, nil
}

func ParseUEF(b []byte) (*UEFTape, error) {
	if len(b) >= 2 && b[0] == 0x1F && b[1] == 0x8B {
		var zr, err = gzip.NewReader(bytes.NewReader(b))
		if err != nil {
			return nil, err
		}

		b, err = io.ReadAll(zr)
		if err != nil {
			return nil, err
		}
	}

	if len(b) < len(UEF_SIGNATURE)+2 || string(b[:len(UEF_SIGNATURE)]) != UEF_SIGNATURE {
		return nil, ErrNotUEF
	}

	var tape = &UEFTape{
		Chunks:   nil,
		BaseFreq: DEFAULT_CARRIER_FREQ / 2,
		Baud:     1200,
		Minor:    int(b[len(UEF_SIGNATURE)]),
		Major:    int(b[len(UEF_SIGNATURE)+1]),
	}

	var p = b[len(UEF_SIGNATURE)+2:]

	for len(p) > 0 {
		if len(p) < 6 {
			return tape, fmt.Errorf("chunk header truncated")
		}

		var id = binary.LittleEndian.Uint16(p)
		var n = int(binary.LittleEndian.Uint32(p[2:]))

		p = p[6:]

		if n > len(p) {
			return tape, fmt.Errorf("chunk %04x truncated, %d of %d bytes", id, len(p), n)
		}

		var body = p[:n]
		p = p[n:]

		tape.addChunk(id, body)
	}

	return tape, nil
}

func (t *UEFTape) addChunk(id uint16, body []byte) {
	switch id {
	case 0x0100:
		t.Chunks = append(t.Chunks, Chunk{Kind: ChunkData, Bytes: append([]byte(nil), body...)}) //nolint:exhaustruct

	case 0x0110:
		if len(body) >= 2 {
			t.Chunks = append(t.Chunks, Chunk{Kind: ChunkTone, Cycles: int(binary.LittleEndian.Uint16(body))}) //nolint:exhaustruct
		}

	case 0x0111:
		if len(body) >= 4 {
			t.Chunks = append(t.Chunks,
				Chunk{Kind: ChunkTone, Cycles: int(binary.LittleEndian.Uint16(body))},     //nolint:exhaustruct
				Chunk{Kind: ChunkData, Bytes: []byte{DUMMY_BYTE}},                         //nolint:exhaustruct
				Chunk{Kind: ChunkTone, Cycles: int(binary.LittleEndian.Uint16(body[2:]))}) //nolint:exhaustruct
		}

	case 0x0112:
		if len(body) >= 2 {
			var seconds = float64(binary.LittleEndian.Uint16(body)) / (2 * t.BaseFreq)
			t.Chunks = append(t.Chunks, Chunk{Kind: ChunkGap, Seconds: seconds}) //nolint:exhaustruct
		}

	case 0x0113:
		if len(body) >= 4 {
			var hz = float64(math.Float32frombits(binary.LittleEndian.Uint32(body)))
			if hz > 0 {
				t.BaseFreq = hz
			}
		}

	case 0x0116:
		if len(body) >= 4 {
			var seconds = float64(math.Float32frombits(binary.LittleEndian.Uint32(body)))
			t.Chunks = append(t.Chunks, Chunk{Kind: ChunkGap, Seconds: seconds}) //nolint:exhaustruct
		}

	case 0x0117:
		if len(body) >= 2 {
			t.Baud = int(binary.LittleEndian.Uint16(body))
		}
	}
}

/*------------------------------------------------------------------
 *
 * Name:	EncodeUEF
 *
 * Purpose:	A file the way a machine would have saved it,
 *		as UEF chunks.  Used to check the byte stream path.
 *
 *----------------------------------------------------------------*/

func EncodeUEF(profile MachineProfile, file *TapeFile) []byte {
	var out = []byte(UEF_SIGNATURE)
	out = append(out, 10, 0)

	var chunk = func(id uint16, body []byte) {
		out = binary.LittleEndian.AppendUint16(out, id)
		out = binary.LittleEndian.AppendUint32(out, uint32(len(body))) //nolint:gosec
		out = append(out, body...)
	}

	var u16 = func(v int) []byte {
		return binary.LittleEndian.AppendUint16(nil, uint16(v)) //nolint:gosec
	}

	var t = profile.Timing
	var carrier = DEFAULT_CARRIER_FREQ

	for i, block := range file.Blocks {
		var header, payload = EncodeBlock(profile, block)

		var first = i == 0
		var last = i == len(file.Blocks)-1

		var lead = pick(block.Timing.LeadCycles, secondsToCycles(IfThenElse(first, t.FirstLead, t.Lead), carrier))

		if profile.DummyByte && first {
			var body = u16(pick(block.Timing.PreludeCycles, t.PreludeCycles))
			chunk(0x0111, append(body, u16(lead)...))
		} else {
			chunk(0x0110, u16(lead))
		}

		if profile.MicroTone {
			chunk(0x0100, header)
			chunk(0x0110, u16(pick(block.Timing.MicroCycles, secondsToCycles(t.Micro, carrier))))
			chunk(0x0100, payload)
		} else {
			chunk(0x0100, append(header, payload...))
		}

		if last && profile.TrailerTone {
			chunk(0x0110, u16(pick(block.Timing.TrailerCycles, secondsToCycles(t.Trailer, carrier))))
		}

		var gap = IfThenElse(block.Timing.Gap > 0, block.Timing.Gap, t.Gap)
		chunk(0x0116, binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(gap))))
	}

	return out
}
