package acorntape

/*------------------------------------------------------------------
 *
 * Purpose:	Read and write CSW (Compressed Square Wave) files.
 *
 * Description:	A CSW file is a list of pulse lengths in samples.  Each
 *		pulse is one half-cycle and the level alternates.
 *
 *		Version 1 header, 0x20 bytes:
 *
 *		  0x00	"Compressed Square Wave" 0x1A
 *		  0x17	major, minor version
 *		  0x19	sample rate, 2 bytes
 *		  0x1B	compression, 1 = RLE
 *		  0x1C	flags, bit 0 = starts high
 *
 *		Version 2:
 *
 *		  0x19	sample rate, 4 bytes
 *		  0x1D	total number of pulses, 4 bytes
 *		  0x21	compression, 1 = RLE, 2 = Z-RLE
 *		  0x22	flags, bit 0 = starts high
 *		  0x23	header extension length
 *		  0x24	encoding application, 16 bytes
 *		  0x34	header extension, then data
 *
 *		RLE data is one byte per pulse, or a zero byte followed
 *		by a 4 byte length for pulses over 255.  Z-RLE is the
 *		same thing through zlib.
 *
 *---------------------------------------------------------------*/

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const CSW_SIGNATURE = "Compressed Square Wave\x1a"

const (
	CSW_RLE  = 1
	CSW_ZRLE = 2
)

var ErrNotCSW = errors.New("not a CSW file")

type PulseAudio struct {
	Pulses     []int
	Initial    Level
	SampleRate int
}

func ReadCSW(path string) (*PulseAudio, error) {
	var b, err = os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, err
	}

	var audio, parseErr = ParseCSW(b)
	if parseErr != nil {
		return nil, fmt.Errorf("%s: %w", path, parseErr)
	}

	return audio, nil
}

func ParseCSW(b []byte) (*PulseAudio, error) {
	if len(b) < 0x20 || string(b[:len(CSW_SIGNATURE)]) != CSW_SIGNATURE {
		return nil, ErrNotCSW
	}

	var major = b[0x17]

	var rate int
	var compression byte
	var flags byte
	var data []byte

	switch major {
	case 1:
		rate = int(binary.LittleEndian.Uint16(b[0x19:]))
		compression = b[0x1B]
		flags = b[0x1C]
		data = b[0x20:]

	case 2:
		if len(b) < 0x34 {
			return nil, fmt.Errorf("CSW v2 header truncated")
		}

		rate = int(binary.LittleEndian.Uint32(b[0x19:]))
		compression = b[0x21]
		flags = b[0x22]

		var start = 0x34 + int(b[0x23])
		if start > len(b) {
			return nil, fmt.Errorf("CSW v2 header extension truncated")
		}

		data = b[start:]

	default:
		return nil, fmt.Errorf("CSW version %d not supported", major)
	}

	if rate <= 0 {
		return nil, fmt.Errorf("CSW sample rate %d", rate)
	}

	switch compression {
	case CSW_RLE:
	case CSW_ZRLE:
		var zr, err = zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("Z-RLE: %w", err)
		}

		data, err = io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("Z-RLE: %w", err)
		}

	default:
		return nil, fmt.Errorf("CSW compression %d not supported", compression)
	}

	var pulses, err = decodeRLE(data)
	if err != nil {
		return nil, err
	}

	return &PulseAudio{
		Pulses:     pulses,
		Initial:    IfThenElse(flags&1 != 0, LevelHigh, LevelLow),
		SampleRate: rate,
	}, nil
}

func decodeRLE(data []byte) ([]int, error) {
	var pulses = make([]int, 0, len(data))

	for i := 0; i < len(data); i++ {
		if data[i] != 0 {
			pulses = append(pulses, int(data[i]))

			continue
		}

		if i+4 >= len(data) {
			return pulses, fmt.Errorf("RLE long pulse truncated at %d", i)
		}

		pulses = append(pulses, int(binary.LittleEndian.Uint32(data[i+1:])))
		i += 4
	}

	return pulses, nil
}

func encodeRLE(pulses []int) []byte {
	var out = make([]byte, 0, len(pulses))

	for _, p := range pulses {
		if p > 0 && p < 256 {
			out = append(out, byte(p))

			continue
		}

		out = append(out, 0)
		out = binary.LittleEndian.AppendUint32(out, uint32(p)) //nolint:gosec
	}

	return out
}

/*------------------------------------------------------------------
 *
 * Name:	WriteCSW
 *
 * Purpose:	Write pulses as a version 2 Z-RLE file.
 *
 *----------------------------------------------------------------*/

func WriteCSW(path string, audio *PulseAudio) error {
	var f, err = os.Create(path) //nolint:gosec
	if err != nil {
		return err
	}

	var w = bufio.NewWriter(f)

	var writeErr = writeCSW(w, audio)
	if writeErr == nil {
		writeErr = w.Flush()
	}

	var closeErr = f.Close()

	if writeErr != nil {
		return fmt.Errorf("%s: %w", path, writeErr)
	}

	return closeErr
}

func writeCSW(w io.Writer, audio *PulseAudio) error {
	var hdr = make([]byte, 0x34)

	copy(hdr, CSW_SIGNATURE)
	hdr[0x17] = 2
	hdr[0x18] = 0
	binary.LittleEndian.PutUint32(hdr[0x19:], uint32(audio.SampleRate))  //nolint:gosec
	binary.LittleEndian.PutUint32(hdr[0x1D:], uint32(len(audio.Pulses))) //nolint:gosec
	hdr[0x21] = CSW_ZRLE
	hdr[0x22] = IfThenElse[byte](audio.Initial == LevelHigh, 1, 0)
	hdr[0x23] = 0
	copy(hdr[0x24:0x34], "acorntape")

	if _, err := w.Write(hdr); err != nil {
		return err
	}

	var zw = zlib.NewWriter(w)

	if _, err := zw.Write(encodeRLE(audio.Pulses)); err != nil {
		return err
	}

	return zw.Close()
}
