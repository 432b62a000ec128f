package acorntape

/*------------------------------------------------------------------
 *
 * Purpose:	Read and write .WAV recordings.
 *
 * Description:	Only PCM, 8 or 16 bits, mono or stereo.  go-wav keeps
 *		two channel values per sample, so nothing wider.  With
 *		two channels we use the second.
 *
 *		8 bit samples are unsigned, 0 .. 255, and get moved
 *		onto the signed 16 bit scale everything else uses.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/youpy/go-wav"
)

type PCMAudio struct {
	Samples    []int16
	SampleRate int
}

func (a *PCMAudio) Seconds() float64 {
	return float64(len(a.Samples)) / float64(a.SampleRate)
}

func ReadWAV(path string) (*PCMAudio, error) {
	var f, err = os.Open(path) //nolint:gosec
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var audio, readErr = readWAV(f)
	if readErr != nil {
		return nil, fmt.Errorf("%s: %w", path, readErr)
	}

	return audio, nil
}

func readWAV(f *os.File) (*PCMAudio, error) {
	var reader = wav.NewReader(f)

	var format, err = reader.Format()
	if err != nil {
		return nil, err
	}

	if format.AudioFormat != wav.AudioFormatPCM {
		return nil, fmt.Errorf("audio format %d is not PCM", format.AudioFormat)
	}

	if format.BitsPerSample != 8 && format.BitsPerSample != 16 {
		return nil, fmt.Errorf("%d bits per sample not supported", format.BitsPerSample)
	}

	if format.NumChannels < 1 || format.NumChannels > 2 {
		return nil, fmt.Errorf("%d channels not supported", format.NumChannels)
	}

	var channel = uint(format.NumChannels - 1)
	var eight = format.BitsPerSample == 8

	var audio = &PCMAudio{
		Samples:    nil,
		SampleRate: int(format.SampleRate),
	}

	for {
		var samples, err = reader.ReadSamples(4096)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err
		}

		for _, s := range samples {
			var v = reader.IntValue(s, channel)
			if eight {
				v = (v - 128) * 256
			}

			audio.Samples = append(audio.Samples, int16(min(max(v, -32768), 32767))) //nolint:gosec
		}
	}

	return audio, nil
}

// WriteWAV writes 16 bit mono.
func WriteWAV(path string, samples []int16, sampleRate int) error {
	var f, err = os.Create(path) //nolint:gosec
	if err != nil {
		return err
	}

	var writeErr = writeWAV(f, samples, sampleRate)

	var closeErr = f.Close()

	if writeErr != nil {
		return fmt.Errorf("%s: %w", path, writeErr)
	}

	return closeErr
}

func writeWAV(w io.Writer, samples []int16, sampleRate int) error {
	var writer = wav.NewWriter(w, uint32(len(samples)), 1, uint32(sampleRate), 16) //nolint:gosec

	var buf = make([]wav.Sample, 0, 4096)

	for i, s := range samples {
		buf = append(buf, wav.Sample{Values: [2]int{int(s), int(s)}})

		if len(buf) == cap(buf) || i == len(samples)-1 {
			if err := writer.WriteSamples(buf); err != nil {
				return err
			}

			buf = buf[:0]
		}
	}

	return nil
}
