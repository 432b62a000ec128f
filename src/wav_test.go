package acorntape

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youpy/go-wav"
)

func Test_WAVRoundTrip(t *testing.T) {
	var samples = []int16{0, 1, -1, 12000, -12000, 32767, -32768, 5000, -5000}

	var path = filepath.Join(t.TempDir(), "rt.wav")
	require.NoError(t, WriteWAV(path, samples, 22050))

	var audio, err = ReadWAV(path)
	require.NoError(t, err)

	assert.Equal(t, 22050, audio.SampleRate)
	assert.Equal(t, samples, audio.Samples)
	assert.InDelta(t, float64(len(samples))/22050, audio.Seconds(), 1e-12)
}

func Test_WAVFile(t *testing.T) {
	var profile, file = helloFile(1200)

	var w = NewToneWriter(44100, 1200, DEFAULT_CARRIER_FREQ)
	w.Silence(0.25)
	WriteFile(w, profile, file)

	var path = filepath.Join(t.TempDir(), "hello.wav")
	require.NoError(t, WriteWAV(path, w.Samples(GEN_TAPE_AMPLITUDE), 44100))

	var reader, err = OpenTape(path, DefaultConfig(MachineAtom), nil)
	require.NoError(t, err)

	var files = decodeWith(t, reader, MachineAtom)
	require.Len(t, files, 1)

	assert.Equal(t, "HELLO", files[0].Name)
	assert.True(t, files[0].Complete)
	assert.Equal(t, []byte{1, 2, 3}, files[0].Data())
	assert.InDelta(t, 0.25, files[0].Blocks[0].Timing.Start, 0.001)
}

func Test_OpenTapeErrors(t *testing.T) {
	var dir = t.TempDir()

	var _, err = OpenTape(filepath.Join(dir, "tape.mp3"), DefaultConfig(MachineAtom), nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = OpenTape(filepath.Join(dir, "missing.wav"), DefaultConfig(MachineAtom), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)

	var junk = filepath.Join(dir, "junk.uef")
	require.NoError(t, os.WriteFile(junk, []byte("this is not a tape"), 0o600))

	_, err = OpenTape(junk, DefaultConfig(MachineAtom), nil)
	assert.ErrorIs(t, err, ErrNotUEF)
}

func Test_WAV8BitStereo(t *testing.T) {
	var left = []int{255, 0, 10, 99}
	var right = []int{0, 128, 255, 200}

	var path = filepath.Join(t.TempDir(), "stereo8.wav")

	var f, err = os.Create(path)
	require.NoError(t, err)

	var writer = wav.NewWriter(f, uint32(len(left)), 2, 11025, 8)

	var samples = make([]wav.Sample, len(left))
	for i := range left {
		samples[i] = wav.Sample{Values: [2]int{left[i], right[i]}}
	}

	require.NoError(t, writer.WriteSamples(samples))
	require.NoError(t, f.Close())

	var audio, readErr = ReadWAV(path)
	require.NoError(t, readErr)

	// Second channel only, unsigned moved to signed.
	assert.Equal(t, 11025, audio.SampleRate)
	assert.Equal(t, []int16{-32768, 0, 32512, 18432}, audio.Samples)
}
