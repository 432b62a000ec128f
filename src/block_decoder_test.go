package acorntape

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeWith(t *testing.T, r TapeReader, m Machine) []*TapeFile {
	t.Helper()

	return decodeProfile(t, r, ProfileFor(m))
}

func decodeProfile(t *testing.T, r TapeReader, profile MachineProfile) []*TapeFile {
	t.Helper()

	var decoder = NewBlockDecoder(r, profile, DEFAULT_CARRIER_FREQ, nil)

	var files, err = NewFileAssembler(decoder, nil).ReadAll()
	require.NoError(t, err)

	return files
}

func decodePCM(t *testing.T, w *ToneWriter, m Machine) []*TapeFile {
	t.Helper()

	return decodeWith(t, pcmTapeReader(t, w), m)
}

// Atom block laid out by hand so the bytes can be tampered with.
func writeAtomBlock(w *ToneWriter, header, payload []byte) {
	var t = DefaultTiming(MachineAtom)

	w.Tone(t.FirstLead)
	w.Bytes(header)
	w.Tone(t.Micro)
	w.Bytes(payload)
	w.Silence(t.Gap)
}

func helloFile(baud int) (MachineProfile, *TapeFile) {
	var profile = ProfileFor(MachineAtom)

	return profile, NewTapeFile(profile, "HELLO", 0x2900, 0x2900, []byte{1, 2, 3}, baud)
}

func Test_AtomSingleBlock(t *testing.T) {
	var profile, file = helloFile(1200)

	assert.Equal(t, byte(ATOM_FLAG_DATA), file.Blocks[0].Header.Atom.Flags)

	var w = NewToneWriter(44100, 1200, DEFAULT_CARRIER_FREQ)
	WriteFile(w, profile, file)

	var files = decodePCM(t, w, MachineAtom)
	require.Len(t, files, 1)

	var f = files[0]
	assert.Equal(t, "HELLO", f.Name)
	assert.Equal(t, MachineAtom, f.Machine)
	assert.True(t, f.Complete)
	assert.False(t, f.Corrupted)
	assert.Equal(t, []byte{1, 2, 3}, f.Data())
	assert.Equal(t, uint32(0x2900), f.LoadAddress)
	assert.Equal(t, uint32(0x2900), f.ExecAddress)
	assert.Equal(t, 0, f.FirstBlock)
	assert.Equal(t, 0, f.LastBlock)
	assert.Equal(t, 1200, f.BaudRate)

	require.Len(t, f.Blocks, 1)

	var b = f.Blocks[0]
	assert.True(t, b.CompleteHeader)
	assert.True(t, b.CompleteData)
	assert.Equal(t, BlockError(0), b.Errors)
	assert.Equal(t, uint16(AtomChecksum([]byte{0x2A, 0x2A, 0x2A, 0x2A}, []byte("HELLO\r"),
		[]byte{0x40, 0, 0, 2, 0x29, 0, 0x29, 0}, []byte{1, 2, 3})), b.Checksum)

	assert.InDelta(t, 0, b.Timing.Start, 1e-9)
	assert.Equal(t, 9600, b.Timing.LeadCycles)
	assert.InDelta(t, 1201, b.Timing.MicroCycles, 2)
	assert.InDelta(t, 2.0, b.Timing.Gap, 0.01)
	assert.False(t, b.Timing.DummyByte)
}

func Test_AtomTruncatedData(t *testing.T) {
	var profile, file = helloFile(1200)
	var header, payload = EncodeBlock(profile, file.Blocks[0])

	var w = NewToneWriter(44100, 1200, DEFAULT_CARRIER_FREQ)
	writeAtomBlock(w, header, payload[:2])

	var files = decodePCM(t, w, MachineAtom)
	require.Len(t, files, 1)

	var f = files[0]
	assert.False(t, f.Complete)
	assert.False(t, f.Corrupted)

	require.Len(t, f.Blocks, 1)
	assert.True(t, f.Blocks[0].CompleteHeader)
	assert.False(t, f.Blocks[0].CompleteData)
	assert.Equal(t, []byte{1, 2, 0}, f.Blocks[0].Data)
}

func Test_AtomChecksumError(t *testing.T) {
	var profile, file = helloFile(1200)
	var header, payload = EncodeBlock(profile, file.Blocks[0])

	payload[0] ^= 0x01

	var w = NewToneWriter(44100, 1200, DEFAULT_CARRIER_FREQ)
	writeAtomBlock(w, header, payload)

	var files = decodePCM(t, w, MachineAtom)
	require.Len(t, files, 1)

	var f = files[0]
	assert.True(t, f.Corrupted)
	assert.True(t, f.Complete)

	var b = f.Blocks[0]
	assert.Equal(t, DataCRCErr, b.Errors)
	assert.True(t, b.Corrupted())
	assert.Equal(t, []byte{0, 2, 3}, b.Data)
	assert.Equal(t, uint16(payload[3]), b.Checksum)
}

func Test_AtomPulses(t *testing.T) {
	var profile, file = helloFile(1200)

	var w = NewToneWriter(44100, 1200, DEFAULT_CARRIER_FREQ)
	w.Silence(0.5)
	WriteFile(w, profile, file)

	var files = decodeWith(t, pulseTapeReader(t, w), MachineAtom)
	require.Len(t, files, 1)

	assert.True(t, files[0].Complete)
	assert.Equal(t, []byte{1, 2, 3}, files[0].Data())
	assert.InDelta(t, 0.5, files[0].Blocks[0].Timing.Start, 0.001)
}

func Test_Atom300Baud(t *testing.T) {
	var profile, file = helloFile(300)

	var w = NewToneWriter(44100, 300, DEFAULT_CARRIER_FREQ)
	WriteFile(w, profile, file)

	var files = decodePCM(t, w, MachineAtom)
	require.Len(t, files, 1)

	assert.True(t, files[0].Complete)
	assert.Equal(t, 300, files[0].BaudRate)
	assert.Equal(t, []byte{1, 2, 3}, files[0].Data())
}

func shortBBCProfile() MachineProfile {
	var profile = ProfileFor(MachineBBC)
	profile.Timing.FirstLead = 1.0
	profile.Timing.Trailer = 1.0
	profile.Timing.Gap = 0.5

	return profile
}

func Test_BBCMultiBlock(t *testing.T) {
	var data = make([]byte, 300)
	for i := range data {
		data[i] = byte(i * 7)
	}

	var profile = shortBBCProfile()
	var file = NewTapeFile(profile, "ELITE", 0x1900, 0x8023, data, 1200)

	require.Len(t, file.Blocks, 2)

	var w = NewToneWriter(44100, 1200, DEFAULT_CARRIER_FREQ)
	WriteFile(w, profile, file)

	var files = decodePCM(t, w, MachineBBC)
	require.Len(t, files, 1)

	var f = files[0]
	assert.Equal(t, "ELITE", f.Name)
	assert.True(t, f.Complete)
	assert.False(t, f.Corrupted)
	assert.Equal(t, data, f.Data())
	assert.Equal(t, uint32(0x1900), f.LoadAddress)
	assert.Equal(t, uint32(0x8023), f.ExecAddress)
	assert.Equal(t, 1, f.LastBlock)

	require.Len(t, f.Blocks, 2)

	var b0, b1 = f.Blocks[0], f.Blocks[1]

	assert.True(t, b0.Timing.DummyByte)
	assert.Equal(t, 4, b0.Timing.PreludeCycles)
	assert.InDelta(t, 2401, b0.Timing.LeadCycles, 2)
	assert.Equal(t, uint16(256), b0.Header.BBC.Length)

	var header, _ = EncodeBlock(profile, file.Blocks[0])
	var n = len(header)
	assert.Equal(t, uint16(header[n-2])<<8|uint16(header[n-1]), b0.Header.BBC.HeaderCRC)
	assert.Equal(t, byte(0), b0.Header.BBC.Flags)
	assert.False(t, b0.Header.Last())
	assert.InDelta(t, 0.5, b0.Timing.Gap, 0.01)
	assert.Zero(t, b0.Timing.TrailerCycles)

	assert.False(t, b1.Timing.DummyByte)
	assert.InDelta(t, 2160, b1.Timing.LeadCycles, 2)
	assert.Equal(t, uint16(1), b1.Header.BBC.BlockNo)
	assert.Equal(t, uint16(44), b1.Header.BBC.Length)
	assert.True(t, b1.Header.Last())
	assert.InDelta(t, 2400, b1.Timing.TrailerCycles, 2)
	assert.Equal(t, CRC16XModem(data[256:]), b1.Checksum)

	for _, b := range f.Blocks {
		assert.Equal(t, BlockError(0), b.Errors)
		assert.True(t, b.CompleteHeader)
		assert.True(t, b.CompleteData)
	}
}

func Test_BBCHeaderCRCError(t *testing.T) {
	var profile = shortBBCProfile()
	var file = NewTapeFile(profile, "BAD", 0x1900, 0x1900, []byte("DATA"), 1200)

	var header, payload = EncodeBlock(profile, file.Blocks[0])

	// Low byte of the exec address.
	header[1+len("BAD")+1+4] ^= 0xFF

	var w = NewToneWriter(44100, 1200, DEFAULT_CARRIER_FREQ)
	w.Cycles(4)
	w.Byte(DUMMY_BYTE)
	w.Tone(1.0)
	w.Bytes(header)
	w.Bytes(payload)
	w.Tone(1.0)
	w.Silence(0.5)

	var files = decodePCM(t, w, MachineBBC)
	require.Len(t, files, 1)

	var b = files[0].Blocks[0]
	assert.Equal(t, HdrCRCErr, b.Errors)
	assert.Equal(t, []byte("DATA"), b.Data)
	assert.True(t, files[0].Corrupted)
	assert.Equal(t, "HDR_CRC_ERR", b.Errors.String())
}

func Test_ReadBlockStructureError(t *testing.T) {
	var w = NewToneWriter(44100, 1200, DEFAULT_CARRIER_FREQ)
	w.Tone(2.0)
	w.Bytes([]byte{0x2A, 0x2A, 0x55, 0x55})
	w.Silence(1.0)

	var decoder = NewBlockDecoder(pcmTapeReader(t, w), ProfileFor(MachineAtom), DEFAULT_CARRIER_FREQ, nil)

	var _, err = decoder.ReadBlock()
	assert.True(t, errors.Is(err, ErrBlockStructure), "%v", err)

	_, err = decoder.ReadBlock()
	assert.ErrorIs(t, err, ErrEndOfTape)
}

// Micro tone too short to count as one.  The data after it still reads.
func Test_AtomShortMicroTone(t *testing.T) {
	var profile, file = helloFile(1200)
	var header, payload = EncodeBlock(profile, file.Blocks[0])
	var timing = DefaultTiming(MachineAtom)

	var w = NewToneWriter(44100, 1200, DEFAULT_CARRIER_FREQ)
	w.Tone(timing.FirstLead)
	w.Bytes(header)
	w.Tone(0.2)
	w.Bytes(payload)
	w.Silence(timing.Gap)

	var files = decodePCM(t, w, MachineAtom)
	require.Len(t, files, 1)

	assert.True(t, files[0].Complete)
	assert.Equal(t, []byte{1, 2, 3}, files[0].Data())

	var b = files[0].Blocks[0]
	assert.Zero(t, b.Timing.MicroCycles)
	assert.Equal(t, BlockError(0), b.Errors)
}

// A stray F1 half-cycle in the lead tone, less than the minimum lead
// before the header.
func Test_AtomLeadGlitch(t *testing.T) {
	var profile, file = helloFile(1200)
	var header, payload = EncodeBlock(profile, file.Blocks[0])
	var timing = DefaultTiming(MachineAtom)

	var w = NewToneWriter(44100, 1200, DEFAULT_CARRIER_FREQ)
	w.Tone(3.5)
	w.half(w.halfF1())
	w.Tone(0.5)
	w.Bytes(header)
	w.Tone(timing.Micro)
	w.Bytes(payload)
	w.Silence(timing.Gap)

	var files = decodePCM(t, w, MachineAtom)
	require.Len(t, files, 1)

	assert.True(t, files[0].Complete)
	assert.Equal(t, []byte{1, 2, 3}, files[0].Data())
	assert.InDelta(t, 9600, files[0].Blocks[0].Timing.LeadCycles, 2)
}

// Tape running 6% slow.  The dummy byte and header are only a few
// cycles into their tones, so they have to be read on the carrier
// measured from those few cycles.
func Test_BBCSlowTape(t *testing.T) {
	var profile = shortBBCProfile()
	var data = testData(600)
	var file = NewTapeFile(profile, "SLOW", 0x1900, 0x1900, data, 1200)

	for _, carrier := range []float64{2256, 2544} {
		var w = NewToneWriter(44100, 1200, carrier)
		WriteFile(w, profile, file)

		var files = decodePCM(t, w, MachineBBC)
		require.Len(t, files, 1, "%v", carrier)

		var f = files[0]
		assert.True(t, f.Complete, "%v", carrier)
		assert.False(t, f.Corrupted, "%v", carrier)
		assert.Equal(t, data, f.Data(), "%v", carrier)
		require.Len(t, f.Blocks, 3, "%v", carrier)

		assert.True(t, f.Blocks[0].Timing.DummyByte, "%v", carrier)
		assert.Equal(t, 4, f.Blocks[0].Timing.PreludeCycles, "%v", carrier)
	}
}

// Half a sine per half-cycle instead of a square wave.
func sineWave(w *ToneWriter, amplitude float64) []int16 {
	var out []int16
	var pos = 0.0
	var sign = 1.0

	for _, s := range w.segments {
		var end = pos + s.duration

		for n := int(math.Round(pos)); n < int(math.Round(end)); n++ {
			if s.silent {
				out = append(out, 0)

				continue
			}

			var x = (float64(n) + 0.5 - pos) / s.duration
			out = append(out, int16(math.Round(sign*amplitude*math.Sin(math.Pi*x))))
		}

		if !s.silent {
			sign = -sign
		}

		pos = end
	}

	return out
}

func sineTapeReader(t require.TestingT, w *ToneWriter) *CycleTapeReader {
	var cycles, err = NewPCMCycleDecoder(sineWave(w, 12000), w.SampleRate(), DEFAULT_CARRIER_FREQ, DEFAULT_FREQ_TOLERANCE, 0.1)
	require.NoError(t, err)

	return NewCycleTapeReader(cycles, w.baud, nil)
}

func Test_SineWaveOffSpeed(t *testing.T) {
	var atom = shortAtomProfile()
	var bbc = shortBBCProfile()
	var data = testData(300)

	for _, tc := range []struct {
		profile MachineProfile
		carrier float64
	}{
		{atom, DEFAULT_CARRIER_FREQ},
		{atom, DEFAULT_CARRIER_FREQ / 1.06},
		{bbc, DEFAULT_CARRIER_FREQ / 1.06},
		{bbc, DEFAULT_CARRIER_FREQ * 1.06},
	} {
		var name = fmt.Sprintf("%s at %.0f Hz", tc.profile.Machine, tc.carrier)
		var file = NewTapeFile(tc.profile, "SINE", 0x2900, 0x2900, data, 1200)

		var w = NewToneWriter(44100, 1200, tc.carrier)
		WriteFile(w, tc.profile, file)

		var files = decodeWith(t, sineTapeReader(t, w), tc.profile.Machine)
		require.Len(t, files, 1, name)

		assert.True(t, files[0].Complete, name)
		assert.False(t, files[0].Corrupted, name)
		assert.Equal(t, data, files[0].Data(), name)
	}
}

func Test_ProfileChecksums(t *testing.T) {
	// BBC header layout with an additive checksum and no header CRC.
	var profile = shortBBCProfile()
	profile.Checksum = ChecksumSum8
	profile.HeaderCRC = false
	profile.MaxBlock = 128

	var data = testData(300)
	var file = NewTapeFile(profile, "SUMS", 0x1900, 0x1900, data, 1200)
	require.Len(t, file.Blocks, 3)

	var header, payload = EncodeBlock(profile, file.Blocks[0])
	assert.Len(t, header, 1+len("SUMS")+1+BBC_HEADER_LEN)
	assert.Len(t, payload, 128+1)
	assert.Equal(t, BBC_HEADER_LEN, profile.HeaderLen())

	var w = NewToneWriter(44100, 1200, DEFAULT_CARRIER_FREQ)
	WriteFile(w, profile, file)

	var files = decodeProfile(t, pcmTapeReader(t, w), profile)
	require.Len(t, files, 1)

	var f = files[0]
	assert.True(t, f.Complete)
	assert.False(t, f.Corrupted)
	assert.Equal(t, data, f.Data())
	require.Len(t, f.Blocks, 3)

	var b = f.Blocks[0]
	assert.Equal(t, uint16(payload[128]), b.Checksum)
	assert.Equal(t, uint16(128), b.Header.BBC.Length)
	assert.Zero(t, b.Header.BBC.HeaderCRC)
	assert.True(t, b.Timing.DummyByte)
	assert.InDelta(t, 2400, f.Blocks[2].Timing.TrailerCycles, 2)
}

func Test_ProfileHeaderCRCOnAtomLayout(t *testing.T) {
	var profile = ProfileFor(MachineAtom)
	profile.Checksum = ChecksumCRC16
	profile.HeaderCRC = true

	assert.Equal(t, ATOM_HEADER_LEN+2, profile.HeaderLen())

	var file = NewTapeFile(profile, "X", 0x2900, 0x2900, []byte("DATA"), 1200)

	var header, payload = EncodeBlock(profile, file.Blocks[0])
	require.Len(t, header, 4+1+1+ATOM_HEADER_LEN+2)
	require.Len(t, payload, 4+2)
	assert.Equal(t, CRC16XModem([]byte("DATA")), uint16(payload[4])<<8|uint16(payload[5]))

	var w = NewToneWriter(44100, 1200, DEFAULT_CARRIER_FREQ)
	writeAtomBlock(w, header, payload)

	var good = header

	header = append([]byte(nil), good...)
	header[4+1+1+4] ^= 0xFF // Exec high byte.

	writeAtomBlock(w, header, payload)

	var files = decodeProfile(t, pcmTapeReader(t, w), profile)
	require.Len(t, files, 2)

	var b0, b1 = files[0].Blocks[0], files[1].Blocks[0]

	assert.Equal(t, BlockError(0), b0.Errors)
	assert.Equal(t, []byte("DATA"), b0.Data)
	assert.Equal(t, CRC16XModem([]byte("DATA")), b0.Checksum)

	assert.Equal(t, HdrCRCErr, b1.Errors)
	assert.Equal(t, []byte("DATA"), b1.Data)
	assert.True(t, files[1].Corrupted)
}

func Test_BlockErrorString(t *testing.T) {
	assert.Equal(t, "OK", BlockError(0).String())
	assert.Equal(t, "HDR_CRC_ERR|DATA_CRC_ERR", (HdrCRCErr | DataCRCErr).String())
}
