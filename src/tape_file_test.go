package acorntape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shortAtomProfile() MachineProfile {
	var profile = ProfileFor(MachineAtom)
	profile.Timing.FirstLead = 1.5
	profile.Timing.Lead = 1.5
	profile.Timing.Gap = 0.3

	return profile
}

func testData(n int) []byte {
	var data = make([]byte, n)
	for i := range data {
		data[i] = byte(i*13 + 5)
	}

	return data
}

func withBlocks(file *TapeFile, keep ...int) *TapeFile {
	var out = *file
	out.Blocks = nil

	for _, i := range keep {
		out.Blocks = append(out.Blocks, file.Blocks[i])
	}

	return &out
}

func Test_AtomMultiBlock(t *testing.T) {
	var profile = shortAtomProfile()
	var data = testData(600)
	var file = NewTapeFile(profile, "GAME", 0x2900, 0x2B00, data, 1200)

	require.Len(t, file.Blocks, 3)
	assert.Equal(t, byte(0xC0), file.Blocks[0].Header.Atom.Flags)
	assert.Equal(t, byte(0xE0), file.Blocks[1].Header.Atom.Flags)
	assert.Equal(t, byte(0x60), file.Blocks[2].Header.Atom.Flags)

	var w = NewToneWriter(44100, 1200, DEFAULT_CARRIER_FREQ)
	WriteFile(w, profile, file)

	var files = decodePCM(t, w, MachineAtom)
	require.Len(t, files, 1)

	var f = files[0]
	assert.True(t, f.Complete)
	assert.False(t, f.Corrupted)
	assert.Equal(t, data, f.Data())
	assert.Equal(t, 0, f.FirstBlock)
	assert.Equal(t, 2, f.LastBlock)
	assert.Equal(t, uint32(0x2B00), f.ExecAddress)

	for i, b := range f.Blocks {
		assert.Equal(t, i, b.Header.BlockNo())
		assert.Equal(t, uint32(0x2900+256*i), b.Header.Load())
	}
}

func Test_MissingBlock(t *testing.T) {
	var profile = shortAtomProfile()
	var file = NewTapeFile(profile, "GAME", 0x2900, 0x2900, testData(600), 1200)

	var w = NewToneWriter(44100, 1200, DEFAULT_CARRIER_FREQ)
	WriteFile(w, profile, withBlocks(file, 0, 2))

	var files = decodePCM(t, w, MachineAtom)
	require.Len(t, files, 1)

	assert.False(t, files[0].Complete)
	assert.False(t, files[0].Corrupted)
	assert.Len(t, files[0].Blocks, 2)
	assert.Equal(t, 2, files[0].LastBlock)
}

func Test_NameChangeEndsFile(t *testing.T) {
	var profile = shortAtomProfile()
	var one = NewTapeFile(profile, "ONE", 0x2900, 0x2900, testData(300), 1200)
	var two = NewTapeFile(profile, "TWO", 0x3000, 0x3000, testData(10), 1200)

	var w = NewToneWriter(44100, 1200, DEFAULT_CARRIER_FREQ)
	WriteFile(w, profile, withBlocks(one, 0))
	WriteFile(w, profile, two)

	var files = decodePCM(t, w, MachineAtom)
	require.Len(t, files, 2)

	assert.Equal(t, "ONE", files[0].Name)
	assert.False(t, files[0].Complete)
	assert.Len(t, files[0].Blocks, 1)

	assert.Equal(t, "TWO", files[1].Name)
	assert.True(t, files[1].Complete)
	assert.Equal(t, testData(10), files[1].Data())
}

func Test_NewFirstBlockEndsFile(t *testing.T) {
	var profile = shortAtomProfile()
	var file = NewTapeFile(profile, "SAME", 0x2900, 0x2900, testData(300), 1200)

	// Saving was interrupted and started again.
	var w = NewToneWriter(44100, 1200, DEFAULT_CARRIER_FREQ)
	WriteFile(w, profile, withBlocks(file, 0))
	WriteFile(w, profile, file)

	var files = decodePCM(t, w, MachineAtom)
	require.Len(t, files, 2)

	assert.False(t, files[0].Complete)
	assert.Len(t, files[0].Blocks, 1)

	assert.True(t, files[1].Complete)
	assert.Len(t, files[1].Blocks, 2)
	assert.Equal(t, testData(300), files[1].Data())
}

func Test_IncompleteHeaderIsPredicted(t *testing.T) {
	var profile = shortAtomProfile()
	var file = NewTapeFile(profile, "CUT", 0x2900, 0x2900, testData(300), 1200)

	var w = NewToneWriter(44100, 1200, DEFAULT_CARRIER_FREQ)
	WriteFile(w, profile, withBlocks(file, 0))

	var header, _ = EncodeBlock(profile, file.Blocks[1])

	w.Tone(profile.Timing.Lead)
	w.Bytes(header[:len(header)-3])
	w.Silence(0.5)

	var files = decodePCM(t, w, MachineAtom)
	require.Len(t, files, 1)

	var f = files[0]
	assert.False(t, f.Complete)
	require.Len(t, f.Blocks, 2)

	var b = f.Blocks[1]
	assert.False(t, b.CompleteHeader)
	assert.False(t, b.CompleteData)
	assert.Equal(t, 1, b.Header.BlockNo())
	assert.Equal(t, uint32(0x2A00), b.Header.Load())
	assert.Equal(t, testData(256), f.Data())
}

func Test_StructureErrorSkipped(t *testing.T) {
	var profile = shortAtomProfile()
	var file = NewTapeFile(profile, "AFTER", 0x2900, 0x2900, testData(20), 1200)

	var w = NewToneWriter(44100, 1200, DEFAULT_CARRIER_FREQ)
	w.Tone(1.5)
	w.Bytes([]byte{0x2A, 0x11, 0x22})
	w.Silence(0.3)
	WriteFile(w, profile, file)

	var files = decodePCM(t, w, MachineAtom)
	require.Len(t, files, 1)

	assert.Equal(t, "AFTER", files[0].Name)
	assert.True(t, files[0].Complete)
}

func Test_NoFiles(t *testing.T) {
	var w = NewToneWriter(44100, 1200, DEFAULT_CARRIER_FREQ)
	w.Silence(1.0)

	assert.Empty(t, decodePCM(t, w, MachineAtom))

	var decoder = NewBlockDecoder(pcmTapeReader(t, w), ProfileFor(MachineAtom), DEFAULT_CARRIER_FREQ, nil)

	var _, err = NewFileAssembler(decoder, nil).ReadFile()
	assert.ErrorIs(t, err, ErrEndOfTape)
}
