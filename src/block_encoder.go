package acorntape

/*------------------------------------------------------------------
 *
 * Purpose:	The reverse of the block decoder.  Frame blocks with
 *		their checksums and lay them out on tape with the
 *		tones and gaps the machine would have used.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
)

/*------------------------------------------------------------------
 *
 * Name:	EncodeBlock
 *
 * Purpose:	Bytes of one block as they go on tape.
 *
 * Returns:	header	- Preamble, name and header fields, then the
 *			  header CRC if the profile has one.
 *
 *		payload	- Data followed by its checksum.  An empty
 *			  block has no CRC-16.
 *
 *		The two are separate because the Atom puts its micro
 *		tone between them.
 *
 *----------------------------------------------------------------*/

func EncodeBlock(profile MachineProfile, block *FileBlock) ([]byte, []byte) {
	var name = []byte(block.Name)
	if len(name) > profile.MaxNameLen {
		name = name[:profile.MaxNameLen]
	}

	var header []byte

	for range profile.PreambleCount {
		header = append(header, profile.Preamble)
	}

	var nameStart = len(header)

	header = append(header, name...)
	header = append(header, profile.NameTerminator)

	switch profile.Layout {
	case LayoutBBC:
		var h = block.Header.BBC
		Assert(h != nil)

		header = binary.LittleEndian.AppendUint32(header, h.Load)
		header = binary.LittleEndian.AppendUint32(header, h.Exec)
		header = binary.LittleEndian.AppendUint16(header, h.BlockNo)
		header = binary.LittleEndian.AppendUint16(header, h.Length)
		header = append(header, h.Flags)
		header = binary.LittleEndian.AppendUint32(header, h.Next)
	default:
		var h = block.Header.Atom
		Assert(h != nil)

		header = append(header, h.Flags)
		header = binary.BigEndian.AppendUint16(header, h.BlockNo)
		header = append(header, h.LenMinus1)
		header = binary.BigEndian.AppendUint16(header, h.Exec)
		header = binary.BigEndian.AppendUint16(header, h.Load)
	}

	if profile.HeaderCRC {
		header = binary.BigEndian.AppendUint16(header, CRC16XModem(header[nameStart:]))
	}

	var payload = append([]byte(nil), block.Data...)

	switch profile.Checksum {
	case ChecksumCRC16:
		if len(block.Data) > 0 {
			payload = binary.BigEndian.AppendUint16(payload, CRC16XModem(block.Data))
		}
	default:
		payload = append(payload, AtomChecksum(header, block.Data))
	}

	return header, payload
}

/*------------------------------------------------------------------
 *
 * Name:	NewTapeFile
 *
 * Purpose:	Split a program into blocks the way the machine's SAVE
 *		would.
 *
 * Inputs:	name		- Truncated to what the machine allows.
 *
 *		load, exec	- Addresses.
 *
 *		data		- Whole program.
 *
 *----------------------------------------------------------------*/

func NewTapeFile(profile MachineProfile, name string, load, exec uint32, data []byte, baud int) *TapeFile {
	if len(name) > profile.MaxNameLen {
		name = name[:profile.MaxNameLen]
	}

	var size = profile.blockSize()

	var n = max((len(data)+size-1)/size, 1)

	var file = &TapeFile{
		Name:        name,
		Machine:     profile.Machine,
		Blocks:      make([]*FileBlock, 0, n),
		Complete:    true,
		Corrupted:   false,
		FirstBlock:  0,
		LastBlock:   n - 1,
		BaudRate:    baud,
		LoadAddress: load,
		ExecAddress: exec,
	}

	for i := range n {
		var chunk = data[min(i*size, len(data)):min((i+1)*size, len(data))]

		var block = &FileBlock{ //nolint:exhaustruct
			Name:           name,
			Header:         Header{Machine: profile.Machine}, //nolint:exhaustruct
			Data:           append([]byte(nil), chunk...),
			CompleteHeader: true,
			CompleteData:   true,
		}

		if profile.Layout == LayoutBBC {
			block.Header.BBC = &BBCHeader{
				Load:      load,
				Exec:      exec,
				BlockNo:   uint16(i),          //nolint:gosec
				Length:    uint16(len(chunk)), //nolint:gosec
				Flags:     IfThenElse[byte](i == n-1, BBC_FLAG_LAST, 0),
				Next:      0,
				HeaderCRC: 0,
			}
		} else {
			var flags byte

			if i < n-1 {
				flags |= ATOM_FLAG_NOT_LAST
			}

			if len(chunk) > 0 {
				flags |= ATOM_FLAG_DATA
			}

			if i > 0 {
				flags |= ATOM_FLAG_NOT_FIRST
			}

			block.Header.Atom = &AtomHeader{
				Flags:     flags,
				BlockNo:   uint16(i), //nolint:gosec
				LenMinus1: byte(max(len(chunk)-1, 0)),
				Exec:      uint16(exec),                  //nolint:gosec
				Load:      uint16(load + uint32(i*size)), //nolint:gosec
			}
		}

		file.Blocks = append(file.Blocks, block)
	}

	return file
}

/*------------------------------------------------------------------
 *
 * Name:	WriteFile
 *
 * Purpose:	Lay a whole file out on tape.
 *
 * Description:	Atom:	lead tone, header, micro tone, data, gap.
 *
 *		BBC:	lead tone, header, data, gap.  The first block's
 *			lead has a short prelude and a dummy byte in it.
 *			The last block is followed by a trailer tone.
 *
 *		Which of these extras appear is up to the profile.
 *
 *		Timing captured when the block was decoded is used
 *		where there is some, otherwise the nominal values.
 *
 *----------------------------------------------------------------*/

func WriteFile(w *ToneWriter, profile MachineProfile, file *TapeFile) {
	var t = profile.Timing

	for i, block := range file.Blocks {
		var header, payload = EncodeBlock(profile, block)

		var first = i == 0
		var last = i == len(file.Blocks)-1

		if profile.DummyByte && first {
			w.Cycles(pick(block.Timing.PreludeCycles, t.PreludeCycles))
			w.Byte(DUMMY_BYTE)
		}

		w.Cycles(pick(block.Timing.LeadCycles, secondsToCycles(IfThenElse(first, t.FirstLead, t.Lead), w.carrier)))

		w.Bytes(header)

		if profile.MicroTone {
			w.Cycles(pick(block.Timing.MicroCycles, secondsToCycles(t.Micro, w.carrier)))
		}

		w.Bytes(payload)

		if profile.TrailerTone && last {
			w.Cycles(pick(block.Timing.TrailerCycles, secondsToCycles(t.Trailer, w.carrier)))
		}

		w.Silence(IfThenElse(block.Timing.Gap > 0, block.Timing.Gap, t.Gap))
	}
}

func pick(captured, nominal int) int {
	return IfThenElse(captured > 0, captured, nominal)
}
