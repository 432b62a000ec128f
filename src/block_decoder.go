package acorntape

/*------------------------------------------------------------------
 *
 * Purpose:	Read one block: lead tone, preamble, name, header,
 *		data and checksums.
 *
 * Description:	A single decoder handles both machine families.  The
 *		differences are all in the MachineProfile: header
 *		layout, which checksums there are and which tones
 *		surround the block.
 *
 *		Only two things abandon a block: no lead tone at all
 *		(end of tape) and a preamble or name that can't be read
 *		(structure).  Everything after that produces a block,
 *		possibly flagged as incomplete or with checksum errors.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
)

var ErrEndOfTape = errors.New("end of tape")

var ErrBlockStructure = errors.New("block structure")

// Furthest the micro or trailer tone can be from where we expect it, seconds.
const TONE_SEARCH_LIMIT = 1.0

type BlockDecoder struct {
	reader  TapeReader
	profile MachineProfile
	carrier float64
	logger  *log.Logger
	hexDump bool
}

func NewBlockDecoder(reader TapeReader, profile MachineProfile, carrierFreq float64, logger *log.Logger) *BlockDecoder {
	if carrierFreq <= 0 {
		carrierFreq = DEFAULT_CARRIER_FREQ
	}

	return &BlockDecoder{
		reader:  reader,
		profile: profile,
		carrier: carrierFreq,
		logger:  orDiscard(logger),
		hexDump: false,
	}
}

// SetHexDump logs the data of every block at debug level.
func (d *BlockDecoder) SetHexDump(on bool) {
	d.hexDump = on
}

func (d *BlockDecoder) Reader() TapeReader {
	return d.reader
}

func (d *BlockDecoder) Profile() MachineProfile {
	return d.profile
}

func (d *BlockDecoder) cycles(seconds float64) int {
	return max(secondsToCycles(seconds, d.carrier), 1)
}

func (d *BlockDecoder) structural(what string, args ...any) error {
	return fmt.Errorf("%w: %s at %s", ErrBlockStructure, fmt.Sprintf(what, args...), tapeTime(d.reader.Position()))
}

/*------------------------------------------------------------------
 *
 * Name:	ReadBlock
 *
 * Purpose:	Decode the next block on the tape.
 *
 * Returns:	Block, possibly flagged incomplete or corrupted.
 *
 *		ErrEndOfTape if there is no further lead tone.
 *
 *		ErrBlockStructure, wrapped, if the preamble or name
 *		could not be read.  The lead tone has been consumed so
 *		calling again moves on to the next block.
 *
 *----------------------------------------------------------------*/

func (d *BlockDecoder) ReadBlock() (*FileBlock, error) {
	var p = d.profile

	var lead, ok = d.reader.WaitForTone(d.cycles(p.Timing.MinLead), ToneOptions{
		Dummy:      p.DummyByte,
		HeaderMode: true,
		Preamble:   p.Preamble,
		Calibrate:  true,
	})
	if !ok {
		return nil, ErrEndOfTape
	}

	var block = &FileBlock{ //nolint:exhaustruct
		Header: Header{Machine: p.Machine}, //nolint:exhaustruct
		Timing: BlockTiming{ //nolint:exhaustruct
			Start:         lead.Start,
			LeadCycles:    lead.Cycles,
			PreludeCycles: lead.Prelude,
			DummyByte:     lead.DummyByte,
			PhaseShift:    lead.PhaseShift,
		},
	}

	// Everything the additive checksum covers.
	var raw []byte

	var preambles = p.PreambleCount
	if lead.PreambleRead {
		preambles--

		raw = append(raw, p.Preamble)
	}

	for range preambles {
		var b, ok = d.reader.GetByte()
		if !ok {
			return nil, d.structural("missing preamble")
		}

		if b != p.Preamble {
			return nil, d.structural("preamble byte %02x", b)
		}

		raw = append(raw, b)
	}

	var nameStart = len(raw)

	var name []byte

	for {
		var b, ok = d.reader.GetByte()
		if !ok {
			return nil, d.structural("name cut short after %q", name)
		}

		raw = append(raw, b)

		if b == p.NameTerminator {
			break
		}

		if len(name) >= p.MaxNameLen {
			return nil, d.structural("name longer than %d", p.MaxNameLen)
		}

		name = append(name, b)
	}

	block.Name = string(name)

	var headerLen = p.HeaderLen()

	var hdr = make([]byte, 0, headerLen)

	for len(hdr) < headerLen {
		var b, ok = d.reader.GetByte()
		if !ok {
			break
		}

		hdr = append(hdr, b)
	}

	block.CompleteHeader = len(hdr) == headerLen

	var padded = make([]byte, headerLen)
	copy(padded, hdr)

	switch p.Layout {
	case LayoutBBC:
		block.Header.BBC = parseBBCHeader(padded)
	default:
		block.Header.Atom = parseAtomHeader(padded)
	}

	if !block.CompleteHeader {
		block.CompleteData = false

		d.logger.Warn("incomplete header", "t", tapeTime(d.reader.Position()), "name", block.Name, "bytes", len(hdr))

		d.measureGap(block)

		return block, nil
	}

	if p.HeaderCRC {
		var fields = p.fieldsLen()
		var stored = binary.BigEndian.Uint16(hdr[fields:])

		if block.Header.BBC != nil {
			block.Header.BBC.HeaderCRC = stored
		}

		var crc = CRC16XModem(raw[nameStart:])
		crc = crc16_update(crc, hdr[:fields])

		if crc != stored {
			block.Errors |= HdrCRCErr

			d.logger.Warn("header CRC error", "t", tapeTime(d.reader.Position()), "name", block.Name,
				"expected", hexWord(stored), "computed", hexWord(crc))
		}
	}

	raw = append(raw, hdr...)

	if p.MicroTone {
		d.readMicroTone(block)
	}

	d.readData(block, raw)

	if p.TrailerTone && block.Header.Last() {
		d.readTrailer(block)
	}

	d.measureGap(block)

	d.logger.Info("block", "t", tapeTime(block.Timing.Start), "name", block.Name,
		"block", block.Header.BlockNo(), "load", hexLong(block.Header.Load()),
		"len", len(block.Data), "status", block.Errors)

	if d.hexDump {
		hex_dump(d.logger, block.Data)
	}

	return block, nil
}

/*------------------------------------------------------------------
 *
 * Name:	readData
 *
 * Purpose:	Payload and its checksum.
 *
 * Description:	A short read is padded with zeros to the declared
 *		length.  There is no point looking for a checksum after
 *		that.  A checksum mismatch keeps the data as received.
 *
 *----------------------------------------------------------------*/

func (d *BlockDecoder) readData(block *FileBlock, raw []byte) {
	var length = min(block.Header.DataLen(), d.profile.blockSize())

	block.Data = make([]byte, length)

	var n = 0

	for n < length {
		var b, ok = d.reader.GetByte()
		if !ok {
			break
		}

		block.Data[n] = b
		n++
	}

	if n < length {
		block.CompleteData = false

		d.logger.Warn("data cut short", "t", tapeTime(d.reader.Position()), "name", block.Name,
			"block", block.Header.BlockNo(), "got", n, "expected", length)

		return
	}

	if d.profile.Checksum == ChecksumCRC16 {
		if length == 0 {
			block.CompleteData = true

			return
		}

		var hi, ok1 = d.reader.GetByte()
		var lo, ok2 = d.reader.GetByte()

		if !ok1 || !ok2 {
			block.CompleteData = false

			d.logger.Warn("missing data CRC", "t", tapeTime(d.reader.Position()), "name", block.Name)

			return
		}

		block.CompleteData = true
		block.Checksum = uint16(hi)<<8 | uint16(lo)

		var crc = CRC16XModem(block.Data)
		if crc != block.Checksum {
			block.Errors |= DataCRCErr

			d.logger.Warn("data CRC error", "t", tapeTime(d.reader.Position()), "name", block.Name,
				"block", block.Header.BlockNo(), "expected", hexWord(block.Checksum), "computed", hexWord(crc))
		}

		return
	}

	var sum, ok = d.reader.GetByte()
	if !ok {
		block.CompleteData = false

		d.logger.Warn("missing checksum", "t", tapeTime(d.reader.Position()), "name", block.Name)

		return
	}

	block.CompleteData = true
	block.Checksum = uint16(sum)

	var computed = AtomChecksum(raw, block.Data)
	if computed != sum {
		block.Errors |= DataCRCErr

		d.logger.Warn("checksum error", "t", tapeTime(d.reader.Position()), "name", block.Name,
			"block", block.Header.BlockNo(), "expected", hexByte(sum), "computed", hexByte(computed))
	}
}

// The Atom has a short tone between header and data.  Missing is not fatal.
func (d *BlockDecoder) readMicroTone(block *FileBlock) {
	var from = d.reader.Position()

	d.reader.Checkpoint()

	var tone, ok = d.reader.WaitForTone(d.cycles(d.profile.Timing.MinMicro), ToneOptions{}) //nolint:exhaustruct
	if ok && tone.Start-from <= TONE_SEARCH_LIMIT {
		d.reader.RegretCheckpoint()

		block.Timing.MicroCycles = tone.Cycles

		return
	}

	d.reader.Rollback()

	d.logger.Warn("no micro tone", "t", tapeTime(from), "name", block.Name)
}

func (d *BlockDecoder) readTrailer(block *FileBlock) {
	var from = d.reader.Position()

	d.reader.Checkpoint()

	var tone, ok = d.reader.WaitForTone(d.cycles(d.profile.Timing.MinTrailer), ToneOptions{}) //nolint:exhaustruct
	if ok && tone.Start-from <= TONE_SEARCH_LIMIT {
		d.reader.RegretCheckpoint()

		block.Timing.TrailerCycles = tone.Cycles

		return
	}

	d.reader.Rollback()
}

// How long until the next lead tone.  Always rolled back.
func (d *BlockDecoder) measureGap(block *FileBlock) {
	var from = d.reader.Position()

	d.reader.Checkpoint()

	var tone, ok = d.reader.WaitForTone(d.cycles(d.profile.Timing.MinLead), ToneOptions{}) //nolint:exhaustruct
	if ok {
		block.Timing.Gap = max(tone.Start-from, 0)
	} else {
		block.Timing.Gap = d.reader.Position() - from
	}

	d.reader.Rollback()
}

func parseAtomHeader(b []byte) *AtomHeader {
	Assert(len(b) >= ATOM_HEADER_LEN)

	return &AtomHeader{
		Flags:     b[0],
		BlockNo:   binary.BigEndian.Uint16(b[1:3]),
		LenMinus1: b[3],
		Exec:      binary.BigEndian.Uint16(b[4:6]),
		Load:      binary.BigEndian.Uint16(b[6:8]),
	}
}

func parseBBCHeader(b []byte) *BBCHeader {
	Assert(len(b) >= BBC_HEADER_LEN)

	return &BBCHeader{
		Load:      binary.LittleEndian.Uint32(b[0:4]),
		Exec:      binary.LittleEndian.Uint32(b[4:8]),
		BlockNo:   binary.LittleEndian.Uint16(b[8:10]),
		Length:    binary.LittleEndian.Uint16(b[10:12]),
		Flags:     b[12],
		Next:      binary.LittleEndian.Uint32(b[13:17]),
		HeaderCRC: 0,
	}
}
