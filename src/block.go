package acorntape

/*------------------------------------------------------------------
 *
 * Purpose:	What a decoded block looks like.
 *
 * Description:	The header differs completely between the two machine
 *		families, so it is a tagged variant: Machine says which
 *		one of Atom and BBC is filled in.  Accessors give the
 *		common fields without the caller caring which.
 *
 *		Atom header, after the name and its 0x0D:
 *
 *		  flags		bit 7 set: not the last block
 *				bit 6 set: block has data
 *				bit 5 set: not the first block
 *		  block number	2 bytes, high first
 *		  length - 1	1 byte
 *		  exec address	2 bytes, high first
 *		  load address	2 bytes, high first
 *
 *		BBC header, after the name and its 0x00:
 *
 *		  load address	4 bytes, low first
 *		  exec address	4 bytes, low first
 *		  block number	2 bytes, low first
 *		  length	2 bytes, low first
 *		  flags		bit 7 last block, bit 6 empty, bit 0 locked
 *		  next address	4 bytes, low first
 *		  header CRC	2 bytes, high first
 *
 *---------------------------------------------------------------*/

import (
	"strings"
)

const (
	ATOM_FLAG_NOT_LAST  = 0x80
	ATOM_FLAG_DATA      = 0x40
	ATOM_FLAG_NOT_FIRST = 0x20

	ATOM_HEADER_LEN = 8

	BBC_FLAG_LAST   = 0x80
	BBC_FLAG_EMPTY  = 0x40
	BBC_FLAG_LOCKED = 0x01

	BBC_HEADER_LEN = 17 // Without the CRC.

	BBC_MAX_BLOCK  = 256
	ATOM_MAX_BLOCK = 256
)

type AtomHeader struct {
	Flags     byte   `yaml:"flags"`
	BlockNo   uint16 `yaml:"block"`
	LenMinus1 byte   `yaml:"len_minus_1"`
	Exec      uint16 `yaml:"exec"`
	Load      uint16 `yaml:"load"`
}

type BBCHeader struct {
	Load      uint32 `yaml:"load"`
	Exec      uint32 `yaml:"exec"`
	BlockNo   uint16 `yaml:"block"`
	Length    uint16 `yaml:"length"`
	Flags     byte   `yaml:"flags"`
	Next      uint32 `yaml:"next"`
	HeaderCRC uint16 `yaml:"header_crc"`
}

type Header struct {
	Machine Machine     `yaml:"machine"`
	Atom    *AtomHeader `yaml:"atom,omitempty"`
	BBC     *BBCHeader  `yaml:"bbc,omitempty"`
}

func (h Header) BlockNo() int {
	switch {
	case h.Atom != nil:
		return int(h.Atom.BlockNo)
	case h.BBC != nil:
		return int(h.BBC.BlockNo)
	default:
		return 0
	}
}

func (h Header) Load() uint32 {
	switch {
	case h.Atom != nil:
		return uint32(h.Atom.Load)
	case h.BBC != nil:
		return h.BBC.Load
	default:
		return 0
	}
}

func (h Header) Exec() uint32 {
	switch {
	case h.Atom != nil:
		return uint32(h.Atom.Exec)
	case h.BBC != nil:
		return h.BBC.Exec
	default:
		return 0
	}
}

// Payload length the header declares.
func (h Header) DataLen() int {
	switch {
	case h.Atom != nil:
		if h.Atom.Flags&ATOM_FLAG_DATA == 0 {
			return 0
		}

		return int(h.Atom.LenMinus1) + 1
	case h.BBC != nil:
		return int(h.BBC.Length)
	default:
		return 0
	}
}

func (h Header) First() bool {
	switch {
	case h.Atom != nil:
		return h.Atom.Flags&ATOM_FLAG_NOT_FIRST == 0
	case h.BBC != nil:
		return h.BBC.BlockNo == 0
	default:
		return false
	}
}

func (h Header) Last() bool {
	switch {
	case h.Atom != nil:
		return h.Atom.Flags&ATOM_FLAG_NOT_LAST == 0
	case h.BBC != nil:
		return h.BBC.Flags&BBC_FLAG_LAST != 0
	default:
		return false
	}
}

func (h Header) Locked() bool {
	return h.BBC != nil && h.BBC.Flags&BBC_FLAG_LOCKED != 0
}

// Overwrite the block number and load address with predicted values.
func (h *Header) predict(blockNo int, load uint32) {
	switch {
	case h.Atom != nil:
		h.Atom.BlockNo = uint16(blockNo) //nolint:gosec
		h.Atom.Load = uint16(load)       //nolint:gosec
	case h.BBC != nil:
		h.BBC.BlockNo = uint16(blockNo) //nolint:gosec
		h.BBC.Load = load
	}
}

type BlockError uint8

const (
	HdrCRCErr BlockError = 1 << iota
	DataCRCErr
)

func (e BlockError) String() string {
	var parts []string

	if e&HdrCRCErr != 0 {
		parts = append(parts, "HDR_CRC_ERR")
	}

	if e&DataCRCErr != 0 {
		parts = append(parts, "DATA_CRC_ERR")
	}

	if len(parts) == 0 {
		return "OK"
	}

	return strings.Join(parts, "|")
}

// Capture time details, enough to put the block back on tape the same way.
type BlockTiming struct {
	Start         float64 `yaml:"start"` // Seconds from the start of the tape.
	LeadCycles    int     `yaml:"lead_cycles"`
	PreludeCycles int     `yaml:"prelude_cycles"`
	DummyByte     bool    `yaml:"dummy_byte"`
	MicroCycles   int     `yaml:"micro_cycles"`
	TrailerCycles int     `yaml:"trailer_cycles"`
	Gap           float64 `yaml:"gap"` // Seconds to the next tone.
	PhaseShift    int     `yaml:"phase_shift"`
}

type FileBlock struct {
	Name   string `yaml:"name"`
	Header Header `yaml:"header"`
	Data   []byte `yaml:"-"`

	// As received.  Atom one byte, BBC the data CRC.
	Checksum uint16 `yaml:"checksum"`

	CompleteHeader bool       `yaml:"complete_header"`
	CompleteData   bool       `yaml:"complete_data"`
	Errors         BlockError `yaml:"errors"`

	Timing BlockTiming `yaml:"timing"`
}

func (b *FileBlock) Corrupted() bool {
	return b.Errors != 0
}
