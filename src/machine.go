package acorntape

import (
	"fmt"
	"strings"
)

type Machine int

const (
	MachineAtom Machine = iota
	MachineBBC
	MachineElectron
)

func (m Machine) String() string {
	switch m {
	case MachineAtom:
		return "atom"
	case MachineBBC:
		return "bbc"
	case MachineElectron:
		return "electron"
	default:
		return fmt.Sprintf("machine(%d)", int(m))
	}
}

func ParseMachine(s string) (Machine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "atom", "acorn atom":
		return MachineAtom, nil
	case "bbc", "bbc micro", "beeb":
		return MachineBBC, nil
	case "electron", "elk":
		return MachineElectron, nil
	default:
		return MachineAtom, fmt.Errorf("unknown machine %q, expected atom, bbc or electron", s)
	}
}

// The Electron writes tapes the same way as the BBC Micro.
func (m Machine) BBCFamily() bool {
	return m == MachineBBC || m == MachineElectron
}

func (m Machine) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Machine) UnmarshalText(b []byte) error {
	var v, err = ParseMachine(string(b))
	if err != nil {
		return err
	}

	*m = v

	return nil
}

type ChecksumKind int

const (
	ChecksumSum8 ChecksumKind = iota // Additive, mod 256.
	ChecksumCRC16                    // CRC-16/XMODEM.
)

type HeaderLayout int

const (
	LayoutAtom HeaderLayout = iota // Flags, block, length-1, exec, load.  Big endian.
	LayoutBBC                      // Load, exec, block, length, flags, next.  Little endian.
)

/*------------------------------------------------------------------
 *
 * Name:	MachineProfile
 *
 * Purpose:	Everything that differs between the two block formats,
 *		so a single block decoder can handle both.
 *
 *----------------------------------------------------------------*/

type MachineProfile struct {
	Machine Machine

	Preamble      byte
	PreambleCount int

	NameTerminator byte
	MaxNameLen     int

	Layout   HeaderLayout
	MaxBlock int // Most data bytes in one block.

	Checksum  ChecksumKind // Over the data.
	HeaderCRC bool         // CRC-16 over name and header fields, after them.

	MicroTone    bool // Atom, short tone between header and data.
	TrailerTone  bool // BBC, tone after the last block of a file.
	DummyByte    bool // BBC, 0xAA inside the first lead tone.
	LoadAdvances bool // Atom, each block loads where the previous ended.

	Timing Timing
}

func ProfileFor(m Machine) MachineProfile {
	if m.BBCFamily() {
		return MachineProfile{
			Machine:        m,
			Preamble:       0x2A,
			PreambleCount:  1,
			NameTerminator: 0x00,
			MaxNameLen:     10,
			Layout:         LayoutBBC,
			MaxBlock:       BBC_MAX_BLOCK,
			Checksum:       ChecksumCRC16,
			HeaderCRC:      true,
			MicroTone:      false,
			TrailerTone:    true,
			DummyByte:      true,
			LoadAdvances:   false,
			Timing:         DefaultTiming(m),
		}
	}

	return MachineProfile{
		Machine:        MachineAtom,
		Preamble:       0x2A,
		PreambleCount:  4,
		NameTerminator: 0x0D,
		MaxNameLen:     13,
		Layout:         LayoutAtom,
		MaxBlock:       ATOM_MAX_BLOCK,
		Checksum:       ChecksumSum8,
		HeaderCRC:      false,
		MicroTone:      true,
		TrailerTone:    false,
		DummyByte:      false,
		LoadAdvances:   true,
		Timing:         DefaultTiming(MachineAtom),
	}
}

func (p MachineProfile) fieldsLen() int {
	return IfThenElse(p.Layout == LayoutBBC, BBC_HEADER_LEN, ATOM_HEADER_LEN)
}

// Bytes after the name terminator, including any header CRC.
func (p MachineProfile) HeaderLen() int {
	return IfThenElse(p.HeaderCRC, p.fieldsLen()+2, p.fieldsLen())
}

func (p MachineProfile) blockSize() int {
	return IfThenElse(p.MaxBlock > 0, p.MaxBlock, ATOM_MAX_BLOCK)
}

/*------------------------------------------------------------------
 *
 * Name:	Timing
 *
 * Purpose:	Nominal tone and gap lengths, in seconds unless the
 *		name says cycles.
 *
 * Description:	The first group is what the machine writes and what
 *		gen_tape reproduces.  The Min group is what the decoder
 *		insists on before it accepts a tone.  Those are well
 *		under nominal because tapes get stretched, and a
 *		trailing byte's stop bit eats into the next tone.
 *
 *----------------------------------------------------------------*/

type Timing struct {
	FirstLead     float64 `yaml:"first_lead"`
	Lead          float64 `yaml:"lead"`
	Micro         float64 `yaml:"micro"`
	PreludeCycles int     `yaml:"prelude_cycles"`
	Trailer       float64 `yaml:"trailer"`
	Gap           float64 `yaml:"gap"`

	MinLead    float64 `yaml:"min_lead"`
	MinMicro   float64 `yaml:"min_micro"`
	MinTrailer float64 `yaml:"min_trailer"`
}

func DefaultTiming(m Machine) Timing {
	if m.BBCFamily() {
		return Timing{
			FirstLead:     5.1,
			Lead:          0.9,
			Micro:         0,
			PreludeCycles: 4,
			Trailer:       5.3,
			Gap:           1.0,
			MinLead:       0.5,
			MinMicro:      0,
			MinTrailer:    0.5,
		}
	}

	return Timing{
		FirstLead:     4.0,
		Lead:          2.0,
		Micro:         0.5,
		PreludeCycles: 0,
		Trailer:       0,
		Gap:           2.0,
		MinLead:       1.0,
		MinMicro:      0.25,
		MinTrailer:    0,
	}
}

// Convert a duration to a number of carrier cycles.
func secondsToCycles(seconds, carrierFreq float64) int {
	return int(seconds*carrierFreq + 0.5)
}
