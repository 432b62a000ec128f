package acorntape

/*------------------------------------------------------------------
 *
 * Purpose:	Collect blocks into files.
 *
 * Description:	A file is a run of blocks with the same name.  It ends
 *		at a block flagged as the last one, at a block with a
 *		different name, at a second first block, or at the end
 *		of the tape.  In the middle two cases that block is put
 *		back so it starts the next file.
 *
 *		Problems with individual blocks are recorded, not acted
 *		on.  The Complete and Corrupted flags summarise them and
 *		are what anyone using the data must check.
 *
 *---------------------------------------------------------------*/

import (
	"errors"

	"github.com/charmbracelet/log"
)

type TapeFile struct {
	Name    string  `yaml:"name"`
	Machine Machine `yaml:"machine"`

	Blocks []*FileBlock `yaml:"blocks"`

	Complete  bool `yaml:"complete"`
	Corrupted bool `yaml:"corrupted"`

	FirstBlock int `yaml:"first_block"`
	LastBlock  int `yaml:"last_block"`

	BaudRate    int    `yaml:"baud"`
	LoadAddress uint32 `yaml:"load"`
	ExecAddress uint32 `yaml:"exec"`
}

// Data is the payload of every block, in order.
func (f *TapeFile) Data() []byte {
	var n = 0
	for _, b := range f.Blocks {
		n += len(b.Data)
	}

	var out = make([]byte, 0, n)
	for _, b := range f.Blocks {
		out = append(out, b.Data...)
	}

	return out
}

type FileAssembler struct {
	decoder *BlockDecoder
	logger  *log.Logger
}

func NewFileAssembler(decoder *BlockDecoder, logger *log.Logger) *FileAssembler {
	return &FileAssembler{
		decoder: decoder,
		logger:  orDiscard(logger),
	}
}

/*------------------------------------------------------------------
 *
 * Name:	ReadFile
 *
 * Purpose:	Read blocks until the current file ends.
 *
 * Returns:	The file, or ErrEndOfTape if no block at all was found.
 *
 * Description:	Block numbers should go up by one.  On the Atom each
 *		block also loads where the previous one ended.  A gap in
 *		the numbering means a block went missing and the file
 *		can't be complete.  A load address that doesn't follow
 *		on is only reported.  Either way we carry on from what
 *		the tape actually says.
 *
 *		A block whose header was cut short gets the number and
 *		address it should have had.
 *
 *----------------------------------------------------------------*/

func (a *FileAssembler) ReadFile() (*TapeFile, error) {
	var reader = a.decoder.Reader()
	var profile = a.decoder.Profile()

	var file *TapeFile

	var expectedBlock = 0
	var expectedLoad uint32 = 0

	var firstFound, lastFound = false, false
	var missing, incomplete = false, false

	for {
		reader.Checkpoint()

		var block, err = a.decoder.ReadBlock()

		if errors.Is(err, ErrEndOfTape) {
			reader.RegretCheckpoint()

			break
		}

		if err != nil {
			reader.RegretCheckpoint()

			a.logger.Warn("skipping block", "t", tapeTime(reader.Position()), "err", err)

			continue
		}

		if file != nil && (block.Name != file.Name || (block.CompleteHeader && block.Header.First())) {
			reader.Rollback()

			break
		}

		reader.RegretCheckpoint()

		if !block.CompleteHeader {
			block.Header.predict(expectedBlock, expectedLoad)

			a.logger.Warn("predicted header", "t", tapeTime(block.Timing.Start), "name", block.Name,
				"block", expectedBlock, "load", hexLong(expectedLoad))
		}

		if file == nil {
			file = &TapeFile{
				Name:        block.Name,
				Machine:     profile.Machine,
				Blocks:      nil,
				Complete:    false,
				Corrupted:   false,
				FirstBlock:  block.Header.BlockNo(),
				LastBlock:   block.Header.BlockNo(),
				BaudRate:    reader.BaudRate(),
				LoadAddress: block.Header.Load(),
				ExecAddress: block.Header.Exec(),
			}

			firstFound = block.CompleteHeader && block.Header.First()
			if !firstFound {
				a.logger.Warn("file does not start with its first block", "t", tapeTime(block.Timing.Start),
					"name", block.Name, "block", block.Header.BlockNo())
			}
		} else {
			if block.Header.BlockNo() != expectedBlock {
				missing = true

				a.logger.Warn("block out of sequence", "t", tapeTime(block.Timing.Start), "name", block.Name,
					"expected", expectedBlock, "got", block.Header.BlockNo())
			}

			if profile.LoadAdvances && block.Header.Load() != expectedLoad {
				a.logger.Warn("load address does not follow on", "t", tapeTime(block.Timing.Start), "name", block.Name,
					"expected", hexLong(expectedLoad), "got", hexLong(block.Header.Load()))
			}
		}

		if !block.CompleteHeader || !block.CompleteData {
			incomplete = true
		}

		if block.Corrupted() {
			file.Corrupted = true
		}

		file.Blocks = append(file.Blocks, block)
		file.LastBlock = block.Header.BlockNo()

		expectedBlock = block.Header.BlockNo() + 1
		expectedLoad = block.Header.Load()

		if profile.LoadAdvances {
			expectedLoad += uint32(len(block.Data)) //nolint:gosec
		}

		if block.CompleteHeader && block.Header.Last() {
			lastFound = true

			break
		}
	}

	if file == nil {
		return nil, ErrEndOfTape
	}

	file.Complete = firstFound && lastFound && !missing && !incomplete

	a.logger.Info("file", "name", file.Name, "blocks", len(file.Blocks), "complete", file.Complete, "corrupted", file.Corrupted)

	return file, nil
}

// ReadAll returns every file up to the end of the tape.
func (a *FileAssembler) ReadAll() ([]*TapeFile, error) {
	var files []*TapeFile

	for {
		var f, err = a.ReadFile()
		if errors.Is(err, ErrEndOfTape) {
			return files, nil
		}

		if err != nil {
			return files, err
		}

		files = append(files, f)
	}
}
