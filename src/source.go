package acorntape

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

var ErrUnknownFormat = errors.New("unknown tape format")

/*------------------------------------------------------------------
 *
 * Name:	OpenTape
 *
 * Purpose:	Load a recording or tape image and put the right
 *		reader in front of it.
 *
 * Inputs:	path	- .wav, .csw or .uef (gzipped or not).
 *
 *		cfg	- Baud rate, carrier and tolerances.
 *
 * Returns:	Reader positioned at the start of the tape.
 *
 *----------------------------------------------------------------*/

func OpenTape(path string, cfg Config, logger *log.Logger) (TapeReader, error) {
	logger = orDiscard(logger)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		var audio, err = ReadWAV(path)
		if err != nil {
			return nil, err
		}

		logger.Info("wav", "file", path, "rate", audio.SampleRate, "seconds", fmt.Sprintf("%.1f", audio.Seconds()))

		var cycles, cycErr = NewPCMCycleDecoder(audio.Samples, audio.SampleRate, cfg.CarrierFreq, cfg.FreqTolerance, cfg.LevelTolerance)
		if cycErr != nil {
			return nil, fmt.Errorf("%s: %w", path, cycErr)
		}

		return NewCycleTapeReader(cycles, cfg.Baud, logger), nil

	case ".csw":
		var audio, err = ReadCSW(path)
		if err != nil {
			return nil, err
		}

		logger.Info("csw", "file", path, "rate", audio.SampleRate, "pulses", len(audio.Pulses))

		var cycles, cycErr = NewPulseCycleDecoder(audio.Pulses, audio.Initial, audio.SampleRate, cfg.CarrierFreq, cfg.FreqTolerance)
		if cycErr != nil {
			return nil, fmt.Errorf("%s: %w", path, cycErr)
		}

		return NewCycleTapeReader(cycles, cfg.Baud, logger), nil

	case ".uef":
		var tape, err = ReadUEF(path)
		if err != nil {
			return nil, err
		}

		var baud = IfThenElse(tape.Baud == 300 || tape.Baud == 1200, tape.Baud, cfg.Baud)

		logger.Info("uef", "file", path, "version", fmt.Sprintf("%d.%d", tape.Major, tape.Minor), "chunks", len(tape.Chunks), "baud", baud)

		return NewByteStreamReader(tape.Chunks, baud, 2*tape.BaseFreq, logger), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}
