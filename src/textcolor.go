package acorntape

// Logging set up, and small formatting helpers for log key values.

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

/*------------------------------------------------------------------
 *
 * Name:	NewLogger
 *
 * Purpose:	Logger for the decoding pipeline.
 *
 * Inputs:	w	- Where messages go, normally stderr.
 *
 *		verbose	- 0 for blocks and files, anything more adds
 *			  tones and bytes.  Block hex dumps are turned
 *			  on separately, see BlockDecoder.SetHexDump.
 *
 * Description:	No wall clock timestamps.  Where things happened on the
 *		tape is what matters, and every message carries that as
 *		its own "t" value.
 *
 *----------------------------------------------------------------*/

func NewLogger(w io.Writer, verbose int) *log.Logger {
	return log.NewWithOptions(w, log.Options{ //nolint:exhaustruct
		ReportTimestamp: false,
		Level:           IfThenElse(verbose > 0, log.DebugLevel, log.InfoLevel),
	})
}

// Components accept nil to mean no logging.
func orDiscard(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.New(io.Discard)
	}

	return logger
}

func hexByte(b byte) string {
	return fmt.Sprintf("%02x", b)
}

func hexWord(w uint16) string {
	return fmt.Sprintf("%04x", w)
}

func hexLong(l uint32) string {
	return fmt.Sprintf("%04x", l)
}
