package acorntape

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// Block data at debug level, 16 bytes per line.
func hex_dump(logger *log.Logger, p []byte) {
	if logger.GetLevel() > log.DebugLevel {
		return
	}

	var offset = 0
	var length = len(p)

	for length > 0 {
		var n = min(length, 16)

		var line strings.Builder

		fmt.Fprintf(&line, "  %03x: ", offset)

		for i := 0; i < n; i++ {
			fmt.Fprintf(&line, " %02x", p[i])
		}

		for i := n; i < 16; i++ {
			line.WriteString("   ")
		}

		line.WriteString("  ")

		for i := 0; i < n; i++ {
			if p[i] >= 0x20 && p[i] <= 0x7E {
				line.WriteByte(p[i])
			} else {
				line.WriteByte('.')
			}
		}

		logger.Debug(line.String())

		p = p[n:]
		offset += n
		length -= n
	}
}
