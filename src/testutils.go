package acorntape

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// CaptureOutput runs command and returns what it printed to stdout.
func CaptureOutput(t *testing.T, command func()) string {
	t.Helper()

	var oldStdout = os.Stdout
	defer func() {
		os.Stdout = oldStdout
	}()

	var r, w, _ = os.Pipe()
	os.Stdout = w

	var outputBytes []byte
	var readErr error
	var done = make(chan struct{})

	// Drain while the command runs so a long report can't fill the pipe.
	go func() {
		outputBytes, readErr = io.ReadAll(r)
		close(done)
	}()

	command()

	w.Close() //nolint:gosec

	<-done

	os.Stdout = oldStdout

	require.NoError(t, readErr)

	return string(outputBytes)
}

func AssertOutputContains(t *testing.T, command func(), expectedOutputContains string) {
	t.Helper()

	assert.Contains(t, CaptureOutput(t, command), expectedOutputContains)
}
