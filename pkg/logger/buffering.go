package logger

import (
	"bytes"
	"io"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
)

var logBufferedLogs func(io.Writer) error

// LogBufferedLogs replays the messages written before logging was configured into writer, or into the default console
// writer when writer is nil. It does nothing once the buffer has been replayed.
func LogBufferedLogs(writer io.Writer) {
	if logBufferedLogs == nil {
		return
	}
	if writer == nil {
		writer = defaultLogging()
	}

	if err := logBufferedLogs(writer); err != nil {
		log.Err(err).Msg("Failed to log messages")
	}
	logBufferedLogs = nil
}

// bufferLogs is an io.Writer to be used with zerolog which holds log messages until LogBufferedLogs is called with
// the writer selected by ConfigureLogging.
func bufferLogs() io.Writer {
	buffer := &bufferingLogWriter{}
	logBufferedLogs = buffer.writeLogs
	return buffer
}

type bufferingLogWriter struct {
	buffer [][]byte
	mu     sync.Mutex
}

func (b *bufferingLogWriter) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// make sure p isn't reused while it's being kept on the buffer
	p = bytes.Clone(p)

	b.buffer = append(b.buffer, p)

	return len(p), nil
}

func (b *bufferingLogWriter) writeLogs(w io.Writer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs error
	for _, line := range b.buffer {
		if _, err := w.Write(line); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}

var _ io.Writer = &bufferingLogWriter{}
