package agent

import (
	"bytes"
	"context"
	"sync"

	"q-pipecat/internal/observability"
)

const maxLineLength = 64 * 1024

// lineLogger turns agent output into one log entry per line.
type lineLogger struct {
	ctx    context.Context
	logger *observability.Logger

	mu  sync.Mutex
	buf bytes.Buffer
}

func newLineLogger(ctx context.Context, logger *observability.Logger, stream string) *lineLogger {
	return &lineLogger{
		ctx:    observability.WithFields(ctx, observability.Field{Key: "stream", Value: stream}),
		logger: logger,
	}
}

func (w *lineLogger) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadBytes('\n')
		if err != nil {
			// Partial line stays buffered unless it grew too long.
			if len(line) >= maxLineLength {
				w.emit(line)
			} else {
				w.buf.Write(line)
			}
			break
		}
		w.emit(line)
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (w *lineLogger) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.Bytes())
		w.buf.Reset()
	}
}

func (w *lineLogger) emit(line []byte) {
	line = bytes.TrimRight(line, "\r\n")
	if len(line) == 0 {
		return
	}
	w.logger.Info(w.ctx, string(line))
}
