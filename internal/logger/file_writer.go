package logger

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

const (
	defaultFileBufferSize = 32 * 1024
	defaultFlushInterval  = time.Second
)

// BufferedFileWriter batches log writes and flushes them periodically so
// request-path logging does not pay for a syscall per record.
type BufferedFileWriter struct {
	file   *os.File
	buf    *bufio.Writer
	mu     sync.Mutex
	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// NewBufferedFileWriter opens path for appending and starts the flush loop.
func NewBufferedFileWriter(path string) (*BufferedFileWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	w := &BufferedFileWriter{
		file: f,
		buf:  bufio.NewWriterSize(f, defaultFileBufferSize),
		done: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.flushLoop(defaultFlushInterval)
	return w, nil
}

func (w *BufferedFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, os.ErrClosed
	}
	return w.buf.Write(p)
}

// Flush writes buffered data to the file.
func (w *BufferedFileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	return w.buf.Flush()
}

// Close stops the flush loop, flushes, syncs and closes the file.
func (w *BufferedFileWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	w.mu.Unlock()

	w.wg.Wait()

	return errors.Join(w.buf.Flush(), w.file.Sync(), w.file.Close())
}

func (w *BufferedFileWriter) flushLoop(interval time.Duration) {
	defer w.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = w.Flush()
		case <-w.done:
			return
		}
	}
}
