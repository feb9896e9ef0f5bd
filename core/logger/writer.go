package logger

import (
	"errors"
	"io"
	"sync"
	"syscall"
)

var errWriterClosed = errors.New("logger: writer closed")

// lineWriter fans formatted records out to its sinks from one goroutine,
// so handlers never block on file I/O unless the queue is full.
type lineWriter struct {
	mu     sync.RWMutex
	closed bool
	queue  chan writeOp
	done   chan struct{}
	sinks  []io.Writer
	errs   []error // owned by loop until done is closed
}

// writeOp is a line to write, or a flush request when ack is set.
type writeOp struct {
	line []byte
	ack  chan error
}

func newLineWriter(sinks []io.Writer, queueSize int) *lineWriter {
	if queueSize <= 0 {
		queueSize = 256
	}
	w := &lineWriter{
		queue: make(chan writeOp, queueSize),
		done:  make(chan struct{}),
	}
	for _, s := range sinks {
		if s != nil {
			w.sinks = append(w.sinks, s)
		}
	}
	go w.loop()
	return w
}

func (w *lineWriter) loop() {
	defer close(w.done)
	for op := range w.queue {
		if op.ack != nil {
			op.ack <- w.sync()
			continue
		}
		for _, s := range w.sinks {
			if _, err := s.Write(op.line); err != nil {
				w.errs = append(w.errs, err)
			}
		}
	}
}

// sync reports write errors collected since the last flush and syncs file sinks.
func (w *lineWriter) sync() error {
	errs := w.errs
	w.errs = nil
	for _, s := range w.sinks {
		f, ok := s.(interface{ Sync() error })
		if !ok {
			continue
		}
		// Pipes and terminals reject fsync.
		if err := f.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTSUP) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *lineWriter) send(op writeOp) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	w.queue <- op
	return true
}

// Write queues a copy of p.
func (w *lineWriter) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	line := make([]byte, len(p))
	copy(line, p)
	if !w.send(writeOp{line: line}) {
		return errWriterClosed
	}
	return nil
}

// Flush waits until every line queued before it has reached the sinks.
func (w *lineWriter) Flush() error {
	ack := make(chan error, 1)
	if !w.send(writeOp{ack: ack}) {
		return errWriterClosed
	}
	return <-ack
}

// Close drains the queue and stops the writer. Later writes fail with errWriterClosed.
func (w *lineWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
	return errors.Join(w.errs...)
}
