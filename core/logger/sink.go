package logger

import (
	"fmt"
	"io"
	"sync"
)

// lineSink copies finished log lines to its writers from a single goroutine
// so callers never block on slow files.
type lineSink struct {
	lines   chan []byte
	flushes chan chan error
	stopped chan struct{}
	closing sync.Once
	mu      sync.RWMutex
	closed  bool
	out     []io.Writer
	err     error
}

func newLineSink(out ...io.Writer) *lineSink {
	s := &lineSink{
		lines:   make(chan []byte, 512),
		flushes: make(chan chan error),
		stopped: make(chan struct{}),
		out:     out,
	}
	go s.run()
	return s
}

func (s *lineSink) run() {
	defer close(s.stopped)
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				return
			}
			s.emit(line)
		case ack := <-s.flushes:
			// Drain what is already queued before answering.
			for n := len(s.lines); n > 0; n-- {
				s.emit(<-s.lines)
			}
			ack <- s.err
		}
	}
}

func (s *lineSink) emit(line []byte) {
	for _, w := range s.out {
		if _, err := w.Write(line); err != nil && s.err == nil {
			s.err = err
		}
	}
}

// Write queues a copy of line. Lines written after Close are dropped.
func (s *lineSink) Write(line []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	s.lines <- append([]byte(nil), line...)
}

// Flush waits until every queued line has been written.
func (s *lineSink) Flush() error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		<-s.stopped
		return s.err
	}
	ack := make(chan error, 1)
	s.flushes <- ack
	s.mu.RUnlock()
	return <-ack
}

// Close writes the remaining lines and reports the first write error.
func (s *lineSink) Close() error {
	s.closing.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.lines)
		s.mu.Unlock()
	})
	<-s.stopped
	if s.err != nil {
		return fmt.Errorf("logger: write failed: %w", s.err)
	}
	return nil
}
