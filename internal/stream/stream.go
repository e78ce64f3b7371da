// Package stream delivers ordered process lifecycle events from a
// child process to a single subscriber.
//
// Events are delivered in emission order. Exit is always the final
// event of a normal run; Error short-circuits the stream. After
// either, nothing else is ever delivered.
//
// Line reconstruction follows terminal semantics: stdout and stderr
// lines are emitted once newline-terminated, except that a stderr
// chunk terminated by a bare carriage return is a progress update
// that overwrites the previously emitted stderr line instead of
// appending a new one.
package stream

import (
	"bufio"
	"io"
	"sync"
)

// EventType tags a process lifecycle event.
type EventType string

const (
	EventStdout EventType = "stdout"
	EventStderr EventType = "stderr"
	EventError  EventType = "error"
	EventExit   EventType = "exit"
)

// Event is one process lifecycle event.
type Event struct {
	Type EventType `json:"type"`

	// Line carries the reconstructed line for Stdout/Stderr events.
	Line string `json:"line,omitempty"`

	// Overwrite marks a stderr progress update: the subscriber should
	// replace its previously displayed stderr line rather than append.
	Overwrite bool `json:"overwrite,omitempty"`

	// Message carries the failure reason for Error events.
	Message string `json:"message,omitempty"`

	// Code carries the process exit code for Exit events.
	Code int `json:"code,omitempty"`
}

// Stream is a single-producer-side, single-consumer ordered event
// channel. The consumer must drain Events until it closes.
type Stream struct {
	ch chan Event

	mu         sync.Mutex
	closed     bool
	transcript []string
	lastStderr int
}

// New creates an open stream.
func New() *Stream {
	return &Stream{
		ch:         make(chan Event, 1024),
		lastStderr: -1,
	}
}

// Events returns the subscriber's channel. It is closed after the
// terminal Exit or Error event.
func (s *Stream) Events() <-chan Event {
	return s.ch
}

// ConsumeStdout reads r to EOF, emitting a Stdout event per
// newline-terminated line. It blocks until EOF; run it in its own
// goroutine.
func (s *Stream) ConsumeStdout(r io.Reader) {
	br := bufio.NewReader(r)
	var buf []byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			if len(buf) > 0 {
				s.emitLine(EventStdout, string(buf), false)
			}
			return
		}
		if b == '\n' {
			s.emitLine(EventStdout, trimCR(string(buf)), false)
			buf = buf[:0]
			continue
		}
		buf = append(buf, b)
	}
}

// ConsumeStderr reads r to EOF with progress-bar semantics: a line
// terminated by a bare carriage return overwrites the previous stderr
// line. CRLF counts as a plain newline.
func (s *Stream) ConsumeStderr(r io.Reader) {
	br := bufio.NewReader(r)
	var buf []byte
	pendingCR := false
	for {
		b, err := br.ReadByte()
		if err != nil {
			if pendingCR {
				s.emitLine(EventStderr, string(buf)+"\r", true)
			} else if len(buf) > 0 {
				s.emitLine(EventStderr, string(buf), false)
			}
			return
		}
		if pendingCR {
			pendingCR = false
			if b == '\n' {
				s.emitLine(EventStderr, string(buf), false)
				buf = buf[:0]
				continue
			}
			// Bare CR: the buffered text is a progress update.
			s.emitLine(EventStderr, string(buf)+"\r", true)
			buf = buf[:0]
		}
		switch b {
		case '\n':
			s.emitLine(EventStderr, string(buf), false)
			buf = buf[:0]
		case '\r':
			pendingCR = true
		default:
			buf = append(buf, b)
		}
	}
}

// Fail emits a terminal Error event and closes the stream. Any output
// still in flight is dropped.
func (s *Stream) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.transcript = append(s.transcript, err.Error())
	s.ch <- Event{Type: EventError, Message: err.Error()}
	close(s.ch)
}

// Finish emits the terminal Exit event and closes the stream. Callers
// must have drained both consume goroutines first so that Exit is
// last.
func (s *Stream) Finish(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.ch <- Event{Type: EventExit, Code: code}
	close(s.ch)
}

// Transcript returns the accumulated output with overwrites applied,
// for display after a failed run.
func (s *Stream) Transcript() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *Stream) emitLine(typ EventType, line string, overwrite bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if typ == EventStderr {
		if overwrite && s.lastStderr >= 0 {
			s.transcript[s.lastStderr] = line
		} else {
			s.transcript = append(s.transcript, line)
			s.lastStderr = len(s.transcript) - 1
		}
	} else {
		s.transcript = append(s.transcript, line)
	}
	s.ch <- Event{Type: typ, Line: line, Overwrite: overwrite}
}

func trimCR(line string) string {
	if n := len(line); n > 0 && line[n-1] == '\r' {
		return line[:n-1]
	}
	return line
}
