// Package sse reads text/event-stream response bodies.
package sse

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// maxLineSize bounds a single event line.
const maxLineSize = 1 << 20

// Event represents a single server-sent event.
type Event struct {
	// Event is the event type from "event:" lines. Empty for data-only events.
	Event string
	// Data is the payload. Multiple "data:" lines are joined with newlines.
	Data string
	// ID is the event ID from the "id:" line.
	ID string
	// Retry is the reconnection delay the server asked for, zero if none.
	Retry time.Duration
}

// Reader reads server-sent events from a stream.
type Reader interface {
	// Next returns the next event. Returns io.EOF when the stream ends.
	Next() (*Event, error)
	// LastEventID returns the most recent ID seen, including from earlier events.
	LastEventID() string
	// Close releases the underlying stream.
	Close() error
}

type reader struct {
	scanner *bufio.Scanner
	body    io.ReadCloser
	lastID  string
	started bool
}

// NewReader creates an event reader over body. Lines may end in LF or CRLF.
func NewReader(body io.ReadCloser) Reader {
	s := bufio.NewScanner(body)
	s.Buffer(make([]byte, 0, 4096), maxLineSize)
	return &reader{scanner: s, body: body}
}

func (r *reader) Next() (*Event, error) {
	var event Event
	var hasData bool

	for r.scanner.Scan() {
		line := r.scanner.Text()
		if !r.started {
			line = strings.TrimPrefix(line, "\ufeff")
			r.started = true
		}

		if line == "" {
			if hasData {
				return &event, nil
			}
			event = Event{}
			continue
		}
		if line[0] == ':' {
			continue
		}

		field, value := parseSSELine(line)
		switch field {
		case "data":
			if hasData {
				event.Data += "\n" + value
			} else {
				event.Data = value
				hasData = true
			}
		case "event":
			event.Event = value
		case "id":
			if !strings.ContainsRune(value, 0) {
				event.ID = value
				r.lastID = value
			}
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				event.Retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if hasData {
		return &event, nil
	}
	return nil, io.EOF
}

func (r *reader) LastEventID() string {
	return r.lastID
}

func (r *reader) Close() error {
	return r.body.Close()
}

// parseSSELine splits a line into field and value, dropping one space after
// the colon.
func parseSSELine(line string) (field, value string) {
	field, value, ok := strings.Cut(line, ":")
	if !ok {
		return line, ""
	}
	return field, strings.TrimPrefix(value, " ")
}
