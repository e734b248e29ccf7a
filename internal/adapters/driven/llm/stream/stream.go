// Package stream reads the line-oriented streaming formats used by the
// LLM providers: server-sent events and newline-delimited JSON.
package stream

import (
	"bufio"
	"io"
	"iter"
	"strings"
)

// maxLineSize bounds a single event line. Provider events are small; the
// limit only guards against a misbehaving server.
const maxLineSize = 1 << 20

// Event is one server-sent event.
type Event struct {
	// Name is the "event:" field, empty when the server sent none.
	Name string

	// Data is the "data:" payload. Multiple data lines are joined by "\n".
	Data string
}

// Events yields the server-sent events read from r. The sequence ends at
// EOF. A read error is yielded once.
func Events(r io.Reader) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		var (
			ev   Event
			data []string
		)
		flush := func() bool {
			if len(data) == 0 {
				ev = Event{}
				return true
			}
			ev.Data = strings.Join(data, "\n")
			out := ev
			ev, data = Event{}, data[:0]
			return yield(out, nil)
		}

		for line, err := range Lines(r) {
			if err != nil {
				yield(Event{}, err)
				return
			}
			switch {
			case line == "":
				if !flush() {
					return
				}
			case strings.HasPrefix(line, ":"):
				// comment / keep-alive
			case strings.HasPrefix(line, "event:"):
				ev.Name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			}
		}
		flush()
	}
}

// Lines yields the lines of r without their terminators. Empty lines are
// kept; callers of NDJSON skip them.
func Lines(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for sc.Scan() {
			if !yield(strings.TrimSuffix(sc.Text(), "\r"), nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield("", err)
		}
	}
}

// Collect concatenates a fragment sequence. It stops at the first error.
func Collect(seq iter.Seq2[string, error]) (string, error) {
	var sb strings.Builder
	for fragment, err := range seq {
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(fragment)
	}
	return sb.String(), nil
}
