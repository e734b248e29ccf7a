package stream

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvents(t *testing.T) {
	input := ": keep-alive\n" +
		"event: message_start\n" +
		"data: {\"a\":1}\n\n" +
		"data: first\n" +
		"data: second\r\n\r\n" +
		"\n" +
		"data: [DONE]"

	var got []Event
	for ev, err := range Events(strings.NewReader(input)) {
		require.NoError(t, err)
		got = append(got, ev)
	}

	require.Len(t, got, 3)
	assert.Equal(t, Event{Name: "message_start", Data: `{"a":1}`}, got[0])
	assert.Equal(t, Event{Data: "first\nsecond"}, got[1])
	assert.Equal(t, Event{Data: "[DONE]"}, got[2])
}

func TestEvents_StopsWhenConsumerBreaks(t *testing.T) {
	input := "data: 1\n\ndata: 2\n\ndata: 3\n\n"

	n := 0
	for range Events(strings.NewReader(input)) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestLines_YieldsReadError(t *testing.T) {
	var errs []error
	for _, err := range Lines(failingReader{}) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0], "boom")
}

func TestCollect(t *testing.T) {
	ok := func(yield func(string, error) bool) {
		for _, s := range []string{"Art", "icle ", "17"} {
			if !yield(s, nil) {
				return
			}
		}
	}
	text, err := Collect(ok)
	require.NoError(t, err)
	assert.Equal(t, "Article 17", text)

	failing := func(yield func(string, error) bool) {
		if !yield("partial", nil) {
			return
		}
		yield("", errors.New("dropped"))
	}
	text, err = Collect(failing)
	assert.EqualError(t, err, "dropped")
	assert.Equal(t, "partial", text)
}
