package mux

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollStdinParsesRecognizedCommands(t *testing.T) {
	s := &Sources{Stdin: make(chan Command, 4)}
	input := strings.NewReader(
		"{\"command\":\"comm_msg\",\"comm_id\":\"c1\",\"data\":{\"id\":\"r7\"}}\n" +
			"{\"command\":\"reload_log_level\",\"log_level\":\"2\"}\n")

	s.pollStdin(context.Background(), input)

	var got []Command
	for cmd := range s.Stdin {
		got = append(got, cmd)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "comm_msg", got[0].Command)
	assert.Equal(t, "c1", got[0].CommID)
	assert.Equal(t, "r7", got[0].Data["id"])
	assert.Equal(t, "reload_log_level", got[1].Command)
	assert.Equal(t, "2", got[1].LogLevel)
}

func TestPollStdinDropsMalformedAndUnknownLines(t *testing.T) {
	s := &Sources{Stdin: make(chan Command, 4)}
	input := strings.NewReader(
		"not json at all\n" +
			"{\"command\":\"something_unknown\"}\n" +
			"{\"command\":\"comm_close\",\"comm_id\":\"c2\"}\n")

	s.pollStdin(context.Background(), input)

	var got []Command
	for cmd := range s.Stdin {
		got = append(got, cmd)
	}
	require.Len(t, got, 1)
	assert.Equal(t, "comm_close", got[0].Command)
}

func TestPollStdinStopsOnContextCancellation(t *testing.T) {
	s := &Sources{Stdin: make(chan Command)} // unbuffered: a send blocks until ctx cancellation wins
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.pollStdin(ctx, strings.NewReader("{\"command\":\"comm_close\",\"comm_id\":\"c1\"}\n"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pollStdin should stop promptly once ctx is cancelled")
	}
}

func TestIsRecognizedCommand(t *testing.T) {
	assert.True(t, isRecognizedCommand("comm_msg"))
	assert.True(t, isRecognizedCommand("comm_open"))
	assert.True(t, isRecognizedCommand("comm_close"))
	assert.True(t, isRecognizedCommand("reload_log_level"))
	assert.False(t, isRecognizedCommand("execute_request"))
	assert.False(t, isRecognizedCommand(""))
}
