package main

import (
	"fmt"
	"io"

	"github.com/ikigai-cli/ikigai/internal/chatmodel"
)

// consoleSink renders one agent's streaming response to w as it arrives.
// It implements provider.EventSink; the loop goroutine is the only caller,
// so no locking is needed.
type consoleSink struct {
	w        io.Writer
	debug    bool
	lastErr  error
	usage    chatmodel.Usage
	finished chan struct{}
}

func newConsoleSink(w io.Writer, debug bool) *consoleSink {
	return &consoleSink{w: w, debug: debug, finished: make(chan struct{})}
}

func (s *consoleSink) Started() {}

func (s *consoleSink) Text(delta string) {
	fmt.Fprint(s.w, delta)
}

func (s *consoleSink) Thinking(delta string, signature string) {
	if s.debug && delta != "" {
		fmt.Fprintf(s.w, "\x1b[2m%s\x1b[0m", delta)
	}
}

func (s *consoleSink) ToolCallDelta(id, name, argsFragment string) {
	if s.debug {
		fmt.Fprintf(s.w, "\n[tool_call %s %s%s]", id, name, argsFragment)
	}
}

func (s *consoleSink) FinishReason(fr chatmodel.FinishReason) {
	if s.debug {
		fmt.Fprintf(s.w, "\n[finish %s]", fr)
	}
}

func (s *consoleSink) Usage(u chatmodel.Usage) {
	s.usage = u
}

func (s *consoleSink) Error(err error) {
	s.lastErr = err
}

func (s *consoleSink) Done() {
	fmt.Fprintln(s.w)
	close(s.finished)
}
