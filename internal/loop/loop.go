package loop

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ikigai-cli/ikigai/internal/termkeys"
)

// TimerEvent fires when a scheduled retry or UI refresh elapses.
type TimerEvent struct {
	AgentID string
	Kind    string // "retry" or "refresh"
}

// Handlers are the callbacks the loop goroutine invokes inline — never
// concurrently, since only the loop goroutine ever calls them. This is
// the enforcement point for spec.md §4.11's "no component reads/writes
// another component's state concurrently": Agent mutation only ever
// happens inside one of these callbacks.
type Handlers struct {
	OnAction      func(termkeys.Action)
	OnStreamChunk func(StreamEvent)
	OnTimer       func(TimerEvent)
	OnInterrupt   func(agentID string) // called for the agent owning an interrupted stream
}

// Loop is the single-threaded cooperative multiplexor of spec.md §4.10:
// terminal input, all in-flight HTTP streams (fanned into one channel),
// and timers.
type Loop struct {
	stdin     <-chan termkeys.Action
	events    chan StreamEvent
	timers    chan TimerEvent
	interrupt atomic.Bool

	handlers Handlers

	// activeAgent is the agent OnInterrupt is called for when the event
	// that consumes the interrupt carries no agent id of its own, since
	// the interrupt flag itself carries no agent identity.
	activeAgent string
}

// New builds a Loop reading decoded actions from stdin and multiplexing
// them against an internally-owned stream-event fan-in channel and timer
// channel.
func New(stdin <-chan termkeys.Action, handlers Handlers) *Loop {
	return &Loop{
		stdin:    stdin,
		events:   make(chan StreamEvent, 64),
		timers:   make(chan TimerEvent, 16),
		handlers: handlers,
	}
}

// Events returns the channel StreamEvents should be sent on (by
// Transport.StartStream's caller-supplied sink, or tests).
func (l *Loop) Events() chan<- StreamEvent { return l.events }

// Timers returns the channel TimerEvents should be sent on.
func (l *Loop) Timers() chan<- TimerEvent { return l.timers }

// SetActiveAgent records which agent a subsequent Ctrl-C interrupt
// applies to; the REPL orchestrator calls this whenever the active agent
// changes (e.g. after /fork).
func (l *Loop) SetActiveAgent(agentID string) { l.activeAgent = agentID }

// Interrupted reports whether a Ctrl-C is pending and has not yet been
// consumed by a stream chunk or timer tick.
func (l *Loop) Interrupted() bool { return l.interrupt.Load() }

// interruptTarget falls back to the active agent when an event (e.g. a
// UI-refresh timer) carries no agent id of its own.
func (l *Loop) interruptTarget(agentID string) string {
	if agentID != "" {
		return agentID
	}
	return l.activeAgent
}

// Run drives the select loop until ctx is cancelled. Ordering per
// spec.md §4.10: Ctrl-C is always checked before dispatching any stream
// chunk; a pending interrupt consumes one chunk/timer slot to fire
// OnInterrupt instead of the normal handler, then clears.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case action, ok := <-l.stdin:
			if !ok {
				l.stdin = nil
				continue
			}
			if action.Type == termkeys.ActionCtrlC {
				l.interrupt.Store(true)
			}
			if l.handlers.OnAction != nil {
				l.handlers.OnAction(action)
			}

		case evt := <-l.events:
			if l.interrupt.Load() {
				l.interrupt.Store(false)
				if l.handlers.OnInterrupt != nil {
					l.handlers.OnInterrupt(l.interruptTarget(evt.AgentID))
				}
				continue
			}
			if l.handlers.OnStreamChunk != nil {
				l.handlers.OnStreamChunk(evt)
			}

		case t := <-l.timers:
			if l.interrupt.Load() {
				l.interrupt.Store(false)
				if l.handlers.OnInterrupt != nil {
					l.handlers.OnInterrupt(l.interruptTarget(t.AgentID))
				}
				continue
			}
			if l.handlers.OnTimer != nil {
				l.handlers.OnTimer(t)
			}
		}
	}
}

// ScheduleTimer fires a TimerEvent onto the loop's timer channel after d
// elapses, via a standard time.AfterFunc-style goroutine — the idiomatic
// substitute for installing a timer into a shared multi-handle.
func (l *Loop) ScheduleTimer(d time.Duration, evt TimerEvent) *time.Timer {
	return time.AfterFunc(d, func() {
		select {
		case l.timers <- evt:
		default:
		}
	})
}

// ReadStdin runs in its own goroutine: it blocks on os.Stdin reads,
// decodes bytes through parser, and pushes actions to out. Go cannot
// non-blockingly poll stdin without a reader goroutine — this is the
// idiomatic substitute for "multiplex stdin via select".
func ReadStdin(reader interface{ ReadByte() (byte, error) }, parser *termkeys.Parser, out chan<- termkeys.Action) {
	defer close(out)
	for {
		b, err := reader.ReadByte()
		if err != nil {
			return
		}
		action := parser.Feed(b)
		if action.Type != termkeys.ActionNone {
			out <- action
		}
	}
}
