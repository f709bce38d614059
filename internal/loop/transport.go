// Package loop implements the single-consumer cooperative event loop of
// spec.md §4.10. Go has no analogue of a single-threaded curl multi-handle
// + select loop, so it is modeled the idiomatic Go way instead: a
// dedicated loop goroutine selects over channels fed by other goroutines
// (a stdin reader, one HTTP-streaming goroutine per in-flight request,
// and timers), so the loop goroutine itself never blocks on network I/O
// while still touching Agent state from exactly one place. Grounded on
// the teacher's background-goroutine-feeds-channel idiom (worker/signal
// handling in the wider codebase) and cli/cli.go's *http.Client plumbing.
package loop

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/ikigai-cli/ikigai/internal/errs"
)

// StreamEvent is one chunk (or terminal outcome) from an in-flight HTTP
// stream, tagged with the agent it belongs to so the fan-in channel can
// preserve per-agent ordering while leaving cross-agent ordering
// unspecified, per spec.md §4.10.
type StreamEvent struct {
	AgentID    string
	Chunk      []byte
	Err        error
	Done       bool
	StatusCode int
}

// Transport wraps *http.Client and owns one goroutine per in-flight
// stream context, so the loop goroutine itself never performs network
// I/O. This is the "re-architect the global mutable HTTP multi-handle"
// generalization of the teacher's single shared *http.Client field.
type Transport struct {
	client *http.Client

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewTransport wraps client (http.DefaultClient if nil).
func NewTransport(client *http.Client) *Transport {
	if client == nil {
		client = http.DefaultClient
	}
	return &Transport{client: client, cancels: make(map[string]context.CancelFunc)}
}

// StartStream issues a streaming HTTP POST for agentID and feeds every
// response chunk into events until the body is exhausted, the request
// errors, or Cancel(agentID) fires. At most one stream per agent may be
// in flight at a time, per spec.md §3's "At most one in_flight stream
// per agent"; a second call for the same agentID returns an error
// without starting a goroutine.
func (t *Transport) StartStream(ctx context.Context, agentID, url string, headers []string, body string, events chan<- StreamEvent) error {
	t.mu.Lock()
	if _, exists := t.cancels[agentID]; exists {
		t.mu.Unlock()
		return errs.New(errs.InvalidArg, "agent %s already has an in-flight stream", agentID)
	}
	streamCtx, cancel := context.WithCancel(ctx)
	t.cancels[agentID] = cancel
	t.mu.Unlock()

	req, err := http.NewRequestWithContext(streamCtx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.clearCancel(agentID)
		return errs.New(errs.InvalidArg, "failed to build request: %v", err)
	}
	for _, h := range headers {
		name, value, ok := strings.Cut(h, ": ")
		if ok {
			req.Header.Set(name, value)
		}
	}

	go t.run(agentID, req, events)
	return nil
}

func (t *Transport) run(agentID string, req *http.Request, events chan<- StreamEvent) {
	defer t.clearCancel(agentID)

	resp, err := t.client.Do(req)
	if err != nil {
		events <- StreamEvent{AgentID: agentID, Err: classifyTransportError(err), Done: true}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		events <- StreamEvent{
			AgentID:    agentID,
			Err:        errs.ClassifyHTTPError(resp.StatusCode, body),
			Done:       true,
			StatusCode: resp.StatusCode,
		}
		return
	}

	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			events <- StreamEvent{AgentID: agentID, Chunk: chunk, StatusCode: resp.StatusCode}
		}
		if err != nil {
			if err == io.EOF {
				events <- StreamEvent{AgentID: agentID, Done: true, StatusCode: resp.StatusCode}
			} else {
				events <- StreamEvent{AgentID: agentID, Err: classifyTransportError(err), Done: true}
			}
			return
		}
	}
}

// Cancel tears down agentID's in-flight stream, if any, returning true if
// one was torn down.
func (t *Transport) Cancel(agentID string) bool {
	t.mu.Lock()
	cancel, ok := t.cancels[agentID]
	delete(t.cancels, agentID)
	t.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (t *Transport) clearCancel(agentID string) {
	t.mu.Lock()
	delete(t.cancels, agentID)
	t.mu.Unlock()
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return errs.New(errs.Network, "stream cancelled")
	}
	return errs.New(errs.Network, "transport error: %v", err)
}
