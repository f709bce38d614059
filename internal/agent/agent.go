// Package agent holds per-agent conversation state and the fork/rewind/
// mark/pin/clear semantics of spec.md §3 and §4.9. Grounded on the
// teacher's agent.Agent/AgentAction shape, generalized from a single
// PerformAction dispatch method into the richer state machine the spec
// requires.
package agent

import (
	"time"

	"github.com/google/uuid"
	"github.com/ikigai-cli/ikigai/internal/chatmodel"
	"github.com/ikigai-cli/ikigai/internal/errs"
	"github.com/ikigai-cli/ikigai/internal/provider"
)

// Agent is one node in the (logically rooted, flatly stored) agent tree.
type Agent struct {
	ID            string
	ParentID      string
	ForkMessageID int // index into parent.Messages this agent forked at; -1 for the root

	CreatedAt time.Time

	Provider      string
	Model         string
	ThinkingLevel chatmodel.ThinkingLevel

	Messages []chatmodel.Message
	ClearAt  int // index of the first message in the current era; 0 until /clear

	Marks map[string]int // label -> index into Messages
	Pins  []string        // ordered set of paths

	InFlight bool
}

// NewRoot creates the primordial agent with no parent.
func NewRoot(modelProvider, model string, thinking chatmodel.ThinkingLevel) *Agent {
	return &Agent{
		ID:            uuid.NewString(),
		ForkMessageID: -1,
		CreatedAt:     time.Now(),
		Provider:      modelProvider,
		Model:         model,
		ThinkingLevel: thinking,
		Marks:         make(map[string]int),
	}
}

// ActiveMessages returns the slice of messages a request should see: those
// from the current era onward (after the most recent /clear), per spec.md
// §4.9's "/clear ... subsequent requests omit messages prior to the clear".
func (a *Agent) ActiveMessages() []chatmodel.Message {
	return a.Messages[a.ClearAt:]
}

// AppendMessage appends to the live log and returns the new message's index.
func (a *Agent) AppendMessage(m chatmodel.Message) (int, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	a.Messages = append(a.Messages, m.Clone())
	return len(a.Messages) - 1, nil
}

// Fork creates a child agent whose Messages start as a copy of the
// parent's messages [0..forkAt] (inclusive). The prefix is copied into
// the child, not read through from the parent; appends to either agent
// after the fork do not affect the other.
func (a *Agent) Fork(forkAt int, override *ModelOverride) (*Agent, error) {
	if forkAt < -1 || forkAt >= len(a.Messages) {
		return nil, errs.New(errs.InvalidArg, "fork point %d out of range for agent with %d messages", forkAt, len(a.Messages))
	}

	child := &Agent{
		ID:            uuid.NewString(),
		ParentID:      a.ID,
		ForkMessageID: forkAt,
		CreatedAt:     time.Now(),
		Provider:      a.Provider,
		Model:         a.Model,
		ThinkingLevel: a.ThinkingLevel,
		Marks:         make(map[string]int),
	}
	if forkAt >= 0 {
		child.Messages = append(child.Messages, a.Messages[:forkAt+1]...)
	}

	if override != nil {
		child.Provider = override.Provider
		child.Model = override.Model
		if override.HasThinking {
			child.ThinkingLevel = override.ThinkingLevel
		}
	}

	return child, nil
}

// Rewind truncates the message sequence to include only messages up to and
// including the message the mark labeled label points at. Marks pointing
// past that index are removed from Marks.
func (a *Agent) Rewind(label string) error {
	idx, ok := a.Marks[label]
	if !ok {
		return errs.New(errs.NotFound, "no mark named %q on this agent", label)
	}
	return a.truncateTo(idx)
}

// RewindN truncates through the n-th most recent user message (1 = the
// most recent), per spec.md §4.9's "/rewind LABEL|N".
func (a *Agent) RewindN(n int) error {
	if n < 1 {
		return errs.New(errs.InvalidArg, "rewind count must be >= 1, got %d", n)
	}
	count := 0
	for i := len(a.Messages) - 1; i >= 0; i-- {
		if a.Messages[i].Role == chatmodel.RoleUser {
			count++
			if count == n {
				return a.truncateTo(i)
			}
		}
	}
	return errs.New(errs.InvalidArg, "agent has fewer than %d user messages", n)
}

func (a *Agent) truncateTo(idx int) error {
	a.Messages = a.Messages[:idx+1]
	for label, markIdx := range a.Marks {
		if markIdx > idx {
			delete(a.Marks, label)
		}
	}
	if a.ClearAt > len(a.Messages) {
		a.ClearAt = len(a.Messages)
	}
	return nil
}

// Mark records label as pointing at the last message.
func (a *Agent) Mark(label string) error {
	if len(a.Messages) == 0 {
		return errs.New(errs.InvalidArg, "cannot mark an agent with no messages")
	}
	if label == "" {
		return errs.New(errs.InvalidArg, "mark label must not be empty")
	}
	a.Marks[label] = len(a.Messages) - 1
	return nil
}

// Pin appends path to the ordered pin set if not already present.
func (a *Agent) Pin(path string) error {
	if path == "" {
		return errs.New(errs.InvalidArg, "pin path must not be empty")
	}
	for _, p := range a.Pins {
		if p == path {
			return nil
		}
	}
	a.Pins = append(a.Pins, path)
	return nil
}

// Unpin removes path from the pin set, if present.
func (a *Agent) Unpin(path string) error {
	for i, p := range a.Pins {
		if p == path {
			a.Pins = append(a.Pins[:i], a.Pins[i+1:]...)
			return nil
		}
	}
	return errs.New(errs.NotFound, "path %q is not pinned", path)
}

// Clear starts a new era: subsequent ActiveMessages() calls omit messages
// before the current tail.
func (a *Agent) Clear() {
	a.ClearAt = len(a.Messages)
}

// ModelOverride is the deep-copied provider/model/thinking triple applied
// by /fork --model and /model.
type ModelOverride struct {
	Provider      string
	Model         string
	ThinkingLevel chatmodel.ThinkingLevel
	HasThinking bool
}

// ResolveModelOverride infers the provider for model via reg and builds a
// ModelOverride, validating the thinking level against the model's
// reasoning capability per spec.md §4.9's "Rejects invalid level for
// non-reasoning models".
func ResolveModelOverride(reg *provider.Registry, model string, thinking chatmodel.ThinkingLevel, hasThinking bool) (*ModelOverride, error) {
	entry, ok := reg.Lookup(model)
	if !ok {
		return nil, errs.New(errs.InvalidArg, "unknown model %q", model)
	}
	if hasThinking && thinking != chatmodel.ThinkingMin && !entry.IsReasoningModel() {
		return nil, errs.New(errs.InvalidArg, "model %q does not accept a thinking level", model)
	}
	return &ModelOverride{
		Provider:      entry.Provider,
		Model:         model,
		ThinkingLevel: thinking,
		HasThinking:   hasThinking,
	}, nil
}
