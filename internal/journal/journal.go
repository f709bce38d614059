// Package journal defines the append-only sink interface the core writes
// session and agent history through. Persistence itself is out of scope;
// this package ships the interface plus two trivial implementations used
// by tests and by callers that don't need durability.
package journal

import "sync"

// Kind classifies one journal entry.
type Kind string

const (
	KindSystem      Kind = "system"
	KindUser        Kind = "user"
	KindAssistant   Kind = "assistant"
	KindToolCall    Kind = "tool_call"
	KindToolResult  Kind = "tool_result"
	KindTool        Kind = "tool"
	KindClear       Kind = "clear"
	KindMark        Kind = "mark"
	KindRewind      Kind = "rewind"
	KindAgentKilled Kind = "agent_killed"
	KindInterrupted Kind = "interrupted"
)

var conversationKinds = map[Kind]bool{
	KindSystem:     true,
	KindUser:       true,
	KindAssistant:  true,
	KindToolCall:   true,
	KindToolResult: true,
	KindTool:       true,
}

// IsConversationKind reports whether kind is part of the conversation
// subset rather than a metadata record. Unknown or empty kinds are false.
func IsConversationKind(kind Kind) bool {
	return conversationKinds[kind]
}

// Sink receives journal entries. Implementations must not block the
// caller for long; the event loop goroutine calls Append inline.
type Sink interface {
	Append(sessionID, agentID string, kind Kind, content string, metadataJSON string) error
}

// NullSink discards every entry.
type NullSink struct{}

func (NullSink) Append(sessionID, agentID string, kind Kind, content string, metadataJSON string) error {
	return nil
}

// Entry is one recorded call to MemorySink.Append.
type Entry struct {
	SessionID    string
	AgentID      string
	Kind         Kind
	Content      string
	MetadataJSON string
}

// MemorySink is a test double that records every entry in order.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Append(sessionID, agentID string, kind Kind, content string, metadataJSON string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Entry{
		SessionID:    sessionID,
		AgentID:      agentID,
		Kind:         kind,
		Content:      content,
		MetadataJSON: metadataJSON,
	})
	return nil
}

// Entries returns a copy of the recorded entries in append order.
func (m *MemorySink) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}
