// Package chatmodel holds the provider-agnostic wire-level value types:
// messages, content blocks, requests, and responses. These are the values
// serializers consume and stream contexts produce; they carry no
// behavior beyond the mutators required to keep a Request read-only once
// handed to a serializer.
package chatmodel

import "github.com/ikigai-cli/ikigai/internal/errs"

// ThinkingLevel is the provider-agnostic reasoning-effort ordinal.
type ThinkingLevel int

const (
	ThinkingMin ThinkingLevel = iota
	ThinkingLow
	ThinkingMed
	ThinkingHigh
)

func (t ThinkingLevel) String() string {
	switch t {
	case ThinkingMin:
		return "none"
	case ThinkingLow:
		return "low"
	case ThinkingMed:
		return "med"
	case ThinkingHigh:
		return "high"
	default:
		return "none"
	}
}

// ParseThinkingLevel parses the vocabulary {none, low, med, high}.
func ParseThinkingLevel(s string) (ThinkingLevel, error) {
	switch s {
	case "none":
		return ThinkingMin, nil
	case "low":
		return ThinkingLow, nil
	case "med":
		return ThinkingMed, nil
	case "high":
		return ThinkingHigh, nil
	default:
		return ThinkingMin, errs.New(errs.InvalidArg, "unknown thinking level %q", s)
	}
}

// Role of a message.
type Role string

const (
	RoleSystem    Role = "SYSTEM"
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
	RoleTool      Role = "TOOL"
)

// ContentBlockType tags the single payload a ContentBlock carries.
type ContentBlockType string

const (
	BlockText             ContentBlockType = "text"
	BlockThinking         ContentBlockType = "thinking"
	BlockRedactedThinking ContentBlockType = "redacted_thinking"
	BlockToolCall         ContentBlockType = "tool_call"
	BlockToolResult       ContentBlockType = "tool_result"
)

// ContentBlock is a tagged variant; exactly one payload field is populated
// according to Type.
type ContentBlock struct {
	Type ContentBlockType

	Text string // BlockText, BlockThinking

	ThinkingSignature string // BlockThinking, optional

	RedactedData string // BlockRedactedThinking

	ToolCallID        string // BlockToolCall, BlockToolResult
	ToolCallName      string // BlockToolCall
	ToolCallArguments string // BlockToolCall, JSON string

	ToolResultContent string // BlockToolResult
	ToolResultIsError bool   // BlockToolResult
}

func NewText(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

func NewThinking(text, signature string) ContentBlock {
	return ContentBlock{Type: BlockThinking, Text: text, ThinkingSignature: signature}
}

func NewRedactedThinking(data string) ContentBlock {
	return ContentBlock{Type: BlockRedactedThinking, RedactedData: data}
}

func NewToolCall(id, name, arguments string) ContentBlock {
	return ContentBlock{Type: BlockToolCall, ToolCallID: id, ToolCallName: name, ToolCallArguments: arguments}
}

func NewToolResult(toolCallID, content string, isError bool) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolCallID: toolCallID, ToolResultContent: content, ToolResultIsError: isError}
}

// Message is an immutable-once-appended ordered sequence of content blocks
// under a single role, plus an opaque provider metadata blob a provider
// adapter may stash and echo back (e.g. OpenAI Responses' encrypted
// reasoning continuation token).
type Message struct {
	Role             Role
	ContentBlocks    []ContentBlock
	ProviderMetadata map[string]string
}

// Validate enforces the role/content-block pairing invariant from §3:
// ToolResult only in TOOL/USER messages; ToolCall and Thinking only in
// ASSISTANT messages.
func (m Message) Validate() error {
	for _, b := range m.ContentBlocks {
		switch b.Type {
		case BlockToolResult:
			if m.Role != RoleTool && m.Role != RoleUser {
				return errs.New(errs.InvalidArg, "tool_result block only allowed in TOOL or USER messages, got %s", m.Role)
			}
		case BlockToolCall, BlockThinking, BlockRedactedThinking:
			if m.Role != RoleAssistant {
				return errs.New(errs.InvalidArg, "%s block only allowed in ASSISTANT messages, got %s", b.Type, m.Role)
			}
		}
	}
	return nil
}

// Clone deep-copies a message's content blocks, decoupling request
// lifetime from the agent log it was read from.
func (m Message) Clone() Message {
	blocks := make([]ContentBlock, len(m.ContentBlocks))
	copy(blocks, m.ContentBlocks)
	var meta map[string]string
	if m.ProviderMetadata != nil {
		meta = make(map[string]string, len(m.ProviderMetadata))
		for k, v := range m.ProviderMetadata {
			meta[k] = v
		}
	}
	return Message{Role: m.Role, ContentBlocks: blocks, ProviderMetadata: meta}
}

// ToolChoiceMode controls whether/how the model must call a tool.
type ToolChoiceMode int

const (
	ToolChoiceAuto ToolChoiceMode = iota
	ToolChoiceNone
	ToolChoiceRequired
)

// Tool is a single function the model may call.
type Tool struct {
	Name        string
	Description string
	JSONSchema  string // verbatim JSON string
}

// Request is the provider-agnostic outbound request. It is a plain value;
// mutators update it in place and return an error (non-nil once the
// request is sealed) rather than allocating in an arena, since Go's GC
// already gives request-scoped values independent lifetime from the
// agent log.
type Request struct {
	Model           string
	SystemPrompt    string
	Messages        []Message
	Tools           []Tool
	ToolChoiceMode  ToolChoiceMode
	ThinkingLevel   ThinkingLevel
	MaxOutputTokens int

	sealed bool
}

// Seal marks a request read-only; subsequent mutator calls return an error.
// The caller seals a request before handing it to a serializer.
func (r *Request) Seal() { r.sealed = true }

func (r *Request) checkMutable() error {
	if r.sealed {
		return errs.New(errs.InvalidArg, "request is sealed and read-only")
	}
	return nil
}

func (r *Request) SetSystem(prompt string) error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	r.SystemPrompt = prompt
	return nil
}

// AddMessage deep-copies the message's content blocks before appending, so
// later mutation of the agent's live log (or the message value passed in)
// never affects this request.
func (r *Request) AddMessage(msg Message) error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	r.Messages = append(r.Messages, msg.Clone())
	return nil
}

func (r *Request) AddTool(tool Tool) error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	r.Tools = append(r.Tools, tool)
	return nil
}

func (r *Request) SetThinking(level ThinkingLevel) error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	r.ThinkingLevel = level
	return nil
}

// FinishReason normalizes provider-specific stop reasons.
type FinishReason string

const (
	FinishStop          FinishReason = "STOP"
	FinishLength         FinishReason = "LENGTH"
	FinishToolCalls      FinishReason = "TOOL_CALLS"
	FinishContentFilter  FinishReason = "CONTENT_FILTER"
	FinishError          FinishReason = "ERROR"
	FinishUnknown        FinishReason = "UNKNOWN"
)

// NormalizeFinishReason maps a provider's raw finish-reason string per
// spec.md §4.4.
func NormalizeFinishReason(raw string) FinishReason {
	switch raw {
	case "stop", "end_turn":
		return FinishStop
	case "length", "max_tokens":
		return FinishLength
	case "tool_calls", "tool_use":
		return FinishToolCalls
	case "content_filter", "safety":
		return FinishContentFilter
	case "":
		return FinishUnknown
	default:
		return FinishUnknown
	}
}

// Usage counters surfaced on a completed response.
type Usage struct {
	InputTokens    int
	OutputTokens   int
	ThinkingTokens int
	CachedTokens   int
	TotalTokens    int
}

// Response is the provider-agnostic assembled response.
type Response struct {
	Model         string
	ContentBlocks []ContentBlock
	Usage         Usage
	FinishReason  FinishReason
	ProviderData  string // opaque
}
