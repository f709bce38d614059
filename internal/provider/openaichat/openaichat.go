// Package openaichat implements the OpenAI Chat Completions wire
// protocol: request serialization, SSE stream-context delta assembly,
// and non-streaming response parsing. Grounded on llm2/openai_provider.go
// for role/content-block mapping idiom (switch-based conversion, small
// per-field helpers), but the request body is built as a hand-rolled
// map[string]any serialized with encoding/json rather than the
// openai-go SDK's typed params, and streaming is driven by
// internal/sse.Framer rather than the SDK's streaming client — the
// serializer and stream context are themselves the component spec.md
// requires the repo to own.
package openaichat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ikigai-cli/ikigai/internal/chatmodel"
	"github.com/ikigai-cli/ikigai/internal/errs"
	"github.com/ikigai-cli/ikigai/internal/provider"
	"github.com/ikigai-cli/ikigai/internal/sse"
)

// Provider implements provider.Provider for OpenAI Chat Completions.
type Provider struct {
	// ReasoningEffort, when non-empty, is sent as "reasoning_effort" for
	// reasoning-capable chat models (rare; most reasoning models use the
	// Responses API flavor instead — see internal/provider/openairesp).
	ReasoningEffort string
}

func roleToWire(r chatmodel.Role) string {
	switch r {
	case chatmodel.RoleSystem:
		return "system"
	case chatmodel.RoleUser:
		return "user"
	case chatmodel.RoleAssistant:
		return "assistant"
	case chatmodel.RoleTool:
		return "tool"
	default:
		return "user"
	}
}

func toolChoiceToWire(mode chatmodel.ToolChoiceMode) string {
	switch mode {
	case chatmodel.ToolChoiceNone:
		return "none"
	case chatmodel.ToolChoiceRequired:
		return "required"
	default:
		return "auto"
	}
}

// Serialize builds the JSON body for a Chat Completions request.
func (p Provider) Serialize(req chatmodel.Request, stream bool) (string, error) {
	if req.Model == "" {
		return "", errs.New(errs.InvalidArg, "model is required")
	}

	body := map[string]any{
		"model":  req.Model,
		"stream": stream,
	}

	var messages []map[string]any
	if req.SystemPrompt != "" {
		messages = append(messages, map[string]any{"role": "system", "content": req.SystemPrompt})
	}

	for _, m := range req.Messages {
		wireRole := roleToWire(m.Role)

		// Text content blocks concatenate into a single string (spec.md §4.3).
		var textParts []string
		for _, b := range m.ContentBlocks {
			switch b.Type {
			case chatmodel.BlockText:
				textParts = append(textParts, b.Text)
			case chatmodel.BlockToolCall:
				messages = append(messages, map[string]any{
					"role": "assistant",
					"tool_calls": []map[string]any{{
						"id":   b.ToolCallID,
						"type": "function",
						"function": map[string]any{
							"name":      b.ToolCallName,
							"arguments": b.ToolCallArguments,
						},
					}},
				})
			case chatmodel.BlockToolResult:
				messages = append(messages, map[string]any{
					"role":         "tool",
					"tool_call_id": b.ToolCallID,
					"content":      b.ToolResultContent,
				})
			}
		}

		if len(textParts) > 0 || (wireRole != "assistant" && wireRole != "tool") {
			messages = append(messages, map[string]any{
				"role":    wireRole,
				"content": strings.Join(textParts, ""),
			})
		}
	}
	body["messages"] = messages

	if len(req.Tools) > 0 {
		var tools []map[string]any
		for _, t := range req.Tools {
			var schema any
			if t.JSONSchema != "" {
				if err := json.Unmarshal([]byte(t.JSONSchema), &schema); err != nil {
					return "", errs.New(errs.Parse, "tool %q has invalid json_schema: %v", t.Name, err)
				}
			}
			tools = append(tools, map[string]any{
				"type": "function",
				"function": map[string]any{
					"name":        t.Name,
					"description": t.Description,
					"parameters":  schema,
				},
			})
		}
		body["tools"] = tools
		body["tool_choice"] = toolChoiceToWire(req.ToolChoiceMode)
	}

	if req.MaxOutputTokens > 0 {
		body["max_completion_tokens"] = req.MaxOutputTokens
	}

	if p.ReasoningEffort != "" {
		body["reasoning_effort"] = p.ReasoningEffort
	} else if req.ThinkingLevel != chatmodel.ThinkingMin {
		return "", errs.New(errs.InvalidArg, "OpenAI Chat Completions does not support a reasoning effort for this model; use the Responses API flavor")
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return "", errs.New(errs.Parse, "failed to marshal request: %v", err)
	}
	return string(raw), nil
}

func (Provider) BuildURL(base, model, key string, stream bool) string {
	if base == "" {
		base = "https://api.openai.com"
	}
	return strings.TrimSuffix(base, "/") + "/v1/chat/completions"
}

func (Provider) BuildHeaders(key string, stream bool) []string {
	headers := []string{
		"Content-Type: application/json",
		fmt.Sprintf("Authorization: Bearer %s", key),
	}
	if stream {
		headers = append(headers, "Accept: text/event-stream")
	}
	return headers
}

// ParseResponse parses a non-streaming Chat Completions JSON body.
func (Provider) ParseResponse(raw []byte) (chatmodel.Response, error) {
	var body struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content   string `json:"content"`
				ToolCalls []struct {
					ID       string `json:"id"`
					Function struct {
						Name      string `json:"name"`
						Arguments string `json:"arguments"`
					} `json:"function"`
				} `json:"tool_calls"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return chatmodel.Response{}, errs.New(errs.Parse, "malformed chat completion response: %v", err)
	}
	if len(body.Choices) == 0 {
		return chatmodel.Response{}, errs.New(errs.Parse, "chat completion response has no choices")
	}

	choice := body.Choices[0]
	var blocks []chatmodel.ContentBlock
	if choice.Message.Content != "" {
		blocks = append(blocks, chatmodel.NewText(choice.Message.Content))
	}
	for _, tc := range choice.Message.ToolCalls {
		blocks = append(blocks, chatmodel.NewToolCall(tc.ID, tc.Function.Name, tc.Function.Arguments))
	}

	return chatmodel.Response{
		Model:         body.Model,
		ContentBlocks: blocks,
		FinishReason:  chatmodel.NormalizeFinishReason(choice.FinishReason),
		Usage: chatmodel.Usage{
			InputTokens:  body.Usage.PromptTokens,
			OutputTokens: body.Usage.CompletionTokens,
			TotalTokens:  body.Usage.TotalTokens,
		},
	}, nil
}

// NewStreamContext returns a fresh per-request stream context.
func (Provider) NewStreamContext(sink provider.EventSink) provider.StreamContext {
	return &streamContext{sink: sink, framer: sse.NewFramer(), toolBlocks: make(map[int]string)}
}

type streamContext struct {
	sink    provider.EventSink
	framer  *sse.Framer
	started bool
	closed  bool

	// toolBlocks maps the wire delta's tool_calls[].index to the tool_call
	// id assigned on first sight (spec.md §4.4 step 3).
	toolBlocks map[int]string
}

type chatChunk struct {
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *streamContext) Feed(chunk []byte) {
	c.framer.Feed(chunk)
	for {
		event, ok := c.framer.TakeEvent()
		if !ok {
			return
		}
		c.handleEvent(event)
	}
}

func (c *streamContext) handleEvent(event string) {
	data, ok := strings.CutPrefix(event, "data: ")
	if !ok {
		data, ok = strings.CutPrefix(event, "data:")
		if !ok {
			return
		}
	}
	data = strings.TrimSpace(data)
	if data == "[DONE]" {
		c.sink.Done()
		return
	}

	if !c.started {
		c.sink.Started()
		c.started = true
	}

	var parsed chatChunk
	if err := json.Unmarshal([]byte(data), &parsed); err != nil {
		// Robustness rule (spec.md §4.4): malformed JSON for one event is
		// ignored, not fatal.
		return
	}

	if parsed.Usage != nil {
		c.sink.Usage(chatmodel.Usage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
			TotalTokens:  parsed.Usage.TotalTokens,
		})
	}

	if len(parsed.Choices) == 0 {
		return
	}
	choice := parsed.Choices[0]

	if choice.Delta.Content != "" {
		c.sink.Text(choice.Delta.Content)
	}

	for _, tc := range choice.Delta.ToolCalls {
		id, seen := c.toolBlocks[tc.Index]
		if !seen {
			id = tc.ID
			c.toolBlocks[tc.Index] = id
		}
		c.sink.ToolCallDelta(id, tc.Function.Name, tc.Function.Arguments)
	}

	if choice.FinishReason != "" {
		c.sink.FinishReason(chatmodel.NormalizeFinishReason(choice.FinishReason))
	}
}

func (c *streamContext) Close() {
	if c.closed {
		return
	}
	c.closed = true
}

var _ provider.Provider = Provider{}
