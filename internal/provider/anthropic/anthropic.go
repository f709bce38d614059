// Package anthropic implements the Anthropic Messages wire protocol.
// Grounded on llm2/anthropic_provider.go for role/content mapping idiom
// and thinking-budget selection by effort tier, but serialization and
// streaming are hand-rolled (see internal/provider/openaichat's package
// doc for the rationale, which applies equally here).
package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ikigai-cli/ikigai/internal/chatmodel"
	"github.com/ikigai-cli/ikigai/internal/errs"
	"github.com/ikigai-cli/ikigai/internal/provider"
	"github.com/ikigai-cli/ikigai/internal/sse"
)

const defaultMaxTokens = 16000

// Provider implements provider.Provider for Anthropic's Messages API.
type Provider struct{}

func thinkingBudget(level chatmodel.ThinkingLevel) int {
	switch level {
	case chatmodel.ThinkingLow:
		return 5000
	case chatmodel.ThinkingMed:
		return 10000
	case chatmodel.ThinkingHigh:
		return 20000
	default:
		return 0
	}
}

// Serialize builds the JSON body for a Messages request.
func (Provider) Serialize(req chatmodel.Request, stream bool) (string, error) {
	if req.Model == "" {
		return "", errs.New(errs.InvalidArg, "model is required")
	}

	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body := map[string]any{
		"model":      req.Model,
		"max_tokens": maxTokens,
		"stream":     stream,
	}
	if req.SystemPrompt != "" {
		body["system"] = req.SystemPrompt
	}

	var messages []map[string]any
	for _, m := range req.Messages {
		var content []map[string]any
		wireRole := "user"
		if m.Role == chatmodel.RoleAssistant {
			wireRole = "assistant"
		}

		for _, b := range m.ContentBlocks {
			switch b.Type {
			case chatmodel.BlockText:
				content = append(content, map[string]any{"type": "text", "text": b.Text})
			case chatmodel.BlockThinking:
				block := map[string]any{"type": "thinking", "thinking": b.Text}
				if b.ThinkingSignature != "" {
					block["signature"] = b.ThinkingSignature
				}
				content = append(content, block)
			case chatmodel.BlockRedactedThinking:
				content = append(content, map[string]any{"type": "redacted_thinking", "data": b.RedactedData})
			case chatmodel.BlockToolCall:
				var input any
				if b.ToolCallArguments != "" {
					if err := json.Unmarshal([]byte(b.ToolCallArguments), &input); err != nil {
						return "", errs.New(errs.Parse, "tool_call %q has invalid arguments JSON: %v", b.ToolCallID, err)
					}
				}
				content = append(content, map[string]any{
					"type":  "tool_use",
					"id":    b.ToolCallID,
					"name":  b.ToolCallName,
					"input": input,
				})
			case chatmodel.BlockToolResult:
				// TOOL role content travels inside a user message per §4.3.
				wireRole = "user"
				content = append(content, map[string]any{
					"type":        "tool_result",
					"tool_use_id": b.ToolCallID,
					"content":     b.ToolResultContent,
					"is_error":    b.ToolResultIsError,
				})
			}
		}
		messages = append(messages, map[string]any{"role": wireRole, "content": content})
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
				"name":         t.Name,
				"description":  t.Description,
				"input_schema": schema,
			})
		}
		body["tools"] = tools

		switch req.ToolChoiceMode {
		case chatmodel.ToolChoiceNone:
			body["tool_choice"] = map[string]any{"type": "none"}
		case chatmodel.ToolChoiceRequired:
			body["tool_choice"] = map[string]any{"type": "any"}
		default:
			body["tool_choice"] = map[string]any{"type": "auto"}
		}
	}

	if budget := thinkingBudget(req.ThinkingLevel); budget > 0 {
		if maxTokens <= budget {
			body["max_tokens"] = budget + 1000
		}
		body["thinking"] = map[string]any{"type": "enabled", "budget_tokens": budget}
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return "", errs.New(errs.Parse, "failed to marshal request: %v", err)
	}
	return string(raw), nil
}

func (Provider) BuildURL(base, model, key string, stream bool) string {
	if base == "" {
		base = "https://api.anthropic.com"
	}
	return strings.TrimSuffix(base, "/") + "/v1/messages"
}

func (Provider) BuildHeaders(key string, stream bool) []string {
	headers := []string{
		"Content-Type: application/json",
		fmt.Sprintf("x-api-key: %s", key),
		"anthropic-version: 2023-06-01",
	}
	if stream {
		headers = append(headers, "Accept: text/event-stream")
	}
	return headers
}

// ParseResponse parses a non-streaming Messages JSON body.
func (Provider) ParseResponse(raw []byte) (chatmodel.Response, error) {
	var body struct {
		Model      string `json:"model"`
		StopReason string `json:"stop_reason"`
		Content    []struct {
			Type      string          `json:"type"`
			Text      string          `json:"text"`
			Signature string          `json:"signature"`
			Data      string          `json:"data"`
			ID        string          `json:"id"`
			Name      string          `json:"name"`
			Input     json.RawMessage `json:"input"`
		} `json:"content"`
		Usage struct {
			InputTokens              int `json:"input_tokens"`
			OutputTokens             int `json:"output_tokens"`
			CacheReadInputTokens     int `json:"cache_read_input_tokens"`
			CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return chatmodel.Response{}, errs.New(errs.Parse, "malformed messages response: %v", err)
	}

	var blocks []chatmodel.ContentBlock
	for _, c := range body.Content {
		switch c.Type {
		case "text":
			blocks = append(blocks, chatmodel.NewText(c.Text))
		case "thinking":
			blocks = append(blocks, chatmodel.NewThinking(c.Text, c.Signature))
		case "redacted_thinking":
			blocks = append(blocks, chatmodel.NewRedactedThinking(c.Data))
		case "tool_use":
			blocks = append(blocks, chatmodel.NewToolCall(c.ID, c.Name, string(c.Input)))
		}
	}

	return chatmodel.Response{
		Model:         body.Model,
		ContentBlocks: blocks,
		FinishReason:  chatmodel.NormalizeFinishReason(body.StopReason),
		Usage: chatmodel.Usage{
			InputTokens:  body.Usage.InputTokens,
			OutputTokens: body.Usage.OutputTokens,
			CachedTokens: body.Usage.CacheReadInputTokens,
			TotalTokens:  body.Usage.InputTokens + body.Usage.OutputTokens,
		},
	}, nil
}

// NewStreamContext returns a fresh per-request stream context.
func (Provider) NewStreamContext(sink provider.EventSink) provider.StreamContext {
	return &streamContext{sink: sink, framer: sse.NewFramer(), blockTypes: make(map[int]string), toolIDs: make(map[int]string)}
}

type streamContext struct {
	sink       provider.EventSink
	framer     *sse.Framer
	started    bool
	closed     bool
	blockTypes map[int]string
	toolIDs    map[int]string
}

type sseEvent struct {
	Type         string `json:"type"`
	Index        int    `json:"index"`
	ContentBlock *struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`
	Delta *struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		Thinking    string `json:"thinking"`
		Signature   string `json:"signature"`
		PartialJSON string `json:"partial_json"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta"`
	Message *struct {
		StopReason string `json:"stop_reason"`
		Usage      *struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	} `json:"message"`
	Usage *struct {
		OutputTokens int `json:"output_tokens"`
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

func (c *streamContext) handleEvent(raw string) {
	var data string
	for _, line := range strings.Split(raw, "\n") {
		if v, ok := strings.CutPrefix(line, "data: "); ok {
			data = v
		}
	}
	if data == "" {
		return
	}

	if !c.started {
		c.sink.Started()
		c.started = true
	}

	var evt sseEvent
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return
	}

	switch evt.Type {
	case "content_block_start":
		if evt.ContentBlock != nil {
			c.blockTypes[evt.Index] = evt.ContentBlock.Type
			if evt.ContentBlock.Type == "tool_use" {
				c.toolIDs[evt.Index] = evt.ContentBlock.ID
				c.sink.ToolCallDelta(evt.ContentBlock.ID, evt.ContentBlock.Name, "")
			}
		}
	case "content_block_delta":
		if evt.Delta == nil {
			return
		}
		switch evt.Delta.Type {
		case "text_delta":
			c.sink.Text(evt.Delta.Text)
		case "thinking_delta":
			c.sink.Thinking(evt.Delta.Thinking, "")
		case "signature_delta":
			c.sink.Thinking("", evt.Delta.Signature)
		case "input_json_delta":
			id := c.toolIDs[evt.Index]
			c.sink.ToolCallDelta(id, "", evt.Delta.PartialJSON)
		}
	case "message_delta":
		if evt.Delta != nil && evt.Delta.StopReason != "" {
			c.sink.FinishReason(chatmodel.NormalizeFinishReason(evt.Delta.StopReason))
		}
		if evt.Usage != nil {
			c.sink.Usage(chatmodel.Usage{OutputTokens: evt.Usage.OutputTokens})
		}
	case "message_stop":
		c.sink.Done()
	case "error":
		c.sink.Error(errs.New(errs.Server, "anthropic stream error: %s", data))
		c.sink.Done()
	}
}

func (c *streamContext) Close() {
	c.closed = true
}

var _ provider.Provider = Provider{}
