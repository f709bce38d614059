// Package openairesp implements the OpenAI Responses wire protocol, used
// by reasoning-capable model families (o1, gpt-5, ...) that expose
// server-side reasoning via a "reasoning.effort" field rather than
// streamed thinking content. Grounded on
// llm2/openai_responses_provider.go's role/content mapping idiom, with
// serialization and streaming hand-rolled for the same reasons given in
// internal/provider/openaichat's package doc.
package openairesp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ikigai-cli/ikigai/internal/chatmodel"
	"github.com/ikigai-cli/ikigai/internal/errs"
	"github.com/ikigai-cli/ikigai/internal/provider"
	"github.com/ikigai-cli/ikigai/internal/sse"
)

// Provider implements provider.Provider for the OpenAI Responses API.
type Provider struct {
	// Effort, when non-empty, is sent as reasoning.effort (resolved by the
	// caller from the Model Registry's per-model vocabulary).
	Effort string
}

// Serialize builds the JSON body for a Responses request.
func (p Provider) Serialize(req chatmodel.Request, stream bool) (string, error) {
	if req.Model == "" {
		return "", errs.New(errs.InvalidArg, "model is required")
	}

	body := map[string]any{
		"model":  req.Model,
		"stream": stream,
	}
	if req.SystemPrompt != "" {
		body["instructions"] = req.SystemPrompt
	}

	var input []map[string]any
	for _, m := range req.Messages {
		wireRole := "user"
		if m.Role == chatmodel.RoleAssistant {
			wireRole = "assistant"
		}
		for _, b := range m.ContentBlocks {
			switch b.Type {
			case chatmodel.BlockText:
				input = append(input, map[string]any{
					"role":    wireRole,
					"content": []map[string]any{{"type": "input_text", "text": b.Text}},
				})
			case chatmodel.BlockToolCall:
				input = append(input, map[string]any{
					"type":      "function_call",
					"call_id":   b.ToolCallID,
					"name":      b.ToolCallName,
					"arguments": b.ToolCallArguments,
				})
			case chatmodel.BlockToolResult:
				input = append(input, map[string]any{
					"type":    "function_call_output",
					"call_id": b.ToolCallID,
					"output":  b.ToolResultContent,
				})
			}
		}
	}
	body["input"] = input

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
				"type":        "function",
				"name":        t.Name,
				"description": t.Description,
				"parameters":  schema,
			})
		}
		body["tools"] = tools
		switch req.ToolChoiceMode {
		case chatmodel.ToolChoiceNone:
			body["tool_choice"] = "none"
		case chatmodel.ToolChoiceRequired:
			body["tool_choice"] = "required"
		default:
			body["tool_choice"] = "auto"
		}
	}

	if p.Effort != "" {
		body["reasoning"] = map[string]any{"effort": p.Effort}
	} else if req.ThinkingLevel != chatmodel.ThinkingMin {
		return "", errs.New(errs.InvalidArg, "model %q does not support a reasoning effort", req.Model)
	}

	if req.MaxOutputTokens > 0 {
		body["max_output_tokens"] = req.MaxOutputTokens
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
	return strings.TrimSuffix(base, "/") + "/v1/responses"
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

// ParseResponse parses a non-streaming Responses JSON body.
func (Provider) ParseResponse(raw []byte) (chatmodel.Response, error) {
	var body struct {
		Model  string `json:"model"`
		Status string `json:"status"`
		Output []struct {
			Type      string `json:"type"`
			CallID    string `json:"call_id"`
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
			Content   []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
			TotalTokens  int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return chatmodel.Response{}, errs.New(errs.Parse, "malformed responses body: %v", err)
	}

	var blocks []chatmodel.ContentBlock
	for _, item := range body.Output {
		switch item.Type {
		case "message":
			for _, c := range item.Content {
				if c.Type == "output_text" {
					blocks = append(blocks, chatmodel.NewText(c.Text))
				}
			}
		case "function_call":
			blocks = append(blocks, chatmodel.NewToolCall(item.CallID, item.Name, item.Arguments))
		}
	}

	finish := chatmodel.FinishStop
	if body.Status != "completed" && body.Status != "" {
		finish = chatmodel.FinishUnknown
	}
	for _, b := range blocks {
		if b.Type == chatmodel.BlockToolCall {
			finish = chatmodel.FinishToolCalls
			break
		}
	}

	return chatmodel.Response{
		Model:         body.Model,
		ContentBlocks: blocks,
		FinishReason:  finish,
		Usage: chatmodel.Usage{
			InputTokens:  body.Usage.InputTokens,
			OutputTokens: body.Usage.OutputTokens,
			TotalTokens:  body.Usage.TotalTokens,
		},
	}, nil
}

// NewStreamContext returns a fresh per-request stream context.
func (Provider) NewStreamContext(sink provider.EventSink) provider.StreamContext {
	return &streamContext{sink: sink, framer: sse.NewFramer(), toolNames: make(map[string]string)}
}

type streamContext struct {
	sink      provider.EventSink
	framer    *sse.Framer
	started   bool
	toolNames map[string]string
	// sawToolCall keeps a later response.completed from overriding the
	// TOOL_CALLS finish reason with STOP.
	sawToolCall bool
}

type respEvent struct {
	Type string `json:"type"`
	Item *struct {
		Type   string `json:"type"`
		CallID string `json:"call_id"`
		Name   string `json:"name"`
	} `json:"item"`
	Delta    string `json:"delta"`
	CallID   string `json:"call_id"`
	Response *struct {
		Status string `json:"status"`
		Usage  *struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
			TotalTokens  int `json:"total_tokens"`
		} `json:"usage"`
	} `json:"response"`
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

	var evt respEvent
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return
	}

	switch evt.Type {
	case "response.output_item.added":
		if evt.Item != nil && evt.Item.Type == "function_call" {
			c.toolNames[evt.Item.CallID] = evt.Item.Name
			c.sink.ToolCallDelta(evt.Item.CallID, evt.Item.Name, "")
		}
	case "response.output_text.delta":
		c.sink.Text(evt.Delta)
	case "response.function_call_arguments.delta":
		c.sink.ToolCallDelta(evt.CallID, "", evt.Delta)
	case "response.function_call_arguments.done":
		c.sawToolCall = true
		c.sink.FinishReason(chatmodel.FinishToolCalls)
	case "response.completed":
		if evt.Response != nil {
			if evt.Response.Status == "completed" && !c.sawToolCall {
				c.sink.FinishReason(chatmodel.FinishStop)
			}
			if evt.Response.Usage != nil {
				c.sink.Usage(chatmodel.Usage{
					InputTokens:  evt.Response.Usage.InputTokens,
					OutputTokens: evt.Response.Usage.OutputTokens,
					TotalTokens:  evt.Response.Usage.TotalTokens,
				})
			}
		}
		c.sink.Done()
	case "error":
		c.sink.Error(errs.New(errs.Server, "openai responses stream error: %s", data))
		c.sink.Done()
	}
}

func (c *streamContext) Close() {}

var _ provider.Provider = Provider{}
