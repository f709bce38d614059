// Package google implements the Google Generative Language wire protocol
// (Gemini). Grounded on llm2/google_provider.go's role/content mapping
// (assistant -> "model", functionCall/functionResponse parts,
// thoughtSignature echoing), with serialization and streaming hand-rolled
// for the reasons given in internal/provider/openaichat's package doc.
package google

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ikigai-cli/ikigai/internal/chatmodel"
	"github.com/ikigai-cli/ikigai/internal/errs"
	"github.com/ikigai-cli/ikigai/internal/provider"
	"github.com/ikigai-cli/ikigai/internal/sse"
)

// ThinkingVocab distinguishes Gemini 2.5's integer thinkingBudget from
// Gemini 3+'s string thinkingLevel, per spec.md §4.3.
type ThinkingVocab int

const (
	ThinkingVocabNone ThinkingVocab = iota
	ThinkingVocabBudget
	ThinkingVocabLevel
)

// Provider implements provider.Provider for the Generative Language API.
type Provider struct {
	Thinking ThinkingVocab
}

func budgetFor(level chatmodel.ThinkingLevel) int {
	switch level {
	case chatmodel.ThinkingLow:
		return 2000
	case chatmodel.ThinkingMed:
		return 8000
	case chatmodel.ThinkingHigh:
		return 24000
	default:
		return 0
	}
}

func levelFor(level chatmodel.ThinkingLevel) string {
	switch level {
	case chatmodel.ThinkingLow:
		return "low"
	case chatmodel.ThinkingMed:
		return "medium"
	case chatmodel.ThinkingHigh:
		return "high"
	default:
		return "minimal"
	}
}

// Serialize builds the JSON body for a generateContent/streamGenerateContent request.
func (p Provider) Serialize(req chatmodel.Request, stream bool) (string, error) {
	if req.Model == "" {
		return "", errs.New(errs.InvalidArg, "model is required")
	}

	body := map[string]any{}
	if req.SystemPrompt != "" {
		body["systemInstruction"] = map[string]any{
			"parts": []map[string]any{{"text": req.SystemPrompt}},
		}
	}

	var contents []map[string]any
	for _, m := range req.Messages {
		wireRole := "user"
		if m.Role == chatmodel.RoleAssistant {
			wireRole = "model"
		}

		var parts []map[string]any
		for _, b := range m.ContentBlocks {
			switch b.Type {
			case chatmodel.BlockText:
				parts = append(parts, map[string]any{"text": b.Text})
			case chatmodel.BlockThinking:
				part := map[string]any{"text": b.Text, "thought": true}
				if b.ThinkingSignature != "" {
					part["thoughtSignature"] = b.ThinkingSignature
				}
				parts = append(parts, part)
			case chatmodel.BlockToolCall:
				var args any
				if b.ToolCallArguments != "" {
					if err := json.Unmarshal([]byte(b.ToolCallArguments), &args); err != nil {
						return "", errs.New(errs.Parse, "tool_call %q has invalid arguments JSON: %v", b.ToolCallID, err)
					}
				}
				parts = append(parts, map[string]any{
					"functionCall": map[string]any{"name": b.ToolCallName, "args": args},
				})
			case chatmodel.BlockToolResult:
				parts = append(parts, map[string]any{
					"functionResponse": map[string]any{
						"name":     b.ToolCallID,
						"response": map[string]any{"content": b.ToolResultContent},
					},
				})
			}
		}
		contents = append(contents, map[string]any{"role": wireRole, "parts": parts})
	}
	body["contents"] = contents

	if len(req.Tools) > 0 {
		var decls []map[string]any
		for _, t := range req.Tools {
			var schema any
			if t.JSONSchema != "" {
				if err := json.Unmarshal([]byte(t.JSONSchema), &schema); err != nil {
					return "", errs.New(errs.Parse, "tool %q has invalid json_schema: %v", t.Name, err)
				}
			}
			decls = append(decls, map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  schema,
			})
		}
		body["tools"] = []map[string]any{{"functionDeclarations": decls}}

		mode := "AUTO"
		switch req.ToolChoiceMode {
		case chatmodel.ToolChoiceNone:
			mode = "NONE"
		case chatmodel.ToolChoiceRequired:
			mode = "ANY"
		}
		body["toolConfig"] = map[string]any{"functionCallingConfig": map[string]any{"mode": mode}}
	}

	genConfig := map[string]any{}
	if req.MaxOutputTokens > 0 {
		genConfig["maxOutputTokens"] = req.MaxOutputTokens
	}
	switch p.Thinking {
	case ThinkingVocabBudget:
		if budget := budgetFor(req.ThinkingLevel); budget > 0 {
			genConfig["thinkingConfig"] = map[string]any{"thinkingBudget": budget}
		}
	case ThinkingVocabLevel:
		genConfig["thinkingConfig"] = map[string]any{"thinkingLevel": levelFor(req.ThinkingLevel)}
	default:
		if req.ThinkingLevel != chatmodel.ThinkingMin {
			return "", errs.New(errs.InvalidArg, "model %q does not support a thinking level", req.Model)
		}
	}
	if len(genConfig) > 0 {
		body["generationConfig"] = genConfig
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return "", errs.New(errs.Parse, "failed to marshal request: %v", err)
	}
	return string(raw), nil
}

func (Provider) BuildURL(base, model, key string, stream bool) string {
	if base == "" {
		base = "https://generativelanguage.googleapis.com"
	}
	method := "generateContent"
	suffix := ""
	if stream {
		method = "streamGenerateContent"
		suffix = "&alt=sse"
	}
	return fmt.Sprintf("%s/v1beta/models/%s:%s?key=%s%s", strings.TrimSuffix(base, "/"), model, method, key, suffix)
}

func (Provider) BuildHeaders(key string, stream bool) []string {
	return []string{"Content-Type: application/json"}
}

// ParseResponse parses a non-streaming generateContent JSON body.
func (Provider) ParseResponse(raw []byte) (chatmodel.Response, error) {
	var body struct {
		Candidates []struct {
			FinishReason string `json:"finishReason"`
			Content      struct {
				Parts []struct {
					Text             string `json:"text"`
					Thought          bool   `json:"thought"`
					ThoughtSignature string `json:"thoughtSignature"`
					FunctionCall     *struct {
						Name string          `json:"name"`
						Args json.RawMessage `json:"args"`
					} `json:"functionCall"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
			TotalTokenCount      int `json:"totalTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return chatmodel.Response{}, errs.New(errs.Parse, "malformed generateContent response: %v", err)
	}
	if len(body.Candidates) == 0 {
		return chatmodel.Response{}, errs.New(errs.Parse, "generateContent response has no candidates")
	}

	cand := body.Candidates[0]
	var blocks []chatmodel.ContentBlock
	for _, part := range cand.Content.Parts {
		switch {
		case part.FunctionCall != nil:
			blocks = append(blocks, chatmodel.NewToolCall("", part.FunctionCall.Name, string(part.FunctionCall.Args)))
		case part.Thought:
			blocks = append(blocks, chatmodel.NewThinking(part.Text, part.ThoughtSignature))
		default:
			blocks = append(blocks, chatmodel.NewText(part.Text))
		}
	}

	return chatmodel.Response{
		ContentBlocks: blocks,
		FinishReason:  normalizeGeminiFinish(cand.FinishReason),
		Usage: chatmodel.Usage{
			InputTokens:  body.UsageMetadata.PromptTokenCount,
			OutputTokens: body.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  body.UsageMetadata.TotalTokenCount,
		},
	}, nil
}

func normalizeGeminiFinish(raw string) chatmodel.FinishReason {
	switch raw {
	case "STOP":
		return chatmodel.FinishStop
	case "MAX_TOKENS":
		return chatmodel.FinishLength
	case "SAFETY", "RECITATION":
		return chatmodel.FinishContentFilter
	default:
		return chatmodel.FinishUnknown
	}
}

// NewStreamContext returns a fresh per-request stream context.
func (Provider) NewStreamContext(sink provider.EventSink) provider.StreamContext {
	return &streamContext{sink: sink, framer: sse.NewFramer()}
}

type streamContext struct {
	sink    provider.EventSink
	framer  *sse.Framer
	started bool
}

type geminiChunk struct {
	Candidates []struct {
		FinishReason string `json:"finishReason"`
		Content      struct {
			Parts []struct {
				Text             string `json:"text"`
				Thought          bool   `json:"thought"`
				ThoughtSignature string `json:"thoughtSignature"`
				FunctionCall     *struct {
					Name string          `json:"name"`
					Args json.RawMessage `json:"args"`
				} `json:"functionCall"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
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

	var chunkData geminiChunk
	if err := json.Unmarshal([]byte(data), &chunkData); err != nil {
		return
	}

	if chunkData.UsageMetadata != nil {
		c.sink.Usage(chatmodel.Usage{
			InputTokens:  chunkData.UsageMetadata.PromptTokenCount,
			OutputTokens: chunkData.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  chunkData.UsageMetadata.TotalTokenCount,
		})
	}

	if len(chunkData.Candidates) == 0 {
		return
	}
	cand := chunkData.Candidates[0]

	for _, part := range cand.Content.Parts {
		switch {
		case part.FunctionCall != nil:
			c.sink.ToolCallDelta("", part.FunctionCall.Name, string(part.FunctionCall.Args))
		case part.Thought:
			c.sink.Thinking(part.Text, part.ThoughtSignature)
		default:
			c.sink.Text(part.Text)
		}
	}

	if cand.FinishReason != "" {
		c.sink.FinishReason(normalizeGeminiFinish(cand.FinishReason))
		c.sink.Done()
	}
}

func (c *streamContext) Close() {}

var _ provider.Provider = Provider{}
