package anthropic

import (
	"testing"

	"github.com/ikigai-cli/ikigai/internal/chatmodel"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	text      string
	thinking  string
	signature string
	toolName  string
	toolArgs  string
	finish    chatmodel.FinishReason
	usage     chatmodel.Usage
	doneCount int
}

func (s *recordingSink) Started()                    {}
func (s *recordingSink) Text(delta string)           { s.text += delta }
func (s *recordingSink) Thinking(delta, sig string)   { s.thinking += delta; s.signature += sig }
func (s *recordingSink) ToolCallDelta(id, name, args string) {
	if name != "" {
		s.toolName = name
	}
	s.toolArgs += args
}
func (s *recordingSink) FinishReason(fr chatmodel.FinishReason) { s.finish = fr }
func (s *recordingSink) Usage(u chatmodel.Usage)                { s.usage = u }
func (s *recordingSink) Error(err error)                        {}
func (s *recordingSink) Done()                                  { s.doneCount++ }

func TestStreamTextAndToolUse(t *testing.T) {
	sink := &recordingSink{}
	ctx := Provider{}.NewStreamContext(sink)

	events := "" +
		`event: content_block_start` + "\n" + `data: {"type":"content_block_start","index":0,"content_block":{"type":"text"}}` + "\n\n" +
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi"}}` + "\n\n" +
		`data: {"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"file_read"}}` + "\n\n" +
		`data: {"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"path\":\"a.txt\"}"}}` + "\n\n" +
		`data: {"type":"message_delta","delta":{"stop_reason":"tool_use"},"usage":{"output_tokens":12}}` + "\n\n" +
		`data: {"type":"message_stop"}` + "\n\n"

	ctx.Feed([]byte(events))

	require.Equal(t, "Hi", sink.text)
	require.Equal(t, "file_read", sink.toolName)
	require.Equal(t, `{"path":"a.txt"}`, sink.toolArgs)
	require.Equal(t, chatmodel.FinishToolCalls, sink.finish)
	require.Equal(t, 12, sink.usage.OutputTokens)
	require.Equal(t, 1, sink.doneCount)
}

func TestThinkingSignatureEchoed(t *testing.T) {
	sink := &recordingSink{}
	ctx := Provider{}.NewStreamContext(sink)
	events := "" +
		`data: {"type":"content_block_start","index":0,"content_block":{"type":"thinking"}}` + "\n\n" +
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"pondering"}}` + "\n\n" +
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"signature_delta","signature":"sig123"}}` + "\n\n"
	ctx.Feed([]byte(events))
	require.Equal(t, "pondering", sink.thinking)
	require.Equal(t, "sig123", sink.signature)
}

func TestSerializeIncludesThinkingBudget(t *testing.T) {
	req := chatmodel.Request{Model: "claude-sonnet-4-5"}
	require.NoError(t, req.SetThinking(chatmodel.ThinkingHigh))
	body, err := Provider{}.Serialize(req, false)
	require.NoError(t, err)
	require.Contains(t, body, `"budget_tokens":20000`)
}

func TestSerializeToolResultGoesInUserRole(t *testing.T) {
	req := chatmodel.Request{Model: "claude-sonnet-4-5"}
	require.NoError(t, req.AddMessage(chatmodel.Message{
		Role:          chatmodel.RoleTool,
		ContentBlocks: []chatmodel.ContentBlock{chatmodel.NewToolResult("toolu_1", "42", false)},
	}))
	body, err := Provider{}.Serialize(req, false)
	require.NoError(t, err)
	require.Contains(t, body, `"role":"user"`)
	require.Contains(t, body, `"tool_result"`)
}

func TestBuildHeadersIncludesVersion(t *testing.T) {
	headers := Provider{}.BuildHeaders("sk-ant-test", true)
	require.Contains(t, headers, "anthropic-version: 2023-06-01")
}

func TestParseResponseNonStreaming(t *testing.T) {
	raw := []byte(`{"model":"claude-sonnet-4-5","stop_reason":"end_turn","content":[{"type":"text","text":"hi"}],"usage":{"input_tokens":3,"output_tokens":2}}`)
	resp, err := Provider{}.ParseResponse(raw)
	require.NoError(t, err)
	require.Equal(t, chatmodel.FinishStop, resp.FinishReason)
	require.Equal(t, "hi", resp.ContentBlocks[0].Text)
}
