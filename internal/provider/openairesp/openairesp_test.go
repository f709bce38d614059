package openairesp

import (
	"testing"

	"github.com/ikigai-cli/ikigai/internal/chatmodel"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	text      string
	toolName  string
	toolArgs  string
	finish    chatmodel.FinishReason
	usage     chatmodel.Usage
	doneCount int
}

func (s *recordingSink) Started()                  {}
func (s *recordingSink) Text(delta string)         { s.text += delta }
func (s *recordingSink) Thinking(delta, sig string) {}
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

func TestStreamTextAndFunctionCall(t *testing.T) {
	sink := &recordingSink{}
	ctx := Provider{}.NewStreamContext(sink)

	events := "" +
		`data: {"type":"response.output_text.delta","delta":"Hi"}` + "\n\n" +
		`data: {"type":"response.output_item.added","item":{"type":"function_call","call_id":"call_1","name":"file_read"}}` + "\n\n" +
		`data: {"type":"response.function_call_arguments.delta","call_id":"call_1","delta":"{\"path\":\"a.txt\"}"}` + "\n\n" +
		`data: {"type":"response.function_call_arguments.done","call_id":"call_1"}` + "\n\n" +
		`data: {"type":"response.completed","response":{"status":"completed","usage":{"input_tokens":5,"output_tokens":3,"total_tokens":8}}}` + "\n\n"

	ctx.Feed([]byte(events))

	require.Equal(t, "Hi", sink.text)
	require.Equal(t, "file_read", sink.toolName)
	require.Equal(t, `{"path":"a.txt"}`, sink.toolArgs)
	require.Equal(t, chatmodel.FinishToolCalls, sink.finish)
	require.Equal(t, 1, sink.doneCount)
}

func TestSerializeWithEffort(t *testing.T) {
	req := chatmodel.Request{Model: "gpt-5"}
	require.NoError(t, req.SetThinking(chatmodel.ThinkingHigh))
	body, err := Provider{Effort: "high"}.Serialize(req, false)
	require.NoError(t, err)
	require.Contains(t, body, `"effort":"high"`)
}

func TestSerializeRejectsThinkingWithoutEffort(t *testing.T) {
	req := chatmodel.Request{Model: "gpt-4o"}
	require.NoError(t, req.SetThinking(chatmodel.ThinkingHigh))
	_, err := Provider{}.Serialize(req, false)
	require.Error(t, err)
}

func TestParseResponseFunctionCall(t *testing.T) {
	raw := []byte(`{"model":"gpt-5","status":"completed","output":[{"type":"function_call","call_id":"call_1","name":"file_read","arguments":"{}"}],"usage":{"input_tokens":1,"output_tokens":1,"total_tokens":2}}`)
	resp, err := Provider{}.ParseResponse(raw)
	require.NoError(t, err)
	require.Equal(t, chatmodel.FinishToolCalls, resp.FinishReason)
	require.Equal(t, "file_read", resp.ContentBlocks[0].ToolCallName)
}
