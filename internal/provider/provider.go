// Package provider defines the shared contract every wire adapter
// (anthropic, openaichat, openairesp, google) implements: request
// serialization, URL/header construction, and a streaming pipeline that
// drives an internal/sse.Framer and emits delta events to a caller-
// supplied sink. Grounded on llm2/provider.go's single-method Provider
// interface, generalized to the from-scratch serializer/stream-context
// split spec.md requires the core to own.
package provider

import "github.com/ikigai-cli/ikigai/internal/chatmodel"

// Provider serializes requests and builds the transport details for one
// wire protocol (Anthropic Messages, OpenAI Chat Completions, OpenAI
// Responses, or Google Generative Language).
type Provider interface {
	Serialize(req chatmodel.Request, stream bool) (string, error)
	BuildURL(base, model, key string, stream bool) string
	BuildHeaders(key string, stream bool) []string
	ParseResponse(body []byte) (chatmodel.Response, error)
	NewStreamContext(sink EventSink) StreamContext
}

// StreamContext drives one in-flight streaming request: Feed is called
// by the event loop with raw bytes as they arrive off the wire; it
// internally frames SSE events and emits deltas to the sink synchronously
// (the sink must not block). Close releases any resources the context
// holds; it is always safe to call once Feed has returned Done.
type StreamContext interface {
	Feed(chunk []byte)
	Close()
}

// EventSink receives the streaming pipeline's delta events from
// spec.md §4.4 step 4: block start, text/thinking/tool-call deltas,
// finish reason, usage, error, and a terminal Done that always fires
// (even after Error) so the caller can clean up.
type EventSink interface {
	Started()
	Text(delta string)
	Thinking(delta string, signature string)
	ToolCallDelta(id, name, argsFragment string)
	FinishReason(fr chatmodel.FinishReason)
	Usage(u chatmodel.Usage)
	Error(err error)
	Done()
}
