package provider

// APIFlavor distinguishes OpenAI's two incompatible HTTP surfaces; other
// providers have exactly one flavor each.
type APIFlavor string

const (
	FlavorAnthropic      APIFlavor = "anthropic"
	FlavorOpenAIChat     APIFlavor = "openai_chat"
	FlavorOpenAIResponse APIFlavor = "openai_responses"
	FlavorGoogle         APIFlavor = "google"
)

// ModelEntry is one row of the compiled-in model table: which provider
// and API flavor a model id belongs to, and the reasoning-effort
// vocabulary it accepts (empty for non-reasoning models, which reject any
// non-minimum thinking level).
type ModelEntry struct {
	Provider string
	Flavor   APIFlavor
	// ReasoningVocab, when non-empty, is the ordered vocabulary this model
	// maps spec.md's {MIN, LOW, MED, HIGH} thinking levels onto.
	ReasoningVocab []string
}

// Registry maps a model identifier to its provider/flavor/reasoning
// metadata. Grounded on common/models_dev.go + common/model_config.go's
// compiled-in data-table pattern: we keep the teacher's approach of a Go
// map literal rather than a models.dev-fetching runtime client, resolving
// spec.md §9's open question in favor of "compiled in", matching the
// original C source which also compiles its model table in.
type Registry struct {
	models map[string]ModelEntry
}

// NewRegistry returns a registry pre-populated with the model families
// spec.md §4.3 names by name.
func NewRegistry() *Registry {
	r := &Registry{models: make(map[string]ModelEntry)}
	for _, m := range []struct {
		id    string
		entry ModelEntry
	}{
		{"claude-opus-4-1", ModelEntry{Provider: "anthropic", Flavor: FlavorAnthropic,
			ReasoningVocab: []string{"budget"}}},
		{"claude-sonnet-4-5", ModelEntry{Provider: "anthropic", Flavor: FlavorAnthropic,
			ReasoningVocab: []string{"budget"}}},
		{"claude-haiku-4-5", ModelEntry{Provider: "anthropic", Flavor: FlavorAnthropic,
			ReasoningVocab: []string{"budget"}}},

		{"gpt-4o", ModelEntry{Provider: "openai", Flavor: FlavorOpenAIChat}},
		{"gpt-4o-mini", ModelEntry{Provider: "openai", Flavor: FlavorOpenAIChat}},

		{"o1", ModelEntry{Provider: "openai", Flavor: FlavorOpenAIResponse,
			ReasoningVocab: []string{"low", "medium", "high"}}},
		{"gpt-5", ModelEntry{Provider: "openai", Flavor: FlavorOpenAIResponse,
			ReasoningVocab: []string{"minimal", "low", "medium", "high"}}},
		{"gpt-5-pro", ModelEntry{Provider: "openai", Flavor: FlavorOpenAIResponse,
			ReasoningVocab: []string{"low", "medium", "high", "xhigh"}}},
		{"gpt-5.2-codex", ModelEntry{Provider: "openai", Flavor: FlavorOpenAIResponse,
			ReasoningVocab: []string{"minimal", "low", "medium", "high", "xhigh"}}},

		{"gemini-1.5-pro", ModelEntry{Provider: "google", Flavor: FlavorGoogle}},
		{"gemini-2.5-pro", ModelEntry{Provider: "google", Flavor: FlavorGoogle,
			ReasoningVocab: []string{"budget"}}},
		{"gemini-2.5-flash", ModelEntry{Provider: "google", Flavor: FlavorGoogle,
			ReasoningVocab: []string{"budget"}}},
		{"gemini-3-pro", ModelEntry{Provider: "google", Flavor: FlavorGoogle,
			ReasoningVocab: []string{"minimal", "low", "medium", "high"}}},
	} {
		r.models[m.id] = m.entry
	}
	return r
}

// Lookup returns the entry for a model id, or false if unknown.
func (r *Registry) Lookup(modelID string) (ModelEntry, bool) {
	e, ok := r.models[modelID]
	return e, ok
}

// ModelIDs returns every registered model id, used by the /model
// completion argument provider.
func (r *Registry) ModelIDs() []string {
	ids := make([]string, 0, len(r.models))
	for id := range r.models {
		ids = append(ids, id)
	}
	return ids
}

// IsReasoningModel reports whether a model accepts a non-minimum thinking
// level at all.
func (e ModelEntry) IsReasoningModel() bool {
	return len(e.ReasoningVocab) > 0
}

// EffortFor maps spec.md's provider-agnostic thinking level onto this
// model's own reasoning-effort vocabulary. Non-reasoning models and MIN
// always return ("", false) meaning no effort field should be sent.
func (e ModelEntry) EffortFor(level int) (string, bool) {
	if !e.IsReasoningModel() || level <= 0 {
		return "", false
	}
	// level: 1=LOW, 2=MED, 3=HIGH (0=MIN) mapped onto this model's
	// vocabulary, clamped to its range.
	idx := level - 1
	if idx < 0 {
		idx = 0
	}
	vocab := e.ReasoningVocab
	// Reasoning vocabularies are ordered low-to-high; LOW/MED/HIGH map
	// onto the last three entries, so in 4- and 5-entry vocabularies
	// the entries before those (such as a leading "minimal") are never
	// selected.
	offset := 0
	if len(vocab) > 3 {
		offset = len(vocab) - 3
	}
	pos := offset + idx
	if pos >= len(vocab) {
		pos = len(vocab) - 1
	}
	return vocab[pos], true
}
