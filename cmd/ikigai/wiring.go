package main

import (
	"fmt"

	"github.com/ikigai-cli/ikigai/internal/chatmodel"
	"github.com/ikigai-cli/ikigai/internal/provider"
	"github.com/ikigai-cli/ikigai/internal/provider/anthropic"
	"github.com/ikigai-cli/ikigai/internal/provider/google"
	"github.com/ikigai-cli/ikigai/internal/provider/openaichat"
	"github.com/ikigai-cli/ikigai/internal/provider/openairesp"
)

// selectProvider resolves the wire adapter for a model entry, plumbing
// the model's reasoning-effort vocabulary (resolved by EffortFor) into
// the flavor-specific Provider value. Grounded on SPEC_FULL.md §4.3's
// Model Registry -> per-provider Serializer handoff.
func selectProvider(entry provider.ModelEntry, thinking chatmodel.ThinkingLevel) (provider.Provider, error) {
	switch entry.Flavor {
	case provider.FlavorAnthropic:
		return anthropic.Provider{}, nil
	case provider.FlavorOpenAIChat:
		return openaichat.Provider{}, nil
	case provider.FlavorOpenAIResponse:
		effort, _ := entry.EffortFor(int(thinking))
		return openairesp.Provider{Effort: effort}, nil
	case provider.FlavorGoogle:
		return google.Provider{Thinking: googleThinkingVocab(entry)}, nil
	default:
		return nil, fmt.Errorf("unknown provider flavor %q", entry.Flavor)
	}
}

// googleThinkingVocab distinguishes Gemini 2.5's integer thinkingBudget
// from Gemini 3+'s string thinkingLevel by inspecting the registry's
// reasoning vocabulary for this model: a vocabulary containing "budget"
// means the integer-budget flavor, a vocabulary of named levels means
// the string-level flavor, and no vocabulary means thinking is rejected.
func googleThinkingVocab(entry provider.ModelEntry) google.ThinkingVocab {
	for _, v := range entry.ReasoningVocab {
		if v == "budget" {
			return google.ThinkingVocabBudget
		}
	}
	if len(entry.ReasoningVocab) > 0 {
		return google.ThinkingVocabLevel
	}
	return google.ThinkingVocabNone
}

// credentialProvider maps a registry provider name to the credential-
// resolver provider key used by internal/config.
func credentialProvider(registryProvider string) string {
	return registryProvider
}
