package provider

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupKnownModel(t *testing.T) {
	r := NewRegistry()
	e, ok := r.Lookup("claude-sonnet-4-5")
	require.True(t, ok)
	require.Equal(t, "anthropic", e.Provider)
	require.Equal(t, FlavorAnthropic, e.Flavor)
	require.True(t, e.IsReasoningModel())
}

func TestLookupUnknownModel(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup("not-a-real-model")
	require.False(t, ok)
}

func TestReasoningModelEffortMapping(t *testing.T) {
	r := NewRegistry()
	e, ok := r.Lookup("gpt-5")
	require.True(t, ok)
	require.True(t, e.IsReasoningModel())

	_, sendMin := e.EffortFor(0)
	require.False(t, sendMin)

	low, ok := e.EffortFor(1)
	require.True(t, ok)
	require.Equal(t, "low", low)

	high, ok := e.EffortFor(3)
	require.True(t, ok)
	require.Equal(t, "high", high)
}

func TestNonReasoningModelRejectsEffort(t *testing.T) {
	r := NewRegistry()
	e, ok := r.Lookup("gpt-4o")
	require.True(t, ok)
	require.False(t, e.IsReasoningModel())
	_, send := e.EffortFor(2)
	require.False(t, send)
}

func TestModelIDsNonEmpty(t *testing.T) {
	r := NewRegistry()
	require.NotEmpty(t, r.ModelIDs())
}
