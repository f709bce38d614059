package agent

import (
	"testing"

	"github.com/ikigai-cli/ikigai/internal/chatmodel"
	"github.com/stretchr/testify/require"
)

func newTestAgent() *Agent {
	return NewRoot("openai", "gpt-4o", chatmodel.ThinkingMin)
}

func addUserMessage(t *testing.T, a *Agent, text string) int {
	t.Helper()
	idx, err := a.AppendMessage(chatmodel.Message{
		Role:          chatmodel.RoleUser,
		ContentBlocks: []chatmodel.ContentBlock{chatmodel.NewText(text)},
	})
	require.NoError(t, err)
	return idx
}

func TestForkInheritsPrefixAndStartsIndependent(t *testing.T) {
	parent := newTestAgent()
	addUserMessage(t, parent, "one")
	addUserMessage(t, parent, "two")
	forkAt := addUserMessage(t, parent, "three")
	addUserMessage(t, parent, "four") // parent continues after the fork point

	child, err := parent.Fork(forkAt, nil)
	require.NoError(t, err)

	require.Len(t, child.Messages, 3)
	require.Equal(t, parent.Messages[:3], child.Messages)
	require.Equal(t, parent.ID, child.ParentID)
	require.Equal(t, forkAt, child.ForkMessageID)
	require.Equal(t, parent.Provider, child.Provider)
	require.Equal(t, parent.Model, child.Model)

	addUserMessage(t, child, "child only")
	require.Len(t, parent.Messages, 4)
	require.Len(t, child.Messages, 4)
}

func TestForkWithOverrideDeepCopiesProviderConfig(t *testing.T) {
	parent := newTestAgent()
	parent.ThinkingLevel = chatmodel.ThinkingHigh
	forkAt := addUserMessage(t, parent, "hi")

	override := &ModelOverride{Provider: "anthropic", Model: "claude-sonnet-4-5", ThinkingLevel: chatmodel.ThinkingMed, HasThinking: true}
	child, err := parent.Fork(forkAt, override)
	require.NoError(t, err)

	require.Equal(t, "anthropic", child.Provider)
	require.Equal(t, "claude-sonnet-4-5", child.Model)
	require.Equal(t, chatmodel.ThinkingMed, child.ThinkingLevel)
	require.Equal(t, "openai", parent.Provider)
	require.Equal(t, chatmodel.ThinkingHigh, parent.ThinkingLevel)
}

func TestRewindByLabelTruncatesAndInvalidatesLaterMarks(t *testing.T) {
	a := newTestAgent()
	addUserMessage(t, a, "one")
	require.NoError(t, a.Mark("checkpoint"))
	addUserMessage(t, a, "two")
	require.NoError(t, a.Mark("later"))
	addUserMessage(t, a, "three")

	require.NoError(t, a.Rewind("checkpoint"))
	require.Len(t, a.Messages, 1)
	_, stillThere := a.Marks["checkpoint"]
	require.True(t, stillThere)
	_, laterStillThere := a.Marks["later"]
	require.False(t, laterStillThere)
}

func TestRewindByNTruncatesThroughNthUserMessage(t *testing.T) {
	a := newTestAgent()
	addUserMessage(t, a, "one")
	addUserMessage(t, a, "two")
	addUserMessage(t, a, "three")

	require.NoError(t, a.RewindN(2))
	require.Len(t, a.Messages, 2)
}

func TestRewindUnknownLabelErrors(t *testing.T) {
	a := newTestAgent()
	addUserMessage(t, a, "one")
	require.Error(t, a.Rewind("nope"))
}

func TestMarkRequiresMessages(t *testing.T) {
	a := newTestAgent()
	require.Error(t, a.Mark("x"))
}

func TestPinIsIdempotentAndOrdered(t *testing.T) {
	a := newTestAgent()
	require.NoError(t, a.Pin("a.go"))
	require.NoError(t, a.Pin("b.go"))
	require.NoError(t, a.Pin("a.go"))
	require.Equal(t, []string{"a.go", "b.go"}, a.Pins)
}

func TestUnpinRemovesPath(t *testing.T) {
	a := newTestAgent()
	require.NoError(t, a.Pin("a.go"))
	require.NoError(t, a.Unpin("a.go"))
	require.Empty(t, a.Pins)
	require.Error(t, a.Unpin("a.go"))
}

func TestClearOmitsPriorMessagesFromActiveView(t *testing.T) {
	a := newTestAgent()
	addUserMessage(t, a, "one")
	addUserMessage(t, a, "two")
	a.Clear()
	addUserMessage(t, a, "three")

	require.Len(t, a.Messages, 3)
	require.Len(t, a.ActiveMessages(), 1)
	require.Equal(t, "three", a.ActiveMessages()[0].ContentBlocks[0].Text)
}
