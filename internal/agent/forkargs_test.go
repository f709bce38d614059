package agent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseForkArgsEmpty(t *testing.T) {
	args, err := ParseForkArgs("")
	require.NoError(t, err)
	require.Equal(t, ForkArgs{}, args)
}

func TestParseForkArgsModelThenPrompt(t *testing.T) {
	args, err := ParseForkArgs(`--model gpt-5 "hi there"`)
	require.NoError(t, err)
	require.Equal(t, "gpt-5", args.Model)
	require.Equal(t, "hi there", args.Prompt)
}

func TestParseForkArgsPromptThenModel(t *testing.T) {
	args, err := ParseForkArgs(`"hi there" --model gpt-5`)
	require.NoError(t, err)
	require.Equal(t, "gpt-5", args.Model)
	require.Equal(t, "hi there", args.Prompt)
}

func TestParseForkArgsModelOnly(t *testing.T) {
	args, err := ParseForkArgs(`--model claude-sonnet-4-5/med`)
	require.NoError(t, err)
	require.Equal(t, "claude-sonnet-4-5/med", args.Model)
	require.Empty(t, args.Prompt)
}

func TestParseForkArgsRejectsBareToken(t *testing.T) {
	_, err := ParseForkArgs(`hello`)
	require.Error(t, err)
}

func TestParseForkArgsRejectsModelWithNoValue(t *testing.T) {
	_, err := ParseForkArgs(`--model`)
	require.Error(t, err)
}

func TestParseForkArgsRejectsModelFollowedByQuote(t *testing.T) {
	_, err := ParseForkArgs(`--model "prompt"`)
	require.Error(t, err)
}

func TestParseForkArgsRejectsUnterminatedQuote(t *testing.T) {
	_, err := ParseForkArgs(`"unterminated`)
	require.Error(t, err)
}
