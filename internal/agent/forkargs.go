package agent

import (
	"strings"

	"github.com/ikigai-cli/ikigai/internal/errs"
)

// ForkArgs is the parsed result of a /fork command line.
type ForkArgs struct {
	Model  string // empty if no --model flag
	Prompt string // empty if no quoted prompt
}

// ParseForkArgs parses /fork's arguments, grounded token-for-token on
// original_source/src/commands_fork_args.c's cmd_fork_parse_args: tokens
// may appear in either order, --model requires a non-empty unquoted
// value, and the prompt must be quoted.
func ParseForkArgs(input string) (ForkArgs, error) {
	var out ForkArgs

	p := strings.TrimLeft(input, " \t")
	for p != "" {
		switch {
		case strings.HasPrefix(p, "--model") && len(p) > len("--model") && (p[7] == ' ' || p[7] == '\t'):
			p = strings.TrimLeft(p[7:], " \t")
			if p == "" {
				return ForkArgs{}, errs.New(errs.InvalidArg, "--model requires an argument")
			}
			end := 0
			for end < len(p) && p[end] != ' ' && p[end] != '\t' && p[end] != '"' {
				end++
			}
			if end == 0 {
				return ForkArgs{}, errs.New(errs.InvalidArg, "--model requires an argument")
			}
			out.Model = p[:end]
			p = p[end:]

		case p[0] == '"':
			p = p[1:]
			end := strings.IndexByte(p, '"')
			if end < 0 {
				return ForkArgs{}, errs.New(errs.InvalidArg, "unterminated quoted string")
			}
			out.Prompt = p[:end]
			p = p[end+1:]

		default:
			return ForkArgs{}, errs.New(errs.InvalidArg, `prompt must be quoted (usage: /fork "prompt") or use --model flag`)
		}
		p = strings.TrimLeft(p, " \t")
	}

	return out, nil
}
