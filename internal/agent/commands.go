package agent

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ikigai-cli/ikigai/internal/chatmodel"
	"github.com/ikigai-cli/ikigai/internal/errs"
	"github.com/ikigai-cli/ikigai/internal/journal"
	"github.com/ikigai-cli/ikigai/internal/provider"
)

// Session owns the flat agent tree for one process lifetime and dispatches
// REPL commands against whichever agent is active. Grounded on the
// teacher's Agent.PerformAction single-method dispatch, generalized into a
// command table per spec.md §4.9.
type Session struct {
	ID       string
	Agents   map[string]*Agent
	ActiveID string
	Registry *provider.Registry
	Journal  journal.Sink
	Debug    bool
}

// NewSession creates a session rooted at root, registering root in Agents
// as the active agent.
func NewSession(id string, registry *provider.Registry, sink journal.Sink, root *Agent) *Session {
	if sink == nil {
		sink = journal.NullSink{}
	}
	return &Session{
		ID:       id,
		Agents:   map[string]*Agent{root.ID: root},
		ActiveID: root.ID,
		Registry: registry,
		Journal:  sink,
	}
}

// Active returns the currently active agent.
func (s *Session) Active() *Agent {
	return s.Agents[s.ActiveID]
}

// Dispatch routes a REPL line. Lines starting with "/" are commands;
// anything else is a user message appended to the active agent.
func (s *Session) Dispatch(line string) (string, error) {
	if !strings.HasPrefix(line, "/") {
		agent := s.Active()
		idx, err := agent.AppendMessage(chatmodel.Message{
			Role:          chatmodel.RoleUser,
			ContentBlocks: []chatmodel.ContentBlock{chatmodel.NewText(line)},
		})
		if err != nil {
			return "", err
		}
		s.logAppend(agent.ID, journal.KindUser, line)
		return fmt.Sprintf("message %d appended", idx), nil
	}

	name, rest := splitCommand(line[1:])
	switch name {
	case "fork":
		return s.cmdFork(rest)
	case "model":
		return s.cmdModel(rest)
	case "rewind":
		return s.cmdRewind(rest)
	case "mark":
		return s.cmdMark(rest)
	case "pin":
		return s.cmdPin(rest)
	case "unpin":
		return s.cmdUnpin(rest)
	case "clear":
		return s.cmdClear(rest)
	case "debug":
		return s.cmdDebug(rest)
	default:
		return "", errs.New(errs.InvalidArg, "unknown command /%s", name)
	}
}

func splitCommand(s string) (name, rest string) {
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeft(s[i:], " \t")
}

func (s *Session) logAppend(agentID string, kind journal.Kind, content string) {
	_ = s.Journal.Append(s.ID, agentID, kind, content, "")
}

func (s *Session) cmdFork(rest string) (string, error) {
	args, err := ParseForkArgs(rest)
	if err != nil {
		return "", err
	}

	parent := s.Active()
	var override *ModelOverride
	if args.Model != "" {
		model, level, hasLevel, err := ParseModelSpec(args.Model)
		if err != nil {
			return "", err
		}
		override, err = ResolveModelOverride(s.Registry, model, level, hasLevel)
		if err != nil {
			return "", err
		}
	}

	forkAt := len(parent.Messages) - 1
	child, err := parent.Fork(forkAt, override)
	if err != nil {
		return "", err
	}

	if args.Prompt != "" {
		if _, err := child.AppendMessage(chatmodel.Message{
			Role:          chatmodel.RoleUser,
			ContentBlocks: []chatmodel.ContentBlock{chatmodel.NewText(args.Prompt)},
		}); err != nil {
			return "", err
		}
	}

	s.Agents[child.ID] = child
	s.ActiveID = child.ID
	s.logAppend(child.ID, journal.KindSystem, fmt.Sprintf("forked from %s at message %d", parent.ID, forkAt))
	return fmt.Sprintf("forked agent %s", child.ID), nil
}

func (s *Session) cmdModel(rest string) (string, error) {
	if rest == "" {
		return "", errs.New(errs.InvalidArg, "/model requires MODEL[/LEVEL]")
	}
	model, level, hasLevel, err := ParseModelSpec(rest)
	if err != nil {
		return "", err
	}
	override, err := ResolveModelOverride(s.Registry, model, level, hasLevel)
	if err != nil {
		return "", err
	}

	agent := s.Active()
	agent.Provider = override.Provider
	agent.Model = override.Model
	if override.HasThinking {
		agent.ThinkingLevel = override.ThinkingLevel
	}
	s.logAppend(agent.ID, journal.KindSystem, fmt.Sprintf("model set to %s", model))
	return fmt.Sprintf("model set to %s (%s)", agent.Model, agent.Provider), nil
}

func (s *Session) cmdRewind(rest string) (string, error) {
	if rest == "" {
		return "", errs.New(errs.InvalidArg, "/rewind requires LABEL or N")
	}
	agent := s.Active()

	if n, err := strconv.Atoi(rest); err == nil {
		if err := agent.RewindN(n); err != nil {
			return "", err
		}
	} else {
		if err := agent.Rewind(rest); err != nil {
			return "", err
		}
	}
	s.logAppend(agent.ID, journal.KindRewind, rest)
	return fmt.Sprintf("rewound to %s", rest), nil
}

func (s *Session) cmdMark(rest string) (string, error) {
	agent := s.Active()
	if err := agent.Mark(rest); err != nil {
		return "", err
	}
	s.logAppend(agent.ID, journal.KindMark, rest)
	return fmt.Sprintf("marked %q at message %d", rest, len(agent.Messages)-1), nil
}

func (s *Session) cmdPin(rest string) (string, error) {
	agent := s.Active()
	if err := agent.Pin(rest); err != nil {
		return "", err
	}
	s.logAppend(agent.ID, journal.KindSystem, fmt.Sprintf("pinned %s", rest))
	return fmt.Sprintf("pinned %s", rest), nil
}

func (s *Session) cmdUnpin(rest string) (string, error) {
	agent := s.Active()
	if err := agent.Unpin(rest); err != nil {
		return "", err
	}
	s.logAppend(agent.ID, journal.KindSystem, fmt.Sprintf("unpinned %s", rest))
	return fmt.Sprintf("unpinned %s", rest), nil
}

func (s *Session) cmdClear(rest string) (string, error) {
	agent := s.Active()
	agent.Clear()
	s.logAppend(agent.ID, journal.KindClear, "")
	return "cleared", nil
}

func (s *Session) cmdDebug(rest string) (string, error) {
	switch rest {
	case "on":
		s.Debug = true
	case "off":
		s.Debug = false
	default:
		return "", errs.New(errs.InvalidArg, "/debug requires on or off")
	}
	return fmt.Sprintf("debug %s", rest), nil
}
