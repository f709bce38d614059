package agent

import (
	"sort"
	"strings"

	"github.com/ikigai-cli/ikigai/internal/fzy"
)

var thinkingLevels = []string{"none", "low", "med", "high"}
var debugLevels = []string{"off", "on"}
var commandNames = []string{"fork", "model", "rewind", "mark", "pin", "unpin", "clear", "debug"}

// CompleteCommandLine implements spec.md §4.8's argument-provider dispatch:
// "/model" -> model registry list, "/model X/" -> thinking levels,
// "/debug" -> {off, on}, "/rewind" -> mark labels on the active agent,
// unknown command -> no completion.
func (s *Session) CompleteCommandLine(line string) []fzy.Result {
	if !strings.HasPrefix(line, "/") {
		return nil
	}
	body := line[1:]

	if !strings.Contains(body, " ") {
		names := make([]string, len(commandNames))
		for i, n := range commandNames {
			names[i] = "/" + n
		}
		return fzy.Filter(names, line)
	}

	name, rest := splitCommand(body)
	switch name {
	case "model":
		if idx := strings.LastIndexByte(rest, '/'); idx >= 0 {
			return fzy.Filter(thinkingLevels, rest[idx+1:])
		}
		return fzy.Filter(s.Registry.ModelIDs(), rest)
	case "debug":
		return fzy.Filter(debugLevels, rest)
	case "rewind":
		agent := s.Active()
		labels := make([]string, 0, len(agent.Marks))
		for label := range agent.Marks {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		return fzy.Filter(labels, rest)
	default:
		return nil
	}
}
