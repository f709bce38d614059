package agent

import (
	"strings"

	"github.com/ikigai-cli/ikigai/internal/chatmodel"
	"github.com/ikigai-cli/ikigai/internal/errs"
)

// ParseModelSpec splits a MODEL[/LEVEL] spec on the first '/', per
// spec.md §4.9's "MODEL/LEVEL parsing splits on the first /". hasLevel
// reports whether a level suffix was present at all.
func ParseModelSpec(spec string) (model string, level chatmodel.ThinkingLevel, hasLevel bool, err error) {
	if spec == "" {
		return "", chatmodel.ThinkingMin, false, errs.New(errs.InvalidArg, "model spec must not be empty")
	}

	idx := strings.IndexByte(spec, '/')
	if idx < 0 {
		return spec, chatmodel.ThinkingMin, false, nil
	}

	model = spec[:idx]
	levelStr := spec[idx+1:]
	if model == "" {
		return "", chatmodel.ThinkingMin, false, errs.New(errs.InvalidArg, "model name must not be empty")
	}

	level, perr := chatmodel.ParseThinkingLevel(levelStr)
	if perr != nil {
		return "", chatmodel.ThinkingMin, false, errs.New(errs.InvalidArg, "invalid thinking level %q (must be: none, low, med, high)", levelStr)
	}
	return model, level, true, nil
}
