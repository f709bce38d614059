// Package toolinvoker spawns the tool executables under
// <install>/libexec/ikigai/<name> as child processes, writing the call's
// JSON argument object to stdin and parsing its JSON result from stdout.
// Grounded on env/environment.go's pattern of injecting a fixed set of
// environment variables into every spawned command.
package toolinvoker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/ikigai-cli/ikigai/internal/errs"
)

// Result is the parsed shape of a tool's stdout.
type Result struct {
	Success   bool            `json:"success"`
	Output    string          `json:"output,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
	Event     json.RawMessage `json:"_event,omitempty"`
}

// Invoker spawns a named tool with a JSON argument object and returns its
// parsed result.
type Invoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) (Result, error)
}

// Descriptor is one tool discovered at startup via --schema.
type Descriptor struct {
	Name   string
	Path   string
	Schema json.RawMessage
}

// ProcessInvoker spawns tools as child processes under libexecDir.
type ProcessInvoker struct {
	libexecDir string
	agentID    string
	stateDir   string
}

func NewProcessInvoker(libexecDir, agentID, stateDir string) *ProcessInvoker {
	return &ProcessInvoker{libexecDir: libexecDir, agentID: agentID, stateDir: stateDir}
}

func (p *ProcessInvoker) childEnv() []string {
	env := os.Environ()
	env = append(env,
		"IKIGAI_AGENT_ID="+p.agentID,
		"IKIGAI_STATE_DIR="+p.stateDir,
	)
	return env
}

// Invoke resolves name to an executable under libexecDir, spawns it with
// no arguments, writes the JSON-encoded args to its stdin, and parses its
// stdout. Exit code is advisory; the Success field dominates.
func (p *ProcessInvoker) Invoke(ctx context.Context, name string, args map[string]any) (Result, error) {
	path := filepath.Join(p.libexecDir, name)
	if _, err := os.Stat(path); err != nil {
		return Result{}, errs.New(errs.NotFound, "tool %q not found under %s", name, p.libexecDir)
	}

	payload, err := json.Marshal(args)
	if err != nil {
		return Result{}, errs.New(errs.Parse, "failed to marshal tool arguments: %v", err)
	}

	cmd := exec.CommandContext(ctx, path)
	cmd.Env = p.childEnv()
	cmd.Stdin = bytes.NewReader(payload)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	var result Result
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		if runErr != nil {
			return Result{}, errs.New(errs.Unknown, "tool %q exited with error and produced no parseable output: %v (stderr: %s)", name, runErr, stderr.String())
		}
		return Result{}, errs.New(errs.Parse, "tool %q produced unparseable output: %v", name, err)
	}

	return result, nil
}

// DiscoverTools invokes every executable under libexecDir once with
// --schema and collects the ones that respond with a parseable schema.
// Non-executable files and tools that fail to respond are skipped.
func DiscoverTools(ctx context.Context, libexecDir string) ([]Descriptor, error) {
	entries, err := os.ReadDir(libexecDir)
	if err != nil {
		return nil, fmt.Errorf("reading libexec dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.Mode()&0111 == 0 {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var descriptors []Descriptor
	for _, name := range names {
		path := filepath.Join(libexecDir, name)
		cmd := exec.CommandContext(ctx, path, "--schema")
		out, err := cmd.Output()
		if err != nil {
			continue
		}
		var probe json.RawMessage
		if err := json.Unmarshal(out, &probe); err != nil {
			continue
		}
		descriptors = append(descriptors, Descriptor{Name: name, Path: path, Schema: probe})
	}
	return descriptors, nil
}
