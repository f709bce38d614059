// Command ikigai is the terminal REPL client of SPEC_FULL.md: a
// single-process loop that reads terminal input, drives one or more
// provider-agnostic agents, and streams model responses back to the
// terminal. Grounded on cli/task_command.go's &cli.Command{Flags, Action}
// idiom, generalized from a git-flow subcommand tree into a single
// long-running REPL command.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/ikigai-cli/ikigai/internal/agent"
	"github.com/ikigai-cli/ikigai/internal/chatmodel"
	"github.com/ikigai-cli/ikigai/internal/config"
	"github.com/ikigai-cli/ikigai/internal/journal"
	"github.com/ikigai-cli/ikigai/internal/logging"
	"github.com/ikigai-cli/ikigai/internal/loop"
	"github.com/ikigai-cli/ikigai/internal/provider"
	"github.com/ikigai-cli/ikigai/internal/termkeys"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

// defaultBaseURL names each flavor's production API host, overridable per
// provider for testing against a local stub.
var defaultBaseURL = map[provider.APIFlavor]string{
	provider.FlavorAnthropic:      "https://api.anthropic.com",
	provider.FlavorOpenAIChat:     "https://api.openai.com",
	provider.FlavorOpenAIResponse: "https://api.openai.com",
	provider.FlavorGoogle:         "https://generativelanguage.googleapis.com",
}

func main() {
	cmd := &cli.Command{
		Name:  "ikigai",
		Usage: "a terminal client for talking to LLMs",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "model", Value: "claude-sonnet-4-5", Usage: "MODEL[/LEVEL] to start with"},
			&cli.StringFlag{Name: "anthropic-api-key", Usage: "overrides ANTHROPIC_API_KEY and the credentials file"},
			&cli.StringFlag{Name: "openai-api-key", Usage: "overrides OPENAI_API_KEY and the credentials file"},
			&cli.StringFlag{Name: "google-api-key", Usage: "overrides GOOGLE_API_KEY and the credentials file"},
			&cli.StringFlag{Name: "credentials-file", Usage: "path to credentials.json (default ~/.config/ikigai/credentials.json)"},
			&cli.BoolFlag{Name: "debug", Usage: "start with /debug on"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "ikigai:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	logging.SetDebug(cmd.Bool("debug"))
	log := logging.Get()

	flags := map[string]string{
		"anthropic": cmd.String("anthropic-api-key"),
		"openai":    cmd.String("openai-api-key"),
		"google":    cmd.String("google-api-key"),
	}
	resolver := config.NewResolver(cmd.String("credentials-file"), flags)
	for _, w := range resolver.Warnings {
		log.Warn().Msg(w)
	}

	registry := provider.NewRegistry()
	model, thinking, hasThinking, err := agent.ParseModelSpec(cmd.String("model"))
	if err != nil {
		return err
	}
	entry, ok := registry.Lookup(model)
	if !ok {
		return fmt.Errorf("unknown model %q", model)
	}
	if !hasThinking {
		thinking = chatmodel.ThinkingMin
	}
	if hasThinking && !entry.IsReasoningModel() {
		return fmt.Errorf("model %q does not support a thinking level", model)
	}

	root := agent.NewRoot(entry.Provider, model, thinking)
	sessionID := config.AgentID()
	if sessionID == "" {
		sessionID = root.ID
	}
	sink := journal.NullSink{}
	session := agent.NewSession(sessionID, registry, sink, root)
	session.Debug = cmd.Bool("debug")

	app := &app{
		session:   session,
		resolver:  resolver,
		registry:  registry,
		transport: loop.NewTransport(nil),
		streams:   make(map[string]*activeStream),
		out:       os.Stdout,
		log:       log,
	}

	stdinActions := make(chan termkeys.Action, 64)
	parser := termkeys.NewParser(nil)
	reader := bufio.NewReader(os.Stdin)
	go loop.ReadStdin(reader, parser, stdinActions)

	lp := loop.New(stdinActions, loop.Handlers{
		OnAction:      app.onAction,
		OnStreamChunk: app.onStreamChunk,
		OnInterrupt:   app.onInterrupt,
	})
	app.loop = lp
	lp.SetActiveAgent(root.ID)

	fmt.Fprintf(app.out, "ikigai ready. model=%s provider=%s\n", root.Model, root.Provider)
	lp.Run(ctx)
	return nil
}

// app holds every piece of mutable state the loop goroutine's handlers
// touch; per spec.md §4.11 it is only ever read or written from inside a
// Handlers callback, so it needs no locking.
type app struct {
	session   *agent.Session
	resolver  *config.Resolver
	registry  *provider.Registry
	transport *loop.Transport
	loop      *loop.Loop
	streams   map[string]*activeStream
	lineBuf   []rune
	out       *os.File
	log       zerolog.Logger
}

// activeStream pairs an in-flight agent's decoded wire stream with the
// console sink rendering it.
type activeStream struct {
	ctx  provider.StreamContext
	sink *consoleSink
}

func (a *app) onAction(action termkeys.Action) {
	switch action.Type {
	case termkeys.ActionChar:
		a.lineBuf = append(a.lineBuf, action.Codepoint)
		fmt.Fprintf(a.out, "%c", action.Codepoint)
	case termkeys.ActionBackspace:
		if n := len(a.lineBuf); n > 0 {
			a.lineBuf = a.lineBuf[:n-1]
			fmt.Fprint(a.out, "\b \b")
		}
	case termkeys.ActionNewline, termkeys.ActionInsertNewline:
		line := string(a.lineBuf)
		a.lineBuf = nil
		fmt.Fprintln(a.out)
		a.handleLine(line)
	default:
		// arrow keys, scroll, etc. are line-editing/scrollback concerns
		// the REPL surface doesn't yet render; silently ignored.
	}
}

func (a *app) handleLine(line string) {
	if line == "" {
		return
	}
	wasCommand := len(line) > 0 && line[0] == '/'
	msg, err := a.session.Dispatch(line)
	if err != nil {
		fmt.Fprintln(a.out, "error:", err)
		return
	}
	if wasCommand {
		logging.SetDebug(a.session.Debug)
		fmt.Fprintln(a.out, msg)
		a.loop.SetActiveAgent(a.session.ActiveID)
		return
	}
	a.sendActive()
}

// sendActive serializes the active agent's conversation and starts a
// streaming request, wiring the wire-level StreamContext to a console
// sink that renders deltas as they arrive on the loop's event channel.
func (a *app) sendActive() {
	ag := a.session.Active()
	if ag.InFlight {
		fmt.Fprintln(a.out, "error: this agent already has a request in flight")
		return
	}
	entry, ok := a.registry.Lookup(ag.Model)
	if !ok {
		fmt.Fprintln(a.out, "error: unknown model", ag.Model)
		return
	}
	p, err := selectProvider(entry, ag.ThinkingLevel)
	if err != nil {
		fmt.Fprintln(a.out, "error:", err)
		return
	}

	req := chatmodel.Request{Model: ag.Model}
	for _, m := range ag.ActiveMessages() {
		if err := req.AddMessage(m); err != nil {
			fmt.Fprintln(a.out, "error:", err)
			return
		}
	}
	if entry.IsReasoningModel() {
		if err := req.SetThinking(ag.ThinkingLevel); err != nil {
			fmt.Fprintln(a.out, "error:", err)
			return
		}
	}
	req.Seal()

	body, err := p.Serialize(req, true)
	if err != nil {
		fmt.Fprintln(a.out, "error:", err)
		return
	}
	key := a.resolver.APIKey(entry.Provider)
	if key == "" {
		fmt.Fprintf(a.out, "error: no API key configured for provider %s\n", entry.Provider)
		return
	}
	url := p.BuildURL(defaultBaseURL[entry.Flavor], ag.Model, key, true)
	headers := p.BuildHeaders(key, true)

	sink := newConsoleSink(a.out, a.session.Debug)
	streamCtx := p.NewStreamContext(sink)
	a.streams[ag.ID] = &activeStream{ctx: streamCtx, sink: sink}
	ag.InFlight = true
	a.loop.SetActiveAgent(ag.ID)

	if err := a.transport.StartStream(context.Background(), ag.ID, url, headers, body, a.loop.Events()); err != nil {
		fmt.Fprintln(a.out, "error:", err)
		delete(a.streams, ag.ID)
		ag.InFlight = false
	}
}

func (a *app) onStreamChunk(evt loop.StreamEvent) {
	st, ok := a.streams[evt.AgentID]
	if !ok {
		return
	}
	if len(evt.Chunk) > 0 {
		st.ctx.Feed(evt.Chunk)
	}
	if evt.Err != nil {
		st.sink.Error(evt.Err)
		fmt.Fprintln(a.out, "\nerror:", evt.Err)
	}
	if evt.Done {
		st.ctx.Close()
		delete(a.streams, evt.AgentID)
		if ag, ok := a.session.Agents[evt.AgentID]; ok {
			ag.InFlight = false
		}
	}
}

func (a *app) onInterrupt(agentID string) {
	a.transport.Cancel(agentID)
	if st, ok := a.streams[agentID]; ok {
		st.ctx.Close()
		delete(a.streams, agentID)
	}
	if ag, ok := a.session.Agents[agentID]; ok {
		ag.InFlight = false
	}
	fmt.Fprintln(a.out, "\n[interrupted]")
}
