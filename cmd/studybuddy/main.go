package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/studybuddy/studybuddy/internal/agent"
	"github.com/studybuddy/studybuddy/internal/config"
	"github.com/studybuddy/studybuddy/internal/conversation"
	"github.com/studybuddy/studybuddy/internal/llm"
	"github.com/studybuddy/studybuddy/internal/llm/gemini"
	"github.com/studybuddy/studybuddy/internal/llm/openai"
	"github.com/studybuddy/studybuddy/internal/llm/scripted"
	"github.com/studybuddy/studybuddy/internal/observability"
	"github.com/studybuddy/studybuddy/internal/server"
	"github.com/studybuddy/studybuddy/internal/session"
	"github.com/studybuddy/studybuddy/internal/streamjson"
	"github.com/studybuddy/studybuddy/internal/study"
)

// version is the CLI build version.
const version = "0.1.0"

// errTurnFailed is returned by print mode when the reply is the apology.
var errTurnFailed = errors.New("reply failed")

// options holds all CLI flags.
type options struct {
	// ConfigFile replaces the default config file search.
	ConfigFile string
	// DebugFile writes JSON logs to a file path.
	DebugFile string
	// IncludePartialMessages emits text_delta events in stream-json output.
	IncludePartialMessages bool
	// Mode selects the starting study mode.
	Mode string
	// Model overrides the configured model or alias.
	Model string
	// OutputFormat controls print mode output encoding.
	OutputFormat string
	// Print enables non-interactive mode.
	Print bool
	// Provider overrides the configured backend.
	Provider string
	// Verbose lowers the log level to debug.
	Verbose bool
	// Version prints the CLI version.
	Version bool
	// Addr overrides the serve listen address.
	Addr string
}

// main wires Cobra and executes the CLI.
func main() {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "studybuddy [prompt]",
		Short: "AI Study Buddy - explain, summarize and quiz any topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Version {
				fmt.Println(version)
				return nil
			}
			return runRoot(cmd, opts, args)
		},
		SilenceUsage: true,
	}
	rootCmd.Args = cobra.ArbitraryArgs

	applyPersistentFlags(rootCmd.PersistentFlags(), opts)
	applyFlags(rootCmd.Flags(), opts)

	rootCmd.AddCommand(doctorCommand(opts))
	rootCmd.AddCommand(serveCommand(opts))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// applyPersistentFlags defines flags shared by every subcommand.
func applyPersistentFlags(flags *pflag.FlagSet, opts *options) {
	flags.SetNormalizeFunc(normalizeFlagName)

	flags.StringVar(&opts.ConfigFile, "config", "", "Config file (default ~/.studybuddy/config.toml)")
	flags.StringVar(&opts.DebugFile, "debug-file", "", "Write JSON logs to a file")
	flags.StringVar(&opts.Mode, "mode", "", "Starting mode (explain|summarize|quiz)")
	flags.StringVar(&opts.Model, "model", "", "Model for the session")
	flags.StringVar(&opts.Provider, "provider", "", "Backend (gemini|openai|scripted)")
	flags.BoolVar(&opts.Verbose, "verbose", false, "Debug-level logs")
}

// applyFlags defines flags of the root command only.
func applyFlags(flags *pflag.FlagSet, opts *options) {
	flags.SetNormalizeFunc(normalizeFlagName)

	flags.BoolVar(&opts.IncludePartialMessages, "include-partial-messages", false, "Include partial message chunks")
	flags.StringVar(&opts.OutputFormat, "output-format", "text", "Output format (text|stream-json)")
	flags.BoolVarP(&opts.Print, "print", "p", false, "Print response and exit")
	flags.BoolVarP(&opts.Version, "version", "v", false, "Output the version number")
}

// normalizeFlagName accepts underscores in place of dashes.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// validateFormatOptions rejects flag combinations that only make sense in print mode.
func validateFormatOptions(opts *options) error {
	switch opts.OutputFormat {
	case "", "text", "stream-json":
	default:
		return fmt.Errorf("unknown --output-format %q (want text or stream-json)", opts.OutputFormat)
	}
	if !opts.Print && opts.OutputFormat != "" && opts.OutputFormat != "text" {
		return errors.New("--output-format only works with --print")
	}
	if opts.IncludePartialMessages && (!opts.Print || opts.OutputFormat != "stream-json") {
		return errors.New("--include-partial-messages requires --print and --output-format=stream-json")
	}
	return nil
}

// runtime bundles everything a surface needs to drive turns.
type runtime struct {
	// cfg is the validated configuration.
	cfg *config.Config
	// provider opens remote chat sessions.
	provider llm.Provider
	// model is the resolved model id.
	model string
	// controller owns the conversation.
	controller *conversation.Controller
	// closeLog releases the debug log file, when one is open.
	closeLog func()
}

// Close releases the runtime's resources.
func (r *runtime) Close() {
	if r != nil && r.closeLog != nil {
		r.closeLog()
	}
}

// newRuntime loads configuration, sets up logging and builds the controller.
// Logs go to the debug file when set, otherwise to defaultLog.
func newRuntime(ctx context.Context, opts *options, defaultLog io.Writer) (*runtime, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get cwd: %w", err)
	}

	cfg, err := config.Load(config.LoadOptions{Dir: cwd, File: opts.ConfigFile, Provider: opts.Provider})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.Mode != "" {
		cfg.DefaultMode = opts.Mode
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, model: cfg.ResolveModel(opts.Model)}
	logWriter := defaultLog
	logPath := opts.DebugFile
	if logPath == "" {
		logPath = cfg.LogFile
	}
	if logPath != "" {
		file, err := observability.OpenLogFile(logPath)
		if err != nil {
			return nil, err
		}
		logWriter = file
		rt.closeLog = func() { _ = file.Close() }
	}
	observability.Setup(observability.Options{Writer: logWriter, Verbose: opts.Verbose})

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.provider = provider

	store := session.NewStore(provider, study.SystemInstruction, rt.model)
	rt.controller = conversation.NewController(agent.NewRunner(store), cfg.Mode())
	observability.Logger().Debug("runtime ready",
		"provider", provider.Name(),
		"model", rt.model,
		"mode", cfg.Mode(),
	)
	return rt, nil
}

// newProvider builds the configured backend.
func newProvider(ctx context.Context, cfg *config.Config) (llm.Provider, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		provider, err := gemini.NewProvider(ctx, gemini.Options{
			APIKey:        cfg.APIKey,
			Project:       cfg.Vertex.Project,
			Location:      cfg.Vertex.Location,
			HeaderTimeout: cfg.Timeout(),
		})
		if err != nil {
			return nil, err
		}
		return provider, nil
	case config.ProviderOpenAI:
		return openai.NewProvider(cfg.APIBaseURL, cfg.APIKey, cfg.Timeout()), nil
	case config.ProviderScripted:
		return scripted.Demo(), nil
	}
	return nil, fmt.Errorf("%w: unknown provider %q", config.ErrConfigInvalid, cfg.Provider)
}

// doctorCommand validates configuration and the credential.
func doctorCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check StudyBuddy configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "OK: provider %s\n", rt.provider.Name())
			fmt.Fprintf(out, "OK: model %s\n", rt.model)
			fmt.Fprintf(out, "OK: starting mode %s\n", rt.cfg.Mode())
			switch {
			case rt.cfg.Provider == config.ProviderScripted:
				fmt.Fprintln(out, "OK: scripted provider needs no credential")
			case rt.cfg.Vertex.Project != "":
				fmt.Fprintf(out, "OK: vertex project %s (%s)\n", rt.cfg.Vertex.Project, rt.cfg.Vertex.Location)
			default:
				fmt.Fprintf(out, "OK: api key %s\n", maskSecret(rt.cfg.APIKey))
			}
			return nil
		},
	}
}

// serveCommand runs the HTTP API until interrupted.
func serveCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the study chat over HTTP, SSE and WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime(ctx, opts, os.Stderr)
			if err != nil {
				return err
			}
			defer rt.Close()

			addr := opts.Addr
			if addr == "" {
				addr = rt.cfg.Serve.Addr
			}
			return server.New(rt.controller).Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Listen address (default from config, :8080)")
	return cmd
}

// runRoot dispatches to print, TUI or line mode.
func runRoot(cmd *cobra.Command, opts *options, args []string) error {
	if err := validateFormatOptions(opts); err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := newRuntime(ctx, opts, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	if opts.Print {
		prompt, err := readPrompt(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		return runPrintMode(ctx, rt, opts, prompt, cmd.OutOrStdout())
	}
	if len(args) > 0 {
		rt.controller.SetDraft(strings.Join(args, " "))
	}
	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		return runInteractiveTUI(rt)
	}
	return runLineMode(ctx, rt.controller, os.Stdin, os.Stdout, os.Stderr)
}

// readPrompt joins positional arguments or reads stdin when there are none.
func readPrompt(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	prompt := strings.TrimRight(string(data), "\r\n")
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt required: pass it as an argument or on stdin")
	}
	return prompt, nil
}

// runPrintMode runs one turn and writes the reply to out.
func runPrintMode(ctx context.Context, rt *runtime, opts *options, prompt string, out io.Writer) error {
	if opts.OutputFormat == "stream-json" {
		return runPrintModeStreamJSON(ctx, rt, opts, prompt, out)
	}

	written := 0
	final, err := rt.controller.Submit(ctx, prompt, func(snapshot conversation.Snapshot) {
		reply, ok := inFlightReply(snapshot)
		if !ok || len(reply.Text) <= written {
			return
		}
		fmt.Fprint(out, reply.Text[written:])
		written = len(reply.Text)
	})
	if err != nil {
		return err
	}
	if final.IsError {
		if written > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, final.Text)
		return errTurnFailed
	}
	fmt.Fprintln(out)
	return nil
}

// runPrintModeStreamJSON emits the turn as JSONL events.
func runPrintModeStreamJSON(ctx context.Context, rt *runtime, opts *options, prompt string, out io.Writer) error {
	emitter := streamjson.NewEmitter(out, opts.IncludePartialMessages)
	if err := emitter.Init(rt.provider.Name(), rt.model, string(rt.controller.Mode())); err != nil {
		return err
	}
	if err := emitter.User(prompt); err != nil {
		return err
	}

	var emitErr error
	final, err := rt.controller.Submit(ctx, prompt, func(snapshot conversation.Snapshot) {
		reply, ok := inFlightReply(snapshot)
		if !ok || emitErr != nil {
			return
		}
		emitErr = emitter.Partial(reply.Text)
	})
	if err != nil {
		return err
	}
	if emitErr != nil {
		return fmt.Errorf("write partial: %w", emitErr)
	}
	if err := emitter.Finish(final.Text, final.IsError); err != nil {
		return err
	}
	if final.IsError {
		return errTurnFailed
	}
	return nil
}

// inFlightReply returns the streaming model message of snapshot.
func inFlightReply(snapshot conversation.Snapshot) (conversation.Message, bool) {
	if snapshot.InFlightID == "" {
		return conversation.Message{}, false
	}
	for i := len(snapshot.Messages) - 1; i >= 0; i-- {
		if snapshot.Messages[i].ID == snapshot.InFlightID {
			return snapshot.Messages[i], true
		}
	}
	return conversation.Message{}, false
}

// maskSecret keeps the last four characters of a credential.
func maskSecret(value string) string {
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}
