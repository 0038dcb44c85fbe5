// Package cmd implements the CLI command structure for astrotask.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nibzard/astrotask/internal/chat"
	"github.com/nibzard/astrotask/internal/config"
	"github.com/nibzard/astrotask/internal/logging"
	"github.com/nibzard/astrotask/internal/prompts"
	"github.com/nibzard/astrotask/internal/server"
	"github.com/nibzard/astrotask/internal/session"
	"github.com/nibzard/astrotask/internal/ui"
)

// Version is set via ldflags at build time.
var Version = "dev"

// streams are the standard streams a command reads and writes.
type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

// Run executes the astrotask CLI.
func Run(ctx context.Context, args []string) error {
	return run(ctx, args, streams{in: os.Stdin, out: os.Stdout, err: os.Stderr})
}

func run(ctx context.Context, args []string, st streams) error {
	fs := flag.NewFlagSet("astrotask", flag.ContinueOnError)
	fs.SetOutput(st.err)
	fs.Usage = func() {
		printUsage(fs, st.err)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	cws, err := config.LoadWithSources(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := cws.Config
	if *help {
		printUsage(fs, st.out)
		return nil
	}
	if *showVersion {
		return versionCommand(st.out)
	}

	// With no subcommand, chat on a terminal and fall back to the line
	// REPL when stdin or stdout is redirected.
	subcommand := "repl"
	if ui.IsTTY(st.out) && isTerminalReader(st.in) {
		subcommand = "chat"
	}
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 && !strings.HasPrefix(remainingArgs[0], "-") {
		subcommand = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}

	switch subcommand {
	case "chat":
		return chatCommand(ctx, cfg, st)
	case "repl":
		return replCommand(ctx, cfg, st)
	case "serve":
		return serveCommand(ctx, cfg, remainingArgs, st)
	case "parse":
		return parseCommand(remainingArgs, st)
	case "due":
		return dueCommand(cfg, remainingArgs, st)
	case "config":
		return configCommand(cws, st)
	case "tail":
		return tailCommand(ctx, cfg, remainingArgs, st)
	case "version":
		return versionCommand(st.out)
	case "help":
		printUsage(fs, st.out)
		return nil
	default:
		fmt.Fprintf(st.err, "Unknown command: %s\n", subcommand)
		printUsage(fs, st.err)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// chatCommand runs the full-screen chat UI.
func chatCommand(ctx context.Context, cfg *config.Config, st streams) error {
	if !ui.IsTTY(st.out) {
		return fmt.Errorf("chat requires a terminal; use 'astrotask repl' instead")
	}
	client, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}
	// The TUI owns the terminal, so console logging is silenced.
	sess, err := newSession(cfg, client, logging.Discard())
	if err != nil {
		return err
	}
	defer sess.Close()
	return ui.RunTUI(ctx, sess)
}

// serveCommand exposes the session and the stateless proxy over HTTP.
func serveCommand(ctx context.Context, cfg *config.Config, args []string, st streams) error {
	fs := flag.NewFlagSet("astrotask serve", flag.ContinueOnError)
	fs.SetOutput(st.err)
	addr := fs.String("addr", cfg.ListenAddr, "Listen address (overrides listen_addr)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := newLogger(cfg, st.err)
	client, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}
	sess, err := newSession(cfg, client, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	srv, err := server.New(sess, client, server.WithLogger(logger))
	if err != nil {
		return err
	}
	if cfg.Demo {
		logger.Warn("No API key configured, answering in demo mode")
	}
	return srv.ListenAndServe(ctx, *addr)
}

func versionCommand(w io.Writer) error {
	fmt.Fprintf(w, "astrotask version %s\n", Version)
	return nil
}

func newLogger(cfg *config.Config, w io.Writer) *log.Logger {
	return logging.NewConsoleFromConfig(w, cfg.LogLevel, cfg.LogFormat, cfg.LogTimestamps, cfg.LogCaller)
}

// newClient picks the demo client when no key is configured and the
// chat completions endpoint otherwise.
func newClient(ctx context.Context, cfg *config.Config) (chat.Client, error) {
	if cfg.Demo {
		return chat.NewDemoClient(cfg.DemoDelay()), nil
	}
	client, err := chat.NewHTTPClient(ctx, chat.Options{
		BaseURL:     cfg.APIURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     cfg.RequestTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat client: %w", err)
	}
	return client, nil
}

// newSession builds a session around client from cfg.
func newSession(cfg *config.Config, client chat.Client, logger *log.Logger) (*session.Session, error) {
	opts := []session.Option{
		session.WithLogger(logger),
		session.WithLocation(cfg.Location()),
		session.WithRenderer(prompts.NewRenderer(prompts.NewStore(cfg.PromptFile))),
	}
	if cfg.Transcript {
		opts = append(opts, session.WithTranscriptDir(cfg.LogDir))
	}
	sess, err := session.New(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}
	return sess, nil
}

// isTerminalReader reports whether r is an interactive terminal.
func isTerminalReader(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "Astrotask - a space-themed conversational task manager")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  astrotask [options] [command]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  chat            Full-screen chat (default on a terminal)")
	fmt.Fprintln(w, "  repl            Line-oriented chat (default when piped)")
	fmt.Fprintln(w, "  serve           Serve the HTTP API")
	fmt.Fprintln(w, "  parse [text|-]  Show how an assistant reply is parsed")
	fmt.Fprintln(w, "  due <phrase>    Resolve a due-date phrase")
	fmt.Fprintln(w, "  config          Print the effective configuration")
	fmt.Fprintln(w, "  tail            Tail the latest session transcript")
	fmt.Fprintln(w, "  version         Show version information")
	fmt.Fprintln(w, "  help            Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve Options (use with 'serve' command):")
	fmt.Fprintln(w, "  -addr string")
	fmt.Fprintln(w, "        Listen address (overrides listen_addr)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Due Options (use with 'due' command):")
	fmt.Fprintln(w, "  -now string")
	fmt.Fprintln(w, "        Reference time in RFC3339 (default now)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Tail Options (use with 'tail' command):")
	fmt.Fprintln(w, "  -f, --follow")
	fmt.Fprintln(w, "        Follow the transcript (like tail -f)")
	fmt.Fprintln(w, "  -n int")
	fmt.Fprintln(w, "        Number of lines to show (0 = all)")
}
