package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nibzard/astrotask/internal/command"
	"github.com/nibzard/astrotask/internal/config"
	"github.com/nibzard/astrotask/internal/dispatch"
	"github.com/nibzard/astrotask/internal/due"
	"github.com/nibzard/astrotask/internal/logging"
)

// parseReport is what the parse command prints.
type parseReport struct {
	Input    string          `yaml:"input"`
	Source   command.Source  `yaml:"source"`
	Action   *command.Action `yaml:"action,omitempty"`
	Reply    string          `yaml:"reply,omitempty"`
	Rejected string          `yaml:"rejected,omitempty"`
}

// parseCommand runs an assistant reply through the command parser. The
// text comes from the arguments, or from stdin when they are empty or "-".
func parseCommand(args []string, st streams) error {
	text := strings.Join(args, " ")
	if text == "" || text == "-" {
		data, err := io.ReadAll(st.in)
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		text = string(data)
	}

	res := command.Parse(text)
	report := parseReport{
		Input:  strings.TrimSpace(text),
		Source: res.Source,
		Action: res.Action,
	}
	if !res.IsAction() {
		report.Reply = strings.TrimSpace(res.Reply)
	}
	if res.Rejected != nil {
		report.Rejected = res.Rejected.Error()
	}
	return writeYAML(st.out, report)
}

// dueReport is what the due command prints.
type dueReport struct {
	Phrase  string `yaml:"phrase"`
	Now     string `yaml:"now"`
	Due     string `yaml:"due"`
	Display string `yaml:"display,omitempty"`
}

// dueCommand resolves a due-date phrase against now in the configured
// timezone.
func dueCommand(cfg *config.Config, args []string, st streams) error {
	fs := flag.NewFlagSet("astrotask due", flag.ContinueOnError)
	fs.SetOutput(st.err)
	nowFlag := fs.String("now", "", "Reference time in RFC3339 (default now)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	phrase := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(phrase) == "" {
		return fmt.Errorf("due: missing phrase")
	}

	now := time.Now().In(cfg.Location())
	if *nowFlag != "" {
		t, err := time.Parse(time.RFC3339, *nowFlag)
		if err != nil {
			return fmt.Errorf("due: invalid -now: %w", err)
		}
		now = t.In(cfg.Location())
	}

	report := dueReport{Phrase: phrase, Now: now.Format(time.RFC3339), Due: "unresolved"}
	if at, ok := due.Parse(phrase, now); ok {
		report.Due = at.Format(time.RFC3339)
		report.Display = at.Format(dispatch.DueLayout)
	}
	return writeYAML(st.out, report)
}

// configCommand prints the effective configuration with the key redacted,
// followed by where each non-default value came from.
func configCommand(cws *config.ConfigWithSources, st streams) error {
	if err := cws.Config.WriteTOML(st.out); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintln(st.out)
	for _, f := range cws.Files {
		fmt.Fprintf(st.out, "# read %s\n", f)
	}
	keys := make([]string, 0, len(cws.Sources))
	for k, src := range cws.Sources {
		if src != config.SourceDefault {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(st.out, "# %s from %s\n", k, cws.Sources[k])
	}
	return nil
}

// tailCommand prints the most recent session transcript.
func tailCommand(ctx context.Context, cfg *config.Config, args []string, st streams) error {
	fs := flag.NewFlagSet("astrotask tail", flag.ContinueOnError)
	fs.SetOutput(st.err)
	follow := fs.Bool("f", false, "Follow the transcript (like tail -f)")
	fs.BoolVar(follow, "follow", false, "Follow the transcript (like tail -f)")
	n := fs.Int("n", 0, "Number of lines to show (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logPath, err := logging.FindLatestLog(cfg.LogDir)
	if err != nil {
		return fmt.Errorf("finding latest transcript: %w", err)
	}
	if logPath == "" {
		fmt.Fprintln(st.out, "No transcripts found.")
		return nil
	}

	fmt.Fprintf(st.err, "Tailing: %s\n", logPath)
	if *follow {
		fmt.Fprintln(st.err, "(Ctrl+C to stop)")
	}
	return logging.TailLog(ctx, st.out, logPath, *n, *follow)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}
