package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nibzard/astrotask/internal/config"
	"github.com/nibzard/astrotask/internal/session"
	"github.com/nibzard/astrotask/internal/task"
	"github.com/nibzard/astrotask/internal/ui"
)

const replGreeting = "Welcome, stargazer! ✨ Tell me what you need to do. /help lists commands, /quit leaves."

// replCommand is the line-oriented chat. It shares the slash commands of
// the full-screen UI and adds /list and /quit.
func replCommand(ctx context.Context, cfg *config.Config, st streams) error {
	client, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}
	sess, err := newSession(cfg, client, newLogger(cfg, st.err))
	if err != nil {
		return err
	}
	defer sess.Close()

	fmt.Fprintln(st.out, replGreeting)
	if cfg.Demo {
		fmt.Fprintln(st.out, "(demo mode: no API key configured)")
	}

	scanner := bufio.NewScanner(st.in)
	for {
		fmt.Fprint(st.out, "> ")
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "/quit", "/exit":
			return nil
		case "/list":
			var roots []task.Task
			sess.View(func(store *task.Store) { roots = store.Roots() })
			fmt.Fprint(st.out, ui.RenderTaskList(roots, sess.Location(), false))
			continue
		case "/help":
			fmt.Fprintln(st.out, ui.SlashHelp())
			fmt.Fprintf(st.out, "  %-34s %s\n", "/list", "show the numbered task list")
			fmt.Fprintf(st.out, "  %-34s %s\n", "/quit", "leave")
			continue
		}
		if reply, ok := ui.RunSlash(sess, line); ok {
			fmt.Fprintln(st.out, reply)
			continue
		}

		reply, err := sess.Submit(ctx, line)
		if errors.Is(err, session.ErrBusy) {
			fmt.Fprintln(st.out, "Still waiting for the stars to answer the last message.")
			continue
		}
		if err != nil {
			return err
		}
		if reply.Text != "" {
			fmt.Fprintln(st.out, reply.Text)
		}
	}
	fmt.Fprintln(st.out)
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}
