// ABOUTME: Interactive read-eval loop for fpl-chat
// ABOUTME: Reads lines from stdin, handles slash commands and sends the rest

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/curphey/fpl-sub000/internal/transcript"
)

var (
	bold  = color.New(color.Bold)
	faint = color.New(color.FgHiBlack)
	red   = color.New(color.FgRed)
)

func runInteractive(ctx context.Context, s *session) error {
	out := os.Stdout

	bold.Fprintf(out, "fpl-chat connected to %s\n", s.cfg.Client.GatewayURL)
	faint.Fprintf(out, "Conversation %q", s.ctrl.ID())
	if n := len(s.ctrl.Snapshot().Messages); n > 0 {
		faint.Fprintf(out, " (%d messages restored)", n)
	}
	fmt.Fprintln(out)
	if s.cfg.Client.Token == "" {
		faint.Fprintln(out, "Auth: none (set FPL_TOKEN for authentication)")
	}
	fmt.Fprintln(out, "Type a message and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Fprintln(out)

	lines := readLines(os.Stdin)

	for {
		fmt.Fprint(out, "> ")

		var input string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nGoodbye!")
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(out, "\nGoodbye!")
				return nil
			}
			input = strings.TrimSpace(line)
		}

		if input == "" {
			continue
		}

		switch {
		case input == "/quit" || input == "/exit" || input == "/q":
			fmt.Fprintln(out, "Goodbye!")
			return nil

		case input == "/help":
			printHelp(out)

		case input == "/new":
			s.ctrl.Reset(ctx)
			fmt.Fprintln(out, "Started a new conversation")

		case input == "/export" || strings.HasPrefix(input, "/export "):
			path := strings.TrimSpace(strings.TrimPrefix(input, "/export"))
			if path == "" {
				path = s.ctrl.ID() + ".html"
			}
			if err := exportTo(path, s); err != nil {
				red.Fprintf(out, "[error] %v\n", err)
			} else {
				fmt.Fprintf(out, "Wrote %s\n", path)
			}

		case strings.HasPrefix(input, "/"):
			red.Fprintf(out, "Unknown command %s (try /help)\n", input)

		default:
			if err := s.ask(ctx, input); err != nil {
				red.Fprintf(out, "[error] %v\n", err)
			}
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out)
	}
}

// readLines feeds stdin lines to the returned channel until EOF.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// exportTo writes the current conversation as HTML, or Markdown for .md paths.
func exportTo(path string, s *session) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	conv := s.ctrl.Snapshot().Messages
	title := "FPL chat: " + s.ctrl.ID()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return transcript.WriteMarkdown(f, title, conv)
	default:
		return transcript.WriteHTML(f, title, conv)
	}
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  /new           Start a new conversation")
	fmt.Fprintln(w, "  /export [file] Save the conversation (.html or .md)")
	fmt.Fprintln(w, "  /help          Show this help")
	fmt.Fprintln(w, "  /quit          Exit")
}
