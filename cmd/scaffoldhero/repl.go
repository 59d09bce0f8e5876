package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ivlev/scaffoldhero/internal/editor"
	"github.com/ivlev/scaffoldhero/internal/input"
	"github.com/ivlev/scaffoldhero/internal/store"
	"github.com/ivlev/scaffoldhero/internal/urlstate"
)

// repl reads commands from r until EOF or quit.
func (s *session) repl(ctx context.Context, r io.Reader) error {
	fmt.Fprintln(s.out, "scaffoldhero - timeline editor")
	fmt.Fprintln(s.out, "Type 'help' for available commands, 'quit' to exit")

	scanner := bufio.NewScanner(r)
	for {
		fmt.Fprint(s.out, "scaffoldhero> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !s.handleCommand(ctx, line) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// handleCommand runs one line. It returns false when the session should
// end.
func (s *session) handleCommand(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help":
		s.printHelp()
	case "quit", "exit":
		return false
	case "status":
		s.printStatus()
	case "voices":
		s.printVoices()
	case "projects":
		err = printProjects(ctx, s.out, s.kv, s.editor.ProjectID())
	case "svg":
		if len(args) == 0 {
			err = s.writeSVG(s.out)
			fmt.Fprintln(s.out)
		} else {
			err = s.saveSVG(args[0])
		}
	case "zoom":
		err = s.zoom(args)
	case "frame":
		if len(args) != 1 {
			err = fmt.Errorf("%w: frame <file.png>", input.ErrUsage)
		} else {
			err = s.saveFrame(args[0])
		}
	case "share":
		err = s.share(args)
	case "export":
		_, err = s.export(ctx, argOr(args, 0, ""))
	default:
		err = s.dispatcher.Dispatch(ctx, cmd, args)
		if errors.Is(err, input.ErrUnknownCommand) {
			fmt.Fprintf(s.out, "Unknown command: %s (type 'help')\n", cmd)
			return true
		}
	}
	if err != nil {
		fmt.Fprintf(s.out, "[!] %s: %v\n", cmd, err)
	}
	return true
}

func (s *session) zoom(args []string) error {
	switch argOr(args, 0, "") {
	case "in":
		s.view.Zoom(zoomStep)
	case "out":
		s.view.Zoom(1 / zoomStep)
	default:
		return fmt.Errorf("%w: zoom in|out", input.ErrUsage)
	}
	fmt.Fprintf(s.out, "Window: %d ms\n", s.view.WindowMs)
	return nil
}

func (s *session) share(args []string) error {
	link, err := s.shareURL()
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, link)
	if len(args) == 0 {
		return nil
	}
	if err := urlstate.WriteQR(args[0], link, 256); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "[*] QR code written to %s\n", args[0])
	return nil
}

// printProjects lists stored project ids, marking current.
func printProjects(ctx context.Context, w io.Writer, kv store.KV, current string) error {
	ids, err := editor.ListProjects(ctx, kv)
	if err != nil {
		return err
	}
	for _, id := range ids {
		mark := " "
		if id == current {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %s\n", mark, id)
	}
	return nil
}

func (s *session) printHelp() {
	fmt.Fprintln(s.out, "Editing:")
	fmt.Fprintln(s.out, "  insert-speech <text>   Speech cue at the cursor")
	fmt.Fprintln(s.out, "  insert-text <text>     Text overlay at the cursor")
	fmt.Fprintln(s.out, "  insert-video [path]    Video clip at the cursor")
	fmt.Fprintln(s.out, "  remove <id>            Remove a node")
	fmt.Fprintln(s.out, "  move-left/move-right   Previous/next track")
	fmt.Fprintln(s.out, "  move-up/move-down      Cursor -/+ 1s")
	fmt.Fprintln(s.out, "  add-container          New top-level container")
	fmt.Fprintln(s.out, "  open <id>              Open a top-level container")
	fmt.Fprintln(s.out, "  save                   Persist the project")
	fmt.Fprintln(s.out, "Playback:")
	fmt.Fprintln(s.out, "  toggle-play-pause      Play from the cursor or pause")
	fmt.Fprintln(s.out, "  seek <ms>              Play from a time")
	fmt.Fprintln(s.out, "  frame <file.png>       Save the current frame")
	fmt.Fprintln(s.out, "  export [file.mp4]      Record the opened container")
	fmt.Fprintln(s.out, "View:")
	fmt.Fprintln(s.out, "  status, voices, projects")
	fmt.Fprintln(s.out, "  svg [file.svg]         Track view")
	fmt.Fprintln(s.out, "  zoom in|out            Track view window")
	fmt.Fprintln(s.out, "  share [file.png]       Share link, optionally as a QR code")
	fmt.Fprintln(s.out, "  quit")
}

func argOr(args []string, i int, def string) string {
	if i < len(args) {
		return args[i]
	}
	return def
}
