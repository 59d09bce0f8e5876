// scaffoldhero is a timeline editor for speech, text and video cues.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/ivlev/scaffoldhero/internal/config"
	"github.com/ivlev/scaffoldhero/internal/editor"
	"github.com/ivlev/scaffoldhero/internal/logging"
	"github.com/ivlev/scaffoldhero/internal/media"
	"github.com/ivlev/scaffoldhero/internal/speech"
	"github.com/ivlev/scaffoldhero/internal/store"
	"github.com/ivlev/scaffoldhero/internal/system"
	"github.com/ivlev/scaffoldhero/internal/urlstate"
)

// BuildVersion is set with -ldflags "-X main.BuildVersion=...".
var BuildVersion = "dev"

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: scaffoldhero [flags] [command]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  edit                 Interactive editor (default)")
	fmt.Fprintln(os.Stderr, "  export [file.mp4]    Record the opened container")
	fmt.Fprintln(os.Stderr, "  svg [file.svg]       Write the track view")
	fmt.Fprintln(os.Stderr, "  share [file.png]     Print the share link, optionally as a QR code")
	fmt.Fprintln(os.Stderr, "  projects             List stored projects")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Run with -h for the flag list.")
}

func main() {
	cfg, args, err := config.Parse("scaffoldhero", os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		usage()
		return
	}
	if err != nil {
		log.Fatalf("[-] %v", err)
	}
	cfg.BuildVersion = BuildVersion

	logger, err := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("[-] %v", err)
	}
	system.InitResourceLimits()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	kv, err := store.Open(cfg.StoreDriver, cfg.StorePath)
	if err != nil {
		log.Fatalf("[-] Could not open the store: %v", err)
	}
	defer kv.Close()

	cmd := argOr(args, 0, "edit")
	if cmd == "projects" {
		if err := printProjects(ctx, os.Stdout, kv, ""); err != nil {
			log.Fatalf("[-] %v", err)
		}
		return
	}

	s, err := openSession(ctx, cfg, kv, logger)
	if err != nil {
		log.Fatalf("[-] %v", err)
	}
	defer s.Close()

	switch cmd {
	case "edit":
		if link, err := s.shareURL(); err == nil {
			fmt.Printf("[*] Project %s: %s\n", s.editor.ProjectID(), link)
		}
		if d, ok := kv.(*store.Dir); ok {
			go watchProject(ctx, d, s, logger)
		}
		err = s.repl(ctx, os.Stdin)
	case "export":
		_, err = s.export(ctx, argOr(args, 1, ""))
	case "svg":
		if out := argOr(args, 1, ""); out != "" {
			err = s.saveSVG(out)
		} else {
			err = s.writeSVG(os.Stdout)
		}
	case "share":
		err = s.share(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("[-] %s: %v", cmd, err)
	}
}

// openSession loads the project named by the -url fragment, or starts a
// new one.
func openSession(ctx context.Context, cfg *config.Config, kv store.KV, logger *slog.Logger) (*session, error) {
	var projectID string
	if cfg.ProjectURL != "" {
		params, err := urlstate.ParamsFromString(cfg.ProjectURL)
		if err != nil {
			return nil, fmt.Errorf("parse -url: %w", err)
		}
		projectID = params[urlstate.ProjectIDKey]
	}

	doc := editor.NewDocument(projectID)
	if projectID != "" {
		var err error
		if doc, err = editor.Load(ctx, kv, projectID); err != nil {
			return nil, fmt.Errorf("load project %s: %w", projectID, err)
		}
	}

	voices := speech.NewVoiceCache(cfg.VoiceLang)
	if err := voices.Load(ctx, cfg.SpeechCommand); err != nil {
		log.Printf("[!] Could not list voices from %s: %v", cfg.SpeechCommand, err)
	}

	opener := media.DefaultOpener(media.Options{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		DPI:         cfg.DPI,
		Logger:      logger,
	})
	ed := editor.New(doc, editor.Options{
		Prober:  speech.NewExecEngine(cfg.SpeechCommand, voices, logger),
		Opener:  opener,
		Handles: media.NewRegistry(),
		Logger:  logger,
	})
	speaker := speech.NewExecEngine(cfg.SpeechCommand, voices, logger)
	return newSession(cfg, kv, ed, speaker, voices, logger, os.Stdout), nil
}

// watchProject logs every write of the opened project's record, including
// writes by other processes.
func watchProject(ctx context.Context, d *store.Dir, s *session, logger *slog.Logger) {
	w, err := d.Watch()
	if err != nil {
		logger.Warn("watch store", "err", err)
		return
	}
	defer w.Close()

	key := editor.Key(s.editor.ProjectID())
	for {
		select {
		case <-ctx.Done():
			return
		case k := <-w.Keys():
			if k == key {
				logger.Info("project written", "key", k)
			}
		case err := <-w.Errors():
			logger.Warn("watch store", "err", err)
		}
	}
}
