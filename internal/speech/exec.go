package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
)

// ExecEngine speaks through an espeak-compatible command line program,
// one process per utterance.
type ExecEngine struct {
	Command string
	// BaseWPM is the words-per-minute that Rate 1.0 maps to.
	BaseWPM int
	Voices  *VoiceCache
	Logger  *slog.Logger

	mu      sync.Mutex
	nextID  int
	running map[int]context.CancelFunc
}

func NewExecEngine(command string, voices *VoiceCache, logger *slog.Logger) *ExecEngine {
	if command == "" {
		command = "espeak"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecEngine{
		Command: command,
		BaseWPM: 175,
		Voices:  voices,
		Logger:  logger,
		running: make(map[int]context.CancelFunc),
	}
}

func (e *ExecEngine) args(u Utterance) []string {
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	args := []string{"-s", strconv.Itoa(int(float64(e.BaseWPM) * rate))}

	voice := u.VoiceURI
	if voice == "" && e.Voices != nil {
		if v, ok := e.Voices.Default(); ok {
			voice = v.URI
		}
	}
	if voice != "" {
		args = append(args, "-v", voice)
	}
	return append(args, "--", u.Text)
}

func (e *ExecEngine) Speak(u Utterance, cb Callbacks) error {
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, e.Command, e.args(u)...)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start %s: %w", e.Command, err)
	}

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.running[id] = cancel
	e.mu.Unlock()

	if cb.OnStart != nil {
		cb.OnStart()
	}

	go func() {
		err := cmd.Wait()
		if ctx.Err() != nil {
			err = ErrCancelled
		}

		e.mu.Lock()
		delete(e.running, id)
		e.mu.Unlock()
		cancel()

		if err != nil && err != ErrCancelled {
			e.Logger.Warn("speech process failed", "err", err)
		}
		if cb.OnEnd != nil {
			cb.OnEnd(err)
		}
	}()
	return nil
}

func (e *ExecEngine) CancelAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, cancel := range e.running {
		cancel()
		delete(e.running, id)
	}
}
