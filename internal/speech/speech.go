// Package speech issues speech-synthesis requests and measures how long an
// utterance takes to speak.
package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ivlev/scaffoldhero/internal/node"
)

// ErrCancelled is reported to OnEnd when CancelAll stopped an utterance.
var ErrCancelled = errors.New("speech cancelled")

// Utterance is one speech request.
type Utterance struct {
	Text     string
	Rate     float64
	VoiceURI string
}

// UtteranceFor builds the request for a speech node.
func UtteranceFor(n *node.AudioSpeech) Utterance {
	return Utterance{Text: n.Text, Rate: n.VoiceOpt.Rate, VoiceURI: n.VoiceOpt.VoiceURI}
}

// Callbacks are invoked by the engine, possibly from another goroutine.
// Either may be nil.
type Callbacks struct {
	OnStart func()
	OnEnd   func(err error)
}

// Engine is a speech synthesizer.
type Engine interface {
	Speak(u Utterance, cb Callbacks) error
	CancelAll()
}

// MeasureDuration speaks u once and returns the wall-clock time between the
// start and end callbacks. A cancelled ctx returns ctx.Err() and the
// measurement is discarded.
func MeasureDuration(ctx context.Context, eng Engine, u Utterance) (time.Duration, error) {
	started := make(chan time.Time, 1)
	ended := make(chan error, 1)

	err := eng.Speak(u, Callbacks{
		OnStart: func() { started <- time.Now() },
		OnEnd:   func(err error) { ended <- err },
	})
	if err != nil {
		return 0, fmt.Errorf("speak probe utterance: %w", err)
	}

	var start time.Time
	select {
	case start = <-started:
	case err := <-ended:
		if err == nil {
			err = errors.New("utterance ended before it started")
		}
		return 0, err
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	select {
	case err := <-ended:
		if err != nil {
			return 0, err
		}
		return time.Since(start), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Recorder is an Engine that does not produce sound. It records every
// request and fires both callbacks, Duration apart.
type Recorder struct {
	Duration time.Duration

	mu         sync.Mutex
	utterances []Utterance
	cancels    int
}

func (r *Recorder) Speak(u Utterance, cb Callbacks) error {
	r.mu.Lock()
	r.utterances = append(r.utterances, u)
	r.mu.Unlock()

	go func() {
		if cb.OnStart != nil {
			cb.OnStart()
		}
		if r.Duration > 0 {
			time.Sleep(r.Duration)
		}
		if cb.OnEnd != nil {
			cb.OnEnd(nil)
		}
	}()
	return nil
}

func (r *Recorder) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels++
}

// Utterances returns the requests seen so far.
func (r *Recorder) Utterances() []Utterance {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]Utterance, len(r.utterances))
	copy(res, r.utterances)
	return res
}

// Cancels returns how many times CancelAll was called.
func (r *Recorder) Cancels() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancels
}
