package speech

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Voice is one installed synthesizer voice.
type Voice struct {
	Name  string
	Lang  string
	URI   string
	Local bool
}

// VoiceCache holds the voices available for one language. It is built once
// at startup and handed to whatever issues speech requests.
type VoiceCache struct {
	Lang string

	mu     sync.RWMutex
	voices []Voice
}

func NewVoiceCache(lang string) *VoiceCache {
	return &VoiceCache{Lang: lang}
}

// Load queries the synthesizer's voice list.
func (c *VoiceCache) Load(ctx context.Context, command string) error {
	if command == "" {
		command = "espeak"
	}
	out, err := exec.CommandContext(ctx, command, "--voices").Output()
	if err != nil {
		return fmt.Errorf("list voices: %w", err)
	}
	c.Set(ParseVoices(out, c.Lang))
	return nil
}

// Set replaces the cached voices.
func (c *VoiceCache) Set(voices []Voice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.voices = voices
}

func (c *VoiceCache) Voices() []Voice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res := make([]Voice, len(c.voices))
	copy(res, c.voices)
	return res
}

// Default returns the first cached voice.
func (c *VoiceCache) Default() (Voice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.voices) == 0 {
		return Voice{}, false
	}
	return c.voices[0], true
}

// Lookup finds a voice by URI.
func (c *VoiceCache) Lookup(uri string) (Voice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, v := range c.voices {
		if v.URI == uri {
			return v, true
		}
	}
	return Voice{}, false
}

// ParseVoices reads `espeak --voices` output and keeps local voices whose
// language matches lang (case-insensitive). An empty lang keeps all.
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  en-au           --/M      English_(Australia) en/en-au
func ParseVoices(out []byte, lang string) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	header := true
	for sc.Scan() {
		if header {
			header = false
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) < 5 {
			continue
		}
		v := Voice{
			Lang:  fields[1],
			Name:  strings.ReplaceAll(fields[3], "_", " "),
			URI:   fields[4],
			Local: true,
		}
		if lang != "" && !strings.EqualFold(v.Lang, lang) {
			continue
		}
		voices = append(voices, v)
	}
	return voices
}
