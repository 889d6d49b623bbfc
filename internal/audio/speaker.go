// Package audio plays the short cues authored dialogue asks for.
package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/rs/zerolog/log"
)

// Sink plays named sound cues.
type Sink interface {
	Play(sound string)
}

// Speaker mixes cues onto the system audio device.
type Speaker struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
}

// NewSpeaker creates a speaker. Nothing is played until Initialize succeeds.
func NewSpeaker() *Speaker {
	return &Speaker{mixer: &beep.Mixer{}}
}

// Initialize opens the audio device.
func (s *Speaker) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(s.mixer)
	s.initialized = true
	return nil
}

// Play mixes in the cue for sound. Unknown names play a plain tone.
func (s *Speaker) Play(sound string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return
	}
	st, err := Cue(sound, sampleRate)
	if err != nil {
		log.Warn().Err(err).Str("sound", sound).Msg("build cue")
		return
	}
	speaker.Lock()
	s.mixer.Add(st)
	speaker.Unlock()
}

// Close silences everything still playing.
func (s *Speaker) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return
	}
	speaker.Lock()
	s.mixer.Clear()
	speaker.Unlock()
	s.initialized = false
}

// Null discards every cue.
type Null struct{}

func (Null) Play(string) {}

// Open returns a working speaker when enabled, falling back to Null when the
// device cannot be opened.
func Open(enabled bool) Sink {
	if !enabled {
		return Null{}
	}
	s := NewSpeaker()
	if err := s.Initialize(); err != nil {
		log.Warn().Err(err).Msg("audio disabled")
		return Null{}
	}
	return s
}
