package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
)

const sampleRate = beep.SampleRate(48000)

// Note is one pitch of a cue.
type Note struct {
	Freq float64
	Dur  time.Duration
}

// cues maps authored sound names to short note sequences.
var cues = map[string][]Note{
	"chime": {{Freq: 880, Dur: 90 * time.Millisecond}, {Freq: 1320, Dur: 160 * time.Millisecond}},
	"pop":   {{Freq: 660, Dur: 60 * time.Millisecond}},
	"glow":  {{Freq: 392, Dur: 200 * time.Millisecond}, {Freq: 523, Dur: 200 * time.Millisecond}, {Freq: 659, Dur: 300 * time.Millisecond}},
	"bell":  {{Freq: 1047, Dur: 400 * time.Millisecond}},
	"hoot":  {{Freq: 330, Dur: 180 * time.Millisecond}, {Freq: 294, Dur: 260 * time.Millisecond}},
}

// unknownCue is played for names without an entry.
var unknownCue = Note{Freq: 440, Dur: 120 * time.Millisecond}

// Known reports whether name has a tuned cue.
func Known(name string) bool {
	_, ok := cues[name]
	return ok
}

// Cue builds the streamer for a named sound.
func Cue(name string, sr beep.SampleRate) (beep.Streamer, error) {
	notes, ok := cues[name]
	if !ok {
		tone, err := generators.SineTone(sr, unknownCue.Freq)
		if err != nil {
			return nil, err
		}
		return beep.Take(sr.N(unknownCue.Dur), &gain{s: tone, g: 0.15}), nil
	}
	parts := make([]beep.Streamer, len(notes))
	for i, n := range notes {
		parts[i] = beep.Take(sr.N(n.Dur), NewPluckGenerator(sr, n.Freq, n.Dur))
	}
	return beep.Seq(parts...), nil
}

// PluckGenerator is a sine with a fast attack and exponential decay.
type PluckGenerator struct {
	sr    beep.SampleRate
	freq  float64
	decay float64
	pos   int
}

// NewPluckGenerator creates a generator that fades out over roughly dur.
func NewPluckGenerator(sr beep.SampleRate, freq float64, dur time.Duration) *PluckGenerator {
	d := dur.Seconds()
	if d <= 0 {
		d = 0.1
	}
	return &PluckGenerator{sr: sr, freq: freq, decay: 5 / d}
}

func (g *PluckGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		t := float64(g.pos) / float64(g.sr)
		attack := math.Min(t/0.005, 1.0)
		sample := 0.25 * attack * math.Exp(-t*g.decay) * math.Sin(2*math.Pi*g.freq*t)
		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *PluckGenerator) Err() error {
	return nil
}

type gain struct {
	s beep.Streamer
	g float64
}

func (v *gain) Stream(samples [][2]float64) (int, bool) {
	n, ok := v.s.Stream(samples)
	for i := 0; i < n; i++ {
		samples[i][0] *= v.g
		samples[i][1] *= v.g
	}
	return n, ok
}

func (v *gain) Err() error { return v.s.Err() }
