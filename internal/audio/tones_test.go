package audio

import (
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, s beep.Streamer) (int, float64) {
	t.Helper()
	buf := make([][2]float64, 512)
	total, peak := 0, 0.0
	for {
		n, ok := s.Stream(buf)
		for i := 0; i < n; i++ {
			v := buf[i][0]
			if v < 0 {
				v = -v
			}
			if v > peak {
				peak = v
			}
		}
		total += n
		if !ok || n == 0 {
			break
		}
	}
	return total, peak
}

func TestCueLengthMatchesNotes(t *testing.T) {
	rate := beep.SampleRate(44100)
	s, err := Cue("chime", rate)
	require.NoError(t, err)

	n, peak := drain(t, s)
	want := rate.N(90*time.Millisecond) + rate.N(160*time.Millisecond)
	assert.Equal(t, want, n)
	assert.Greater(t, peak, 0.0)
	assert.LessOrEqual(t, peak, 1.0)
}

func TestUnknownCuePlaysPlainTone(t *testing.T) {
	rate := beep.SampleRate(44100)
	assert.False(t, Known("kazoo"))
	s, err := Cue("kazoo", rate)
	require.NoError(t, err)

	n, peak := drain(t, s)
	assert.Equal(t, rate.N(120*time.Millisecond), n)
	assert.LessOrEqual(t, peak, 0.15+1e-9)
}

func TestPluckGeneratorDecays(t *testing.T) {
	rate := beep.SampleRate(8000)
	g := NewPluckGenerator(rate, 200, 100*time.Millisecond)
	early := make([][2]float64, 200)
	late := make([][2]float64, 200)
	g.Stream(early)
	for i := 0; i < 10; i++ {
		g.Stream(late)
	}
	_, earlyPeak := drain(t, beep.Take(len(early), sliceStreamer(early)))
	_, latePeak := drain(t, beep.Take(len(late), sliceStreamer(late)))
	assert.Greater(t, earlyPeak, latePeak)
	assert.NoError(t, g.Err())
}

func sliceStreamer(buf [][2]float64) beep.Streamer {
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= len(buf) {
			return 0, false
		}
		n := copy(samples, buf[pos:])
		pos += n
		return n, true
	})
}

func TestSpeakerIgnoresPlayBeforeInitialize(t *testing.T) {
	s := NewSpeaker()
	assert.NotPanics(t, func() { s.Play("chime") })
	assert.NotPanics(t, s.Close)
	Null{}.Play("chime")
	assert.IsType(t, Null{}, Open(false))
}
