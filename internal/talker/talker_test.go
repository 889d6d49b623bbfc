package talker

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SpiritTalk/internal/dialogue"
)

type screen struct {
	lines []string
	links map[Point]string
}

func newScreen() *screen { return &screen{links: map[Point]string{}} }

func (s *screen) Display(text string) { s.lines = append(s.lines, text) }

func (s *screen) LinkAt(pos Point, cam Camera) (string, bool) {
	id, ok := s.links[cam.World(pos)]
	return id, ok
}

type recorder struct{ events []string }

func (r *recorder) note(name string) func(dialogue.Cue) {
	return func(dialogue.Cue) { r.events = append(r.events, name) }
}

func (r *recorder) watch(convs ...*dialogue.Conversation) {
	for _, c := range convs {
		c.OnStart.Subscribe(r.note(c.ID + ".start"))
		c.OnEnd.Subscribe(r.note(c.ID + ".end"))
		for i, p := range c.Parts {
			p.OnStart.Subscribe(r.note(fmt.Sprintf("%s[%d].start", c.ID, i)))
			p.OnEnd.Subscribe(r.note(fmt.Sprintf("%s[%d].end", c.ID, i)))
		}
	}
}

func (r *recorder) watchTalker(tk *Talker) {
	tk.OnStart.Subscribe(r.note("talker.start"))
	tk.OnEnd.Subscribe(r.note("talker.end"))
	tk.OnNext.Subscribe(r.note("talker.next"))
}

func (r *recorder) count(name string) int {
	n := 0
	for _, e := range r.events {
		if e == name {
			n++
		}
	}
	return n
}

func (r *recorder) reset() { r.events = nil }

func part(text string, wait time.Duration) *dialogue.Part {
	return &dialogue.Part{Text: text, Wait: wait}
}

func conv(id string, parts ...*dialogue.Part) *dialogue.Conversation {
	return &dialogue.Conversation{ID: id, Parts: parts}
}

func branchTo(c *dialogue.Conversation) dialogue.Branch {
	name := ""
	if c != nil {
		name = c.ID
	}
	return &dialogue.StaticBranch{BranchName: name, Target: c}
}

func linkPart(text, id string, thenContinue bool) *dialogue.Part {
	p := part(text, 0)
	p.Links = []*dialogue.LinkResponder{{ID: id, ThenContinue: thenContinue}}
	return p
}

func newTalker(start *dialogue.Conversation) (*Talker, *TickScheduler, *screen) {
	sched := NewTickScheduler()
	scr := newScreen()
	tk := New(Config{ID: "moss", Start: branchTo(start), Presenter: scr, Scheduler: sched})
	return tk, sched, scr
}

func TestHiByeScenario(t *testing.T) {
	a := conv("A", part("Hi", time.Second), part("Bye", 0))
	tk, sched, scr := newTalker(a)

	tk.StartConversation()
	require.Equal(t, "Hi", tk.Text())
	assert.Equal(t, PhaseShowing, tk.State().Phase())

	tk.Next()
	assert.Equal(t, PhaseFading, tk.State().Phase())
	assert.Zero(t, sched.Advance(999*time.Millisecond))
	assert.Equal(t, "Hi", tk.Text())

	assert.Equal(t, 1, sched.Advance(time.Millisecond))
	assert.Equal(t, "Bye", tk.Text())
	assert.False(t, tk.State().Fading)

	tk.Next()
	sched.Advance(0)
	st := tk.State()
	assert.False(t, st.Talking)
	assert.Equal(t, "", st.Text)
	assert.Equal(t, 0, st.Index)
	assert.Equal(t, []string{"Hi", "Bye", ""}, scr.lines)
}

func TestNextWalksEveryPartInOrder(t *testing.T) {
	for n := 1; n <= 5; n++ {
		t.Run(fmt.Sprintf("%d parts", n), func(t *testing.T) {
			parts := make([]*dialogue.Part, n)
			for i := range parts {
				parts[i] = part(fmt.Sprintf("line %d", i), 100*time.Millisecond)
			}
			a := conv("A", parts...)
			b := conv("B", part("after", 0))
			a.AndThen = branchTo(b)
			tk, sched, _ := newTalker(a)

			tk.StartConversation()
			for i := 0; i < n; i++ {
				st := tk.State()
				require.Equal(t, "A", st.Conversation)
				require.Equal(t, i, st.Index)
				require.Equal(t, fmt.Sprintf("line %d", i), st.Text)
				tk.Next()
				sched.Advance(100 * time.Millisecond)
			}
			st := tk.State()
			assert.Equal(t, "B", st.Conversation)
			assert.Equal(t, "after", st.Text)
		})
	}
}

func TestNextWhileFadingIsIgnored(t *testing.T) {
	a := conv("A", part("a0", time.Second), part("a1", 0))
	rec := &recorder{}
	rec.watch(a)
	tk, sched, _ := newTalker(a)

	tk.StartConversation()
	tk.Next()
	before := tk.State()
	tk.Next()
	tk.Next()

	assert.Equal(t, before, tk.State())
	assert.Equal(t, 1, rec.count("A[0].end"))
	assert.Equal(t, 1, sched.Pending(tk))

	sched.Advance(time.Second)
	assert.Equal(t, 1, tk.State().Index)
}

func TestContinueLinkAdvancesOncePerShowing(t *testing.T) {
	p := linkPart("say [[go]]", "go", true)
	reactions := 0
	p.Links[0].OnLink.Subscribe(func(dialogue.Cue) { reactions++ })
	a := conv("A", p, part("a1", 0))
	tk, sched, _ := newTalker(a)

	tk.StartConversation()
	require.True(t, tk.Links().Live("go"))

	tk.TriggerLink("go")
	tk.TriggerLink("go")
	assert.Equal(t, 2, reactions)
	assert.False(t, tk.Links().Live("go"))
	assert.Equal(t, 1, sched.Pending(tk))

	sched.Advance(0)
	assert.Equal(t, "a1", tk.Text())
	sched.Advance(time.Second)
	assert.Equal(t, "a1", tk.Text())
}

func TestReshowingPartRearmsLink(t *testing.T) {
	a := conv("A", linkPart("[[again]]", "again", true))
	a.AndThen = branchTo(a)
	rec := &recorder{}
	rec.watch(a)
	tk, sched, _ := newTalker(a)

	tk.StartConversation()
	for i := 0; i < 3; i++ {
		require.True(t, tk.Links().Live("again"))
		tk.TriggerLink("again")
		require.False(t, tk.Links().Live("again"))
		sched.Advance(0)
	}
	assert.True(t, tk.Talking())
	assert.Equal(t, 4, rec.count("A.start"))
	assert.Equal(t, 3, rec.count("A.end"))
}

func TestLinkWithoutContinueOnlyReacts(t *testing.T) {
	p := linkPart("[[look]]", "look", false)
	looked := 0
	p.Links[0].OnLink.Subscribe(func(c dialogue.Cue) {
		looked++
		assert.Equal(t, "look", c.Link)
		assert.Equal(t, "moss", c.Talker)
	})
	tk, sched, _ := newTalker(conv("A", p, part("a1", 0)))

	tk.StartConversation()
	tk.TriggerLink("look")
	tk.TriggerLink("look")
	assert.Equal(t, 2, looked)
	assert.Zero(t, sched.Pending(tk))
	assert.Equal(t, PhaseShowing, tk.State().Phase())
}

func TestUnknownLinkIsIgnored(t *testing.T) {
	tk, sched, _ := newTalker(conv("A", linkPart("[[go]]", "go", true)))
	tk.TriggerLink("nope")
	assert.False(t, tk.Talking())

	tk.StartConversation()
	before := tk.State()
	tk.TriggerLink("nope")
	assert.Equal(t, before, tk.State())
	assert.Zero(t, sched.Pending(nil))
}

func TestGoToBypassesPendingFade(t *testing.T) {
	a := conv("A", part("a0", 5*time.Second), part("a1", 0))
	b := conv("B", part("b0", 0))
	rec := &recorder{}
	rec.watch(a, b)
	tk, sched, _ := newTalker(a)

	tk.StartConversation()
	tk.Next()
	require.True(t, tk.State().Fading)

	rec.reset()
	tk.GoTo(branchTo(b))
	assert.Equal(t, "b0", tk.Text())
	assert.False(t, tk.State().Fading)
	assert.Zero(t, sched.Pending(tk))
	assert.Equal(t, []string{"A.end", "B.start", "B[0].start"}, rec.events)

	sched.Advance(10 * time.Second)
	assert.Equal(t, "b0", tk.Text())
}

func TestGoToWhileShowingEndsPartOnce(t *testing.T) {
	a := conv("A", part("a0", 0), part("a1", 0))
	b := conv("B", part("b0", 0))
	rec := &recorder{}
	rec.watch(a, b)
	tk, _, _ := newTalker(a)
	rec.watchTalker(tk)

	tk.StartConversation()
	rec.reset()
	tk.GoTo(branchTo(b))
	assert.Equal(t, []string{"A[0].end", "A.end", "B.start", "talker.next", "B[0].start"}, rec.events)
	assert.Equal(t, "B", tk.State().Conversation)
}

func TestGoToWhileIdleStartsThere(t *testing.T) {
	a := conv("A", part("a0", 0))
	b := conv("B", part("b0", 0))
	tk, _, _ := newTalker(a)

	tk.GoTo(branchTo(b))
	assert.Equal(t, "b0", tk.Text())
}

func TestGoToUnresolvableBranchTearsDown(t *testing.T) {
	for name, target := range map[string]dialogue.Branch{
		"nil branch":   nil,
		"empty branch": branchTo(nil),
	} {
		t.Run(name, func(t *testing.T) {
			a := conv("A", part("a0", 0), part("a1", 0))
			rec := &recorder{}
			rec.watch(a)
			tk, _, _ := newTalker(a)
			rec.watchTalker(tk)

			tk.StartConversation()
			rec.reset()
			tk.GoTo(target)
			assert.False(t, tk.Talking())
			assert.Equal(t, []string{"A[0].end", "A.end", "talker.end"}, rec.events)
		})
	}
}

func TestStoppedPartIgnoresInteract(t *testing.T) {
	p := part("wait for it", 0)
	p.StopUntilForced = true
	a := conv("A", p, part("go on", 0))
	tk, sched, _ := newTalker(a)

	tk.StartConversation()
	require.True(t, tk.State().Stopped)
	for i := 0; i < 3; i++ {
		tk.OnInteract()
		sched.Advance(time.Second)
	}
	assert.Equal(t, 0, tk.State().Index)
	assert.Zero(t, sched.Pending(tk))

	tk.Next()
	sched.Advance(0)
	assert.Equal(t, "go on", tk.Text())
	assert.False(t, tk.State().Stopped)

	tk.OnInteract()
	sched.Advance(0)
	assert.False(t, tk.Talking())
}

func TestContinueLinkReleasesStoppedPart(t *testing.T) {
	p := linkPart("[[who are you?|who]]", "who", true)
	p.StopUntilForced = true
	tk, sched, _ := newTalker(conv("A", p, part("a spirit", 0)))

	tk.StartConversation()
	tk.OnInteract()
	sched.Advance(0)
	require.Equal(t, 0, tk.State().Index)

	tk.TriggerLink("who")
	sched.Advance(0)
	assert.Equal(t, "a spirit", tk.Text())
}

func TestAndThenChainsWithinOneAdvance(t *testing.T) {
	a := conv("A", part("a0", 0))
	b := conv("B", part("b0", 0))
	a.AndThen = branchTo(b)
	rec := &recorder{}
	rec.watch(a, b)
	tk, sched, scr := newTalker(a)
	rec.watchTalker(tk)

	tk.StartConversation()
	assert.Equal(t, []string{"A.start", "talker.start", "talker.next", "A[0].start"}, rec.events)

	rec.reset()
	tk.Next()
	assert.Equal(t, []string{"A[0].end"}, rec.events)
	assert.Equal(t, 1, sched.Advance(0))
	assert.Equal(t, []string{"A[0].end", "A.end", "B.start", "talker.next", "B[0].start"}, rec.events)
	assert.Equal(t, []string{"a0", "b0"}, scr.lines)
	assert.Equal(t, "B", tk.State().Conversation)
}

func TestStopDuringFadeCancelsTimer(t *testing.T) {
	a := conv("A", part("a0", time.Second), part("a1", 0))
	rec := &recorder{}
	rec.watch(a)
	tk, sched, scr := newTalker(a)
	rec.watchTalker(tk)

	tk.StartConversation()
	tk.Next()
	tk.StopConversation()
	assert.False(t, tk.Talking())
	assert.Zero(t, sched.Pending(tk))

	sched.Advance(2 * time.Second)
	assert.False(t, tk.Talking())
	assert.Equal(t, []string{"a0", ""}, scr.lines)
	assert.Equal(t, 1, rec.count("A[0].end"))
	assert.Equal(t, 1, rec.count("talker.end"))
}

// leakyScheduler never cancels, so late fades reach the talker.
type leakyScheduler struct{ *TickScheduler }

func (leakyScheduler) Cancel(any) int { return 0 }

func TestLateFadeAfterRestartIsIgnored(t *testing.T) {
	a := conv("A", part("a0", time.Second), part("a1", 0))
	sched := leakyScheduler{NewTickScheduler()}
	tk := New(Config{Start: branchTo(a), Scheduler: sched})

	tk.StartConversation()
	tk.Next()
	tk.StopConversation()
	tk.StartConversation()
	require.Equal(t, 1, sched.Pending(tk))

	sched.Advance(time.Second)
	st := tk.State()
	assert.True(t, st.Talking)
	assert.Equal(t, 0, st.Index)
	assert.Equal(t, "a0", st.Text)
	assert.False(t, st.Fading)

	tk.Next()
	sched.Advance(time.Second)
	assert.Equal(t, "a1", tk.Text())
}

func TestStopAfterNextDoesNotEndPartTwice(t *testing.T) {
	a := conv("A", part("a0", time.Second), part("a1", 0))
	rec := &recorder{}
	rec.watch(a)
	tk, _, _ := newTalker(a)

	tk.StartConversation()
	tk.StopConversation()
	tk.StartConversation()
	tk.Next()
	tk.StopConversation()
	assert.Equal(t, 2, rec.count("A[0].start"))
	assert.Equal(t, 2, rec.count("A[0].end"))
}

func TestStopWhileIdleIsQuiet(t *testing.T) {
	tk, _, scr := newTalker(conv("A", part("a0", 0)))
	rec := &recorder{}
	rec.watchTalker(tk)

	tk.StopConversation()
	assert.Empty(t, rec.events)
	assert.Empty(t, scr.lines)
}

func TestZeroPartConversationPassesThrough(t *testing.T) {
	empty := conv("E")
	b := conv("B", part("b0", 0))
	empty.AndThen = branchTo(b)
	rec := &recorder{}
	rec.watch(empty, b)
	tk, _, _ := newTalker(empty)
	rec.watchTalker(tk)

	tk.StartConversation()
	assert.Equal(t, []string{"E.start", "talker.start", "E.end", "B.start", "talker.next", "B[0].start"}, rec.events)
	assert.Equal(t, "b0", tk.Text())
}

func TestZeroPartConversationWithoutSuccessorEnds(t *testing.T) {
	empty := conv("E")
	rec := &recorder{}
	rec.watch(empty)
	tk, _, _ := newTalker(empty)
	rec.watchTalker(tk)

	tk.StartConversation()
	assert.Equal(t, []string{"E.start", "talker.start", "E.end", "talker.end"}, rec.events)
	assert.False(t, tk.Talking())
}

func TestAndThenCycleStopsAtHopLimit(t *testing.T) {
	loop := conv("L")
	loop.AndThen = branchTo(loop)
	rec := &recorder{}
	rec.watch(loop)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	tk := New(Config{ID: "moss", Start: branchTo(loop), MaxChain: 8, Logger: &logger})

	require.NotPanics(t, tk.StartConversation)
	assert.False(t, tk.Talking())
	assert.Equal(t, 9, rec.count("L.end"))
	assert.Contains(t, buf.String(), "conversation chain too long")
	assert.Contains(t, buf.String(), `"talker":"moss"`)
}

func TestStartWithUnresolvableBranchStaysIdle(t *testing.T) {
	tk := New(Config{Start: branchTo(nil)})
	rec := &recorder{}
	rec.watchTalker(tk)

	tk.StartConversation()
	tk.OnInteract()
	assert.False(t, tk.Talking())
	assert.Empty(t, rec.events)

	tk = New(Config{})
	assert.NotPanics(t, tk.StartConversation)
}

func TestInteractWhileIdleStarts(t *testing.T) {
	tk, _, _ := newTalker(conv("A", part("a0", 0)))
	tk.OnInteract()
	assert.Equal(t, "a0", tk.Text())
}

func TestStartConversationWhileTalkingRestarts(t *testing.T) {
	a := conv("A", part("a0", 0), part("a1", 0))
	rec := &recorder{}
	rec.watch(a)
	tk, sched, _ := newTalker(a)
	rec.watchTalker(tk)

	tk.StartConversation()
	tk.Next()
	sched.Advance(0)
	require.Equal(t, "a1", tk.Text())

	rec.reset()
	tk.StartConversation()
	assert.Equal(t, []string{"A[1].end", "talker.end", "A.start", "talker.start", "talker.next", "A[0].start"}, rec.events)
	assert.Equal(t, "a0", tk.Text())
}

func TestRestartFromTalkerOnEndStartsOnce(t *testing.T) {
	a := conv("A", part("Hi", 0), part("Bye", 0))
	rec := &recorder{}
	rec.watch(a)
	tk, _, scr := newTalker(a)
	rec.watchTalker(tk)
	tk.OnEnd.Subscribe(func(dialogue.Cue) {
		if !tk.Talking() {
			tk.StartConversation()
		}
	})

	tk.StartConversation()
	rec.reset()
	tk.StartConversation()

	assert.Equal(t, []string{"A[0].end", "talker.end", "A.start", "talker.start", "talker.next", "A[0].start"}, rec.events)
	assert.Equal(t, []string{"Hi", "", "Hi"}, scr.lines)
	assert.True(t, tk.Talking())
}

func TestRestartFromPartOnEndStartsOnce(t *testing.T) {
	a := conv("A", part("Hi", 0), part("Bye", 0))
	rec := &recorder{}
	rec.watch(a)
	tk, sched, scr := newTalker(a)
	rec.watchTalker(tk)
	a.Parts[0].OnEnd.Once(func(dialogue.Cue) { tk.StartConversation() })

	tk.StartConversation()
	rec.reset()
	tk.StartConversation()

	assert.Equal(t, 1, rec.count("A.start"))
	assert.Equal(t, 1, rec.count("talker.start"))
	assert.Equal(t, 1, rec.count("talker.end"))
	assert.Equal(t, []string{"Hi", "", "Hi"}, scr.lines)

	rec.reset()
	tk.Next()
	sched.Advance(0)
	assert.Equal(t, 1, rec.count("A[0].end"))
	assert.Equal(t, "Bye", tk.Text())
}

type divertEffects struct {
	tk       *Talker
	branches map[string]dialogue.Branch
}

func (e *divertEffects) Apply(_ dialogue.Cue, a dialogue.Action) {
	switch a.Kind {
	case dialogue.ActionGoto:
		e.tk.GoTo(e.branches[a.Value])
	case dialogue.ActionStop:
		e.tk.StopConversation()
	}
}

func TestLinkReactionCanDivert(t *testing.T) {
	p := linkPart("[[the lantern|lantern]]", "lantern", true)
	dialogue.Bind(&p.Links[0].OnLink, dialogue.Action{Kind: dialogue.ActionGoto, Value: "B"})
	a := conv("A", p, part("a1", 0))
	b := conv("B", part("b0", 0), part("b1", 0))
	fx := &divertEffects{branches: map[string]dialogue.Branch{"B": branchTo(b)}}
	sched := NewTickScheduler()
	tk := New(Config{Start: branchTo(a), Scheduler: sched, Effects: fx})
	fx.tk = tk

	tk.StartConversation()
	tk.TriggerLink("lantern")
	st := tk.State()
	assert.Equal(t, "B", st.Conversation)
	assert.Equal(t, 0, st.Index)
	assert.False(t, st.Fading)
	assert.Zero(t, sched.Pending(tk))
}

func TestHookMayStopTalker(t *testing.T) {
	p := part("never shown", 0)
	dialogue.Bind(&p.OnStart, dialogue.Action{Kind: dialogue.ActionStop})
	a := conv("A", p)
	rec := &recorder{}
	rec.watch(a)
	fx := &divertEffects{}
	scr := newScreen()
	tk := New(Config{Start: branchTo(a), Effects: fx, Presenter: scr})
	fx.tk = tk

	tk.StartConversation()
	assert.False(t, tk.Talking())
	assert.Equal(t, 1, rec.count("A[0].end"))
	assert.NotContains(t, scr.lines, "never shown")
}

func TestPointerUpTriggersLinkUnderCursor(t *testing.T) {
	tk, sched, scr := newTalker(conv("A", linkPart("[[go]]", "go", true), part("a1", 0)))
	scr.links[Point{X: 5, Y: 1}] = "go"
	cam := Camera{X: 2}
	over := Point{X: 3, Y: 1}

	assert.False(t, tk.IsInteractableAt(over, cam))
	tk.OnPointerUp(over, cam)
	assert.False(t, tk.Talking())

	tk.StartConversation()
	assert.True(t, tk.IsInteractableAt(over, cam))
	assert.False(t, tk.IsInteractableAt(Point{}, cam))

	tk.OnPointerUp(Point{}, cam)
	assert.Zero(t, sched.Pending(tk))
	tk.OnPointerUp(over, cam)
	sched.Advance(0)
	assert.Equal(t, "a1", tk.Text())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "showing", PhaseShowing.String())
	assert.Equal(t, "fading", PhaseFading.String())
}
