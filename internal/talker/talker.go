// Package talker runs a character's conversation: it walks the dialogue graph
// one part at a time, fades between parts on the host's scheduler, and reacts
// to links clicked in the displayed text.
//
// A Talker is not safe for concurrent use. Hosts serialize every call on it,
// including scheduler ticks, the same way they serialize the rest of a room.
package talker

import (
	"time"

	"github.com/rs/zerolog"

	"SpiritTalk/internal/dialogue"
)

// DefaultMaxChain bounds how many conversations one advance may pass through.
const DefaultMaxChain = 64

// Phase is the coarse state of a talker.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseShowing
	PhaseFading
)

func (p Phase) String() string {
	switch p {
	case PhaseShowing:
		return "showing"
	case PhaseFading:
		return "fading"
	default:
		return "idle"
	}
}

// State is a read-only snapshot of a talker.
type State struct {
	Talking      bool
	Index        int
	Conversation string
	Stopped      bool
	Fading       bool
	Text         string
}

// Phase derives the coarse state.
func (s State) Phase() Phase {
	switch {
	case !s.Talking:
		return PhaseIdle
	case s.Fading:
		return PhaseFading
	default:
		return PhaseShowing
	}
}

// Config wires a talker to its collaborators. Only Start is required.
type Config struct {
	ID        string
	Start     dialogue.Branch
	Presenter Presenter
	Scheduler Scheduler
	Effects   dialogue.Effects
	Logger    *zerolog.Logger
	// MaxChain defaults to DefaultMaxChain.
	MaxChain int
}

// Talker is the runtime state of one character's dialogue.
type Talker struct {
	ID string

	// OnStart fires when the talker starts talking, after the first
	// conversation's own OnStart.
	OnStart dialogue.Hook
	// OnEnd fires after the talker has returned to idle.
	OnEnd dialogue.Hook
	// OnNext fires before each part is shown.
	OnNext dialogue.Hook

	start     dialogue.Branch
	presenter Presenter
	scheduler Scheduler
	effects   dialogue.Effects
	log       zerolog.Logger
	maxChain  int
	links     *LinkRegistry

	talking  bool
	index    int
	conv     *dialogue.Conversation
	stopped  bool
	fading   bool
	partOpen bool
	text     string

	// epoch changes whenever the talker moves to a new position in the
	// graph. Work captured under an older epoch is stale.
	epoch   uint64
	fadeSeq uint64
}

// New creates an idle talker.
func New(cfg Config) *Talker {
	t := &Talker{
		ID:        cfg.ID,
		start:     cfg.Start,
		presenter: cfg.Presenter,
		scheduler: cfg.Scheduler,
		effects:   cfg.Effects,
		maxChain:  cfg.MaxChain,
		links:     NewLinkRegistry(),
	}
	if t.presenter == nil {
		t.presenter = nopPresenter{}
	}
	if t.scheduler == nil {
		t.scheduler = NewTickScheduler()
	}
	if t.effects == nil {
		t.effects = dialogue.NoOpEffects{}
	}
	if t.maxChain <= 0 {
		t.maxChain = DefaultMaxChain
	}
	if cfg.Logger != nil {
		t.log = cfg.Logger.With().Str("talker", cfg.ID).Logger()
	} else {
		t.log = zerolog.Nop()
	}
	return t
}

// State returns a snapshot of the talker.
func (t *Talker) State() State {
	s := State{
		Talking: t.talking,
		Index:   t.index,
		Stopped: t.stopped,
		Fading:  t.fading,
		Text:    t.text,
	}
	if t.conv != nil {
		s.Conversation = t.conv.ID
	}
	return s
}

// Talking reports whether a conversation is running.
func (t *Talker) Talking() bool { return t.talking }

// Text returns the line currently displayed.
func (t *Talker) Text() string { return t.text }

// Conversation returns the running conversation, or nil.
func (t *Talker) Conversation() *dialogue.Conversation { return t.conv }

// Part returns the part being shown, or nil.
func (t *Talker) Part() *dialogue.Part {
	if !t.talking {
		return nil
	}
	return t.conv.Part(t.index)
}

// Links exposes the continue listeners armed for the current part.
func (t *Talker) Links() *LinkRegistry { return t.links }

// Scheduler returns the scheduler fades are queued on.
func (t *Talker) Scheduler() Scheduler { return t.scheduler }

// SetStart changes the branch StartConversation begins from.
func (t *Talker) SetStart(b dialogue.Branch) { t.start = b }

// StartConversation restarts the talker from its start branch. A running
// conversation is ended first. If a hook fired while ending it moves the
// talker on, that move wins and no second start happens.
func (t *Talker) StartConversation() {
	t.stopped = false
	if t.talking {
		epoch := t.epoch
		t.endPart()
		if t.epoch != epoch {
			return
		}
		if t.talking && !t.teardown() {
			return
		}
	}
	t.begin(t.start)
}

// GoTo jumps to branch. While talking the pending fade is dropped and the
// jump happens immediately; while idle it starts a conversation from branch.
func (t *Talker) GoTo(branch dialogue.Branch) {
	t.stopped = false
	if !t.talking {
		t.begin(branch)
		return
	}
	t.cancelFade()
	epoch := t.epoch
	t.endPart()
	if t.epoch != epoch || !t.talking {
		return
	}
	if branch == nil {
		branch = nowhere{}
	}
	t.advance(branch)
}

// Next advances the conversation, or starts one when idle. The current part
// ends now and the next one is shown once the part's wait has elapsed.
// Calling Next while a fade is pending does nothing.
func (t *Talker) Next() {
	t.stopped = false
	if !t.talking {
		t.StartConversation()
		return
	}
	if t.fading {
		return
	}
	part := t.conv.Part(t.index)
	epoch := t.epoch
	t.endPart()
	if t.epoch != epoch || !t.talking || t.fading {
		return
	}

	var wait time.Duration
	if part != nil {
		wait = part.Wait
	}
	t.fading = true
	t.fadeSeq++
	seq := t.fadeSeq
	t.scheduler.Schedule(t, wait, func() { t.finishFade(epoch, seq) })
	t.log.Debug().Int("index", t.index).Dur("wait", wait).Msg("fade")
}

// OnInteract is the player's advance. It is ignored while the current part
// holds the talker stopped.
func (t *Talker) OnInteract() {
	if t.stopped {
		return
	}
	t.Next()
}

// StopConversation ends the current part and returns to idle without a fade.
func (t *Talker) StopConversation() {
	if !t.talking {
		t.cancelFade()
		return
	}
	t.endPart()
	if t.talking {
		t.teardown()
	}
}

// TriggerLink fires the responder bound to id on the current part. Unknown
// ids are ignored. A ThenContinue responder advances the talker once per
// showing of its part.
func (t *Talker) TriggerLink(id string) {
	if !t.talking {
		return
	}
	part := t.conv.Part(t.index)
	lr := part.Link(id)
	if lr == nil {
		t.log.Debug().Str("link", id).Msg("no responder")
		return
	}
	epoch := t.epoch
	lr.OnLink.Fire(t.cue(part, id))
	if t.epoch != epoch || !t.talking {
		return
	}
	t.links.Trigger(id)
}

// OnPointerUp triggers the link under pos, if any.
func (t *Talker) OnPointerUp(pos Point, cam Camera) {
	if !t.talking || t.conv == nil {
		return
	}
	id, ok := t.presenter.LinkAt(pos, cam)
	if !ok {
		return
	}
	t.TriggerLink(id)
}

// IsInteractableAt reports whether a pointer at pos is over a clickable link.
func (t *Talker) IsInteractableAt(pos Point, cam Camera) bool {
	if !t.talking || t.conv == nil {
		return false
	}
	_, ok := t.presenter.LinkAt(pos, cam)
	return ok
}

func (t *Talker) begin(branch dialogue.Branch) {
	conv := resolve(branch)
	if conv == nil {
		t.log.Debug().Msg("start branch resolved to nothing")
		return
	}
	t.scheduler.Cancel(t)
	t.epoch++
	t.fadeSeq++
	epoch := t.epoch
	t.fading = false
	t.talking = true
	t.conv = conv
	t.index = -1
	t.log.Debug().Str("conversation", conv.ID).Msg("start")

	conv.OnStart.Fire(t.cue(nil, ""))
	if t.epoch != epoch {
		return
	}
	t.OnStart.Fire(t.cue(nil, ""))
	if t.epoch != epoch {
		return
	}
	t.advance(nil)
}

// advance moves to the next part. An override branch leaves the running
// conversation even if it has parts left. Conversations with nothing left
// to show are chained through without returning.
func (t *Talker) advance(override dialogue.Branch) {
	if !t.talking || t.conv == nil {
		return
	}
	t.epoch++
	epoch := t.epoch

	for hops := 0; ; hops++ {
		t.index++
		if override == nil {
			if part := t.conv.Part(t.index); part != nil {
				t.show(part, epoch)
				return
			}
		}

		t.conv.OnEnd.Fire(t.cue(nil, ""))
		if t.epoch != epoch {
			return
		}
		next := override
		override = nil
		if next == nil {
			next = t.conv.AndThen
		}
		conv := resolve(next)
		if conv == nil {
			t.teardown()
			return
		}
		if hops >= t.maxChain {
			t.log.Warn().Str("conversation", conv.ID).Int("hops", hops).Msg("conversation chain too long, stopping")
			t.teardown()
			return
		}

		t.conv = conv
		t.index = -1
		t.log.Debug().Str("conversation", conv.ID).Msg("chain")
		conv.OnStart.Fire(t.cue(nil, ""))
		if t.epoch != epoch {
			return
		}
	}
}

func (t *Talker) show(part *dialogue.Part, epoch uint64) {
	t.OnNext.Fire(t.cue(part, ""))
	if t.epoch != epoch {
		return
	}
	t.partOpen = true
	part.OnStart.Fire(t.cue(part, ""))
	if t.epoch != epoch {
		return
	}
	t.setText(part.Text)
	t.stopped = part.StopUntilForced
	t.links.Arm(part, t.continueFromLink)
	t.log.Debug().Str("conversation", t.conv.ID).Int("index", t.index).Bool("stopped", t.stopped).Msg("show")
}

func (t *Talker) continueFromLink(string) {
	t.Next()
}

func (t *Talker) finishFade(epoch, seq uint64) {
	if t.epoch != epoch || t.fadeSeq != seq || !t.talking {
		return
	}
	t.advance(nil)
	if t.fadeSeq == seq {
		t.fading = false
	}
}

// endPart fires the shown part's OnEnd once.
func (t *Talker) endPart() {
	if !t.partOpen {
		return
	}
	t.partOpen = false
	if part := t.conv.Part(t.index); part != nil {
		part.OnEnd.Fire(t.cue(part, ""))
	}
}

func (t *Talker) cancelFade() {
	t.scheduler.Cancel(t)
	t.fadeSeq++
	t.fading = false
}

// teardown returns the talker to idle and fires OnEnd. It reports false
// when an OnEnd listener moved the talker again.
func (t *Talker) teardown() bool {
	cue := t.cue(nil, "")
	t.scheduler.Cancel(t)
	t.epoch++
	epoch := t.epoch
	t.fadeSeq++
	t.talking = false
	t.index = 0
	t.conv = nil
	t.stopped = false
	t.fading = false
	t.partOpen = false
	t.links.Reset()
	t.setText("")
	t.log.Debug().Msg("end")
	t.OnEnd.Fire(cue)
	return t.epoch == epoch
}

func (t *Talker) setText(text string) {
	t.text = text
	t.presenter.Display(text)
}

func (t *Talker) cue(part *dialogue.Part, link string) dialogue.Cue {
	return dialogue.Cue{
		Talker:       t.ID,
		Conversation: t.conv,
		Part:         part,
		Index:        t.index,
		Link:         link,
		Effects:      t.effects,
	}
}

func resolve(b dialogue.Branch) *dialogue.Conversation {
	if b == nil {
		return nil
	}
	return b.Resolve()
}

// nowhere is the override used by GoTo(nil): it leaves the conversation and
// resolves to nothing.
type nowhere struct{}

func (nowhere) Name() string { return "" }
func (nowhere) Resolve() *dialogue.Conversation { return nil }
