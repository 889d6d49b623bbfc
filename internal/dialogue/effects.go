package dialogue

import "fmt"

// ActionKind names an authored side effect attached to a hook.
type ActionKind string

const (
	// ActionSound plays a named sound cue.
	ActionSound ActionKind = "sound"
	// ActionUnlock unlocks an inventory item.
	ActionUnlock ActionKind = "unlock"
	// ActionFlag sets a story flag.
	ActionFlag ActionKind = "flag"
	// ActionUnflag clears a story flag.
	ActionUnflag ActionKind = "unflag"
	// ActionGoto diverts the talker to a branch.
	ActionGoto ActionKind = "goto"
	// ActionStop ends the talker's conversation.
	ActionStop ActionKind = "stop"
	// ActionCollect enables a locked collectable so it can be picked up.
	ActionCollect ActionKind = "collect"
	// ActionSay writes a line to the host log.
	ActionSay ActionKind = "say"
)

var knownActions = map[ActionKind]bool{
	ActionSound:   true,
	ActionUnlock:  true,
	ActionFlag:    true,
	ActionUnflag:  true,
	ActionGoto:    true,
	ActionStop:    true,
	ActionCollect: true,
	ActionSay:     true,
}

// Action is one authored side effect.
type Action struct {
	Kind  ActionKind
	Value string
}

func (a Action) String() string {
	return fmt.Sprintf("%s:%s", a.Kind, a.Value)
}

// Effects carries out authored actions on behalf of a talker.
// Hosts implement it to reach audio, inventory, flags and the talker itself.
type Effects interface {
	Apply(cue Cue, action Action)
}

// NoOpEffects ignores every action.
type NoOpEffects struct{}

func (NoOpEffects) Apply(Cue, Action) {}

// Bind subscribes actions to hook, in order.
func Bind(hook *Hook, actions ...Action) {
	for _, a := range actions {
		hook.Subscribe(func(c Cue) {
			if c.Effects != nil {
				c.Effects.Apply(c, a)
			}
		})
	}
}
