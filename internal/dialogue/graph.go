// Package dialogue holds the authored conversation graph a Talker walks:
// branches, conversations, dialogue parts and link responders.
//
// A Graph is built once from an authored file and validated at load time.
// After that it is read-only and may be shared by any number of talkers.
package dialogue

import (
	"errors"
	"time"
)

var (
	// ErrConversationNotFound is returned when a branch names a missing conversation.
	ErrConversationNotFound = errors.New("dialogue: conversation not found")
	// ErrBranchNotFound is returned when a reference names a missing branch.
	ErrBranchNotFound = errors.New("dialogue: branch not found")
	// ErrDuplicateID is returned when two authored entries share an id.
	ErrDuplicateID = errors.New("dialogue: duplicate id")
	// ErrNegativeWait is returned when a part has a negative fade time.
	ErrNegativeWait = errors.New("dialogue: negative wait")
	// ErrUnknownLink is returned when a responder's link id is not in the part text.
	ErrUnknownLink = errors.New("dialogue: link not present in text")
	// ErrUnknownAction is returned for an authored action kind the runtime does not know.
	ErrUnknownAction = errors.New("dialogue: unknown action")
	// ErrInvalidBranch is returned when a branch has no usable target.
	ErrInvalidBranch = errors.New("dialogue: invalid branch")
)

// Cue is the payload of every hook. It tells shared graph listeners which
// talker fired them and hands them that talker's effects.
type Cue struct {
	Talker       string
	Conversation *Conversation
	Part         *Part // nil for conversation and talker level hooks
	Index        int
	Link         string // set for link responder hooks
	Effects      Effects
}

// Hook is a lifecycle callback set.
type Hook = Event[Cue]

// LinkResponder binds a link id embedded in a part's text to a reaction.
type LinkResponder struct {
	ID string
	// ThenContinue advances the conversation once after the link fires.
	ThenContinue bool
	OnLink       Hook
}

// Part is one displayed line of dialogue.
type Part struct {
	Text string
	// Wait is the fade-out time between ending this part and showing the next.
	Wait time.Duration
	// StopUntilForced blocks player advance until the talker is resumed explicitly.
	StopUntilForced bool
	OnStart         Hook
	OnEnd           Hook
	Links           []*LinkResponder
}

// Link returns the responder for id, or nil.
func (p *Part) Link(id string) *LinkResponder {
	if p == nil {
		return nil
	}
	for _, lr := range p.Links {
		if lr.ID == id {
			return lr
		}
	}
	return nil
}

// Conversation is an ordered run of parts with entry and exit hooks.
type Conversation struct {
	ID      string
	Parts   []*Part
	OnStart Hook
	OnEnd   Hook
	// AndThen is consulted when the parts are exhausted. Nil ends the dialogue.
	AndThen Branch
}

// Len returns the number of parts.
func (c *Conversation) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Parts)
}

// Part returns the part at i, or nil when i is out of range.
func (c *Conversation) Part(i int) *Part {
	if c == nil || i < 0 || i >= len(c.Parts) {
		return nil
	}
	return c.Parts[i]
}

// TalkerDef places an authored character in the world.
type TalkerDef struct {
	ID    string
	Name  string
	Start string // branch name
	X     int
	Y     int
	Width int
}

// CollectableDef places an authored pickup in the world.
type CollectableDef struct {
	ID    string
	Item  string
	Sound string
	X     int
	Y     int
	// Locked collectables ignore Touch until enabled by an action.
	Locked bool
}

// ItemDef names an inventory item that collectables and actions can unlock.
type ItemDef struct {
	ID   string
	Name string
}

// WordDef places a word fragment of the overlap puzzle.
type WordDef struct {
	ID   string
	Text string
	X    int
	Y    int
}

// Graph is the complete authored dialogue.
type Graph struct {
	Conversations map[string]*Conversation
	Branches      map[string]Branch
	Talkers       []TalkerDef
	Collectables  []CollectableDef
	Items         []ItemDef
	Words         []WordDef
}

// Branch returns a branch by name, or nil if not found.
func (g *Graph) Branch(name string) Branch {
	if g == nil {
		return nil
	}
	b, ok := g.Branches[name]
	if !ok {
		return nil
	}
	return b
}

// Conversation returns a conversation by id, or nil if not found.
func (g *Graph) Conversation(id string) *Conversation {
	if g == nil {
		return nil
	}
	return g.Conversations[id]
}

// TalkerDef returns the authored talker with id.
func (g *Graph) TalkerDef(id string) (TalkerDef, bool) {
	for _, t := range g.Talkers {
		if t.ID == id {
			return t, true
		}
	}
	return TalkerDef{}, false
}
