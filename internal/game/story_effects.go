package game

import (
	"github.com/rs/zerolog/log"

	"SpiritTalk/internal/dialogue"
)

// RoomEffects carries out authored actions against a room. It runs inside
// talker hooks, so the room lock is already held.
type RoomEffects struct {
	room *Room
}

// NewRoomEffects binds effects to room.
func NewRoomEffects(room *Room) *RoomEffects {
	return &RoomEffects{room: room}
}

func (e *RoomEffects) Apply(cue dialogue.Cue, a dialogue.Action) {
	r := e.room
	switch a.Kind {
	case dialogue.ActionSound:
		r.PlaySoundLocked(a.Value)
	case dialogue.ActionUnlock:
		if r.Inventory.Unlock(a.Value) {
			r.broadcastItemsLocked()
		}
	case dialogue.ActionFlag:
		r.Flags[a.Value] = true
	case dialogue.ActionUnflag:
		delete(r.Flags, a.Value)
	case dialogue.ActionGoto:
		ch := r.Characters[cue.Talker]
		if ch == nil {
			return
		}
		b := r.Graph.Branch(a.Value)
		if b == nil {
			log.Warn().Str("room", r.ID).Str("branch", a.Value).Msg("goto unknown branch")
			return
		}
		ch.Talker.GoTo(b)
	case dialogue.ActionStop:
		if ch := r.Characters[cue.Talker]; ch != nil {
			ch.Talker.StopConversation()
		}
	case dialogue.ActionCollect:
		if c := r.Collectables[a.Value]; c != nil {
			c.SetCollectable(true)
		}
	case dialogue.ActionSay:
		log.Info().Str("room", r.ID).Str("talker", cue.Talker).Msg(a.Value)
	}
	if r.observer != nil {
		r.observer.ActionApplied(r.ID, a)
	}
}
