package game

// OutboundMessage packages queued websocket events.
type OutboundMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// LinkSpanDTO locates a link inside a talker's wrapped text.
type LinkSpanDTO struct {
	ID    string `json:"id"`
	Line  int    `json:"line"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// LinePayload is sent when a talker shows a line.
type LinePayload struct {
	Talker string        `json:"talker"`
	Text   string        `json:"text"`
	Lines  []string      `json:"lines"`
	Links  []LinkSpanDTO `json:"links,omitempty"`
}

// TalkerPayload names the talker an event is about.
type TalkerPayload struct {
	Talker string `json:"talker"`
}

// ItemsPayload carries the unlocked inventory.
type ItemsPayload struct {
	Items []InventoryItem `json:"items"`
}

// CollectedPayload is sent when a collectable is picked up.
type CollectedPayload struct {
	Collectable string `json:"collectable"`
	Item        string `json:"item,omitempty"`
}

// SoundPayload asks clients to play a cue.
type SoundPayload struct {
	Sound string `json:"sound"`
}

// WordPayload reports a word's current reading after a move.
type WordPayload struct {
	Word    string `json:"word"`
	Reading string `json:"reading"`
}

// Player is a connected client or a local terminal session.
type Player struct {
	ID   string
	Name string

	pending []OutboundMessage
}

// SendMessage queues an event for the player's next flush.
func (p *Player) SendMessage(typ string, payload interface{}) {
	if len(p.pending) >= MaxPendingMessages {
		p.pending = p.pending[1:]
	}
	p.pending = append(p.pending, OutboundMessage{Type: typ, Payload: payload})
}

// ConsumePendingMessages drains the queue.
func (p *Player) ConsumePendingMessages() []OutboundMessage {
	out := p.pending
	p.pending = nil
	return out
}
