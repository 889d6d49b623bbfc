package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"SpiritTalk/internal/dialogue"
	"SpiritTalk/internal/talker"
)

var (
	ErrUnknownTalker      = errors.New("unknown talker")
	ErrUnknownBranch      = errors.New("unknown branch")
	ErrUnknownCollectable = errors.New("unknown collectable")
	ErrUnknownWord        = errors.New("unknown word")
	ErrRoomFull           = errors.New("room full")
)

// Observer is told about room activity. Hosts use it for metrics.
type Observer interface {
	LineShown(room, talker string)
	ConversationStarted(room, talker string)
	LinkTriggered(room, talker, link string)
	Collected(room, collectable string)
	ActionApplied(room string, a dialogue.Action)
}

// RoomOptions are shared by every room a hub creates.
type RoomOptions struct {
	Audio               AudioSink
	DefaultCollectSound string
	MaxChain            int
	MaxPlayers          int
	Observer            Observer
}

type Room struct {
	ID           string
	Now          time.Duration
	Graph        *dialogue.Graph
	Players      map[string]*Player
	Characters   map[string]*Character
	Collectables map[string]*Collectable
	Words        *WordBoard
	Inventory    *Inventory
	Flags        map[string]bool
	Scheduler    *talker.TickScheduler
	Mu           sync.Mutex

	order        []string
	collectOrder []string
	audio        AudioSink
	maxPlayers   int
	observer     Observer
}

// NewRoom builds a room populated from the graph's authored world.
func NewRoom(id string, g *dialogue.Graph, opts RoomOptions) *Room {
	r := &Room{
		ID:           id,
		Graph:        g,
		Players:      map[string]*Player{},
		Characters:   map[string]*Character{},
		Collectables: map[string]*Collectable{},
		Words:        &WordBoard{},
		Inventory:    NewInventory(g.Items),
		Flags:        map[string]bool{},
		Scheduler:    talker.NewTickScheduler(),
		audio:        opts.Audio,
		maxPlayers:   opts.MaxPlayers,
		observer:     opts.Observer,
	}
	if r.maxPlayers <= 0 {
		r.maxPlayers = RoomMaxPlayers
	}

	effects := NewRoomEffects(r)
	logger := log.With().Str("room", id).Logger()
	for _, def := range g.Talkers {
		ch := &Character{Def: def, room: r}
		ch.Talker = talker.New(talker.Config{
			ID:        def.ID,
			Start:     g.Branch(def.Start),
			Presenter: ch,
			Scheduler: r.Scheduler,
			Effects:   effects,
			Logger:    &logger,
			MaxChain:  opts.MaxChain,
		})
		r.observe(ch)
		r.Characters[def.ID] = ch
		r.order = append(r.order, def.ID)
	}

	defaultSound := opts.DefaultCollectSound
	if defaultSound == "" {
		defaultSound = DefaultCollectSound
	}
	for _, def := range g.Collectables {
		c := NewCollectable(def, CollectableDeps{
			Audio:        roomAudio{r},
			DefaultSound: defaultSound,
			Items:        r.Inventory,
			Scene:        r,
		})
		c.OnCollect.Subscribe(func(c *Collectable) {
			r.BroadcastLocked("collected", CollectedPayload{Collectable: c.Def.ID, Item: c.Def.Item})
			if r.observer != nil {
				r.observer.Collected(r.ID, c.Def.ID)
			}
		})
		r.Collectables[def.ID] = c
		r.collectOrder = append(r.collectOrder, def.ID)
	}

	for _, def := range g.Words {
		text := []rune(def.Text)
		r.Words.Add(NewWord(def.ID, def.Text, Bounds{
			MinX: float64(def.X),
			MinY: float64(def.Y),
			MaxX: float64(def.X + len(text)),
			MaxY: float64(def.Y + 1),
		}))
	}
	return r
}

func (r *Room) observe(ch *Character) {
	if r.observer == nil {
		return
	}
	id := ch.Def.ID
	ch.Talker.OnNext.Subscribe(func(dialogue.Cue) { r.observer.LineShown(r.ID, id) })
	ch.Talker.OnStart.Subscribe(func(dialogue.Cue) { r.observer.ConversationStarted(r.ID, id) })
}

// roomAudio plays locally and asks clients to play the same cue.
type roomAudio struct{ r *Room }

func (a roomAudio) Play(sound string) { a.r.PlaySoundLocked(sound) }

// Tick advances the room clock and runs due talker fades.
func (r *Room) Tick(dt time.Duration) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.Now += dt
	r.Scheduler.Advance(dt)
}

// CharacterIDs returns talker ids in authored order.
func (r *Room) CharacterIDs() []string {
	return append([]string(nil), r.order...)
}

// CharacterLocked looks up a character.
func (r *Room) CharacterLocked(id string) (*Character, error) {
	ch, ok := r.Characters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTalker, id)
	}
	return ch, nil
}

// InteractLocked is the player's advance on a talker.
func (r *Room) InteractLocked(talkerID string) error {
	ch, err := r.CharacterLocked(talkerID)
	if err != nil {
		return err
	}
	ch.Talker.OnInteract()
	return nil
}

// PointerUpLocked triggers the link under pos on a talker's text.
func (r *Room) PointerUpLocked(talkerID string, pos talker.Point, cam talker.Camera) error {
	ch, err := r.CharacterLocked(talkerID)
	if err != nil {
		return err
	}
	if id, ok := ch.LinkAt(pos, cam); ok && ch.Talker.Talking() && r.observer != nil {
		r.observer.LinkTriggered(r.ID, talkerID, id)
	}
	ch.Talker.OnPointerUp(pos, cam)
	return nil
}

// HoverLocked reports whether pos is over a clickable link of a talker.
func (r *Room) HoverLocked(talkerID string, pos talker.Point, cam talker.Camera) (bool, error) {
	ch, err := r.CharacterLocked(talkerID)
	if err != nil {
		return false, err
	}
	return ch.Talker.IsInteractableAt(pos, cam), nil
}

// GoToLocked diverts a talker to a named branch.
func (r *Room) GoToLocked(talkerID, branch string) error {
	ch, err := r.CharacterLocked(talkerID)
	if err != nil {
		return err
	}
	b := r.Graph.Branch(branch)
	if b == nil {
		return fmt.Errorf("%w: %s", ErrUnknownBranch, branch)
	}
	ch.Talker.GoTo(b)
	return nil
}

// StopLocked ends a talker's conversation.
func (r *Room) StopLocked(talkerID string) error {
	ch, err := r.CharacterLocked(talkerID)
	if err != nil {
		return err
	}
	ch.Talker.StopConversation()
	return nil
}

// TouchLocked touches a collectable. Returns whether it was collected.
func (r *Room) TouchLocked(id string) (bool, error) {
	c, ok := r.Collectables[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownCollectable, id)
	}
	return c.Touch(), nil
}

// MoveWordLocked drags a word and broadcasts its new reading.
func (r *Room) MoveWordLocked(id string, dx, dy float64) error {
	if !r.Words.Move(id, dx, dy) {
		return fmt.Errorf("%w: %s", ErrUnknownWord, id)
	}
	w := r.Words.Word(id)
	r.BroadcastLocked("word", WordPayload{Word: id, Reading: w.CurrentWord()})
	return nil
}

// StencilFitsLocked reports whether a stencil for target fits the word.
func (r *Room) StencilFitsLocked(wordID, target string) (bool, error) {
	w := r.Words.Word(wordID)
	if w == nil {
		return false, fmt.Errorf("%w: %s", ErrUnknownWord, wordID)
	}
	return w.Accepts(target), nil
}

// Destroy removes a collected object from the room.
func (r *Room) Destroy(id string) {
	if _, ok := r.Collectables[id]; !ok {
		return
	}
	delete(r.Collectables, id)
	for i, cur := range r.collectOrder {
		if cur == id {
			r.collectOrder = append(r.collectOrder[:i], r.collectOrder[i+1:]...)
			break
		}
	}
	r.broadcastItemsLocked()
}

// PlaySoundLocked plays a cue on the host and on every client.
func (r *Room) PlaySoundLocked(sound string) {
	if sound == "" {
		return
	}
	if r.audio != nil {
		r.audio.Play(sound)
	}
	r.BroadcastLocked("sound", SoundPayload{Sound: sound})
}

func (r *Room) broadcastItemsLocked() {
	r.BroadcastLocked("items", ItemsPayload{Items: r.Inventory.Unlocked()})
}

// BroadcastLocked queues an event for every player.
func (r *Room) BroadcastLocked(typ string, payload interface{}) {
	for _, p := range r.Players {
		p.SendMessage(typ, payload)
	}
}

// AddPlayerLocked joins p to the room.
func (r *Room) AddPlayerLocked(p *Player) error {
	if len(r.Players) >= r.maxPlayers {
		return ErrRoomFull
	}
	r.Players[p.ID] = p
	return nil
}

// RemovePlayerLocked drops a player. The last player leaving quiets every talker.
func (r *Room) RemovePlayerLocked(id string) {
	delete(r.Players, id)
	if len(r.Players) > 0 {
		return
	}
	for _, tid := range r.order {
		r.Characters[tid].Talker.StopConversation()
	}
}

// PlayerCountLocked returns the number of players in the room.
func (r *Room) PlayerCountLocked() int { return len(r.Players) }

// TalkerSnapshot is the drawable state of one character.
type TalkerSnapshot struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	X            int           `json:"x"`
	Y            int           `json:"y"`
	Width        int           `json:"width"`
	Phase        string        `json:"phase"`
	Conversation string        `json:"conversation,omitempty"`
	Index        int           `json:"index"`
	Stopped      bool          `json:"stopped"`
	Lines        []string      `json:"lines,omitempty"`
	Links        []LinkSpanDTO `json:"links,omitempty"`
}

// CollectableSnapshot is the drawable state of one collectable.
type CollectableSnapshot struct {
	ID          string `json:"id"`
	Item        string `json:"item,omitempty"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Collectable bool   `json:"collectable"`
}

// WordSnapshot is the drawable state of one word fragment.
type WordSnapshot struct {
	ID      string  `json:"id"`
	Text    string  `json:"text"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Reading string  `json:"reading"`
}

// Snapshot is a full picture of a room.
type Snapshot struct {
	Room         string                `json:"room"`
	Now          float64               `json:"now"`
	Talkers      []TalkerSnapshot      `json:"talkers"`
	Collectables []CollectableSnapshot `json:"collectables"`
	Words        []WordSnapshot        `json:"words,omitempty"`
	Items        []InventoryItem       `json:"items"`
	Flags        []string              `json:"flags,omitempty"`
}

// SnapshotLocked captures the room for drawing or sending.
func (r *Room) SnapshotLocked() Snapshot {
	s := Snapshot{
		Room:         r.ID,
		Now:          r.Now.Seconds(),
		Talkers:      []TalkerSnapshot{},
		Collectables: []CollectableSnapshot{},
		Items:        r.Inventory.Unlocked(),
	}
	for _, id := range r.order {
		ch := r.Characters[id]
		st := ch.Talker.State()
		ts := TalkerSnapshot{
			ID:           id,
			Name:         ch.Def.Name,
			X:            ch.Def.X,
			Y:            ch.Def.Y,
			Width:        ch.Width(),
			Phase:        st.Phase().String(),
			Conversation: st.Conversation,
			Index:        st.Index,
			Stopped:      st.Stopped,
			Lines:        ch.Block.Lines,
		}
		for _, sp := range ch.Block.Spans {
			ts.Links = append(ts.Links, LinkSpanDTO{ID: sp.Link, Line: sp.Line, Start: sp.Start, End: sp.End})
		}
		s.Talkers = append(s.Talkers, ts)
	}
	for _, id := range r.collectOrder {
		c := r.Collectables[id]
		s.Collectables = append(s.Collectables, CollectableSnapshot{
			ID:          id,
			Item:        c.Def.Item,
			X:           c.Def.X,
			Y:           c.Def.Y,
			Collectable: c.CanBeCollected,
		})
	}
	for _, w := range r.Words.words {
		s.Words = append(s.Words, WordSnapshot{
			ID:      w.ID,
			Text:    w.Text,
			X:       w.Bounds.MinX,
			Y:       w.Bounds.MinY,
			Reading: w.CurrentWord(),
		})
	}
	for f := range r.Flags {
		s.Flags = append(s.Flags, f)
	}
	sort.Strings(s.Flags)
	return s
}

type Hub struct {
	Rooms map[string]*Room
	Mu    sync.Mutex

	graph *dialogue.Graph
	opts  RoomOptions
}

func NewHub(g *dialogue.Graph, opts RoomOptions) *Hub {
	return &Hub{Rooms: map[string]*Room{}, graph: g, opts: opts}
}

func (h *Hub) GetRoom(id string) *Room {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	r, ok := h.Rooms[id]
	if !ok {
		r = NewRoom(id, h.graph, h.opts)
		h.Rooms[id] = r
	}
	return r
}

// Join adds p to room id, creating the room if needed. Both steps run under
// the hub lock so cleanup cannot drop the room in between.
func (h *Hub) Join(id string, p *Player) (*Room, error) {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	r, ok := h.Rooms[id]
	if !ok {
		r = NewRoom(id, h.graph, h.opts)
		h.Rooms[id] = r
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r, r.AddPlayerLocked(p)
}

// SetGraph swaps the graph used for rooms created from now on. Rooms that
// already exist keep the graph they were built with.
func (h *Hub) SetGraph(g *dialogue.Graph) {
	h.Mu.Lock()
	h.graph = g
	h.Mu.Unlock()
}

// Graph returns the graph new rooms are built from.
func (h *Hub) Graph() *dialogue.Graph {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	return h.graph
}

// RoomCount returns the number of live rooms.
func (h *Hub) RoomCount() int {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	return len(h.Rooms)
}

// CleanupEmptyRooms drops rooms nobody is in and returns how many went.
func (h *Hub) CleanupEmptyRooms() int {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	removed := 0
	for id, r := range h.Rooms {
		r.Mu.Lock()
		empty := len(r.Players) == 0
		r.Mu.Unlock()
		if empty {
			delete(h.Rooms, id)
			removed++
		}
	}
	return removed
}

// TickAll advances every room by dt.
func (h *Hub) TickAll(dt time.Duration) {
	h.Mu.Lock()
	rooms := make([]*Room, 0, len(h.Rooms))
	for _, r := range h.Rooms {
		rooms = append(rooms, r)
	}
	h.Mu.Unlock()
	for _, r := range rooms {
		r.Tick(dt)
	}
}

// Run ticks every room at hz until ctx is done.
func (h *Hub) Run(ctx context.Context, hz float64) {
	dt := Dt
	if hz > 0 {
		dt = time.Duration(float64(time.Second) / hz)
	}
	ticker := time.NewTicker(dt)
	defer ticker.Stop()
	log.Debug().Dur("dt", dt).Msg("room loop started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.TickAll(dt)
		}
	}
}

// Logger returns a logger tagged with the room id.
func (r *Room) Logger() zerolog.Logger {
	return log.With().Str("room", r.ID).Logger()
}
