// Package tui hosts a room in the terminal. Mouse release over a link
// triggers it, Enter or Space advances the focused talker.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"SpiritTalk/internal/game"
	"SpiritTalk/internal/talker"
)

var (
	styleText     = tcell.StyleDefault
	styleName     = tcell.StyleDefault.Foreground(tcell.ColorDarkSeaGreen)
	styleFocus    = styleName.Bold(true).Underline(true)
	styleLink     = tcell.StyleDefault.Foreground(tcell.ColorGold).Underline(true)
	styleHover    = styleLink.Reverse(true)
	styleItem     = tcell.StyleDefault.Foreground(tcell.ColorSandyBrown)
	styleLocked   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleWord     = tcell.StyleDefault.Foreground(tcell.ColorLightSkyBlue)
	styleStatus   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleStopped  = tcell.StyleDefault.Foreground(tcell.ColorIndianRed)
	helpLine      = "enter/space: talk  tab: focus  s: stop  arrows: pan  q: quit"
	maxStatusRows = 1
)

type hoverState struct {
	talker string
	pos    talker.Point
}

// App draws a room and feeds it player input.
type App struct {
	screen tcell.Screen
	room   *game.Room
	player *game.Player
	log    zerolog.Logger

	cam     talker.Camera
	focus   int
	hover   *hoverState
	buttons tcell.ButtonMask
	status  string
}

// New wires screen to room. player receives the room's broadcasts and is
// added to the room if it is not already in it.
func New(screen tcell.Screen, room *game.Room, player *game.Player) (*App, error) {
	room.Mu.Lock()
	defer room.Mu.Unlock()
	if _, ok := room.Players[player.ID]; !ok {
		if err := room.AddPlayerLocked(player); err != nil {
			return nil, err
		}
	}
	return &App{
		screen: screen,
		room:   room,
		player: player,
		log:    room.Logger().With().Str("host", "tui").Logger(),
	}, nil
}

// Focus returns the id of the talker keyboard input goes to.
func (a *App) Focus() string {
	ids := a.room.CharacterIDs()
	if len(ids) == 0 {
		return ""
	}
	return ids[a.focus%len(ids)]
}

// SetFocus moves keyboard focus to the talker with id.
func (a *App) SetFocus(id string) bool {
	for i, cur := range a.room.CharacterIDs() {
		if cur == id {
			a.focus = i
			return true
		}
	}
	return false
}

// Camera returns the current pan offset.
func (a *App) Camera() talker.Camera { return a.cam }

// Run polls input and ticks the room at hz until ctx is done or the player quits.
func (a *App) Run(ctx context.Context, hz float64) error {
	if hz <= 0 {
		hz = game.SimHz
	}
	a.screen.EnableMouse()
	a.screen.HideCursor()

	events := make(chan tcell.Event, 100)
	done := make(chan struct{})
	defer close(done)
	go pumpEvents(a.screen, events, done)

	dt := time.Duration(float64(time.Second) / hz)
	ticker := time.NewTicker(dt)
	defer ticker.Stop()

	a.Draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if !a.HandleEvent(ev) {
				return nil
			}
			a.Draw()
		case <-ticker.C:
			a.room.Tick(dt)
			a.Draw()
		}
	}
}

// pumpEvents forwards screen events until the screen is finalized or done
// is closed.
func pumpEvents(screen tcell.Screen, events chan<- tcell.Event, done <-chan struct{}) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case events <- ev:
		case <-done:
			return
		}
	}
}

// HandleEvent applies one input event. It returns false when the player quits.
func (a *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return a.handleKey(ev)
	case *tcell.EventMouse:
		a.handleMouse(ev)
	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

func (a *App) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyEnter:
		a.withRoom(func() error { return a.room.InteractLocked(a.Focus()) })
	case tcell.KeyTab:
		a.focus++
	case tcell.KeyLeft:
		a.cam.X--
	case tcell.KeyRight:
		a.cam.X++
	case tcell.KeyUp:
		a.cam.Y--
	case tcell.KeyDown:
		a.cam.Y++
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case ' ':
			a.withRoom(func() error { return a.room.InteractLocked(a.Focus()) })
		case 's':
			a.withRoom(func() error { return a.room.StopLocked(a.Focus()) })
		}
	}
	return true
}

func (a *App) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	pos := talker.Point{X: x, Y: y}
	buttons := ev.Buttons()
	released := a.buttons&tcell.Button1 != 0 && buttons&tcell.Button1 == 0
	a.buttons = buttons

	a.room.Mu.Lock()
	defer a.room.Mu.Unlock()

	a.hover = nil
	for _, id := range a.room.CharacterIDs() {
		over, err := a.room.HoverLocked(id, pos, a.cam)
		if err == nil && over {
			a.hover = &hoverState{talker: id, pos: pos}
			break
		}
	}
	if !released {
		return
	}

	if a.hover != nil {
		a.SetFocus(a.hover.talker)
		if err := a.room.PointerUpLocked(a.hover.talker, pos, a.cam); err != nil {
			a.log.Debug().Err(err).Msg("pointer")
		}
		return
	}
	world := a.cam.World(pos)
	snap := a.room.SnapshotLocked()
	for _, c := range snap.Collectables {
		if c.X == world.X && c.Y == world.Y {
			if _, err := a.room.TouchLocked(c.ID); err != nil {
				a.log.Debug().Err(err).Msg("touch")
			}
			return
		}
	}
	for _, t := range snap.Talkers {
		if world.Y == t.Y && world.X >= t.X && world.X < t.X+runewidth.StringWidth(displayName(t)) {
			a.SetFocus(t.ID)
			if err := a.room.InteractLocked(t.ID); err != nil {
				a.log.Debug().Err(err).Msg("interact")
			}
			return
		}
	}
}

func (a *App) withRoom(fn func() error) {
	a.room.Mu.Lock()
	defer a.room.Mu.Unlock()
	if err := fn(); err != nil {
		a.status = err.Error()
		a.log.Debug().Err(err).Msg("input rejected")
	}
}

// Draw renders the room.
func (a *App) Draw() {
	a.room.Mu.Lock()
	snap := a.room.SnapshotLocked()
	events := a.player.ConsumePendingMessages()
	a.room.Mu.Unlock()

	for _, ev := range events {
		if s := describe(ev); s != "" {
			a.status = s
		}
	}

	a.screen.Clear()
	focus := a.Focus()
	for _, t := range snap.Talkers {
		a.drawTalker(t, t.ID == focus)
	}
	for _, c := range snap.Collectables {
		style, glyph := styleItem, '*'
		if !c.Collectable {
			style, glyph = styleLocked, '.'
		}
		a.put(c.X, c.Y, string(glyph), style)
	}
	for _, w := range snap.Words {
		a.put(int(w.X), int(w.Y), w.Text, styleWord)
	}

	_, h := a.screen.Size()
	var items []string
	for _, it := range snap.Items {
		items = append(items, it.Name)
	}
	footer := helpLine
	if len(items) > 0 {
		footer = "carrying: " + strings.Join(items, ", ") + "  |  " + footer
	}
	a.text(0, h-1-maxStatusRows, a.status, styleStatus)
	a.text(0, h-1, footer, styleStatus)
	a.screen.Show()
}

func (a *App) drawTalker(t game.TalkerSnapshot, focused bool) {
	style := styleName
	if focused {
		style = styleFocus
	}
	name := displayName(t)
	a.put(t.X, t.Y, name, style)
	if t.Stopped {
		a.put(t.X+runewidth.StringWidth(name)+1, t.Y, "(waiting)", styleStopped)
	}

	for row, line := range t.Lines {
		y := t.Y + 1 + row
		col := 0
		for _, r := range line {
			st := styleText
			if link, ok := linkAt(t, col, row); ok {
				st = styleLink
				if a.hovering(t, link) {
					st = styleHover
				}
			}
			a.put(t.X+col, y, string(r), st)
			col += runewidth.RuneWidth(r)
		}
	}
}

func (a *App) hovering(t game.TalkerSnapshot, link game.LinkSpanDTO) bool {
	if a.hover == nil || a.hover.talker != t.ID {
		return false
	}
	w := a.cam.World(a.hover.pos)
	col, row := w.X-t.X, w.Y-t.Y-1
	return row == link.Line && col >= link.Start && col < link.End
}

// put draws s at world position (x, y).
func (a *App) put(x, y int, s string, style tcell.Style) {
	a.text(x-a.cam.X, y-a.cam.Y, s, style)
}

// text draws s at screen position (x, y).
func (a *App) text(x, y int, s string, style tcell.Style) {
	w, h := a.screen.Size()
	if y < 0 || y >= h {
		return
	}
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if x >= 0 && x+rw <= w {
			a.screen.SetContent(x, y, r, nil, style)
		}
		x += rw
	}
}

func linkAt(t game.TalkerSnapshot, col, row int) (game.LinkSpanDTO, bool) {
	for _, l := range t.Links {
		if l.Line == row && col >= l.Start && col < l.End {
			return l, true
		}
	}
	return game.LinkSpanDTO{}, false
}

func displayName(t game.TalkerSnapshot) string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

func describe(m game.OutboundMessage) string {
	switch p := m.Payload.(type) {
	case game.SoundPayload:
		return fmt.Sprintf("~ %s ~", p.Sound)
	case game.CollectedPayload:
		if p.Item != "" {
			return "picked up " + p.Item
		}
		return "picked up " + p.Collectable
	case game.WordPayload:
		return fmt.Sprintf("%s reads %q", p.Word, p.Reading)
	}
	return ""
}

// Open creates and initialises a real terminal screen.
func Open() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	log.Debug().Msg("terminal screen ready")
	return screen, nil
}
