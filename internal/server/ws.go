package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"SpiritTalk/internal/game"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

var errUnknownMessage = errors.New("unknown message type")

// wsOptions tune each connection.
type wsOptions struct {
	RPS     float64
	Burst   int
	Metrics *Metrics
}

func serveWS(h *game.Hub, opts wsOptions, w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	roomID := strings.TrimSpace(query.Get("room"))
	if roomID == "" {
		roomID = "default"
	}
	name := strings.TrimSpace(query.Get("name"))
	if name == "" {
		name = "Wanderer"
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("upgrade")
		return
	}
	defer conn.Close()

	player := &game.Player{ID: "p-" + uuid.NewString(), Name: name}
	room, err := h.Join(roomID, player)
	if err != nil {
		_ = conn.WriteJSON(game.OutboundMessage{Type: "error", Payload: errorDTO{Message: err.Error()}})
		return
	}
	logger := room.Logger().With().Str("player", player.ID).Logger()
	room.Mu.Lock()
	player.SendMessage("welcome", welcomeDTO{Player: player.ID, Room: room.ID})
	room.Mu.Unlock()

	opts.Metrics.connected()
	defer opts.Metrics.disconnected()
	logger.Info().Str("name", name).Msg("player joined")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(opts.RPS), opts.Burst)

	go func() {
		defer cancel()
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType != websocket.TextMessage {
				logger.Debug().Int("frame", msgType).Msg("ignoring non-text frame")
				continue
			}
			if !limiter.Allow() {
				opts.Metrics.rateLimited()
				continue
			}
			var inbound inboundMessage
			if err := json.Unmarshal(data, &inbound); err != nil {
				logger.Debug().Err(err).Msg("invalid JSON message")
				room.Mu.Lock()
				player.SendMessage("error", errorDTO{Message: "invalid JSON"})
				room.Mu.Unlock()
				continue
			}
			opts.Metrics.received(inbound.Type)
			if err := dispatch(room, player, inbound); err != nil {
				logger.Debug().Err(err).Str("type", inbound.Type).Msg("message rejected")
				room.Mu.Lock()
				player.SendMessage("error", errorDTO{Type: inbound.Type, Message: err.Error()})
				room.Mu.Unlock()
			}
		}
	}()

	go func() {
		defer cancel()
		sendTick := time.NewTicker(time.Duration(1000.0/game.UpdateRateHz) * time.Millisecond)
		defer sendTick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sendTick.C:
				room.Mu.Lock()
				snap := room.SnapshotLocked()
				outbound := player.ConsumePendingMessages()
				room.Mu.Unlock()

				// events first so a line arrives before the snapshot that contains it
				for _, event := range outbound {
					if err := conn.WriteJSON(event); err != nil {
						logger.Debug().Err(err).Msg("send event")
						return
					}
				}
				if err := conn.WriteJSON(game.OutboundMessage{Type: "state", Payload: snap}); err != nil {
					logger.Debug().Err(err).Msg("send state")
					return
				}
			}
		}
	}()

	<-ctx.Done()

	room.Mu.Lock()
	room.RemovePlayerLocked(player.ID)
	room.Mu.Unlock()
	logger.Info().Msg("player left")
}

// dispatch applies one client message to the room.
func dispatch(room *game.Room, player *game.Player, in inboundMessage) error {
	room.Mu.Lock()
	defer room.Mu.Unlock()

	switch in.Type {
	case "interact":
		var p talkerDTO
		if err := decode(in, &p); err != nil {
			return err
		}
		return room.InteractLocked(p.Talker)
	case "pointer":
		var p pointerDTO
		if err := decode(in, &p); err != nil {
			return err
		}
		return room.PointerUpLocked(p.Talker, p.point(), p.camera())
	case "hover":
		var p pointerDTO
		if err := decode(in, &p); err != nil {
			return err
		}
		over, err := room.HoverLocked(p.Talker, p.point(), p.camera())
		if err != nil {
			return err
		}
		player.SendMessage("hover", hoverReplyDTO{Talker: p.Talker, Link: over})
		return nil
	case "goto":
		var p gotoDTO
		if err := decode(in, &p); err != nil {
			return err
		}
		return room.GoToLocked(p.Talker, p.Branch)
	case "stop":
		var p talkerDTO
		if err := decode(in, &p); err != nil {
			return err
		}
		return room.StopLocked(p.Talker)
	case "touch":
		var p touchDTO
		if err := decode(in, &p); err != nil {
			return err
		}
		ok, err := room.TouchLocked(p.Collectable)
		if err != nil {
			return err
		}
		player.SendMessage("touch", touchReplyDTO{Collectable: p.Collectable, Collected: ok})
		return nil
	case "word_move":
		var p wordMoveDTO
		if err := decode(in, &p); err != nil {
			return err
		}
		return room.MoveWordLocked(p.Word, p.DX, p.DY)
	case "stencil":
		var p stencilDTO
		if err := decode(in, &p); err != nil {
			return err
		}
		fits, err := room.StencilFitsLocked(p.Word, p.Target)
		if err != nil {
			return err
		}
		player.SendMessage("stencil", stencilReplyDTO{Word: p.Word, Target: p.Target, Fits: fits})
		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownMessage, in.Type)
	}
}

func decode(in inboundMessage, v interface{}) error {
	if len(in.Payload) == 0 {
		return fmt.Errorf("%s: missing payload", in.Type)
	}
	if err := json.Unmarshal(in.Payload, v); err != nil {
		return fmt.Errorf("%s payload: %w", in.Type, err)
	}
	return nil
}
