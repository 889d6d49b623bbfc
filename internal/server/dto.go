package server

import (
	"encoding/json"

	"SpiritTalk/internal/talker"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type talkerDTO struct {
	Talker string `json:"talker"`
}

type pointerDTO struct {
	Talker string `json:"talker"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	CamX   int    `json:"cam_x"`
	CamY   int    `json:"cam_y"`
}

func (p pointerDTO) point() talker.Point { return talker.Point{X: p.X, Y: p.Y} }
func (p pointerDTO) camera() talker.Camera { return talker.Camera{X: p.CamX, Y: p.CamY} }

type gotoDTO struct {
	Talker string `json:"talker"`
	Branch string `json:"branch"`
}

type touchDTO struct {
	Collectable string `json:"collectable"`
}

type wordMoveDTO struct {
	Word string  `json:"word"`
	DX   float64 `json:"dx"`
	DY   float64 `json:"dy"`
}

type stencilDTO struct {
	Word   string `json:"word"`
	Target string `json:"target"`
}

type welcomeDTO struct {
	Player string `json:"player"`
	Room   string `json:"room"`
}

type hoverReplyDTO struct {
	Talker string `json:"talker"`
	Link   bool   `json:"link"`
}

type stencilReplyDTO struct {
	Word   string `json:"word"`
	Target string `json:"target"`
	Fits   bool   `json:"fits"`
}

type touchReplyDTO struct {
	Collectable string `json:"collectable"`
	Collected   bool   `json:"collected"`
}

type errorDTO struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}
