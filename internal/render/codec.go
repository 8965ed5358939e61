package render

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// ErrUnknownCommand неизвестный тег команды
var ErrUnknownCommand = errors.New("unknown draw command")

// wireCommand плоское представление команды с тегом type
type wireCommand struct {
	Type        string  `json:"type"`
	Points      []Point `json:"points,omitempty"`
	StrokeStyle string  `json:"strokeStyle,omitempty"`
	LineWidth   float64 `json:"lineWidth,omitempty"`
	X           float64 `json:"x,omitempty"`
	Y           float64 `json:"y,omitempty"`
	W           float64 `json:"w,omitempty"`
	H           float64 `json:"h,omitempty"`
	Radius      float64 `json:"radius,omitempty"`
	Text        string  `json:"text,omitempty"`
	Font        string  `json:"font,omitempty"`
	FillStyle   string  `json:"fillStyle,omitempty"`
}

// renderMessage пакет команд для воркера отрисовки
type renderMessage struct {
	Commands []wireCommand `json:"commands"`
}

func toWire(c Command) (wireCommand, error) {
	switch v := c.(type) {
	case Path:
		return wireCommand{Type: TypePath, Points: v.Points, StrokeStyle: v.StrokeStyle, LineWidth: v.LineWidth}, nil
	case Circle:
		return wireCommand{Type: TypeCircle, X: v.X, Y: v.Y, Radius: v.Radius, FillStyle: v.FillStyle}, nil
	case Text:
		return wireCommand{Type: TypeText, Text: v.Text, X: v.X, Y: v.Y, Font: v.Font, FillStyle: v.FillStyle}, nil
	case Rect:
		return wireCommand{Type: TypeRect, X: v.X, Y: v.Y, W: v.W, H: v.H, FillStyle: v.FillStyle}, nil
	}
	return wireCommand{}, fmt.Errorf("%w: %T", ErrUnknownCommand, c)
}

func fromWire(w wireCommand) (Command, error) {
	switch w.Type {
	case TypePath:
		return Path{Points: w.Points, StrokeStyle: w.StrokeStyle, LineWidth: w.LineWidth}, nil
	case TypeCircle:
		return Circle{X: w.X, Y: w.Y, Radius: w.Radius, FillStyle: w.FillStyle}, nil
	case TypeText:
		return Text{Text: w.Text, X: w.X, Y: w.Y, Font: w.Font, FillStyle: w.FillStyle}, nil
	case TypeRect:
		return Rect{X: w.X, Y: w.Y, W: w.W, H: w.H, FillStyle: w.FillStyle}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, w.Type)
}

// EncodeCommands сериализует пакет команд {commands: [...]}
func EncodeCommands(cmds []Command) ([]byte, error) {
	msg := renderMessage{Commands: make([]wireCommand, 0, len(cmds))}
	for _, c := range cmds {
		w, err := toWire(c)
		if err != nil {
			return nil, err
		}
		msg.Commands = append(msg.Commands, w)
	}
	data, err := sonic.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode render message: %w", err)
	}
	return data, nil
}

// DecodeCommands восстанавливает команды из сериализованного пакета
func DecodeCommands(data []byte) ([]Command, error) {
	var msg renderMessage
	if err := sonic.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode render message: %w", err)
	}
	out := make([]Command, 0, len(msg.Commands))
	for _, w := range msg.Commands {
		c, err := fromWire(w)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
