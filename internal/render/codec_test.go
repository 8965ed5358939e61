package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCommands() []Command {
	return []Command{
		Path{Points: []Point{{X: 1, Y: 2}, {X: 3.5, Y: 4}}, StrokeStyle: "#3b82f6", LineWidth: 2},
		Circle{X: 10, Y: 20, Radius: 4, FillStyle: "white"},
		Text{Text: "12:30", X: 5, Y: 6, Font: LabelFont, FillStyle: LabelColor},
		Rect{X: 1, Y: 2, W: 3, H: 4, FillStyle: "rgb(255,0,0)"},
	}
}

func TestCodec_RoundTripEveryVariant(t *testing.T) {
	cmds := sampleCommands()

	data, err := EncodeCommands(cmds)
	require.NoError(t, err)

	decoded, err := DecodeCommands(data)
	require.NoError(t, err)
	assert.Equal(t, cmds, decoded)
}

func TestCodec_WireFormatIsTagged(t *testing.T) {
	data, err := EncodeCommands([]Command{Circle{X: 1, Y: 2, Radius: 3, FillStyle: "black"}})
	require.NoError(t, err)

	assert.Contains(t, string(data), `"commands"`)
	assert.Contains(t, string(data), `"type":"circle"`)
	assert.Contains(t, string(data), `"fillStyle":"black"`)
}

func TestCodec_UnknownTagIsRejected(t *testing.T) {
	_, err := DecodeCommands([]byte(`{"commands":[{"type":"ellipse","x":1}]}`))
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestCodec_MalformedPayload(t *testing.T) {
	_, err := DecodeCommands([]byte(`{"commands":`))
	assert.Error(t, err)
}

func TestCodec_EmptyBatch(t *testing.T) {
	data, err := EncodeCommands(nil)
	require.NoError(t, err)

	decoded, err := DecodeCommands(data)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestCountByType(t *testing.T) {
	counts := CountByType(append(sampleCommands(), Circle{Radius: 1}))
	assert.Equal(t, map[string]int{TypePath: 1, TypeCircle: 2, TypeText: 1, TypeRect: 1}, counts)
}

func BenchmarkEncodeCommands(b *testing.B) {
	cmds := make([]Command, 0, 400)
	for i := 0; i < 400; i++ {
		cmds = append(cmds, Rect{X: float64(i), Y: 1, W: 2, H: 3, FillStyle: HeatColor(float64(i) / 400)})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = EncodeCommands(cmds)
	}
}
