package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stream-dashboard/internal/models"
)

var baseBounds = models.ViewBounds{MinX: 1000, MaxX: 2000, MinY: 0, MaxY: 100}

func TestController_PanLifecycle(t *testing.T) {
	var got []models.ViewBounds
	c := NewController(500, 250, func(b models.ViewBounds) { got = append(got, b) })
	assert.Equal(t, Idle, c.State())

	// Move while idle is ignored.
	_, moved := c.PointerMove(10, 10, baseBounds)
	assert.False(t, moved)
	assert.Empty(t, got)

	c.PointerDown(100, 100)
	assert.Equal(t, Panning, c.State())

	// 50 px right on a 500 px wide surface spanning 1000 units = 100 units left.
	// 25 px down on a 250 px high surface spanning 100 units = 10 units up.
	next, moved := c.PointerMove(150, 125, baseBounds)
	require.True(t, moved)
	assert.InDelta(t, 900, next.MinX, 1e-9)
	assert.InDelta(t, 1900, next.MaxX, 1e-9)
	assert.InDelta(t, 10, next.MinY, 1e-9)
	assert.InDelta(t, 110, next.MaxY, 1e-9)
	require.Len(t, got, 1)
	assert.Equal(t, next, got[0])

	// A second move only applies the incremental delta.
	next2, _ := c.PointerMove(160, 125, next)
	assert.InDelta(t, 880, next2.MinX, 1e-9)
	assert.InDelta(t, 10, next2.MinY, 1e-9)

	c.PointerUp()
	assert.Equal(t, Idle, c.State())
	_, moved = c.PointerMove(300, 300, next2)
	assert.False(t, moved)
}

func TestController_PanResumesFromAccumulatedOffset(t *testing.T) {
	c := NewController(100, 100, nil)
	c.PointerDown(0, 0)
	c.PointerMove(10, 0, baseBounds)
	c.PointerUp()

	// New gesture anchored relative to the stored offset: no jump on first move.
	c.PointerDown(50, 50)
	next, _ := c.PointerMove(50, 50, baseBounds)
	assert.Equal(t, baseBounds, next)
}

func TestController_WheelKeepsCursorAnchored(t *testing.T) {
	cases := []struct {
		name   string
		x, y   float64
		deltaY float64
	}{
		{"zoom in center", 400, 200, -1},
		{"zoom out center", 400, 200, 1},
		{"zoom in corner", 10, 390, -3},
		{"zoom out edge", 799, 1, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewController(800, 400, nil)
			dx, dy := c.ScreenToData(tc.x, tc.y, baseBounds)

			next := c.Wheel(tc.x, tc.y, tc.deltaY, baseBounds)

			sx, sy := c.DataToScreen(dx, dy, next)
			assert.InDelta(t, tc.x, sx, 1e-6)
			assert.InDelta(t, tc.y, sy, 1e-6)
		})
	}
}

func TestController_WheelAnchorsInsidePlotArea(t *testing.T) {
	// 800x400 surface drawn with 70/40 left/top and 40/50 right/bottom padding
	const left, top, w, h = 70.0, 40.0, 690.0, 310.0
	c := NewController(800, 400, nil)
	c.SetPlotArea(left, top, w, h)

	project := func(b models.ViewBounds, dx, dy float64) (float64, float64) {
		return left + (dx-b.MinX)/b.RangeX()*w, top + (b.MaxY-dy)/b.RangeY()*h
	}

	dx, dy := c.ScreenToData(410, 190, baseBounds)
	px, py := project(baseBounds, dx, dy)
	require.InDelta(t, 410.0, px, 1e-9)
	require.InDelta(t, 190.0, py, 1e-9)

	next := c.Wheel(410, 190, -1, baseBounds)
	sx, sy := project(next, dx, dy)
	assert.InDelta(t, 410.0, sx, 1e-6)
	assert.InDelta(t, 190.0, sy, 1e-6)
	assert.InDelta(t, baseBounds.RangeX()*ZoomInFactor, next.RangeX(), 1e-9)

	// pan speed follows the plot width: 69 px = a tenth of the range
	c.PointerDown(100, 100)
	panned, _ := c.PointerMove(169, 100, baseBounds)
	assert.InDelta(t, baseBounds.MinX-100, panned.MinX, 1e-9)
}

func TestController_WheelScalesRange(t *testing.T) {
	var got models.ViewBounds
	c := NewController(800, 400, func(b models.ViewBounds) { got = b })

	next := c.Wheel(400, 200, -1, baseBounds)
	assert.InDelta(t, baseBounds.RangeX()*ZoomInFactor, next.RangeX(), 1e-9)
	assert.InDelta(t, baseBounds.RangeY()*ZoomInFactor, next.RangeY(), 1e-9)
	assert.Equal(t, next, got)
	assert.InDelta(t, ZoomInFactor, c.Scale(), 1e-12)

	next = c.Wheel(400, 200, 1, next)
	assert.InDelta(t, baseBounds.RangeX()*ZoomInFactor*ZoomOutFactor, next.RangeX(), 1e-9)
	assert.InDelta(t, ZoomInFactor*ZoomOutFactor, c.Scale(), 1e-12)
}

func TestController_WheelWorksWhilePanning(t *testing.T) {
	c := NewController(800, 400, nil)
	c.PointerDown(5, 5)
	next := c.Wheel(400, 200, 1, baseBounds)
	assert.Equal(t, Panning, c.State())
	assert.Greater(t, next.RangeX(), baseBounds.RangeX())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "panning", Panning.String())
	assert.Equal(t, "unknown", State(9).String())
}
