package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stream-dashboard/internal/models"
)

const baseTs = 1_700_000_040_000

func series(n int, spacingMs int64) []models.SummaryPoint {
	out := make([]models.SummaryPoint, n)
	for i := range out {
		out[i] = models.SummaryPoint{
			ID:        models.SummaryID(int64(i)),
			Timestamp: baseTs + int64(i)*spacingMs,
			Value:     float64(10 + i%80),
			Category:  models.CategorySensor,
		}
	}
	return out
}

func newTestPipeline(t *testing.T, kind ChartKind) *Pipeline {
	t.Helper()
	s, err := NewSurface(SurfaceOptions{Width: 800, Height: 400, DevicePixelRatio: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewPipeline(kind, s, DefaultChartOptions(kind))
}

func TestStride_FixedStep(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, Stride(3, 80))
	assert.Equal(t, []int{0, 2, 4, 6, 8}, Stride(10, 4))
	assert.Equal(t, []int{}, Stride(0, 10))
	assert.Equal(t, 2, StrideStep(5000, 2000))
	assert.Equal(t, 3, CeilStrideStep(200, 80))
	assert.Len(t, CeilStride(200, 80), 67)
	assert.LessOrEqual(t, len(CeilStride(159, 80)), 80)
}

func TestStride_Deterministic(t *testing.T) {
	for _, n := range []int{1, 79, 80, 81, 1999, 5000} {
		assert.Equal(t, Stride(n, 2000), Stride(n, 2000))
		assert.Equal(t, CeilStride(n, 80), CeilStride(n, 80))
	}
}

func TestPipeline_RenderIsDeterministic(t *testing.T) {
	data := series(3000, 1000)
	for _, kind := range AllChartKinds() {
		t.Run(string(kind), func(t *testing.T) {
			p := newTestPipeline(t, kind)
			require.True(t, p.SeedBounds(data))

			first := p.Build(data)
			second := p.Build(data)
			assert.Equal(t, first, second)
		})
	}
}

func TestPipeline_LineCommands(t *testing.T) {
	data := series(200, 1000)
	p := newTestPipeline(t, KindLine)
	p.SeedBounds(data)

	cmds := p.Build(data)
	counts := CountByType(cmds)

	// 6 horizontal + 5 vertical grid lines, 2 axes, 1 polyline
	assert.Equal(t, 14, counts[TypePath])
	// 6 value labels + 5 time labels
	assert.Equal(t, 11, counts[TypeText])
	// 8 markers as white+colored pairs plus the emphasized latest point
	assert.Equal(t, 18, counts[TypeCircle])

	var polyline Path
	for _, c := range cmds {
		if path, ok := c.(Path); ok && path.StrokeStyle == "#3b82f6" {
			polyline = path
		}
	}
	require.NotEmpty(t, polyline.Points)
	assert.LessOrEqual(t, len(polyline.Points), LineMaxSamples)
	for _, pt := range polyline.Points {
		assert.GreaterOrEqual(t, pt.X, 70.0)
		assert.LessOrEqual(t, pt.X, 760.0)
		assert.GreaterOrEqual(t, pt.Y, 40.0)
		assert.LessOrEqual(t, pt.Y, 350.0)
	}

	last := cmds[len(cmds)-1].(Circle)
	assert.Equal(t, 6.0, last.Radius)
	assert.InDelta(t, 760.0, last.X, 1e-9)
}

func TestPipeline_LineNeedsTwoPoints(t *testing.T) {
	p := newTestPipeline(t, KindLine)
	assert.Empty(t, p.Build(series(1, 1000)))
	assert.Empty(t, p.Build(nil))
}

func TestPipeline_BarCommands(t *testing.T) {
	data := series(500, 1000)
	p := newTestPipeline(t, KindBar)

	counts := CountByType(p.Build(data))
	assert.Equal(t, 2, counts[TypePath])
	assert.Equal(t, 6, counts[TypeText])
	assert.Greater(t, counts[TypeRect], 0)
	assert.LessOrEqual(t, counts[TypeRect], BarMaxBins)
}

func TestPipeline_ScatterSkipsPointsOutsideBounds(t *testing.T) {
	data := series(100, 1000)
	p := newTestPipeline(t, KindScatter)
	p.SetBounds(models.ViewBounds{
		MinX: float64(baseTs),
		MaxX: float64(baseTs + 49_000),
		MinY: 0,
		MaxY: 100,
	})

	counts := CountByType(p.Build(data))
	assert.Equal(t, 50, counts[TypeCircle])
}

func TestPipeline_HeatmapGrid(t *testing.T) {
	b := models.ViewBounds{MinX: 0, MaxX: 1000, MinY: 0, MaxY: 100}
	data := []models.SummaryPoint{
		{Timestamp: 0, Value: 95},
		{Timestamp: 0, Value: 100},
		{Timestamp: 1000, Value: 0},
		{Timestamp: 2000, Value: 50},
	}

	grid := HeatmapGrid(data, b, 40, 10)
	require.Len(t, grid, 10)
	require.Len(t, grid[0], 40)
	assert.Equal(t, 2, grid[0][0])
	assert.Equal(t, 1, grid[9][39])

	total := 0
	for _, row := range grid {
		for _, c := range row {
			total += c
		}
	}
	assert.Equal(t, 3, total)
}

func TestPipeline_HeatmapCommands(t *testing.T) {
	data := series(300, 1000)
	p := newTestPipeline(t, KindHeatmap)
	p.SeedBounds(data)

	cmds := p.Build(data)
	assert.Len(t, cmds, DefaultHeatmapCols*DefaultHeatmapRows)

	hottest := 0
	for _, c := range cmds {
		if c.(Rect).FillStyle == "rgb(255,0,0)" {
			hottest++
		}
	}
	assert.GreaterOrEqual(t, hottest, 1)
}

func TestHeatColor(t *testing.T) {
	assert.Equal(t, "rgb(0,100,200)", HeatColor(0))
	assert.Equal(t, "rgb(255,0,0)", HeatColor(1))
	assert.Equal(t, "rgb(127,50,100)", HeatColor(0.5))
}

func TestPipeline_Bounds(t *testing.T) {
	p := newTestPipeline(t, KindScatter)
	_, ok := p.Bounds()
	assert.False(t, ok)

	assert.False(t, p.SeedBounds(nil))
	assert.True(t, p.SeedBounds(series(1, 1000)))
	b, ok := p.Bounds()
	require.True(t, ok)
	assert.Equal(t, float64(DefaultTimeWindowMs), b.RangeX())
	assert.Equal(t, 2.0, b.RangeY())

	assert.False(t, p.SeedBounds(series(10, 1000)))

	p.ResetBounds()
	_, ok = p.Bounds()
	assert.False(t, ok)
}

func TestPipeline_RenderSubmits(t *testing.T) {
	data := series(120, 1000)
	p := newTestPipeline(t, KindBar)

	n, err := p.Render(data)
	require.NoError(t, err)
	assert.Equal(t, len(p.Build(data)), n)

	require.NoError(t, p.Close())
	_, err = p.Render(data)
	assert.ErrorIs(t, err, ErrSurfaceClosed)
}

func TestParseChartKind(t *testing.T) {
	k, err := ParseChartKind("heatmap")
	require.NoError(t, err)
	assert.Equal(t, KindHeatmap, k)

	_, err = ParseChartKind("pie")
	assert.ErrorIs(t, err, ErrUnknownChartKind)
}

func TestFormatTimeLabel(t *testing.T) {
	assert.Equal(t, "22:14", FormatTimeLabel(float64(baseTs)))
}

func BenchmarkPipeline_Line(b *testing.B) {
	data := series(20000, 100)
	s, _ := NewSurface(SurfaceOptions{Width: 800, Height: 400})
	defer s.Close()
	p := NewPipeline(KindLine, s, DefaultChartOptions(KindLine))
	p.SeedBounds(data)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.Render(data)
	}
}

func TestPlotRect(t *testing.T) {
	left, top, w, h := PlotRect(KindLine, 800, 400)
	assert.Equal(t, []float64{70, 40, 690, 310}, []float64{left, top, w, h})

	left, top, w, h = PlotRect(KindHeatmap, 800, 400)
	assert.Equal(t, []float64{50, 30, 720, 320}, []float64{left, top, w, h})
}
