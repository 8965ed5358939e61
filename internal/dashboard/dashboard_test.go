package dashboard

import (
	"bytes"
	"context"
	"image/png"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stream-dashboard/internal/generator"
	"stream-dashboard/internal/models"
	"stream-dashboard/internal/render"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeStore struct {
	mu        sync.Mutex
	pushed    int
	resets    int
	summaries []uint64
}

func (s *fakeStore) PushObservation(models.Observation, int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushed++
	return nil
}

func (s *fakeStore) ResetObservations([]models.Observation, int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
	return nil
}

func (s *fakeStore) CacheSummary(id uint64, _ []models.SummaryPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, id)
	return nil
}

func testConfig(clock *fakeClock) Config {
	cfg := DefaultConfig()
	cfg.BufferSize = 500
	cfg.SeedCount = 100
	cfg.ChartWidth = 320
	cfg.ChartHeight = 200
	cfg.UseOffscreen = false
	cfg.Clock = clock.Now
	cfg.Generator = generator.New(
		generator.WithRand(rand.New(rand.NewPCG(1, 2))),
		generator.WithClock(clock.Now),
	)
	return cfg
}

func newTestDashboard(t *testing.T, mutate ...func(*Config)) (*Dashboard, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.UnixMilli(1_700_000_040_000)}
	cfg := testConfig(clock)
	for _, m := range mutate {
		m(&cfg)
	}
	d, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(d.Close)

	d.Engine().Start(1)
	t.Cleanup(d.Engine().Stop)
	return d, clock
}

// awaitResponse waits for the response with the given id, skipping older ones
func awaitResponse(t *testing.T, d *Dashboard, id uint64) models.AggregationResponse {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case resp := <-d.Engine().Results():
			if resp.ID == id {
				return resp
			}
		case <-timeout:
			t.Fatalf("timed out waiting for aggregation response %d", id)
		}
	}
}

// aggregateOnce submits the buffer and returns the response without applying it
func aggregateOnce(t *testing.T, d *Dashboard) models.AggregationResponse {
	t.Helper()
	id, ok := d.Refresh()
	require.True(t, ok)
	resp := awaitResponse(t, d, id)
	require.Equal(t, models.ResponseResult, resp.Type, resp.Error)
	return resp
}

func TestNew_InvalidChartSize(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(0)}
	cfg := testConfig(clock)
	cfg.ChartWidth = -1

	_, err := New(cfg)
	assert.ErrorIs(t, err, render.ErrSurfaceUnavailable)
}

func TestNew_InvalidFilters(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(0)}
	cfg := testConfig(clock)
	cfg.Filters = &models.FilterConfig{Period: "2min"}

	_, err := New(cfg)
	assert.ErrorIs(t, err, models.ErrUnknownPeriod)
}

func TestNew_SeedsBufferAndStore(t *testing.T) {
	store := &fakeStore{}
	d, _ := newTestDashboard(t, func(c *Config) { c.Store = store })

	assert.Equal(t, 100, d.Buffer().Len())
	assert.Equal(t, 1, store.resets)
	assert.Len(t, d.Charts(), 4)
	assert.False(t, d.UsingOffscreen())
}

func TestDashboard_OffscreenCharts(t *testing.T) {
	d, _ := newTestDashboard(t, func(c *Config) {
		c.UseOffscreen = true
		c.Capabilities = &render.Capabilities{Offscreen: true}
	})
	assert.True(t, d.UsingOffscreen())
}

func TestDashboard_ApplyResponseUpdatesChartsAndSubscribers(t *testing.T) {
	store := &fakeStore{}
	d, _ := newTestDashboard(t, func(c *Config) { c.Store = store })
	events, unsubscribe := d.Hub().Subscribe()
	defer unsubscribe()

	resp := aggregateOnce(t, d)
	require.True(t, d.ApplyResponse(resp))

	series, id := d.Summary()
	assert.Equal(t, resp.ID, id)
	assert.NotEmpty(t, series)
	assert.Equal(t, []uint64{resp.ID}, store.summaries)

	for _, chart := range d.Charts() {
		b, ok := chart.Pipeline.Bounds()
		require.True(t, ok, chart.Kind)
		assert.Greater(t, b.RangeX(), 0.0)
	}

	select {
	case ev := <-events:
		assert.Equal(t, EventSummary, ev.Type)
		assert.Equal(t, resp.ID, ev.RequestID)
	default:
		t.Fatal("summary event not published")
	}
}

func TestDashboard_StaleAndErrorResponsesKeepSeries(t *testing.T) {
	d, _ := newTestDashboard(t)

	first := aggregateOnce(t, d)
	second := aggregateOnce(t, d)
	require.Greater(t, second.ID, first.ID)

	require.True(t, d.ApplyResponse(second))
	applied, _ := d.Summary()

	assert.False(t, d.ApplyResponse(first))
	assert.False(t, d.ApplyResponse(models.AggregationResponse{ID: second.ID + 1, Type: models.ResponseError, Error: "boom"}))

	series, id := d.Summary()
	assert.Equal(t, second.ID, id)
	assert.Equal(t, applied, series)
	assert.Equal(t, int64(1), d.Stats().StaleResultsDropped)
}

func TestDashboard_RollingTimeRange(t *testing.T) {
	d, clock := newTestDashboard(t)
	before := d.Filters().TimeRange

	clock.Advance(30 * time.Second)
	aggregateOnce(t, d)

	after := d.Filters().TimeRange
	assert.Equal(t, before.Duration(), after.Duration())
	assert.Equal(t, clock.Now().UnixMilli(), after.End)

	d.SetStreaming(false)
	clock.Advance(30 * time.Second)
	aggregateOnce(t, d)
	assert.Equal(t, after, d.Filters().TimeRange)
}

func TestDashboard_SetFilters(t *testing.T) {
	d, _ := newTestDashboard(t)

	err := d.SetFilters(models.FilterConfig{Period: models.Period1Min, ValueRange: models.ValueRange{Min: 10, Max: 5}})
	assert.Error(t, err)

	cfg := d.Filters()
	cfg.Categories = []models.Category{models.CategorySensor}
	require.NoError(t, d.SetFilters(cfg))
	assert.Equal(t, []models.Category{models.CategorySensor}, d.Filters().Categories)

	resp := aggregateOnce(t, d)
	require.NotEmpty(t, resp.Data)
	for _, p := range resp.Data {
		assert.Equal(t, models.CategorySensor, p.Category)
	}
}

func TestDashboard_ClearReseeds(t *testing.T) {
	d, _ := newTestDashboard(t)
	for i := 0; i < 5; i++ {
		d.Streamer().Tick()
	}
	assert.Equal(t, 105, d.Buffer().Len())

	d.Clear(10)
	assert.Equal(t, 10, d.Buffer().Len())

	resp := aggregateOnce(t, d)
	assert.NotEmpty(t, resp.Data)
}

func TestDashboard_ToggleStreaming(t *testing.T) {
	d, _ := newTestDashboard(t)
	assert.True(t, d.Status().Streaming)
	assert.False(t, d.ToggleStreaming())
	assert.False(t, d.Status().Streaming)
	assert.True(t, d.ToggleStreaming())

	status := d.Status()
	assert.Equal(t, 100, status.DataPointCount)
	assert.Equal(t, 500, status.Capacity)
}

func TestDashboard_ViewportGestures(t *testing.T) {
	d, _ := newTestDashboard(t)

	_, err := d.Wheel(render.KindLine, 10, 10, 1)
	assert.ErrorIs(t, err, ErrNoData)

	require.True(t, d.ApplyResponse(aggregateOnce(t, d)))
	before, err := d.ChartBounds(render.KindLine)
	require.NoError(t, err)

	zoomed, err := d.Wheel(render.KindLine, 160, 100, -1)
	require.NoError(t, err)
	assert.InDelta(t, before.RangeX()*0.9, zoomed.RangeX(), 1e-6)

	chart, err := d.Chart(render.KindLine)
	require.NoError(t, err)
	assert.False(t, chart.Following())

	got, err := d.ChartBounds(render.KindLine)
	require.NoError(t, err)
	assert.Equal(t, zoomed, got)

	_, err = d.Pointer(render.KindLine, PointerDown, 100, 100)
	require.NoError(t, err)
	panned, err := d.Pointer(render.KindLine, PointerMove, 132, 100)
	require.NoError(t, err)
	// line plot area is 320 minus 70+40 padding
	assert.InDelta(t, zoomed.MinX-32*zoomed.RangeX()/210, panned.MinX, 1e-6)
	_, err = d.Pointer(render.KindLine, PointerUp, 132, 100)
	require.NoError(t, err)

	// new data does not move a chart the user has positioned
	require.True(t, d.ApplyResponse(aggregateOnce(t, d)))
	got, _ = d.ChartBounds(render.KindLine)
	assert.Equal(t, panned, got)

	require.NoError(t, d.ResetView(render.KindLine))
	assert.True(t, chart.Following())

	_, err = d.Pointer(render.KindLine, "drag", 0, 0)
	assert.ErrorIs(t, err, ErrUnknownAction)
	_, err = d.Pointer("pie", PointerDown, 0, 0)
	assert.ErrorIs(t, err, render.ErrUnknownChartKind)
}

func TestDashboard_RenderFrameAndPNG(t *testing.T) {
	d, _ := newTestDashboard(t)
	require.True(t, d.ApplyResponse(aggregateOnce(t, d)))

	d.RenderFrame()

	for _, kind := range render.AllChartKinds() {
		var buf bytes.Buffer
		require.NoError(t, d.WriteChartPNG(kind, &buf))
		img, err := png.Decode(&buf)
		require.NoError(t, err)
		assert.Equal(t, 320, img.Bounds().Dx())
	}
}

func TestDashboard_PerformanceEventAfterOneSecond(t *testing.T) {
	d, clock := newTestDashboard(t)
	events, unsubscribe := d.Hub().Subscribe()
	defer unsubscribe()

	for i := 0; i < 10; i++ {
		clock.Advance(100 * time.Millisecond)
		d.RenderFrame()
	}

	select {
	case ev := <-events:
		require.Equal(t, EventPerformance, ev.Type)
		require.NotNil(t, ev.Performance)
		assert.Equal(t, 10, ev.Performance.CurrentFPS)
		assert.Equal(t, 100, ev.Performance.DataPointCount)
		require.NotNil(t, ev.Performance.UsingOffscreen)
		assert.False(t, *ev.Performance.UsingOffscreen)
	default:
		t.Fatal("performance event not published")
	}
}

func TestDashboard_RunEndToEnd(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferSize = 1000
	cfg.TickInterval = 5 * time.Millisecond
	cfg.FrameInterval = 5 * time.Millisecond
	cfg.ChartWidth = 200
	cfg.ChartHeight = 120
	d, err := New(cfg)
	require.NoError(t, err)
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	assert.Eventually(t, func() bool {
		series, _ := d.Summary()
		return len(series) > 0 && d.Streamer().Ticks() > 3
	}, 3*time.Second, 10*time.Millisecond)

	assert.ErrorIs(t, d.Run(ctx), ErrAlreadyRunning)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	stats := d.Stats()
	assert.Greater(t, stats.AggregationPasses, int64(0))
	assert.Greater(t, stats.SummaryPoints, 0)
}

func TestDashboard_InitialDatasetAndNoise(t *testing.T) {
	d, clock := newTestDashboard(t)

	data := d.InitialDataset(0)
	require.Len(t, data, InitialDatasetSize)
	assert.Equal(t, clock.Now().UnixMilli(), data[len(data)-1].Timestamp)
	assert.Equal(t, 100, d.Buffer().Len())

	assert.Equal(t, 20.0, d.SetNoiseLevel(50))
	assert.Equal(t, 20.0, d.Generator().State().NoiseLevel)
}
