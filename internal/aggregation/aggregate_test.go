package aggregation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stream-dashboard/internal/generator"
	"stream-dashboard/internal/models"
	"stream-dashboard/internal/stream"
)

func point(ts int64, value float64, cat models.Category) models.Observation {
	return models.Observation{
		ID:        fmt.Sprintf("p-%d", ts),
		Timestamp: ts,
		Value:     value,
		Category:  cat,
		Metadata:  &models.Metadata{Unit: "units", Source: "test", Quality: 1},
	}
}

func passThrough() models.FilterConfig {
	return models.FilterConfig{
		Period:     models.Period1Min,
		TimeRange:  models.TimeRange{Start: -1 << 62, End: 1 << 62},
		ValueRange: models.ValueRange{Min: 0, Max: 100},
		Categories: models.AllCategories(),
	}
}

func TestAggregate_Bucketing(t *testing.T) {
	data := []models.Observation{
		point(0, 10, models.CategorySensor),
		point(30000, 20, models.CategorySensor),
		point(59999, 30, models.CategorySensor),
		point(60000, 40, models.CategorySensor),
		point(90000, 50, models.CategorySensor),
	}

	out, err := Aggregate(data, passThrough())
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, int64(0), out[0].Timestamp)
	assert.Equal(t, 20.0, out[0].Value)
	assert.Equal(t, "agg-0", out[0].ID)

	assert.Equal(t, int64(60000), out[1].Timestamp)
	assert.Equal(t, 45.0, out[1].Value)
	assert.Equal(t, "agg-60000", out[1].ID)
}

func TestAggregate_SortedAscendingRegardlessOfInputOrder(t *testing.T) {
	data := []models.Observation{
		point(600000, 1, models.CategoryLog),
		point(0, 2, models.CategoryLog),
		point(300000, 3, models.CategoryLog),
	}
	out, err := Aggregate(data, passThrough())
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, int64(0), out[0].Timestamp)
	assert.Equal(t, int64(300000), out[1].Timestamp)
	assert.Equal(t, int64(600000), out[2].Timestamp)
}

func TestAggregate_DominantCategoryTieBreak(t *testing.T) {
	data := []models.Observation{
		point(1000, 10, models.CategoryMetric),
		point(2000, 10, models.CategorySensor),
		point(3000, 10, models.CategoryMetric),
		point(4000, 10, models.CategorySensor),
	}
	out, err := Aggregate(data, passThrough())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, models.CategoryMetric, out[0].Category)

	// First-seen order wins, not the category name.
	data = []models.Observation{
		point(1000, 10, models.CategorySensor),
		point(2000, 10, models.CategoryLog),
		point(3000, 10, models.CategoryLog),
		point(4000, 10, models.CategorySensor),
	}
	out, err = Aggregate(data, passThrough())
	require.NoError(t, err)
	assert.Equal(t, models.CategorySensor, out[0].Category)
}

func TestAggregate_DominantCategoryMajority(t *testing.T) {
	data := []models.Observation{
		point(1000, 10, models.CategorySensor),
		point(2000, 10, models.CategoryLog),
		point(3000, 10, models.CategoryLog),
	}
	out, err := Aggregate(data, passThrough())
	require.NoError(t, err)
	assert.Equal(t, models.CategoryLog, out[0].Category)
}

func TestAggregate_FilterExclusivity(t *testing.T) {
	cfg := models.FilterConfig{
		Period:     models.Period1Min,
		TimeRange:  models.TimeRange{Start: 60000, End: 180000},
		ValueRange: models.ValueRange{Min: 20, Max: 80},
		Categories: []models.Category{models.CategorySensor, models.CategoryMetric},
	}
	data := []models.Observation{
		point(59999, 50, models.CategorySensor),  // before time range
		point(180001, 50, models.CategorySensor), // after time range
		point(90000, 19.99, models.CategorySensor),
		point(90000, 80.01, models.CategoryMetric),
		point(120000, 50, models.CategoryLog), // category excluded
		point(60000, 20, models.CategorySensor),
		point(180000, 80, models.CategoryMetric),
	}

	out, err := Aggregate(data, cfg)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(60000), out[0].Timestamp)
	assert.Equal(t, 20.0, out[0].Value)
	assert.Equal(t, int64(180000), out[1].Timestamp)
	assert.Equal(t, 80.0, out[1].Value)
}

func TestAggregate_EmptyInput(t *testing.T) {
	out, err := Aggregate(nil, passThrough())
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)

	cfg := passThrough()
	cfg.Categories = nil
	out, err = Aggregate([]models.Observation{point(0, 10, models.CategoryLog)}, cfg)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestAggregate_UnknownPeriod(t *testing.T) {
	cfg := passThrough()
	cfg.Period = "2min"
	_, err := Aggregate([]models.Observation{point(0, 1, models.CategoryLog)}, cfg)
	assert.ErrorIs(t, err, models.ErrUnknownPeriod)
}

func TestAggregate_MetadataAndQuality(t *testing.T) {
	a := point(0, 10, models.CategorySensor)
	a.Metadata = &models.Metadata{Unit: "celsius", Source: "s1", Quality: 0.5}
	b := point(1000, 20, models.CategorySensor)
	b.Metadata = nil // missing quality counts as 1

	out, err := Aggregate([]models.Observation{a, b}, passThrough())
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Metadata)
	assert.Equal(t, "celsius", out[0].Metadata.Unit)
	assert.Equal(t, models.SourceAggregated, out[0].Metadata.Source)
	assert.InDelta(t, 0.75, out[0].Metadata.Quality, 1e-9)
	assert.Equal(t, 15.0, out[0].Value)
}

func TestAggregate_ZeroQualityCountsAsFull(t *testing.T) {
	a := point(0, 10, models.CategorySensor)
	a.Metadata.Quality = 0
	b := point(1000, 20, models.CategorySensor)
	b.Metadata.Quality = 0.5

	out, err := Aggregate([]models.Observation{a, b}, passThrough())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.75, out[0].Metadata.Quality, 1e-9)
}

func TestAggregate_RoundsMean(t *testing.T) {
	data := []models.Observation{
		point(0, 10, models.CategorySensor),
		point(1, 10, models.CategorySensor),
		point(2, 11, models.CategorySensor),
	}
	out, err := Aggregate(data, passThrough())
	require.NoError(t, err)
	assert.Equal(t, 10.33, out[0].Value)
}

func TestBinKey(t *testing.T) {
	cases := []struct {
		name string
		ts   int64
		want int64
	}{
		{"zero", 0, 0},
		{"inside first bin", 59999, 0},
		{"boundary", 60000, 60000},
		{"negative", -1, -60000},
		{"negative boundary", -60000, -60000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, BinKey(tc.ts, 60000))
		})
	}
}

func TestAggregate_RoundTripThroughBuffer(t *testing.T) {
	// Clock advancing one minute per point, aligned to minute boundaries.
	start := time.UnixMilli(1_700_000_040_000) // divisible by 60000
	tick := 0
	clock := func() time.Time {
		ts := start.Add(time.Duration(tick) * time.Minute)
		tick++
		return ts
	}
	gen := generator.New(generator.WithClock(clock))
	buf := stream.NewBuffer(50)

	var prev *float64
	for i := 0; i < 30; i++ {
		obs := gen.Next(prev)
		buf.Append(obs)
		v := obs.Value
		prev = &v
	}

	input := buf.Snapshot()
	out, err := Aggregate(input, passThrough())
	require.NoError(t, err)
	require.Len(t, out, len(input))
	for i := range input {
		assert.Equal(t, input[i].Timestamp, out[i].Timestamp)
		assert.Equal(t, input[i].Value, out[i].Value)
		assert.Equal(t, input[i].Category, out[i].Category)
	}
}

func BenchmarkAggregate(b *testing.B) {
	gen := generator.New()
	data := gen.InitialDataset(stream.DefaultCapacity)
	cfg := passThrough()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Aggregate(data, cfg)
	}
}
