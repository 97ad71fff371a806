//go:build unit || !integration

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestCounterRecordsAttributes(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	counter, err := NewCounter(provider.Meter("test"), "requests", "number of requests")
	require.NoError(t, err)

	counter.Inc(ctx, attribute.String("result", "hit"))
	counter.Add(ctx, 2, attribute.String("result", "hit"))
	counter.Inc(ctx, attribute.String("result", "miss"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)

	sum, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Sum[int64])
	require.True(t, ok)

	totals := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value("result")
		totals[v.AsString()] = dp.Value
	}
	require.Equal(t, map[string]int64{"hit": 3, "miss": 1}, totals)
}

func TestTimerRecordsOnce(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	histogram, err := NewDurationHistogram(provider.Meter("test"), "duration", "operation duration")
	require.NoError(t, err)

	stop := Timer(ctx, histogram, attribute.String("operation", "get"))
	require.GreaterOrEqual(t, stop().Nanoseconds(), int64(0))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	hist, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	require.Equal(t, uint64(1), hist.DataPoints[0].Count)
}
