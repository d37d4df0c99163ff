package restclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumValue(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewMetrics(t *testing.T) {
	mp := sdkmetric.NewMeterProvider()
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := newMetrics(mp.Meter("test"))

	require.NoError(t, err)
	assert.NotNil(t, m.requestDuration)
	assert.NotNil(t, m.activeRequests)
	assert.NotNil(t, m.requestErrors)
	assert.NotNil(t, m.retryAttempts)
	assert.NotNil(t, m.retryExhausted)
	assert.NotNil(t, m.breakerRequests)
	assert.NotNil(t, m.breakerState)
}

func TestMetrics_Record(t *testing.T) {
	tests := []struct {
		name       string
		record     func(ctx context.Context, m *metrics)
		wantMetric string
		wantValue  int64
	}{
		{
			name: "given an error, then counts it",
			record: func(ctx context.Context, m *metrics) {
				m.recordError(ctx, ErrorTypeTimeout, nil)
				m.recordError(ctx, ErrorTypeTimeout, nil)
			},
			wantMetric: "http.client.request.error",
			wantValue:  2,
		},
		{
			name: "given start and end, then active requests returns to zero",
			record: func(ctx context.Context, m *metrics) {
				m.recordActiveRequestStart(ctx, nil)
				m.recordActiveRequestStart(ctx, nil)
				m.recordActiveRequestEnd(ctx, nil)
			},
			wantMetric: "http.client.active_requests",
			wantValue:  1,
		},
		{
			name: "given retry attempts, then counts them",
			record: func(ctx context.Context, m *metrics) {
				m.recordRetryAttempt(ctx, nil, 1)
				m.recordRetryAttempt(ctx, nil, 2)
				m.recordRetryAttempt(ctx, nil, 3)
			},
			wantMetric: "http.client.retry.attempts",
			wantValue:  3,
		},
		{
			name: "given exhausted retries, then counts them",
			record: func(ctx context.Context, m *metrics) {
				m.recordRetryExhausted(ctx, []attribute.KeyValue{attribute.String("http.client.name", "api")})
			},
			wantMetric: "http.client.retry.exhausted",
			wantValue:  1,
		},
		{
			name: "given breaker outcomes, then counts them",
			record: func(ctx context.Context, m *metrics) {
				m.recordBreakerRequest(ctx, "api", "success")
				m.recordBreakerRequest(ctx, "api", "rejected")
			},
			wantMetric: "http.client.breaker.requests",
			wantValue:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := sdkmetric.NewManualReader()
			mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
			defer func() { _ = mp.Shutdown(context.Background()) }()

			m, err := newMetrics(mp.Meter("test"))
			require.NoError(t, err)

			tt.record(context.Background(), m)

			got := collectMetrics(t, reader)
			require.Contains(t, got, tt.wantMetric)
			assert.Equal(t, tt.wantValue, sumValue(t, got[tt.wantMetric]))
		})
	}
}

func TestMetrics_RecordRequestDuration(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := newMetrics(mp.Meter("test"))
	require.NoError(t, err)

	m.recordRequestDuration(context.Background(), 100*time.Millisecond,
		[]attribute.KeyValue{attribute.String("http.request.method", "GET")})

	got := collectMetrics(t, reader)
	require.Contains(t, got, "http.client.request.duration")

	hist, ok := got["http.client.request.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 0.1, hist.DataPoints[0].Sum, 0.0001)
}

func TestMetrics_NilSafety(t *testing.T) {
	var m *metrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.recordRequestDuration(ctx, time.Second, nil)
		m.recordActiveRequestStart(ctx, nil)
		m.recordActiveRequestEnd(ctx, nil)
		m.recordError(ctx, ErrorTypeEOF, nil)
		m.recordRetryAttempt(ctx, nil, 1)
		m.recordRetryExhausted(ctx, nil)
		m.recordBreakerRequest(ctx, "api", "success")
		m.recordBreakerState(ctx, "api", 2)
	})
}

func TestWithAttr(t *testing.T) {
	base := make([]attribute.KeyValue, 1, 4)
	base[0] = attribute.String("a", "1")

	first := withAttr(base, attribute.String("b", "2"))
	second := withAttr(base, attribute.String("c", "3"))

	assert.Equal(t, "b", string(first[1].Key))
	assert.Equal(t, "c", string(second[1].Key))
	assert.Len(t, base, 1)
}

func TestClient_Metrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	client := New(
		WithBaseURL(server.URL),
		WithServiceName("metrics-test"),
		WithMeterProvider(mp),
		WithRetryConfig(RetryConfig{
			MaxRetries:      2,
			InitialInterval: time.Millisecond,
			MaxInterval:     time.Millisecond,
			Multiplier:      1,
		}),
	)

	resp, err := client.Execute(context.Background(), NewRequest("items", http.MethodGet))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	got := collectMetrics(t, reader)

	require.Contains(t, got, "http.client.retry.attempts")
	assert.Equal(t, int64(2), sumValue(t, got["http.client.retry.attempts"]))
	require.Contains(t, got, "http.client.retry.exhausted")
	assert.Equal(t, int64(1), sumValue(t, got["http.client.retry.exhausted"]))

	hist, ok := got["http.client.request.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
		name, _ := dp.Attributes.Value("http.client.name")
		assert.Equal(t, "metrics-test", name.AsString())
		code, _ := dp.Attributes.Value("http.response.status_code")
		assert.Equal(t, int64(http.StatusServiceUnavailable), code.AsInt64())
	}
	assert.Equal(t, uint64(3), count)
}
