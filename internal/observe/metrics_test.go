package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestOracleDuration_RecordsObservations(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.OracleDuration.Record(ctx, 0.5)
	m.OracleDuration.Record(ctx, 2.0)

	rm := collect(t, reader)
	met := findMetric(rm, "socialsync.oracle.duration")
	if met == nil {
		t.Fatal("metric socialsync.oracle.duration not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if len(hist.DataPoints) == 0 || hist.DataPoints[0].Count != 2 {
		t.Fatalf("expected 2 observations, got %+v", hist.DataPoints)
	}
}

func TestRecordTurn_CountsByBranch(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTurn(ctx, "searching")
	m.RecordTurn(ctx, "searching")
	m.RecordTurn(ctx, "celebrating")

	rm := collect(t, reader)
	met := findMetric(rm, "socialsync.turns")
	if met == nil {
		t.Fatal("metric socialsync.turns not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}

	counts := map[string]int64{}
	for _, dp := range sum.DataPoints {
		if branch, ok := dp.Attributes.Value(attribute.Key("branch")); ok {
			counts[branch.AsString()] = dp.Value
		}
	}
	if counts["searching"] != 2 {
		t.Errorf("searching = %d, want 2", counts["searching"])
	}
	if counts["celebrating"] != 1 {
		t.Errorf("celebrating = %d, want 1", counts["celebrating"])
	}
}

func TestActiveSessions_UpDown(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, -1)

	rm := collect(t, reader)
	met := findMetric(rm, "socialsync.active_sessions")
	if met == nil {
		t.Fatal("metric socialsync.active_sessions not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
		t.Fatalf("expected value 1, got %+v", sum.DataPoints)
	}
}
