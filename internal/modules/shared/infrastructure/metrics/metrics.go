// Package metrics 補正処理とHTTPのメトリクス
//
// OpenTelemetryのメトリクスAPIで記録し、Prometheus形式で公開する。
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "grammar-api-app"

// バックエンド呼び出しの所要時間の区切り(秒)
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45, 60,
}

// Metrics メトリクスの計器
type Metrics struct {
	// BackendAttempts バックエンドの試行回数。backend, outcome属性付き
	BackendAttempts metric.Int64Counter
	// BackendDuration バックエンドの応答時間
	BackendDuration metric.Float64Histogram
	// CorrectionEdits 1リクエストあたりの編集数
	CorrectionEdits metric.Int64Histogram
	// HTTPRequestDuration HTTPリクエストの処理時間
	HTTPRequestDuration metric.Float64Histogram
}

// NewMetrics 指定したMeterProviderで計器を作成
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.BackendAttempts, err = m.Int64Counter("grammar.backend.attempts",
		metric.WithDescription("Correction backend attempts by backend and outcome."),
	); err != nil {
		return nil, err
	}
	if met.BackendDuration, err = m.Float64Histogram("grammar.backend.duration",
		metric.WithDescription("Latency of a single correction backend attempt."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CorrectionEdits, err = m.Int64Histogram("grammar.correction.edits",
		metric.WithDescription("Number of edits applied per correction."),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 5, 10, 25, 50, 100),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("grammar.http.duration",
		metric.WithDescription("HTTP request processing time."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// RecordAttempt バックエンドの試行を記録
func (m *Metrics) RecordAttempt(ctx context.Context, backend, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("outcome", outcome),
	)
	m.BackendAttempts.Add(ctx, 1, attrs)
	m.BackendDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordCorrection 採用された補正を記録
func (m *Metrics) RecordCorrection(ctx context.Context, service string, edits int) {
	m.CorrectionEdits.Record(ctx, int64(edits), metric.WithAttributes(attribute.String("service", service)))
}

// RecordHTTP HTTPリクエストを記録
func (m *Metrics) RecordHTTP(ctx context.Context, method, path string, status int, d time.Duration) {
	m.HTTPRequestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	))
}
