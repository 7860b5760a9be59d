package usecase

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"grammar-api-app/internal/modules/correction/domain"
)

// HealthProbeText ヘルスチェックで送る文
const HealthProbeText = "She go to school every day."

// terminalProbeTimeout ルールテーブルの確認に使う期限
const terminalProbeTimeout = 5 * time.Second

// HealthStatus ヘルスチェックの状態
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// BackendHealth バックエンドごとのヘルスチェック結果
type BackendHealth struct {
	Name      string       `json:"name"`
	Status    HealthStatus `json:"status"`
	LatencyMs int64        `json:"latencyMs"`
	Error     string       `json:"error,omitempty"`
}

// HealthReport ヘルスチェック全体の結果
type HealthReport struct {
	Status    HealthStatus    `json:"status"`
	Backends  []BackendHealth `json:"backends"`
	Timestamp time.Time       `json:"timestamp"`
}

// HealthUseCase バックエンドのヘルスチェックのユースケース
type HealthUseCase struct {
	registry []domain.BackendRegistration
	terminal domain.Backend
	logger   *slog.Logger
	now      func() time.Time
}

// NewHealthUseCase 新しいHealthUseCaseを作成
func NewHealthUseCase(terminal domain.Backend, registrations []domain.BackendRegistration, logger *slog.Logger) *HealthUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthUseCase{
		registry: registrations,
		terminal: terminal,
		logger:   logger,
		now:      time.Now,
	}
}

// Check 全バックエンドを並行して確認する
//
// ルールテーブルが失敗した場合のみ全体をunhealthyとする。
func (uc *HealthUseCase) Check(ctx context.Context) *HealthReport {
	probes := append(slices.Clone(uc.registry),
		domain.BackendRegistration{Backend: uc.terminal, Available: true, Timeout: terminalProbeTimeout})

	results := make([]BackendHealth, len(probes))
	g, gctx := errgroup.WithContext(ctx)
	for i, reg := range probes {
		g.Go(func() error {
			results[i] = uc.probe(gctx, reg)
			return nil
		})
	}
	_ = g.Wait()

	report := &HealthReport{
		Status:    StatusHealthy,
		Backends:  results,
		Timestamp: uc.now().UTC(),
	}
	for _, r := range results {
		if r.Status != StatusHealthy {
			report.Status = StatusDegraded
		}
	}
	if results[len(results)-1].Status == StatusUnhealthy {
		report.Status = StatusUnhealthy
	}

	uc.logger.Info("health check completed", slog.String("status", string(report.Status)))
	return report
}

// probe 1つのバックエンドに確認用の文を送る
func (uc *HealthUseCase) probe(ctx context.Context, reg domain.BackendRegistration) BackendHealth {
	health := BackendHealth{Name: reg.Backend.Name()}
	if !reg.Available {
		health.Status = StatusUnhealthy
		health.Error = "not configured"
		return health
	}

	probeCtx := ctx
	if reg.Timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, reg.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := reg.Backend.TryCorrect(probeCtx, HealthProbeText, domain.DefaultLanguageCode)
	elapsed := time.Since(start)
	health.LatencyMs = elapsed.Milliseconds()

	switch {
	case err != nil:
		health.Status = StatusUnhealthy
		health.Error = err.Error()
		uc.logger.Warn("health probe failed",
			slog.String("backend", health.Name),
			slog.String("error", err.Error()),
		)
	case result == nil:
		health.Status = StatusUnhealthy
		health.Error = "empty result"
	case domain.IsDegenerate(HealthProbeText, result.CorrectedText):
		health.Status = StatusDegraded
		health.Error = domain.ErrNoCorrection.Error()
	case reg.Timeout > 0 && elapsed > reg.Timeout/2:
		health.Status = StatusDegraded
	default:
		health.Status = StatusHealthy
	}
	return health
}
