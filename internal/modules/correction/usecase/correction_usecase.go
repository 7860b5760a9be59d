package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"grammar-api-app/internal/modules/correction/domain"
)

// DefaultMaxTextLength 入力テキストの最大ルーン数の既定値
const DefaultMaxTextLength = 15000

const tracerName = "grammar-api-app/correction"

// 試行結果のラベル
const (
	OutcomeSuccess      = "success"
	OutcomeUnavailable  = "unavailable"
	OutcomeRateLimited  = "rate_limited"
	OutcomeAuth         = "auth"
	OutcomeTimeout      = "timeout"
	OutcomeNoCorrection = "no_correction"
	OutcomeFailure      = "failure"
	OutcomeCanceled     = "canceled"
)

// MetricsRecorder 補正処理のメトリクス記録先
type MetricsRecorder interface {
	RecordAttempt(ctx context.Context, backend, outcome string, d time.Duration)
	RecordCorrection(ctx context.Context, service string, edits int)
}

type nopMetrics struct{}

func (nopMetrics) RecordAttempt(context.Context, string, string, time.Duration) {}
func (nopMetrics) RecordCorrection(context.Context, string, int) {}

// Options リクエスト単位の指定
type Options struct {
	Language string
	// Backend 優先して試すバックエンド名。空なら設定値に従う
	Backend string
}

// CorrectionUseCase 補正のユースケース
//
// 登録済みバックエンドを優先度順に試し、最後に必ずルールテーブルを試す。
type CorrectionUseCase struct {
	registry        []domain.BackendRegistration
	terminal        domain.Backend
	logger          *slog.Logger
	metrics         MetricsRecorder
	tracer          trace.Tracer
	now             func() time.Time
	preferred       string
	fallbackEnabled bool
	maxTextLength   int
	defaultLanguage string
}

// Option CorrectionUseCaseの設定
type Option func(*CorrectionUseCase)

// WithLogger ロガーを設定
func WithLogger(logger *slog.Logger) Option {
	return func(uc *CorrectionUseCase) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

// WithMetrics メトリクスの記録先を設定
func WithMetrics(m MetricsRecorder) Option {
	return func(uc *CorrectionUseCase) {
		if m != nil {
			uc.metrics = m
		}
	}
}

// WithTracerProvider スパンの出力先を設定。既定はグローバルのプロバイダー
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(uc *CorrectionUseCase) {
		if tp != nil {
			uc.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithClock 時刻の取得元を差し替える
func WithClock(now func() time.Time) Option {
	return func(uc *CorrectionUseCase) {
		if now != nil {
			uc.now = now
		}
	}
}

// WithPreferredBackend 既定で先頭に試すバックエンド
func WithPreferredBackend(name string) Option {
	return func(uc *CorrectionUseCase) {
		uc.preferred = name
	}
}

// WithFallback 失敗時に次のバックエンドへ進むか
func WithFallback(enabled bool) Option {
	return func(uc *CorrectionUseCase) {
		uc.fallbackEnabled = enabled
	}
}

// WithMaxTextLength 入力テキストの最大ルーン数
func WithMaxTextLength(n int) Option {
	return func(uc *CorrectionUseCase) {
		if n > 0 {
			uc.maxTextLength = n
		}
	}
}

// WithDefaultLanguage 言語指定がない場合の言語
func WithDefaultLanguage(code string) Option {
	return func(uc *CorrectionUseCase) {
		if code != "" {
			uc.defaultLanguage = code
		}
	}
}

// NewCorrectionUseCase 新しいCorrectionUseCaseを作成
//
// registrationsは優先度順に並べ替えて保持する。terminalは失敗しないバックエンドであること。
func NewCorrectionUseCase(terminal domain.Backend, registrations []domain.BackendRegistration, opts ...Option) *CorrectionUseCase {
	registry := slices.Clone(registrations)
	slices.SortStableFunc(registry, func(a, b domain.BackendRegistration) int {
		return a.Priority - b.Priority
	})

	uc := &CorrectionUseCase{
		registry:        registry,
		terminal:        terminal,
		logger:          slog.Default(),
		metrics:         nopMetrics{},
		tracer:          otel.Tracer(tracerName),
		now:             time.Now,
		fallbackEnabled: true,
		maxTextLength:   DefaultMaxTextLength,
		defaultLanguage: domain.DefaultLanguageCode,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Registry 優先度順のバックエンド登録情報
func (uc *CorrectionUseCase) Registry() []domain.BackendRegistration {
	return slices.Clone(uc.registry)
}

// Languages 対応言語の一覧
func (uc *CorrectionUseCase) Languages() []domain.Language {
	return slices.Clone(domain.SupportedLanguages)
}

// MaxTextLength 入力テキストの最大ルーン数
func (uc *CorrectionUseCase) MaxTextLength() int {
	return uc.maxTextLength
}

// Correct テキストを補正
//
// 検証エラーはValidationErrorで返し、バックエンドは呼ばない。
// 呼び出し元のcontextがキャンセルされた場合はそのエラーを返す。
func (uc *CorrectionUseCase) Correct(ctx context.Context, text string, opts Options) (*domain.CorrectionResult, error) {
	if err := domain.ValidateText(text, uc.maxTextLength); err != nil {
		return nil, err
	}

	language := opts.Language
	if language == "" {
		language = uc.defaultLanguage
	}
	preferred := opts.Backend
	if preferred == "" {
		preferred = uc.preferred
	}

	ctx, span := uc.tracer.Start(ctx, "correction.correct", trace.WithAttributes(
		attribute.String("language", language),
		attribute.Int("text.runes", domain.RuneLen(text)),
	))
	defer span.End()

	start := uc.now()
	var lastErr error
	candidates := uc.candidates(preferred)
	for i, reg := range candidates {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		result, err := uc.attempt(ctx, reg, text, language, i == len(candidates)-1)
		if err == nil {
			result.Statistics.ProcessingTimeMs = uc.now().Sub(start).Milliseconds()
			uc.metrics.RecordCorrection(ctx, result.ServiceUsed, len(result.Edits))
			span.SetAttributes(
				attribute.String("service", result.ServiceUsed),
				attribute.Int("edits", len(result.Edits)),
			)
			uc.logger.Info("correction completed",
				slog.String("service", result.ServiceUsed),
				slog.String("language", result.Language.Code),
				slog.Int("edits", len(result.Edits)),
				slog.Int64("processing_ms", result.Statistics.ProcessingTimeMs),
			)
			return result, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			span.SetStatus(codes.Error, ctxErr.Error())
			return nil, ctxErr
		}
		lastErr = err
		uc.logger.Warn("correction backend failed",
			slog.String("backend", reg.Backend.Name()),
			slog.String("outcome", outcomeOf(err)),
			slog.String("error", err.Error()),
		)
	}

	uc.logger.Error("all correction backends exhausted",
		slog.String("error", fmt.Sprint(lastErr)),
	)
	err := fmt.Errorf("%w: %w", domain.ErrAllBackendsExhausted, lastErr)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return nil, err
}

// candidates 今回のリクエストで試すバックエンドの順序を決める
func (uc *CorrectionUseCase) candidates(preferred string) []domain.BackendRegistration {
	list := make([]domain.BackendRegistration, 0, len(uc.registry)+1)
	if preferred != uc.terminal.Name() {
		for _, reg := range uc.registry {
			if reg.Available {
				list = append(list, reg)
			}
		}
	}

	if preferred != "" {
		if i := slices.IndexFunc(list, func(r domain.BackendRegistration) bool {
			return r.Backend.Name() == preferred
		}); i > 0 {
			reg := list[i]
			list = slices.Delete(list, i, i+1)
			list = slices.Insert(list, 0, reg)
		}
	}

	if !uc.fallbackEnabled && len(list) > 1 {
		list = list[:1]
	}

	return append(list, domain.BackendRegistration{Backend: uc.terminal, Available: true})
}

// attempt 1つのバックエンドを期限付きで呼び出す
//
// 終端のバックエンドは短い入力でも結果をそのまま採用する。
func (uc *CorrectionUseCase) attempt(ctx context.Context, reg domain.BackendRegistration, text, language string, terminal bool) (*domain.CorrectionResult, error) {
	name := reg.Backend.Name()
	ctx, span := uc.tracer.Start(ctx, "correction.attempt", trace.WithAttributes(
		attribute.String("backend", name),
	))
	defer span.End()

	attemptCtx := ctx
	if reg.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, reg.Timeout)
		defer cancel()
	}

	began := uc.now()
	result, err := reg.Backend.TryCorrect(attemptCtx, text, language)
	elapsed := uc.now().Sub(began)

	switch {
	case err != nil:
	case result == nil:
		err = domain.NewBackendError(name, domain.ErrBackendFailure, errors.New("empty result"))
	case !terminal && domain.IsDegenerate(text, result.CorrectedText):
		err = domain.NewBackendError(name, domain.ErrNoCorrection, errors.New("degenerate result"))
	}

	outcome := outcomeOf(err)
	uc.metrics.RecordAttempt(ctx, name, outcome, elapsed)
	uc.logger.Debug("correction attempt",
		slog.String("backend", name),
		slog.String("outcome", outcome),
		slog.Duration("duration", elapsed),
	)
	span.SetAttributes(attribute.String("outcome", outcome))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

// outcomeOf エラーを試行結果のラベルに変換する
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	case errors.Is(err, domain.ErrBackendTimeout), errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	case errors.Is(err, domain.ErrBackendUnavailable):
		return OutcomeUnavailable
	case errors.Is(err, domain.ErrBackendRateLimited):
		return OutcomeRateLimited
	case errors.Is(err, domain.ErrBackendAuth):
		return OutcomeAuth
	case errors.Is(err, domain.ErrNoCorrection):
		return OutcomeNoCorrection
	default:
		return OutcomeFailure
	}
}
