package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"grammar-api-app/internal/config"
	"grammar-api-app/internal/modules/correction/domain"
	"grammar-api-app/internal/modules/correction/domain/repository"
	correctionHandler "grammar-api-app/internal/modules/correction/presentation/handler"
	"grammar-api-app/internal/modules/correction/usecase"
	sharedAI "grammar-api-app/internal/modules/shared/infrastructure/ai"
	sharedCache "grammar-api-app/internal/modules/shared/infrastructure/cache"
	sharedDB "grammar-api-app/internal/modules/shared/infrastructure/database"
	"grammar-api-app/internal/modules/shared/infrastructure/languagetool"
	"grammar-api-app/internal/modules/shared/infrastructure/metrics"
	"grammar-api-app/internal/modules/shared/infrastructure/rules"
	httpHandler "grammar-api-app/internal/presentation/http/handler"
)

// ServiceName メトリクスとログに使うサービス名
const ServiceName = "grammar-api-app"

// Version アプリケーションのバージョン。ビルド時に -ldflags で上書きする
var Version = "1.0.0"

// バックエンドの優先度。小さいほど先に試す
const (
	priorityClaude       = 10
	priorityOpenAI       = 20
	priorityHuggingFace  = 30
	priorityLanguageTool = 40
)

// ルールの読み込みに使う時間の上限
const ruleLoadTimeout = 10 * time.Second

// availability 資格情報の有無を返すバックエンド
type availability interface {
	domain.Backend
	Available() bool
}

// Container DIコンテナ
type Container struct {
	cfg    *config.Config
	logger *slog.Logger

	// Shared Infrastructure
	cacheRepo       *sharedCache.RedisRepository
	metricsProvider *metrics.Provider
	metrics         *metrics.Metrics
	ruleTable       *rules.RuleTableRepository
	registrations   []domain.BackendRegistration

	// Correction Module
	correctionUseCase *usecase.CorrectionUseCase
	healthUseCase     *usecase.HealthUseCase
	correctionHandler *correctionHandler.CorrectionHandler

	// Liveness
	healthHandler *httpHandler.HealthHandler
}

// NewContainer 新しいContainerを作成
//
// Redis・MySQLに接続できない場合は警告を出し、それぞれ無しで起動する。
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	container := &Container{cfg: cfg, logger: logger}

	// Shared Infrastructure: Metrics
	var recorder usecase.MetricsRecorder
	if cfg.Metrics.Enabled {
		provider, err := metrics.InitProvider(ServiceName, Version)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize metrics provider: %w", err)
		}
		m, err := metrics.NewMetrics(provider.MeterProvider)
		if err != nil {
			_ = provider.Shutdown(context.Background())
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
		container.metricsProvider = provider
		container.metrics = m
		recorder = m
	}

	// Shared Infrastructure: Cache Repository
	if cfg.Redis.Enabled {
		cacheRepo, err := sharedCache.NewRedisRepository(&cfg.Redis)
		if err != nil {
			logger.Warn("correction cache disabled", slog.String("error", err.Error()))
		} else {
			container.cacheRepo = cacheRepo
		}
	}

	// Shared Infrastructure: Rule Table
	container.ruleTable = rules.NewRuleTableRepository(container.loadCustomRules())

	// Shared Infrastructure: Remote Backends
	backends := []struct {
		backend  availability
		priority int
		timeout  time.Duration
	}{
		{sharedAI.NewClaudeRepository(&cfg.Anthropic), priorityClaude, cfg.Anthropic.Timeout},
		{sharedAI.NewOpenAIRepository(&cfg.OpenAI), priorityOpenAI, cfg.OpenAI.Timeout},
		{sharedAI.NewHuggingFaceRepository(&cfg.HuggingFace), priorityHuggingFace, cfg.HuggingFace.Timeout},
		{languagetool.NewRepository(&cfg.LanguageTool), priorityLanguageTool, cfg.LanguageTool.Timeout},
	}
	for _, b := range backends {
		var backend domain.Backend = b.backend
		if container.cacheRepo != nil {
			backend = usecase.NewCachedBackend(backend, container.cacheRepo, cfg.Redis.TTL, logger)
		}
		container.registrations = append(container.registrations, domain.BackendRegistration{
			Backend:   backend,
			Available: b.backend.Available(),
			Priority:  b.priority,
			Timeout:   b.timeout,
		})
	}

	// Correction Module: UseCase
	container.correctionUseCase = usecase.NewCorrectionUseCase(container.ruleTable, container.registrations,
		usecase.WithLogger(logger),
		usecase.WithMetrics(recorder),
		usecase.WithPreferredBackend(cfg.Correction.PreferredBackend),
		usecase.WithFallback(cfg.Correction.FallbackEnabled),
		usecase.WithMaxTextLength(cfg.Correction.MaxTextLength),
		usecase.WithDefaultLanguage(cfg.Correction.DefaultLanguage),
	)
	container.healthUseCase = usecase.NewHealthUseCase(container.ruleTable, container.registrations, logger)

	// Correction Module: Handler
	container.correctionHandler = correctionHandler.NewCorrectionHandler(container.correctionUseCase, container.healthUseCase, logger)
	container.healthHandler = httpHandler.NewHealthHandler(Version)

	return container, nil
}

// loadCustomRules MySQLから追加ルールを読み込む。失敗時は組み込みルールのみ
func (c *Container) loadCustomRules() []domain.CustomRule {
	if !c.cfg.MySQL.Enabled {
		return nil
	}

	repo, err := sharedDB.NewBunRuleRepository(&c.cfg.MySQL)
	if err != nil {
		c.logger.Warn("custom rules disabled", slog.String("error", err.Error()))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), ruleLoadTimeout)
	defer cancel()
	return readCustomRules(ctx, repo, c.logger)
}

// readCustomRules スキーマを用意して有効なルールを読み、リポジトリを閉じる
func readCustomRules(ctx context.Context, repo repository.RuleRepository, logger *slog.Logger) []domain.CustomRule {
	defer func() {
		_ = repo.Close()
	}()

	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Warn("custom rules disabled", slog.String("error", err.Error()))
		return nil
	}
	custom, err := repo.FindEnabled(ctx)
	if err != nil {
		logger.Warn("custom rules disabled", slog.String("error", err.Error()))
		return nil
	}

	logger.Info("custom rules loaded", slog.Int("count", len(custom)))
	return custom
}

// Config 設定を取得
func (c *Container) Config() *config.Config {
	return c.cfg
}

// CorrectionUseCase 補正ユースケースを取得
func (c *Container) CorrectionUseCase() *usecase.CorrectionUseCase {
	return c.correctionUseCase
}

// HealthUseCase 診断ユースケースを取得
func (c *Container) HealthUseCase() *usecase.HealthUseCase {
	return c.healthUseCase
}

// CorrectionHandler 補正APIハンドラーを取得
func (c *Container) CorrectionHandler() *correctionHandler.CorrectionHandler {
	return c.correctionHandler
}

// HealthHandler 死活監視ハンドラーを取得
func (c *Container) HealthHandler() *httpHandler.HealthHandler {
	return c.healthHandler
}

// Metrics メトリクスを取得。無効時はnil
func (c *Container) Metrics() *metrics.Metrics {
	return c.metrics
}

// MetricsHandler /metrics用のハンドラーを取得。無効時はnil
func (c *Container) MetricsHandler() http.Handler {
	if c.metricsProvider == nil {
		return nil
	}
	return c.metricsProvider.Handler()
}

// Registrations 登録済みのリモートバックエンドを取得
func (c *Container) Registrations() []domain.BackendRegistration {
	return c.correctionUseCase.Registry()
}

// RuleTable ルールテーブルを取得
func (c *Container) RuleTable() *rules.RuleTableRepository {
	return c.ruleTable
}

// Close リソースをクローズ。2回目以降は何もしない
func (c *Container) Close() error {
	var errs []error

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close cache repository: %w", err))
		}
		c.cacheRepo = nil
	}

	if c.metricsProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown metrics provider: %w", err))
		}
		c.metricsProvider = nil
	}

	return errors.Join(errs...)
}
