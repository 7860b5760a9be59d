package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"

	_ "github.com/go-sql-driver/mysql"

	"grammar-api-app/internal/config"
	"grammar-api-app/internal/modules/correction/domain"
	"grammar-api-app/internal/modules/correction/domain/repository"
)

var _ repository.RuleRepository = (*BunRuleRepository)(nil)

// CorrectionRule BUNモデル
type CorrectionRule struct {
	bun.BaseModel `bun:"table:correction_rules"`

	ID          string    `bun:"id,pk,type:varchar(36)"`
	Pattern     string    `bun:"pattern,notnull,type:varchar(255)"`
	Replacement string    `bun:"replacement,notnull,type:varchar(255)"`
	Category    string    `bun:"category,notnull,type:varchar(32)"`
	Message     string    `bun:"message,type:varchar(255),default:''"`
	Enabled     bool      `bun:"enabled,notnull,default:true"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// BunRuleRepository 追加ルールのBUN実装
type BunRuleRepository struct {
	db *bun.DB
}

// NewBunRuleRepository 新しいBunRuleRepositoryを作成
func NewBunRuleRepository(cfg *config.MySQLConfig) (*BunRuleRepository, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=Local",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	sqldb, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := bun.NewDB(sqldb, mysqldialect.New())

	// 接続確認
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &BunRuleRepository{db: db}, nil
}

// NewBunRuleRepositoryWithDB DBインスタンスから作成（テスト用）
func NewBunRuleRepositoryWithDB(db *bun.DB) *BunRuleRepository {
	return &BunRuleRepository{db: db}
}

// EnsureSchema テーブルが無ければ作成
func (r *BunRuleRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.NewCreateTable().Model((*CorrectionRule)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create correction_rules table: %w", err)
	}
	return nil
}

// Create ルールを追加
func (r *BunRuleRepository) Create(ctx context.Context, rule domain.CustomRule) error {
	if strings.TrimSpace(rule.Pattern) == "" {
		return fmt.Errorf("rule pattern is empty")
	}

	category := rule.Category
	if category == "" {
		category = domain.CategoryOther
	}
	model := &CorrectionRule{
		ID:          uuid.NewString(),
		Pattern:     rule.Pattern,
		Replacement: rule.Replacement,
		Category:    string(category),
		Message:     rule.Message,
		Enabled:     true,
		CreatedAt:   time.Now(),
	}

	if _, err := r.db.NewInsert().Model(model).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create correction rule: %w", err)
	}
	return nil
}

// Disable ルールを無効化
func (r *BunRuleRepository) Disable(ctx context.Context, pattern string) (int64, error) {
	res, err := r.db.NewUpdate().
		Model((*CorrectionRule)(nil)).
		Set("enabled = ?", false).
		Where("pattern = ?", pattern).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to disable correction rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// FindEnabled 有効なルールを登録順に取得
func (r *BunRuleRepository) FindEnabled(ctx context.Context) ([]domain.CustomRule, error) {
	var models []CorrectionRule
	err := r.db.NewSelect().
		Model(&models).
		Where("enabled = ?", true).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find correction rules: %w", err)
	}

	rules := make([]domain.CustomRule, len(models))
	for i, m := range models {
		rules[i] = toCustomRule(m)
	}
	return rules, nil
}

// Close 接続を閉じる
func (r *BunRuleRepository) Close() error {
	return r.db.Close()
}

func toCustomRule(m CorrectionRule) domain.CustomRule {
	return domain.CustomRule{
		Pattern:     m.Pattern,
		Replacement: m.Replacement,
		Category:    domain.ParseCategory(m.Category),
		Message:     m.Message,
	}
}
