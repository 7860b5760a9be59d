package database

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"

	"grammar-api-app/internal/modules/correction/domain"
	"grammar-api-app/internal/modules/shared/infrastructure/testcontainer"
)

func setupTestRepo(t *testing.T) *BunRuleRepository {
	t.Helper()
	ctx := context.Background()

	// TestContainer起動
	mysqlContainer := testcontainer.StartMySQL(ctx, t)

	// DB接続
	sqldb, err := sql.Open("mysql", mysqlContainer.ConnectionString())
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	repo := NewBunRuleRepositoryWithDB(bun.NewDB(sqldb, mysqldialect.New()))
	t.Cleanup(func() {
		_ = repo.Close()
	})

	// テーブル作成
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	return repo
}

func TestBunRuleRepository_CreateAndFind(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rules := []domain.CustomRule{
		{Pattern: "colour", Replacement: "color", Category: domain.CategorySpelling, Message: "US spelling"},
		{Pattern: "utilise", Replacement: "use", Category: domain.CategoryStyle},
		{Pattern: "alot", Replacement: "a lot"},
	}
	for _, rule := range rules {
		if err := repo.Create(ctx, rule); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	got, err := repo.FindEnabled(ctx)
	if err != nil {
		t.Fatalf("FindEnabled() error = %v", err)
	}
	if len(got) != len(rules) {
		t.Fatalf("FindEnabled() returned %d rules, want %d", len(got), len(rules))
	}

	byPattern := make(map[string]domain.CustomRule, len(got))
	for _, r := range got {
		byPattern[r.Pattern] = r
	}
	if byPattern["colour"].Message != "US spelling" {
		t.Errorf("Message = %q, want %q", byPattern["colour"].Message, "US spelling")
	}
	if byPattern["utilise"].Category != domain.CategoryStyle {
		t.Errorf("Category = %q, want %q", byPattern["utilise"].Category, domain.CategoryStyle)
	}
	if byPattern["alot"].Category != domain.CategoryOther {
		t.Errorf("Category = %q, want %q", byPattern["alot"].Category, domain.CategoryOther)
	}
}

func TestBunRuleRepository_Disable(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, domain.CustomRule{Pattern: "colour", Replacement: "color"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, domain.CustomRule{Pattern: "favour", Replacement: "favor"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	n, err := repo.Disable(ctx, "colour")
	if err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Disable() affected %d rows, want 1", n)
	}

	got, err := repo.FindEnabled(ctx)
	if err != nil {
		t.Fatalf("FindEnabled() error = %v", err)
	}
	if len(got) != 1 || got[0].Pattern != "favour" {
		t.Errorf("FindEnabled() = %+v, want only favour", got)
	}
}

func TestBunRuleRepository_CreateEmptyPattern(t *testing.T) {
	// DBに触れる前に弾く
	repo := NewBunRuleRepositoryWithDB(nil)

	if err := repo.Create(context.Background(), domain.CustomRule{Pattern: "  "}); err == nil {
		t.Error("Create() expected error for empty pattern")
	}
}

func TestToCustomRule(t *testing.T) {
	tests := []struct {
		name     string
		category string
		want     domain.Category
	}{
		{"正常系: 既知のカテゴリ", "spelling", domain.CategorySpelling},
		{"正常系: 大文字", "Grammar", domain.CategoryGrammar},
		{"異常系: 未知のカテゴリ", "unknown", domain.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toCustomRule(CorrectionRule{Pattern: "p", Replacement: "r", Category: tt.category})
			if got.Category != tt.want {
				t.Errorf("Category = %q, want %q", got.Category, tt.want)
			}
		})
	}
}
