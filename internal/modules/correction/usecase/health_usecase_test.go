package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grammar-api-app/internal/modules/correction/domain"
	"grammar-api-app/internal/modules/shared/infrastructure/rules"
)

func TestHealthUseCase_Check(t *testing.T) {
	const fixed = "She goes to school every day."

	tests := []struct {
		name       string
		claude     func(context.Context, string, string) (*domain.CorrectionResult, error)
		available  bool
		terminal   domain.Backend
		wantClaude HealthStatus
		wantStatus HealthStatus
	}{
		{
			name:       "正常系: 全て正常",
			claude:     replacing("claude", fixed),
			available:  true,
			terminal:   rules.NewRuleTableRepository(nil),
			wantClaude: StatusHealthy,
			wantStatus: StatusHealthy,
		},
		{
			name:       "正常系: 退化した応答は劣化",
			claude:     replacing("claude", "OK"),
			available:  true,
			terminal:   rules.NewRuleTableRepository(nil),
			wantClaude: StatusDegraded,
			wantStatus: StatusDegraded,
		},
		{
			name:       "異常系: 失敗したバックエンドがあれば劣化",
			claude:     failing("claude", domain.ErrBackendAuth),
			available:  true,
			terminal:   rules.NewRuleTableRepository(nil),
			wantClaude: StatusUnhealthy,
			wantStatus: StatusDegraded,
		},
		{
			name:       "異常系: 未設定のバックエンド",
			claude:     replacing("claude", fixed),
			available:  false,
			terminal:   rules.NewRuleTableRepository(nil),
			wantClaude: StatusUnhealthy,
			wantStatus: StatusDegraded,
		},
		{
			name:       "異常系: ルールテーブルの失敗は全体が異常",
			claude:     replacing("claude", fixed),
			available:  true,
			terminal:   &MockBackend{NameValue: "rule-table", TryCorrectFunc: failing("rule-table", domain.ErrBackendFailure)},
			wantClaude: StatusHealthy,
			wantStatus: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claude := &MockBackend{NameValue: "claude", TryCorrectFunc: tt.claude}
			reg := register(claude, 1)
			reg.Available = tt.available

			uc := NewHealthUseCase(tt.terminal, []domain.BackendRegistration{reg}, discardLogger())
			report := uc.Check(context.Background())

			require.Len(t, report.Backends, 2)
			assert.Equal(t, "claude", report.Backends[0].Name)
			assert.Equal(t, tt.wantClaude, report.Backends[0].Status)
			assert.Equal(t, "rule-table", report.Backends[1].Name)
			assert.Equal(t, tt.wantStatus, report.Status)
			assert.False(t, report.Timestamp.IsZero())

			if tt.wantClaude == StatusUnhealthy {
				assert.NotEmpty(t, report.Backends[0].Error)
			}
			if !tt.available {
				assert.Equal(t, 0, claude.Calls())
			}
		})
	}
}

func TestHealthUseCase_Check_Slow(t *testing.T) {
	slow := &MockBackend{
		NameValue: "slow",
		TryCorrectFunc: func(ctx context.Context, text, language string) (*domain.CorrectionResult, error) {
			time.Sleep(30 * time.Millisecond)
			return replacing("slow", text)(ctx, text, language)
		},
	}
	reg := domain.BackendRegistration{Backend: slow, Available: true, Timeout: 40 * time.Millisecond}

	uc := NewHealthUseCase(rules.NewRuleTableRepository(nil), []domain.BackendRegistration{reg}, discardLogger())
	report := uc.Check(context.Background())

	assert.Equal(t, StatusDegraded, report.Backends[0].Status)
	assert.GreaterOrEqual(t, report.Backends[0].LatencyMs, int64(30))
	assert.Equal(t, StatusDegraded, report.Status)
}

func TestHealthUseCase_Check_Concurrent(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)

	blocking := func(name string) *MockBackend {
		return &MockBackend{
			NameValue: name,
			TryCorrectFunc: func(ctx context.Context, text, language string) (*domain.CorrectionResult, error) {
				started <- struct{}{}
				<-release
				return replacing(name, text)(ctx, text, language)
			},
		}
	}

	uc := NewHealthUseCase(rules.NewRuleTableRepository(nil), []domain.BackendRegistration{
		register(blocking("a"), 1),
		register(blocking("b"), 2),
	}, discardLogger())

	done := make(chan *HealthReport)
	go func() {
		done <- uc.Check(context.Background())
	}()

	// 両方のプローブが同時に走っていること
	<-started
	<-started
	close(release)

	report := <-done
	assert.Equal(t, StatusHealthy, report.Status)
}
