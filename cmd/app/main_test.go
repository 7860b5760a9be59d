package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// MockServer テスト用のモックサーバー
type MockServer struct {
	listenAndServeFunc func() error
	shutdownFunc       func(ctx context.Context) error
}

func (m *MockServer) ListenAndServe() error {
	if m.listenAndServeFunc != nil {
		return m.listenAndServeFunc()
	}
	return nil
}

func (m *MockServer) Shutdown(ctx context.Context) error {
	if m.shutdownFunc != nil {
		return m.shutdownFunc(ctx)
	}
	return nil
}

// offlineEnv 外部サービスへ接続しない環境変数を設定
func offlineEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("HUGGINGFACE_API_KEY", "")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("MYSQL_ENABLED", "false")
	t.Setenv("LANGUAGETOOL_ENABLED", "false")
}

func newTestApp(t *testing.T, configPath, port string) *App {
	t.Helper()
	app, err := NewApp(&AppConfig{ConfigPath: configPath, Port: port})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	t.Cleanup(func() { _ = app.container.Close() })
	return app
}

// TestNewApp_Fast NewAppの高速テスト（サーバー起動なし）
func TestNewApp_Fast(t *testing.T) {
	offlineEnv(t)

	tests := []struct {
		name     string
		port     string
		wantPort string
	}{
		{name: "正常系: デフォルト設定", port: "8080", wantPort: ":8080"},
		{name: "正常系: カスタムポート", port: "9090", wantPort: ":9090"},
		{name: "正常系: 空ポート（デフォルト）", port: "", wantPort: ":8080"},
		{name: "境界値: 最大ポート", port: "65535", wantPort: ":65535"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, "nonexistent.yaml", tt.port)

			if app.server.Addr != tt.wantPort {
				t.Errorf("server.Addr = %v, want %v", app.server.Addr, tt.wantPort)
			}

			// タイムアウト設定の検証
			if app.server.ReadTimeout != readTimeout {
				t.Errorf("ReadTimeout = %v, want %v", app.server.ReadTimeout, readTimeout)
			}
			if app.server.WriteTimeout != writeTimeout {
				t.Errorf("WriteTimeout = %v, want %v", app.server.WriteTimeout, writeTimeout)
			}
			if app.server.IdleTimeout != idleTimeout {
				t.Errorf("IdleTimeout = %v, want %v", app.server.IdleTimeout, idleTimeout)
			}
			if app.server.Handler == nil {
				t.Error("server.Handler is nil")
			}
		})
	}
}

// TestApp_WithConfigFile 設定ファイルを使用したテスト
func TestApp_WithConfigFile(t *testing.T) {
	offlineEnv(t)

	tests := []struct {
		name           string
		configContent  string
		validateConfig func(*testing.T, *App)
	}{
		{
			name: "正常系: 有効な設定ファイル",
			configContent: `correction:
  max_text_length: 500
  preferred_backend: rule-table
log:
  level: debug
`,
			validateConfig: func(t *testing.T, app *App) {
				cfg := app.container.Config()
				if cfg.Correction.MaxTextLength != 500 {
					t.Errorf("MaxTextLength = %d, want 500", cfg.Correction.MaxTextLength)
				}
				if app.container.CorrectionUseCase().MaxTextLength() != 500 {
					t.Errorf("use case MaxTextLength = %d, want 500", app.container.CorrectionUseCase().MaxTextLength())
				}
				if !app.logger.Enabled(context.Background(), slog.LevelDebug) {
					t.Error("debug level should be enabled")
				}
			},
		},
		{
			name:          "異常系: 無効なYAML（デフォルトにフォールバック）",
			configContent: `invalid: yaml: [[[`,
			validateConfig: func(t *testing.T, app *App) {
				if app.container.Config().Correction.MaxTextLength != 15000 {
					t.Errorf("MaxTextLength = %d, want 15000", app.container.Config().Correction.MaxTextLength)
				}
			},
		},
		{
			name:          "正常系: 空の設定ファイル",
			configContent: "",
			validateConfig: func(t *testing.T, app *App) {
				if app.server.Addr != ":8080" {
					t.Errorf("server.Addr = %v, want :8080", app.server.Addr)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.configContent), 0644); err != nil {
				t.Fatalf("Failed to create test config: %v", err)
			}

			app := newTestApp(t, configPath, "8080")
			tt.validateConfig(t, app)
		})
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantLevel slog.Level
	}{
		{name: "正常系: debug", level: "debug", wantLevel: slog.LevelDebug},
		{name: "正常系: 大文字", level: "WARN", wantLevel: slog.LevelWarn},
		{name: "正常系: error", level: "error", wantLevel: slog.LevelError},
		{name: "異常系: 不明なレベルはinfo", level: "verbose", wantLevel: slog.LevelInfo},
		{name: "境界値: 空はinfo", level: "", wantLevel: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := newLogger(tt.level)
			ctx := context.Background()

			if !logger.Enabled(ctx, tt.wantLevel) {
				t.Errorf("level %v should be enabled", tt.wantLevel)
			}
			if logger.Enabled(ctx, tt.wantLevel-1) {
				t.Errorf("level %v should be disabled", tt.wantLevel-1)
			}
		})
	}
}

// TestApp_Shutdown Shutdownの冪等性テスト（サーバー起動なし）
func TestApp_Shutdown(t *testing.T) {
	offlineEnv(t)
	app := newTestApp(t, "nonexistent.yaml", "8080")

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := app.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown() #%d error = %v", i+1, err)
		}
		cancel()
	}
}

func TestApp_Shutdown_ServerError(t *testing.T) {
	offlineEnv(t)
	app := newTestApp(t, "nonexistent.yaml", "8080")
	app.serverSeam = &MockServer{
		shutdownFunc: func(ctx context.Context) error {
			return errors.New("listener busy")
		},
	}

	if err := app.Shutdown(context.Background()); err == nil {
		t.Error("Shutdown() expected error")
	}
}

// TestApp_Start_WithMock モックを使用したStartのテスト
func TestApp_Start_WithMock(t *testing.T) {
	offlineEnv(t)

	tests := []struct {
		name    string
		mockErr error
		wantErr bool
	}{
		{name: "正常系: 起動成功", mockErr: nil, wantErr: false},
		{name: "異常系: 起動失敗", mockErr: context.DeadlineExceeded, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, "nonexistent.yaml", "8080")
			app.serverSeam = &MockServer{
				listenAndServeFunc: func() error {
					return tt.mockErr
				},
			}

			err := app.Start()
			if (err != nil) != tt.wantErr {
				t.Errorf("Start() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestApp_Run_WithMock モックを使用したRunのテスト
func TestApp_Run_WithMock(t *testing.T) {
	offlineEnv(t)

	t.Run("異常系: 起動失敗はエラーを返す", func(t *testing.T) {
		app := newTestApp(t, "nonexistent.yaml", "8080")
		app.serverSeam = &MockServer{
			listenAndServeFunc: func() error {
				return errors.New("address already in use")
			},
		}

		done := make(chan error, 1)
		go func() {
			done <- app.Run()
		}()

		select {
		case err := <-done:
			if err == nil {
				t.Error("Run() expected error")
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Run() did not return within timeout")
		}
	})

	t.Run("正常系: シグナル受信でシャットダウン", func(t *testing.T) {
		app := newTestApp(t, "nonexistent.yaml", "8080")

		var startCalled, shutdownCalled atomic.Bool
		app.serverSeam = &MockServer{
			listenAndServeFunc: func() error {
				startCalled.Store(true)
				return nil
			},
			shutdownFunc: func(ctx context.Context) error {
				shutdownCalled.Store(true)
				return nil
			},
		}

		done := make(chan error, 1)
		go func() {
			done <- app.Run()
		}()

		// 少し待ってからシグナルを送信
		time.Sleep(200 * time.Millisecond)
		proc, _ := os.FindProcess(os.Getpid())
		_ = proc.Signal(os.Interrupt)

		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Run() did not return within timeout")
		}

		if !startCalled.Load() {
			t.Error("Start was not called")
		}
		if !shutdownCalled.Load() {
			t.Error("Shutdown was not called")
		}
	})
}

// TestApp_LogStartup 起動ログのテスト
func TestApp_LogStartup(t *testing.T) {
	offlineEnv(t)
	app := newTestApp(t, "nonexistent.yaml", "8080")

	// panicしないことを確認
	app.logStartup()
}

// TestApp_NilConfig nilの設定でのパニックテスト
func TestApp_NilConfig(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for nil config, but didn't panic")
		}
	}()

	_, _ = NewApp(nil)
}
